package explain

import (
	"encoding/json"
	"math"

	"github.com/explainbench/explain-bench/internal/pkg/errors"
)

// Table is the tabular result of an evaluation run: named rows (explainer
// variants) against ordered named columns (token columns, metric scores, rank
// columns). Absent cells are NaN. The table is a plain structured value;
// rendering layers consume it read-only.
type Table struct {
	rows    []string
	columns []string
	colIdx  map[string]int
	cells   [][]float64 // [row][column]
}

// NewTable creates a table with the given row names and no columns.
func NewTable(rows []string) *Table {
	t := &Table{
		rows:   make([]string, len(rows)),
		colIdx: make(map[string]int),
		cells:  make([][]float64, len(rows)),
	}
	copy(t.rows, rows)
	for i := range t.cells {
		t.cells[i] = []float64{}
	}
	return t
}

// Rows returns the row names in order.
func (t *Table) Rows() []string {
	out := make([]string, len(t.rows))
	copy(out, t.rows)
	return out
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// HasColumn reports whether a column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.colIdx[name]
	return ok
}

// AddColumn appends a column with one value per row.
func (t *Table) AddColumn(name string, values []float64) error {
	if _, ok := t.colIdx[name]; ok {
		return errors.ValidationError("duplicate column name: " + name)
	}
	if len(values) != len(t.rows) {
		return errors.ShapeMismatchError("column "+name, len(t.rows), len(values))
	}

	t.colIdx[name] = len(t.columns)
	t.columns = append(t.columns, name)
	for i := range t.cells {
		t.cells[i] = append(t.cells[i], values[i])
	}
	return nil
}

// Column returns a copy of the named column's values in row order.
func (t *Table) Column(name string) ([]float64, bool) {
	idx, ok := t.colIdx[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(t.rows))
	for i := range t.cells {
		out[i] = t.cells[i][idx]
	}
	return out, true
}

// Cell returns the value at (row index, column name).
func (t *Table) Cell(row int, column string) (float64, bool) {
	idx, ok := t.colIdx[column]
	if !ok || row < 0 || row >= len(t.rows) {
		return 0, false
	}
	return t.cells[row][idx], true
}

// Reorder rearranges columns into the given order. Every existing column must
// appear exactly once.
func (t *Table) Reorder(order []string) error {
	if len(order) != len(t.columns) {
		return errors.ShapeMismatchError("column order", len(t.columns), len(order))
	}

	perm := make([]int, len(order))
	for i, name := range order {
		idx, ok := t.colIdx[name]
		if !ok {
			return errors.NotFoundError("column " + name)
		}
		perm[i] = idx
	}

	newCols := make([]string, len(order))
	copy(newCols, order)
	newIdx := make(map[string]int, len(order))
	for i, name := range newCols {
		newIdx[name] = i
	}

	for r := range t.cells {
		reordered := make([]float64, len(perm))
		for i, src := range perm {
			reordered[i] = t.cells[r][src]
		}
		t.cells[r] = reordered
	}

	t.columns = newCols
	t.colIdx = newIdx
	return nil
}

// tableJSON is the wire form of a Table. NaN cells become nulls.
type tableJSON struct {
	Columns []string   `json:"columns"`
	Rows    []tableRow `json:"rows"`
}

type tableRow struct {
	Name   string     `json:"name"`
	Values []*float64 `json:"values"`
}

// MarshalJSON implements json.Marshaler.
func (t *Table) MarshalJSON() ([]byte, error) {
	out := tableJSON{
		Columns: t.Columns(),
		Rows:    make([]tableRow, len(t.rows)),
	}
	for i, name := range t.rows {
		values := make([]*float64, len(t.columns))
		for j := range t.columns {
			v := t.cells[i][j]
			if !math.IsNaN(v) {
				vc := v
				values[j] = &vc
			}
		}
		out.Rows[i] = tableRow{Name: name, Values: values}
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Table) UnmarshalJSON(data []byte) error {
	var in tableJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	rows := make([]string, len(in.Rows))
	for i, r := range in.Rows {
		rows[i] = r.Name
	}

	rebuilt := NewTable(rows)
	for j, col := range in.Columns {
		values := make([]float64, len(in.Rows))
		for i, r := range in.Rows {
			if j < len(r.Values) && r.Values[j] != nil {
				values[i] = *r.Values[j]
			} else {
				values[i] = math.NaN()
			}
		}
		if err := rebuilt.AddColumn(col, values); err != nil {
			return err
		}
	}

	*t = *rebuilt
	return nil
}
