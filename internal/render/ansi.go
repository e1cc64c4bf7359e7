package render

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/explainbench/explain-bench/internal/explain"
)

const ansiReset = "\x1b[0m"

// 256-color ramps, low value first. The diverging ramp runs red through
// yellow to green; the rank ramp runs bright to dim so rank 1 stands out.
var (
	divergingRamp = []int{196, 208, 226, 148, 46}
	rankRamp      = []int{231, 253, 250, 245, 240}
)

// Renderer writes a score table to a terminal. It reads the table and never
// alters it.
type Renderer struct {
	out       io.Writer
	styles    Styles
	color     bool
	precision int
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithColor toggles ANSI colors, e.g. off when stdout is not a terminal.
func WithColor(on bool) Option {
	return func(r *Renderer) { r.color = on }
}

// WithPrecision sets the number of decimal places for cell values.
func WithPrecision(p int) Option {
	return func(r *Renderer) { r.precision = p }
}

// New creates a Renderer writing to out with the given column styles.
func New(out io.Writer, styles Styles, opts ...Option) *Renderer {
	r := &Renderer{
		out:       out,
		styles:    styles,
		color:     true,
		precision: 4,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render writes the table: a header of column names, one row per explainer.
// NaN cells render as a dash with no color.
func (r *Renderer) Render(table *explain.Table) error {
	columns := table.Columns()
	rows := table.Rows()

	// Per-column value range for color normalization.
	ranges := make(map[string][2]float64, len(columns))
	for _, col := range columns {
		values, _ := table.Column(col)
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range values {
			if math.IsNaN(v) {
				continue
			}
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		ranges[col] = [2]float64{lo, hi}
	}

	w := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)

	header := append([]string{"EXPLAINER"}, columns...)
	if _, err := fmt.Fprintln(w, strings.Join(header, "\t")); err != nil {
		return err
	}

	for i, row := range rows {
		cells := make([]string, 0, len(columns)+1)
		cells = append(cells, row)
		for _, col := range columns {
			v, ok := table.Cell(i, col)
			cells = append(cells, r.cell(col, v, ok, ranges[col]))
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}

	return w.Flush()
}

func (r *Renderer) cell(column string, v float64, ok bool, rng [2]float64) string {
	if !ok || math.IsNaN(v) {
		return "-"
	}

	text := fmt.Sprintf("%.*f", r.precision, v)
	if !r.color {
		return text
	}

	scale := r.styles.scaleFor(column)
	if scale == ScaleNone {
		return text
	}

	return colorize(text, scale, normalize(v, rng))
}

// normalize maps v into [0, 1] over the column range; a degenerate range
// lands everything in the middle.
func normalize(v float64, rng [2]float64) float64 {
	lo, hi := rng[0], rng[1]
	if math.IsInf(lo, 1) || hi == lo {
		return 0.5
	}
	return (v - lo) / (hi - lo)
}

func colorize(text string, scale Scale, t float64) string {
	var ramp []int
	switch scale {
	case ScaleHigherBetter:
		ramp = divergingRamp
	case ScaleLowerBetter:
		ramp = divergingRamp
		t = 1 - t
	case ScaleRank:
		ramp = rankRamp
	default:
		return text
	}

	idx := int(t * float64(len(ramp)))
	if idx >= len(ramp) {
		idx = len(ramp) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s%s", ramp[idx], text, ansiReset)
}
