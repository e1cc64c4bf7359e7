package evaluation

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/explainbench/explain-bench/internal/explain"
	"github.com/explainbench/explain-bench/internal/pkg/errors"
)

// failMetric fails on every call and counts invocations.
type failMetric struct {
	calls *int
}

func (f failMetric) ShortName() string { return "boom" }
func (f failMetric) Category() Category { return CategoryFaithfulness }
func (f failMetric) LowerIsBetter() bool { return false }

func (f failMetric) Evaluate(_ context.Context, _ Input) (float64, error) {
	*f.calls++
	return 0, fmt.Errorf("metric blew up")
}

func newTestEvaluator(t *testing.T, metrics []Metric) *Evaluator {
	t.Helper()
	e, err := New(nil, splitTokenizer{}, Config{Metrics: metrics})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func TestEvaluateExplainers_DuplicateTokensRenamed(t *testing.T) {
	m, err := explain.NewMatrix(
		[]string{"lime", "shap"},
		[]string{"the", "cat", "the"},
		[][]float64{{0.1, 0.9, 0.2}, {0.3, 0.7, 0.4}},
	)
	if err != nil {
		t.Fatalf("NewMatrix() error = %v", err)
	}

	e := newTestEvaluator(t, []Metric{stubMetric{name: "m", category: CategoryFaithfulness}})

	table, err := e.EvaluateExplainers(context.Background(), "the cat the", m, EvaluateOptions{Target: 1})
	if err != nil {
		t.Fatalf("EvaluateExplainers() error = %v", err)
	}

	want := []string{"the", "cat", "the.1", "m"}
	if got := table.Columns(); !reflect.DeepEqual(got, want) {
		t.Errorf("columns = %v, want %v", got, want)
	}

	// Each renamed column keeps its own scores.
	if v, _ := table.Cell(0, "the"); v != 0.1 {
		t.Errorf("cell(0, the) = %v, want 0.1", v)
	}
	if v, _ := table.Cell(0, "the.1"); v != 0.2 {
		t.Errorf("cell(0, the.1) = %v, want 0.2", v)
	}

	// The caller's matrix is untouched.
	if !reflect.DeepEqual(m.Tokens, []string{"the", "cat", "the"}) {
		t.Errorf("input matrix tokens mutated: %v", m.Tokens)
	}
}

func TestEvaluateExplainers_PlausibilitySkippedWithoutRationale(t *testing.T) {
	metrics := []Metric{
		stubMetric{name: "f1", category: CategoryFaithfulness},
		stubMetric{name: "p1", category: CategoryPlausibility},
	}
	e := newTestEvaluator(t, metrics)

	m, err := explain.NewMatrix([]string{"x"}, []string{"a", "b"}, [][]float64{{0.5, 0.5}})
	if err != nil {
		t.Fatalf("NewMatrix() error = %v", err)
	}

	table, err := e.EvaluateExplainers(context.Background(), "a b", m, EvaluateOptions{Target: 1})
	if err != nil {
		t.Fatalf("EvaluateExplainers() error = %v", err)
	}
	if table.HasColumn("p1") {
		t.Error("plausibility column present without a rationale")
	}
	if !table.HasColumn("f1") {
		t.Error("faithfulness column missing")
	}

	// With a rationale the plausibility metric runs.
	table, err = e.EvaluateExplainers(context.Background(), "a b", m, EvaluateOptions{
		Target:    1,
		Rationale: []int{1, 0},
	})
	if err != nil {
		t.Fatalf("EvaluateExplainers() with rationale error = %v", err)
	}
	if !table.HasColumn("p1") {
		t.Error("plausibility column missing despite rationale")
	}
}

func TestEvaluateExplainers_ScoreShapeMismatch(t *testing.T) {
	calls := 0
	e := newTestEvaluator(t, []Metric{failMetric{calls: &calls}})

	m, err := explain.NewMatrix([]string{"x"}, []string{"a", "b"}, [][]float64{{0.5, 0.5}})
	if err != nil {
		t.Fatalf("NewMatrix() error = %v", err)
	}
	// Widen a score vector behind the constructor's back.
	m.Scores[0] = []float64{0.5, 0.5, 0.5}

	_, err = e.EvaluateExplainers(context.Background(), "a b", m, EvaluateOptions{Target: 1})
	if !errors.IsShapeMismatch(err) {
		t.Fatalf("error = %v, want shape mismatch", err)
	}
	if calls != 0 {
		t.Errorf("metric invoked %d times before shape validation", calls)
	}
}

func TestEvaluateExplainers_RationaleShapeMismatch(t *testing.T) {
	e := newTestEvaluator(t, []Metric{stubMetric{name: "m", category: CategoryFaithfulness}})

	m, err := explain.NewMatrix([]string{"x"}, []string{"a", "b"}, [][]float64{{0.5, 0.5}})
	if err != nil {
		t.Fatalf("NewMatrix() error = %v", err)
	}

	_, err = e.EvaluateExplainers(context.Background(), "a b", m, EvaluateOptions{
		Target:    1,
		Rationale: []int{1},
	})
	if !errors.IsShapeMismatch(err) {
		t.Fatalf("error = %v, want shape mismatch", err)
	}
}

func TestEvaluateExplainers_MetricErrorAborts(t *testing.T) {
	calls := 0
	e := newTestEvaluator(t, []Metric{failMetric{calls: &calls}})

	m, err := explain.NewMatrix(
		[]string{"x", "y"},
		[]string{"a"},
		[][]float64{{0.5}, {0.7}},
	)
	if err != nil {
		t.Fatalf("NewMatrix() error = %v", err)
	}

	table, err := e.EvaluateExplainers(context.Background(), "a", m, EvaluateOptions{Target: 1})
	if err == nil {
		t.Fatal("expected metric failure to propagate")
	}
	if table != nil {
		t.Error("partial table returned alongside error")
	}
	// The first failure aborts; the second explainer row is never evaluated.
	if calls != 1 {
		t.Errorf("metric called %d times, want 1", calls)
	}
}

func TestEvaluateExplainers_Deterministic(t *testing.T) {
	metrics := []Metric{
		stubMetric{name: "f1", category: CategoryFaithfulness},
		stubMetric{name: "o1", category: CategoryOther},
	}
	e := newTestEvaluator(t, metrics)

	m, err := explain.NewMatrix(
		[]string{"lime", "shap", "grad"},
		[]string{"a", "b"},
		[][]float64{{0.9, 0.1}, {0.5, 0.5}, {0.1, 0.9}},
	)
	if err != nil {
		t.Fatalf("NewMatrix() error = %v", err)
	}

	opts := EvaluateOptions{Target: 1, Rank: true}
	first, err := e.EvaluateExplainers(context.Background(), "a b", m, opts)
	if err != nil {
		t.Fatalf("first call error = %v", err)
	}
	second, err := e.EvaluateExplainers(context.Background(), "a b", m, opts)
	if err != nil {
		t.Fatalf("second call error = %v", err)
	}

	if !reflect.DeepEqual(first.Columns(), second.Columns()) {
		t.Errorf("column order differs: %v vs %v", first.Columns(), second.Columns())
	}
	if !reflect.DeepEqual(first.Rows(), second.Rows()) {
		t.Errorf("row order differs: %v vs %v", first.Rows(), second.Rows())
	}
	for _, col := range first.Columns() {
		a, _ := first.Column(col)
		b, _ := second.Column(col)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("column %q differs: %v vs %v", col, a, b)
		}
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, nil, Config{Metrics: []Metric{stubMetric{name: "m", category: CategoryFaithfulness}}}); !errors.IsConfiguration(err) {
		t.Errorf("nil tokenizer: error = %v, want configuration error", err)
	}
	if _, err := New(nil, splitTokenizer{}, DefaultConfig()); !errors.IsConfiguration(err) {
		t.Errorf("nil scorer with default metrics: error = %v, want configuration error", err)
	}
}
