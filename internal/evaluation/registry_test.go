package evaluation

import (
	"context"
	"testing"

	"github.com/explainbench/explain-bench/internal/pkg/errors"
)

// stubMetric is a minimal metric whose Evaluate returns the first score of
// the vector, so different explainer rows produce different values.
type stubMetric struct {
	name     string
	category Category
	lower    bool
}

func (s stubMetric) ShortName() string { return s.name }
func (s stubMetric) Category() Category { return s.category }
func (s stubMetric) LowerIsBetter() bool { return s.lower }

func (s stubMetric) Evaluate(_ context.Context, in Input) (float64, error) {
	return in.Scores[0], nil
}

func TestNewRegistry_Partitioning(t *testing.T) {
	metrics := []Metric{
		stubMetric{name: "f1", category: CategoryFaithfulness},
		stubMetric{name: "p1", category: CategoryPlausibility},
		stubMetric{name: "o1", category: CategoryOther},
		stubMetric{name: "f2", category: CategoryFaithfulness},
	}

	r, err := NewRegistry(metrics)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	if got := len(r.Faithfulness()); got != 2 {
		t.Errorf("faithfulness bucket size = %d, want 2", got)
	}
	if got := len(r.Plausibility()); got != 1 {
		t.Errorf("plausibility bucket size = %d, want 1", got)
	}
	if got := len(r.Other()); got != 1 {
		t.Errorf("other bucket size = %d, want 1", got)
	}

	// All() keeps canonical order: faithfulness, plausibility, other.
	wantOrder := []string{"f1", "f2", "p1", "o1"}
	for i, m := range r.All() {
		if m.ShortName() != wantOrder[i] {
			t.Errorf("All()[%d] = %s, want %s", i, m.ShortName(), wantOrder[i])
		}
	}
}

func TestNewRegistry_Validation(t *testing.T) {
	tests := []struct {
		name    string
		metrics []Metric
	}{
		{"nil metric", []Metric{nil}},
		{"empty short name", []Metric{stubMetric{name: "", category: CategoryOther}}},
		{"unknown category", []Metric{stubMetric{name: "x", category: Category("wild")}}},
		{"duplicate short name", []Metric{
			stubMetric{name: "dup", category: CategoryFaithfulness},
			stubMetric{name: "dup", category: CategoryOther},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.metrics)
			if err == nil {
				t.Fatal("expected configuration error")
			}
			if !errors.IsConfiguration(err) {
				t.Errorf("error = %v, want CONFIGURATION_ERROR", err)
			}
		})
	}
}

func TestDefaultRegistry(t *testing.T) {
	scorer := &flatScorer{prob: 0.5}

	r := DefaultRegistry(scorer, DefaultRegistryConfig())

	if got := len(r.Faithfulness()); got != 3 {
		t.Errorf("default faithfulness bucket size = %d, want 3", got)
	}
	if got := len(r.Plausibility()); got != 3 {
		t.Errorf("default plausibility bucket size = %d, want 3", got)
	}
	if !r.HasPlausibility() {
		t.Error("HasPlausibility() = false with defaults")
	}

	cfg := DefaultRegistryConfig()
	cfg.UsePlausibility = false
	r = DefaultRegistry(scorer, cfg)
	if r.HasPlausibility() {
		t.Error("HasPlausibility() = true with plausibility disabled")
	}
}
