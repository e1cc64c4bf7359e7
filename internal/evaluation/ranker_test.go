package evaluation

import (
	"context"
	"reflect"
	"testing"

	"github.com/explainbench/explain-bench/internal/explain"
)

func TestDenseRank(t *testing.T) {
	tests := []struct {
		name    string
		values  []float64
		want    []int
		wantMax int
	}{
		{
			name:    "distinct values",
			values:  []float64{0.5, 0.9, 0.1},
			want:    []int{2, 3, 1},
			wantMax: 3,
		},
		{
			name:    "ties share a rank without gaps",
			values:  []float64{0.5, 0.9, 0.5, 0.1},
			want:    []int{2, 3, 2, 1},
			wantMax: 3,
		},
		{
			name:    "all equal",
			values:  []float64{0.4, 0.4, 0.4},
			want:    []int{1, 1, 1},
			wantMax: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, max := denseRank(tt.values)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("denseRank() = %v, want %v", got, tt.want)
			}
			if max != tt.wantMax {
				t.Errorf("denseRank() max = %d, want %d", max, tt.wantMax)
			}
		})
	}
}

// rankFixture evaluates a two-column matrix with a single stub metric whose
// value is the first token's score, so per-explainer metric values are under
// direct test control.
func rankFixture(t *testing.T, metric Metric, firstScores []float64) *explain.Table {
	t.Helper()

	explainers := make([]string, len(firstScores))
	scores := make([][]float64, len(firstScores))
	for i, v := range firstScores {
		explainers[i] = "exp" + string(rune('a'+i))
		scores[i] = []float64{v, 0}
	}

	m, err := explain.NewMatrix(explainers, []string{"a", "b"}, scores)
	if err != nil {
		t.Fatalf("NewMatrix() error = %v", err)
	}

	e, err := New(nil, splitTokenizer{}, Config{Metrics: []Metric{metric}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	table, err := e.EvaluateExplainers(context.Background(), "a b", m, EvaluateOptions{Target: 1, Rank: true})
	if err != nil {
		t.Fatalf("EvaluateExplainers() error = %v", err)
	}
	return table
}

func TestRank_HigherIsBetter(t *testing.T) {
	metric := stubMetric{name: "m", category: CategoryFaithfulness}
	table := rankFixture(t, metric, []float64{0.9, 0.5})

	ranks, ok := table.Column("m" + RankSuffix)
	if !ok {
		t.Fatal("rank column missing")
	}
	if !reflect.DeepEqual(ranks, []float64{1, 2}) {
		t.Errorf("ranks = %v, want [1 2]", ranks)
	}
}

func TestRank_LowerIsBetter(t *testing.T) {
	metric := stubMetric{name: "m", category: CategoryFaithfulness, lower: true}
	table := rankFixture(t, metric, []float64{0.9, 0.5})

	ranks, ok := table.Column("m" + RankSuffix)
	if !ok {
		t.Fatal("rank column missing")
	}
	if !reflect.DeepEqual(ranks, []float64{2, 1}) {
		t.Errorf("ranks = %v, want [2 1]", ranks)
	}
}

func TestRank_TiesShareBestRank(t *testing.T) {
	metric := stubMetric{name: "m", category: CategoryFaithfulness}
	table := rankFixture(t, metric, []float64{0.5, 0.5})

	ranks, ok := table.Column("m" + RankSuffix)
	if !ok {
		t.Fatal("rank column missing")
	}
	if !reflect.DeepEqual(ranks, []float64{1, 1}) {
		t.Errorf("tied ranks = %v, want [1 1]", ranks)
	}
}

func TestRank_BoundsWithTies(t *testing.T) {
	metric := stubMetric{name: "m", category: CategoryFaithfulness}
	table := rankFixture(t, metric, []float64{0.9, 0.5, 0.5, 0.1, 0.9})

	ranks, _ := table.Column("m" + RankSuffix)
	n := len(table.Rows())
	seen := make(map[float64]bool)
	for _, r := range ranks {
		if r < 1 || r > float64(n) {
			t.Errorf("rank %v outside [1, %d]", r, n)
		}
		seen[r] = true
	}
	// Dense: every rank between 1 and the number of distinct values occurs.
	for r := 1; r <= len(seen); r++ {
		if !seen[float64(r)] {
			t.Errorf("rank %d missing, ranks are not dense: %v", r, ranks)
		}
	}
}

func TestRank_ColumnOrder(t *testing.T) {
	metrics := []Metric{
		stubMetric{name: "o1", category: CategoryOther},
		stubMetric{name: "f1", category: CategoryFaithfulness},
	}

	m, err := explain.NewMatrix([]string{"x", "y"}, []string{"a", "b"}, [][]float64{{0.9, 0}, {0.5, 0}})
	if err != nil {
		t.Fatalf("NewMatrix() error = %v", err)
	}

	e, err := New(nil, splitTokenizer{}, Config{Metrics: metrics})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	table, err := e.EvaluateExplainers(context.Background(), "a b", m, EvaluateOptions{Target: 1, Rank: true})
	if err != nil {
		t.Fatalf("EvaluateExplainers() error = %v", err)
	}

	// Token columns first, then score and rank pairs in registration order:
	// faithfulness before other regardless of constructor order.
	want := []string{"a", "b", "f1", "f1_r", "o1", "o1_r"}
	if got := table.Columns(); !reflect.DeepEqual(got, want) {
		t.Errorf("columns = %v, want %v", got, want)
	}
}
