package explain

import (
	"testing"
)

func TestNewMatrix_ShapeValidation(t *testing.T) {
	_, err := NewMatrix(
		[]string{"gradient", "lime"},
		[]string{"the", "cat"},
		[][]float64{{0.1, 0.2}},
	)
	if err == nil {
		t.Fatal("expected shape mismatch for missing score row")
	}

	_, err = NewMatrix(
		[]string{"gradient"},
		[]string{"the", "cat"},
		[][]float64{{0.1}},
	)
	if err == nil {
		t.Fatal("expected shape mismatch for short score row")
	}

	m, err := NewMatrix(
		[]string{"gradient"},
		[]string{"the", "cat"},
		[][]float64{{0.1, 0.2}},
	)
	if err != nil {
		t.Fatalf("NewMatrix() error = %v", err)
	}
	if len(m.Tokens) != 2 {
		t.Errorf("Tokens = %v, want 2 entries", m.Tokens)
	}
}

func TestMatrix_Clone(t *testing.T) {
	m, _ := NewMatrix(
		[]string{"gradient"},
		[]string{"the", "cat"},
		[][]float64{{0.1, 0.2}},
	)

	c := m.Clone()
	c.Scores[0][0] = 99
	c.Tokens[0] = "mutated"

	if m.Scores[0][0] != 0.1 {
		t.Error("Clone() shares score storage with original")
	}
	if m.Tokens[0] != "the" {
		t.Error("Clone() shares token storage with original")
	}
}

func TestMatrix_Row_IsCopy(t *testing.T) {
	m, _ := NewMatrix(
		[]string{"gradient"},
		[]string{"the", "cat"},
		[][]float64{{0.1, 0.2}},
	)

	row := m.Row(0)
	row[0] = 42

	if m.Scores[0][0] != 0.1 {
		t.Error("Row() shares storage with matrix")
	}
}

func TestMatrix_DedupTokens(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		want   []string
	}{
		{
			name:   "no duplicates",
			tokens: []string{"the", "cat", "sat"},
			want:   []string{"the", "cat", "sat"},
		},
		{
			name:   "one duplicate pair",
			tokens: []string{"the", "cat", "the"},
			want:   []string{"the", "cat", "the.1"},
		},
		{
			name:   "triple occurrence",
			tokens: []string{"a", "a", "a"},
			want:   []string{"a", "a.1", "a.2"},
		},
		{
			name:   "suffix already taken",
			tokens: []string{"a", "a.1", "a"},
			want:   []string{"a", "a.1", "a.2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores := make([][]float64, 1)
			scores[0] = make([]float64, len(tt.tokens))
			m, err := NewMatrix([]string{"x"}, tt.tokens, scores)
			if err != nil {
				t.Fatalf("NewMatrix() error = %v", err)
			}

			m.DedupTokens()

			for i, want := range tt.want {
				if m.Tokens[i] != want {
					t.Errorf("Tokens[%d] = %s, want %s", i, m.Tokens[i], want)
				}
			}
			if m.HasDuplicateTokens() {
				t.Errorf("tokens still contain duplicates after dedup: %v", m.Tokens)
			}
		})
	}
}

func TestMatrix_DedupTokens_ScoresUnchanged(t *testing.T) {
	m, _ := NewMatrix(
		[]string{"gradient"},
		[]string{"the", "cat", "the"},
		[][]float64{{0.1, 0.2, 0.3}},
	)

	m.DedupTokens()

	want := []float64{0.1, 0.2, 0.3}
	for i, v := range want {
		if m.Scores[0][i] != v {
			t.Errorf("Scores[0][%d] = %f, want %f", i, m.Scores[0][i], v)
		}
	}
}
