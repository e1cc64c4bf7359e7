// Package explain defines the explanation matrix and the tabular result
// value produced by an evaluation run.
package explain

import (
	"fmt"

	"github.com/explainbench/explain-bench/internal/pkg/errors"
)

// Matrix is a set of competing explanations for one input text. Rows are
// explainer variants, columns are the ordered tokens of the text, and each
// cell is that explainer's importance score for that token.
type Matrix struct {
	Explainers []string    `json:"explainers"`
	Tokens     []string    `json:"tokens"`
	Scores     [][]float64 `json:"scores"`
}

// NewMatrix builds a matrix and validates its shape: one score row per
// explainer, one score per token in every row.
func NewMatrix(explainers, tokens []string, scores [][]float64) (*Matrix, error) {
	if len(scores) != len(explainers) {
		return nil, errors.ShapeMismatchError("score rows", len(explainers), len(scores))
	}
	for i, row := range scores {
		if len(row) != len(tokens) {
			return nil, errors.ShapeMismatchError(
				fmt.Sprintf("scores for explainer %q", explainers[i]), len(tokens), len(row))
		}
	}

	return &Matrix{
		Explainers: explainers,
		Tokens:     tokens,
		Scores:     scores,
	}, nil
}

// Clone returns a deep copy. Evaluation operates on a private copy so the
// caller's matrix is never mutated.
func (m *Matrix) Clone() *Matrix {
	c := &Matrix{
		Explainers: make([]string, len(m.Explainers)),
		Tokens:     make([]string, len(m.Tokens)),
		Scores:     make([][]float64, len(m.Scores)),
	}
	copy(c.Explainers, m.Explainers)
	copy(c.Tokens, m.Tokens)
	for i, row := range m.Scores {
		c.Scores[i] = make([]float64, len(row))
		copy(c.Scores[i], row)
	}
	return c
}

// Row returns a copy of the score vector for row i, in token column order.
func (m *Matrix) Row(i int) []float64 {
	row := make([]float64, len(m.Scores[i]))
	copy(row, m.Scores[i])
	return row
}

// HasDuplicateTokens reports whether any token column name repeats.
func (m *Matrix) HasDuplicateTokens() bool {
	seen := make(map[string]struct{}, len(m.Tokens))
	for _, tok := range m.Tokens {
		if _, ok := seen[tok]; ok {
			return true
		}
		seen[tok] = struct{}{}
	}
	return false
}

// DedupTokens rewrites repeated token column names in place so all names are
// pairwise distinct while original order is preserved. The first occurrence
// keeps its name; the k-th repeat becomes "<name>.<k>", bumping k further if
// that name is itself already taken. Scores are untouched. The rename mapping
// is valid only for the matrix at hand; no global naming state exists.
func (m *Matrix) DedupTokens() {
	counts := make(map[string]int, len(m.Tokens))
	taken := make(map[string]struct{}, len(m.Tokens))
	for _, tok := range m.Tokens {
		taken[tok] = struct{}{}
	}

	seen := make(map[string]struct{}, len(m.Tokens))
	for i, tok := range m.Tokens {
		if _, dup := seen[tok]; !dup {
			seen[tok] = struct{}{}
			continue
		}

		k := counts[tok] + 1
		candidate := fmt.Sprintf("%s.%d", tok, k)
		for {
			if _, exists := taken[candidate]; !exists {
				break
			}
			k++
			candidate = fmt.Sprintf("%s.%d", tok, k)
		}
		counts[tok] = k
		taken[candidate] = struct{}{}
		m.Tokens[i] = candidate
	}
}
