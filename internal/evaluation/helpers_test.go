package evaluation

import (
	"context"
)

// flatScorer returns the same probability for every input.
type flatScorer struct {
	prob float64
}

func (s *flatScorer) Predict(_ context.Context, _ []string, _ int) (float64, error) {
	return s.prob, nil
}

// weightScorer is a deterministic oracle: the probability is the sum of the
// weights of the visible (non-mask) tokens. Masking an important token
// lowers the probability by exactly its weight.
type weightScorer struct {
	weights   map[string]float64
	maskToken string
	calls     int
}

func (s *weightScorer) Predict(_ context.Context, tokens []string, _ int) (float64, error) {
	s.calls++
	prob := 0.0
	for _, tok := range tokens {
		if tok == s.maskToken {
			continue
		}
		prob += s.weights[tok]
	}
	return prob, nil
}
