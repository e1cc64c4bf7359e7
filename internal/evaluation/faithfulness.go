package evaluation

import (
	"context"
	"encoding/json"
	"math"
	"sort"

	"github.com/explainbench/explain-bench/internal/model"
	"github.com/explainbench/explain-bench/internal/pkg/errors"
)

// Faithfulness metrics probe the classifier with occluded variants of the
// input: if the explanation is faithful, hiding the tokens it marks as
// important should move the prediction.

// AOPCComprehensiveness measures the average prediction-probability drop when
// the top-p fraction of tokens (by attribution) is masked, swept from most to
// least important. Higher is better.
type AOPCComprehensiveness struct {
	scorer      model.Scorer
	maskToken   string
	stepPercent int
}

// NewAOPCComprehensiveness creates the comprehensiveness metric.
func NewAOPCComprehensiveness(scorer model.Scorer, maskToken string, stepPercent int) *AOPCComprehensiveness {
	return &AOPCComprehensiveness{scorer: scorer, maskToken: maskToken, stepPercent: normalizeStep(stepPercent)}
}

func (m *AOPCComprehensiveness) ShortName() string { return "aopc_compr" }
func (m *AOPCComprehensiveness) Category() Category { return CategoryFaithfulness }
func (m *AOPCComprehensiveness) LowerIsBetter() bool { return false }

// Evaluate implements Metric.
func (m *AOPCComprehensiveness) Evaluate(ctx context.Context, in Input) (float64, error) {
	if err := checkScores(in); err != nil {
		return 0, err
	}

	full, err := m.scorer.Predict(ctx, in.Tokens, in.Target)
	if err != nil {
		return 0, err
	}

	order := importanceOrder(in.Scores)
	step := stepFromOptions(in.Options, m.stepPercent)

	sum, bins := 0.0, 0
	for p := step; p <= 100; p += step {
		k := topKForPercent(len(in.Tokens), p)
		masked := maskIndices(in.Tokens, order[:k], m.maskToken)

		prob, err := m.scorer.Predict(ctx, masked, in.Target)
		if err != nil {
			return 0, err
		}
		sum += full - prob
		bins++
	}

	return sum / float64(bins), nil
}

// AOPCSufficiency measures the average probability drop when only the top-p
// tokens are kept and everything else is masked. Lower is better: a
// sufficient explanation preserves the prediction on its own.
type AOPCSufficiency struct {
	scorer      model.Scorer
	maskToken   string
	stepPercent int
}

// NewAOPCSufficiency creates the sufficiency metric.
func NewAOPCSufficiency(scorer model.Scorer, maskToken string, stepPercent int) *AOPCSufficiency {
	return &AOPCSufficiency{scorer: scorer, maskToken: maskToken, stepPercent: normalizeStep(stepPercent)}
}

func (m *AOPCSufficiency) ShortName() string { return "aopc_suff" }
func (m *AOPCSufficiency) Category() Category { return CategoryFaithfulness }
func (m *AOPCSufficiency) LowerIsBetter() bool { return true }

// Evaluate implements Metric.
func (m *AOPCSufficiency) Evaluate(ctx context.Context, in Input) (float64, error) {
	if err := checkScores(in); err != nil {
		return 0, err
	}

	full, err := m.scorer.Predict(ctx, in.Tokens, in.Target)
	if err != nil {
		return 0, err
	}

	order := importanceOrder(in.Scores)
	step := stepFromOptions(in.Options, m.stepPercent)

	sum, bins := 0.0, 0
	for p := step; p <= 100; p += step {
		k := topKForPercent(len(in.Tokens), p)
		kept := maskIndices(in.Tokens, order[k:], m.maskToken)

		prob, err := m.scorer.Predict(ctx, kept, in.Target)
		if err != nil {
			return 0, err
		}
		sum += full - prob
		bins++
	}

	return sum / float64(bins), nil
}

// TauLOO correlates the attribution order with a leave-one-out occlusion
// ordering: each token is masked in turn and the resulting probability drop
// is treated as that token's reference importance. Reports Kendall tau-b
// when configured for correlation, otherwise the raw concordance statistic
// (concordant minus discordant pairs). Higher is better.
type TauLOO struct {
	scorer         model.Scorer
	maskToken      string
	useCorrelation bool
}

// NewTauLOO creates the leave-one-out metric.
func NewTauLOO(scorer model.Scorer, maskToken string, useCorrelation bool) *TauLOO {
	return &TauLOO{scorer: scorer, maskToken: maskToken, useCorrelation: useCorrelation}
}

func (m *TauLOO) ShortName() string { return "taucorr_loo" }
func (m *TauLOO) Category() Category { return CategoryFaithfulness }
func (m *TauLOO) LowerIsBetter() bool { return false }

// Evaluate implements Metric.
func (m *TauLOO) Evaluate(ctx context.Context, in Input) (float64, error) {
	if err := checkScores(in); err != nil {
		return 0, err
	}

	full, err := m.scorer.Predict(ctx, in.Tokens, in.Target)
	if err != nil {
		return 0, err
	}

	loo := make([]float64, len(in.Tokens))
	for i := range in.Tokens {
		masked := maskIndices(in.Tokens, []int{i}, m.maskToken)
		prob, err := m.scorer.Predict(ctx, masked, in.Target)
		if err != nil {
			return 0, err
		}
		loo[i] = full - prob
	}

	concordance, tau := kendallTau(in.Scores, loo)
	if m.useCorrelation {
		return tau, nil
	}
	return concordance, nil
}

// checkScores rejects a score vector whose length does not match the token
// count, before any model call.
func checkScores(in Input) error {
	if len(in.Scores) != len(in.Tokens) {
		return errors.ShapeMismatchError("score vector", len(in.Tokens), len(in.Scores))
	}
	if len(in.Tokens) == 0 {
		return errors.ValidationError("cannot evaluate an empty token sequence")
	}
	return nil
}

// importanceOrder returns token indices sorted by attribution score
// descending; ties keep original token order.
func importanceOrder(scores []float64) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	return order
}

// topKForPercent returns how many tokens fall in the top p percent, at
// least one.
func topKForPercent(n, p int) int {
	k := int(math.Ceil(float64(n) * float64(p) / 100))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	return k
}

// maskIndices returns a copy of tokens with the given positions replaced by
// the mask token.
func maskIndices(tokens []string, indices []int, maskToken string) []string {
	out := make([]string, len(tokens))
	copy(out, tokens)
	for _, i := range indices {
		out[i] = maskToken
	}
	return out
}

func normalizeStep(step int) int {
	if step < 1 || step > 100 {
		return 10
	}
	return step
}

// stepFromOptions reads the aopc_step_percent option. Options usually
// arrive JSON-decoded, where every number is a float64; literal ints from
// library callers are accepted too. Non-integral or out-of-range values
// fall back.
func stepFromOptions(opts Options, fallback int) int {
	if opts == nil {
		return fallback
	}
	if v, ok := opts["aopc_step_percent"]; ok {
		if step, ok := intOption(v); ok && step >= 1 && step <= 100 {
			return step
		}
	}
	return fallback
}

// intOption coerces an option value to an int across the types a JSON
// decoder or a Go caller can produce.
func intOption(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

// kendallTau returns the raw concordance statistic (concordant minus
// discordant pairs) and the tie-corrected Kendall tau-b between two equal
// length vectors. Tau is zero when either vector is constant.
func kendallTau(x, y []float64) (float64, float64) {
	n := len(x)
	var nc, nd, tx, ty int

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dx := x[i] - x[j]
			dy := y[i] - y[j]

			switch {
			case dx == 0 && dy == 0:
				tx++
				ty++
			case dx == 0:
				tx++
			case dy == 0:
				ty++
			case (dx > 0) == (dy > 0):
				nc++
			default:
				nd++
			}
		}
	}

	concordance := float64(nc - nd)

	n0 := n * (n - 1) / 2
	denom := math.Sqrt(float64(n0-tx)) * math.Sqrt(float64(n0-ty))
	if denom == 0 {
		return concordance, 0
	}
	return concordance, concordance / denom
}
