package evaluation

import (
	"context"

	"github.com/explainbench/explain-bench/internal/pkg/errors"
)

// Plausibility metrics compare attribution scores against the token-level
// ground-truth rationale. They never call the model.

// AUPRC is the area under the precision-recall curve of the attribution
// scores against the binary rationale. Higher is better.
type AUPRC struct{}

// NewAUPRC creates the AUPRC metric.
func NewAUPRC() *AUPRC { return &AUPRC{} }

func (m *AUPRC) ShortName() string { return "auprc_plau" }
func (m *AUPRC) Category() Category { return CategoryPlausibility }
func (m *AUPRC) LowerIsBetter() bool { return false }

// Evaluate implements Metric.
func (m *AUPRC) Evaluate(_ context.Context, in Input) (float64, error) {
	if err := checkRationale(in); err != nil {
		return 0, err
	}

	positives := 0
	for _, r := range in.Rationale {
		if r != 0 {
			positives++
		}
	}
	if positives == 0 {
		return 0, nil
	}

	// Sweep thresholds down the score ordering, weighting each precision
	// by its recall increment (the average-precision estimator of the
	// area under the precision-recall curve).
	order := importanceOrder(in.Scores)

	area := 0.0
	tp := 0
	prevRecall := 0.0
	for rank, idx := range order {
		if in.Rationale[idx] != 0 {
			tp++
		}
		precision := float64(tp) / float64(rank+1)
		recall := float64(tp) / float64(positives)
		area += precision * (recall - prevRecall)
		prevRecall = recall
	}

	return area, nil
}

// TokenF1 binarizes the attribution by taking the k highest-scored tokens,
// k being the rationale's positive count, and reports the F1 of that set
// against the rationale. Higher is better.
type TokenF1 struct{}

// NewTokenF1 creates the token F1 metric.
func NewTokenF1() *TokenF1 { return &TokenF1{} }

func (m *TokenF1) ShortName() string { return "token_f1_plau" }
func (m *TokenF1) Category() Category { return CategoryPlausibility }
func (m *TokenF1) LowerIsBetter() bool { return false }

// Evaluate implements Metric.
func (m *TokenF1) Evaluate(_ context.Context, in Input) (float64, error) {
	if err := checkRationale(in); err != nil {
		return 0, err
	}

	tp, fp, fn := discretizedCounts(in.Scores, in.Rationale)
	if tp == 0 {
		return 0, nil
	}

	precision := float64(tp) / float64(tp+fp)
	recall := float64(tp) / float64(tp+fn)
	return 2 * precision * recall / (precision + recall), nil
}

// TokenIOU binarizes the attribution the same way as TokenF1 and reports the
// intersection-over-union against the rationale set. Higher is better.
type TokenIOU struct{}

// NewTokenIOU creates the token IOU metric.
func NewTokenIOU() *TokenIOU { return &TokenIOU{} }

func (m *TokenIOU) ShortName() string { return "token_iou_plau" }
func (m *TokenIOU) Category() Category { return CategoryPlausibility }
func (m *TokenIOU) LowerIsBetter() bool { return false }

// Evaluate implements Metric.
func (m *TokenIOU) Evaluate(_ context.Context, in Input) (float64, error) {
	if err := checkRationale(in); err != nil {
		return 0, err
	}

	tp, fp, fn := discretizedCounts(in.Scores, in.Rationale)
	union := tp + fp + fn
	if union == 0 {
		return 0, nil
	}
	return float64(tp) / float64(union), nil
}

// checkRationale validates the inputs shared by the plausibility metrics.
func checkRationale(in Input) error {
	if err := checkScores(in); err != nil {
		return err
	}
	if in.Rationale == nil {
		return errors.ValidationError("plausibility evaluation requires a rationale")
	}
	if len(in.Rationale) != len(in.Tokens) {
		return errors.ShapeMismatchError("token rationale", len(in.Tokens), len(in.Rationale))
	}
	return nil
}

// discretizedCounts selects the k top-scored tokens (k = rationale positive
// count) and returns true/false positive and false negative counts against
// the rationale.
func discretizedCounts(scores []float64, rationale []int) (tp, fp, fn int) {
	k := 0
	for _, r := range rationale {
		if r != 0 {
			k++
		}
	}

	selected := make([]bool, len(scores))
	order := importanceOrder(scores)
	for _, idx := range order[:k] {
		selected[idx] = true
	}

	for i, r := range rationale {
		switch {
		case selected[i] && r != 0:
			tp++
		case selected[i]:
			fp++
		case r != 0:
			fn++
		}
	}
	return tp, fp, fn
}
