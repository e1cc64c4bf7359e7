// Package evaluation scores competing token-importance explanations against
// a classifier oracle and ranks the explainers per metric.
package evaluation

import (
	"context"
)

// Category partitions metrics by what they measure.
type Category string

const (
	// CategoryFaithfulness measures whether attributed importance causally
	// affects the model's own prediction.
	CategoryFaithfulness Category = "faithfulness"

	// CategoryPlausibility measures agreement with a human-annotated
	// ground-truth rationale.
	CategoryPlausibility Category = "plausibility"

	// CategoryOther covers everything else.
	CategoryOther Category = "other"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryFaithfulness, CategoryPlausibility, CategoryOther:
		return true
	}
	return false
}

// Options carries free-form per-metric options, forwarded verbatim to every
// metric's Evaluate.
type Options map[string]any

// Input is the evaluation input for one (explainer, metric) pair.
type Input struct {
	// Text is the original input text.
	Text string

	// Tokens are the token column names in canonical order.
	Tokens []string

	// Scores is the explainer's importance score per token, in token order.
	Scores []float64

	// Rationale is the token-level ground-truth rationale; nil when the
	// caller supplied none. Only plausibility metrics consume it.
	Rationale []int

	// Target is the class index under evaluation.
	Target int

	// Options are forwarded caller options.
	Options Options
}

// Metric is the capability contract every evaluation metric satisfies.
type Metric interface {
	// ShortName is the display name, used as the score column name.
	ShortName() string

	// Category tags the metric bucket.
	Category() Category

	// LowerIsBetter reports the sort direction: true means the smallest
	// score ranks first.
	LowerIsBetter() bool

	// Evaluate scores one explanation.
	Evaluate(ctx context.Context, in Input) (float64, error)
}
