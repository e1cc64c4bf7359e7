package render

import (
	"strings"

	"github.com/explainbench/explain-bench/internal/evaluation"
)

// Scale selects the color ramp applied to a column.
type Scale int

const (
	// ScaleNone leaves the column unstyled (token columns).
	ScaleNone Scale = iota
	// ScaleHigherBetter maps low values to red and high values to green.
	ScaleHigherBetter
	// ScaleLowerBetter maps low values to green and high values to red.
	ScaleLowerBetter
	// ScaleRank is a light ramp for dense ranks, best rank brightest.
	ScaleRank
)

// Styles maps column names to their scale. Columns without an entry render
// unstyled.
type Styles map[string]Scale

// StylesFor derives column styles from the metric registry: one entry per
// metric score column keyed by direction, plus a rank entry for its rank
// column.
func StylesFor(registry *evaluation.Registry) Styles {
	styles := make(Styles)
	for _, metric := range registry.All() {
		name := metric.ShortName()
		if metric.LowerIsBetter() {
			styles[name] = ScaleLowerBetter
		} else {
			styles[name] = ScaleHigherBetter
		}
		styles[name+evaluation.RankSuffix] = ScaleRank
	}
	return styles
}

// scaleFor resolves a column's scale, falling back to the rank scale for any
// unmapped column carrying the rank suffix.
func (s Styles) scaleFor(column string) Scale {
	if scale, ok := s[column]; ok {
		return scale
	}
	if strings.HasSuffix(column, evaluation.RankSuffix) {
		return ScaleRank
	}
	return ScaleNone
}
