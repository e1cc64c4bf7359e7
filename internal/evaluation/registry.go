package evaluation

import (
	"fmt"

	"github.com/explainbench/explain-bench/internal/model"
	"github.com/explainbench/explain-bench/internal/pkg/errors"
)

// Registry holds the metric set partitioned into the three categories. The
// category set is closed; partitioning happens once at construction.
type Registry struct {
	faithfulness []Metric
	plausibility []Metric
	other        []Metric
}

// NewRegistry partitions an explicit metric list into category buckets.
// Validation is structural: a nil entry, an empty short name, an unknown
// category, or a repeated short name fails construction with a configuration
// error and no partial registry is kept.
func NewRegistry(metrics []Metric) (*Registry, error) {
	r := &Registry{}
	seen := make(map[string]struct{}, len(metrics))

	for i, m := range metrics {
		if m == nil {
			return nil, errors.ConfigurationError(fmt.Sprintf("metric %d is nil", i))
		}
		name := m.ShortName()
		if name == "" {
			return nil, errors.ConfigurationError(fmt.Sprintf("metric %d has an empty short name", i))
		}
		if _, dup := seen[name]; dup {
			return nil, errors.ConfigurationError("duplicate metric short name: " + name)
		}
		seen[name] = struct{}{}

		switch m.Category() {
		case CategoryFaithfulness:
			r.faithfulness = append(r.faithfulness, m)
		case CategoryPlausibility:
			r.plausibility = append(r.plausibility, m)
		case CategoryOther:
			r.other = append(r.other, m)
		default:
			return nil, errors.ConfigurationError(
				fmt.Sprintf("metric %q has unknown category %q", name, m.Category()))
		}
	}

	return r, nil
}

// RegistryConfig configures the default metric set.
type RegistryConfig struct {
	// MaskToken replaces occluded tokens in faithfulness probes.
	MaskToken string

	// AOPCStepPercent is the masking percentile step for the AOPC metrics.
	AOPCStepPercent int

	// UseCorrelation makes the leave-one-out metric report the Kendall
	// correlation coefficient instead of the raw concordance statistic.
	UseCorrelation bool

	// UsePlausibility enables the default plausibility bucket.
	UsePlausibility bool
}

// DefaultRegistryConfig returns the default metric settings.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		MaskToken:       "[MASK]",
		AOPCStepPercent: 10,
		UseCorrelation:  true,
		UsePlausibility: true,
	}
}

// DefaultRegistry builds the built-in metric set: AOPC comprehensiveness,
// AOPC sufficiency, and leave-one-out Kendall tau for faithfulness, plus the
// AUPRC, token F1 and token IOU plausibility metrics when enabled.
func DefaultRegistry(scorer model.Scorer, cfg RegistryConfig) *Registry {
	r := &Registry{
		faithfulness: []Metric{
			NewAOPCComprehensiveness(scorer, cfg.MaskToken, cfg.AOPCStepPercent),
			NewAOPCSufficiency(scorer, cfg.MaskToken, cfg.AOPCStepPercent),
			NewTauLOO(scorer, cfg.MaskToken, cfg.UseCorrelation),
		},
	}

	if cfg.UsePlausibility {
		r.plausibility = []Metric{
			NewAUPRC(),
			NewTokenF1(),
			NewTokenIOU(),
		}
	}

	return r
}

// Faithfulness returns the faithfulness bucket in registration order.
func (r *Registry) Faithfulness() []Metric { return r.faithfulness }

// Plausibility returns the plausibility bucket in registration order.
func (r *Registry) Plausibility() []Metric { return r.plausibility }

// Other returns the remaining metrics in registration order.
func (r *Registry) Other() []Metric { return r.other }

// All returns every metric in canonical order: faithfulness, then
// plausibility, then other.
func (r *Registry) All() []Metric {
	all := make([]Metric, 0, len(r.faithfulness)+len(r.plausibility)+len(r.other))
	all = append(all, r.faithfulness...)
	all = append(all, r.plausibility...)
	all = append(all, r.other...)
	return all
}

// HasPlausibility reports whether any plausibility metric is registered.
func (r *Registry) HasPlausibility() bool {
	return len(r.plausibility) > 0
}
