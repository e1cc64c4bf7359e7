package evaluation

import (
	"context"

	"github.com/explainbench/explain-bench/internal/explain"
	"github.com/explainbench/explain-bench/internal/model"
	"github.com/explainbench/explain-bench/internal/pkg/errors"
	"github.com/explainbench/explain-bench/internal/pkg/logger"
)

// Evaluator runs every registered metric over every explainer variant of an
// explanation matrix and assembles the combined score table. The registry is
// the only state kept across calls; each evaluation owns its data.
type Evaluator struct {
	tokenizer model.Tokenizer
	registry  *Registry
	log       *logger.Logger
}

// Config configures an Evaluator.
type Config struct {
	// Metrics is an explicit metric set. Nil means the default set built
	// from the registry config below.
	Metrics []Metric

	// Registry configures the default metric set; ignored when Metrics is
	// set.
	Registry RegistryConfig

	// Log is the logger; nil means the default logger.
	Log *logger.Logger
}

// DefaultConfig returns the default evaluator configuration.
func DefaultConfig() Config {
	return Config{
		Registry: DefaultRegistryConfig(),
	}
}

// New creates an evaluator over a classifier oracle and tokenizer.
func New(scorer model.Scorer, tokenizer model.Tokenizer, cfg Config) (*Evaluator, error) {
	if tokenizer == nil {
		return nil, errors.ConfigurationError("tokenizer must not be nil")
	}

	var registry *Registry
	if cfg.Metrics != nil {
		r, err := NewRegistry(cfg.Metrics)
		if err != nil {
			return nil, err
		}
		registry = r
	} else {
		if scorer == nil {
			return nil, errors.ConfigurationError("scorer must not be nil when using default metrics")
		}
		registry = DefaultRegistry(scorer, cfg.Registry)
	}

	log := cfg.Log
	if log == nil {
		log = logger.Default()
	}

	return &Evaluator{
		tokenizer: tokenizer,
		registry:  registry,
		log:       log,
	}, nil
}

// Registry exposes the metric registry, e.g. for building render styles.
func (e *Evaluator) Registry() *Registry {
	return e.registry
}

// Tokenizer exposes the alignment tokenizer.
func (e *Evaluator) Tokenizer() model.Tokenizer {
	return e.tokenizer
}

// AlignRationale expands a word-level rationale to token granularity using
// the evaluator's tokenizer.
func (e *Evaluator) AlignRationale(words []string, rationale []int) ([]int, error) {
	return AlignRationale(e.tokenizer, words, rationale)
}

// EvaluateOptions controls one evaluation call.
type EvaluateOptions struct {
	// Rationale is the token-level ground-truth rationale; nil skips the
	// plausibility metrics silently.
	Rationale []int

	// Target is the class index to evaluate against.
	Target int

	// Rank appends a rank column per scored metric.
	Rank bool

	// MetricOptions are forwarded verbatim to every metric.
	MetricOptions Options
}

// DefaultEvaluateOptions returns the standard options: target class 1,
// ranking on, no rationale.
func DefaultEvaluateOptions() EvaluateOptions {
	return EvaluateOptions{Target: 1, Rank: true}
}

// EvaluateExplainers scores every explainer row of the matrix with every
// applicable metric and returns the matrix extended with score (and
// optionally rank) columns.
//
// The caller's matrix is never touched: evaluation clones it, rewrites
// duplicate token column names for uniqueness, and builds the result table
// from the clone. Output row order matches input explainer order; columns
// are the deduplicated token columns followed by metric columns in
// registration order (faithfulness, plausibility, other). Any metric error
// aborts the whole call with no partial result.
func (e *Evaluator) EvaluateExplainers(ctx context.Context, text string, m *explain.Matrix, opts EvaluateOptions) (*explain.Table, error) {
	work := m.Clone()
	if work.HasDuplicateTokens() {
		work.DedupTokens()
	}

	// Canonical token order for alignment and final column layout.
	tokens := work.Tokens

	// Score vectors must match the token columns before any metric runs.
	for i, name := range work.Explainers {
		if len(work.Scores[i]) != len(tokens) {
			return nil, errors.ShapeMismatchError(
				"score vector for "+name, len(tokens), len(work.Scores[i]))
		}
	}
	if opts.Rationale != nil && len(opts.Rationale) != len(tokens) {
		return nil, errors.ShapeMismatchError("token rationale", len(tokens), len(opts.Rationale))
	}

	withPlausibility := opts.Rationale != nil && e.registry.HasPlausibility()

	// Sparse score table: metric short name -> per-row scores, filled in
	// registration order. Skipped plausibility metrics leave no trace.
	type scoredColumn struct {
		name   string
		values []float64
	}
	var columns []scoredColumn
	colFor := make(map[string]int)

	record := func(metric Metric, row int, value float64) {
		name := metric.ShortName()
		idx, ok := colFor[name]
		if !ok {
			idx = len(columns)
			colFor[name] = idx
			columns = append(columns, scoredColumn{
				name:   name,
				values: make([]float64, len(work.Explainers)),
			})
		}
		columns[idx].values[row] = value
	}

	for i, name := range work.Explainers {
		in := Input{
			Text:    text,
			Tokens:  tokens,
			Scores:  work.Scores[i],
			Target:  opts.Target,
			Options: opts.MetricOptions,
		}

		for _, metric := range e.registry.Faithfulness() {
			value, err := metric.Evaluate(ctx, in)
			if err != nil {
				return nil, e.metricFailure(metric, name, err)
			}
			record(metric, i, value)
		}

		if withPlausibility {
			plauIn := in
			plauIn.Rationale = opts.Rationale
			for _, metric := range e.registry.Plausibility() {
				value, err := metric.Evaluate(ctx, plauIn)
				if err != nil {
					return nil, e.metricFailure(metric, name, err)
				}
				record(metric, i, value)
			}
		}

		for _, metric := range e.registry.Other() {
			value, err := metric.Evaluate(ctx, in)
			if err != nil {
				return nil, e.metricFailure(metric, name, err)
			}
			record(metric, i, value)
		}
	}

	// Assemble: token columns first, then metric columns in registration
	// order.
	table := explain.NewTable(work.Explainers)
	for j, tok := range tokens {
		col := make([]float64, len(work.Explainers))
		for i := range work.Scores {
			col[i] = work.Scores[i][j]
		}
		if err := table.AddColumn(tok, col); err != nil {
			return nil, err
		}
	}
	for _, c := range columns {
		if err := table.AddColumn(c.name, c.values); err != nil {
			return nil, err
		}
	}

	if opts.Rank {
		if err := e.rankExplainers(table, tokens); err != nil {
			return nil, err
		}
	}

	return table, nil
}

func (e *Evaluator) metricFailure(metric Metric, explainer string, err error) error {
	e.log.WithMetric(metric.ShortName()).WithExplainer(explainer).WithError(err).
		Error("metric evaluation failed")
	return err
}
