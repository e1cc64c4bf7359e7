package evaluation

import (
	"sort"

	"github.com/explainbench/explain-bench/internal/explain"
)

// RankSuffix is appended to a metric's short name to form its rank column.
const RankSuffix = "_r"

// rankExplainers appends a rank column for every scored metric column and
// reorders the table: token columns, then each metric's score column
// immediately followed by its rank column (registration order), then any
// remaining columns.
//
// Ranks are dense: tied scores share a rank and rank values are consecutive
// integers starting at 1. Rank 1 is always the best score under the metric's
// sort direction; for higher-is-better metrics the ascending dense rank r is
// inverted as min(N, maxRank) + 1 - r, which preserves tie groups.
func (e *Evaluator) rankExplainers(table *explain.Table, tokenColumns []string) error {
	n := len(table.Rows())
	metrics := e.registry.All()

	ranked := make(map[string]bool, len(metrics))
	for _, metric := range metrics {
		name := metric.ShortName()
		values, ok := table.Column(name)
		if !ok {
			continue
		}

		ranks, maxRank := denseRank(values)

		final := make([]float64, n)
		if metric.LowerIsBetter() {
			for i, r := range ranks {
				final[i] = float64(r)
			}
		} else {
			top := maxRank
			if n < top {
				top = n
			}
			for i, r := range ranks {
				final[i] = float64(top + 1 - r)
			}
		}

		if err := table.AddColumn(name+RankSuffix, final); err != nil {
			return err
		}
		ranked[name] = true
	}

	// Canonical column order.
	order := make([]string, 0, len(table.Columns()))
	placed := make(map[string]bool, len(table.Columns()))
	for _, tok := range tokenColumns {
		order = append(order, tok)
		placed[tok] = true
	}
	for _, metric := range metrics {
		name := metric.ShortName()
		if !ranked[name] {
			continue
		}
		order = append(order, name, name+RankSuffix)
		placed[name] = true
		placed[name+RankSuffix] = true
	}
	for _, col := range table.Columns() {
		if !placed[col] {
			order = append(order, col)
		}
	}

	return table.Reorder(order)
}

// denseRank computes ascending dense ranks: the smallest value gets rank 1,
// equal values share a rank, and ranks are consecutive with no gaps. Returns
// the ranks and the largest rank assigned.
func denseRank(values []float64) ([]int, int) {
	distinct := make([]float64, 0, len(values))
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			distinct = append(distinct, v)
		}
	}
	sort.Float64s(distinct)

	rankOf := make(map[float64]int, len(distinct))
	for i, v := range distinct {
		rankOf[v] = i + 1
	}

	ranks := make([]int, len(values))
	for i, v := range values {
		ranks[i] = rankOf[v]
	}
	return ranks, len(distinct)
}
