package evaluation

import (
	"github.com/explainbench/explain-bench/internal/model"
	"github.com/explainbench/explain-bench/internal/pkg/errors"
)

// AlignRationale expands a word-level binary rationale to sub-word token
// granularity: each word's flag is replicated once per token the tokenizer
// produces for it, preserving word order and token order within each word.
//
// A word that tokenizes to zero tokens contributes zero entries, so the
// output can be shorter than the sum of naive expectations; callers that
// need strict positional alignment should validate against the tokenizer's
// full-text output.
func AlignRationale(tok model.Tokenizer, words []string, rationale []int) ([]int, error) {
	if len(words) != len(rationale) {
		return nil, errors.ShapeMismatchError("word rationale", len(words), len(rationale))
	}

	aligned := make([]int, 0, len(words))
	for i, word := range words {
		for range tok.TokenizeWord(word) {
			aligned = append(aligned, rationale[i])
		}
	}
	return aligned, nil
}
