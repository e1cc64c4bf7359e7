// Package model defines the narrow classifier-oracle surface the evaluation
// core depends on, plus the implementations shipped with the service.
package model

import "context"

// Scorer scores a token sequence under a target class. Metrics call it with
// progressively masked variants of the same input, so implementations should
// be deterministic for identical inputs.
type Scorer interface {
	// Predict returns the model probability of the target class for the
	// given token sequence.
	Predict(ctx context.Context, tokens []string, target int) (float64, error)
}

// Tokenizer maps text to ordered sub-word tokens.
type Tokenizer interface {
	// TokenizeWord splits a single word into its sub-word tokens. A word
	// may produce zero tokens.
	TokenizeWord(word string) []string

	// Tokenize splits whitespace-separated text into sub-word tokens,
	// preserving word order and token order within each word.
	Tokenize(text string) []string
}
