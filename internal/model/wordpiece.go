package model

import (
	"bufio"
	"os"
	"strings"
)

// WordPiece is a deterministic vocab-driven sub-word tokenizer: greedy
// longest-match from the front of the word, "##"-prefixed continuations, and
// a single [UNK] for words with no match at all. It is the stand-in oracle
// tokenizer for tests and local runs; production setups usually tokenize on
// the inference side.
type WordPiece struct {
	vocab    map[string]struct{}
	unkToken string
	lower    bool
}

// WordPieceConfig configures the tokenizer.
type WordPieceConfig struct {
	UnkToken  string
	Lowercase bool
}

// DefaultWordPieceConfig returns default configuration.
func DefaultWordPieceConfig() WordPieceConfig {
	return WordPieceConfig{
		UnkToken:  "[UNK]",
		Lowercase: true,
	}
}

// NewWordPiece creates a tokenizer over the given vocabulary.
func NewWordPiece(vocab []string, cfg WordPieceConfig) *WordPiece {
	set := make(map[string]struct{}, len(vocab))
	for _, v := range vocab {
		set[v] = struct{}{}
	}
	return &WordPiece{
		vocab:    set,
		unkToken: cfg.UnkToken,
		lower:    cfg.Lowercase,
	}
}

// LoadWordPiece reads a vocabulary file (one token per line) and builds a
// tokenizer from it.
func LoadWordPiece(path string, cfg WordPieceConfig) (*WordPiece, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var vocab []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if tok := strings.TrimSpace(scanner.Text()); tok != "" {
			vocab = append(vocab, tok)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return NewWordPiece(vocab, cfg), nil
}

// TokenizeWord splits one word into sub-word tokens.
func (w *WordPiece) TokenizeWord(word string) []string {
	if w.lower {
		word = strings.ToLower(word)
	}
	if word == "" {
		return nil
	}

	var tokens []string
	runes := []rune(word)
	start := 0

	for start < len(runes) {
		end := len(runes)
		var match string

		for end > start {
			candidate := string(runes[start:end])
			if start > 0 {
				candidate = "##" + candidate
			}
			if _, ok := w.vocab[candidate]; ok {
				match = candidate
				break
			}
			end--
		}

		if match == "" {
			// No piece matches: the whole word collapses to [UNK],
			// regardless of any pieces already matched.
			return []string{w.unkToken}
		}

		tokens = append(tokens, match)
		start = end
	}

	return tokens
}

// Tokenize splits whitespace-separated text into sub-word tokens.
func (w *WordPiece) Tokenize(text string) []string {
	var tokens []string
	for _, word := range strings.Fields(text) {
		tokens = append(tokens, w.TokenizeWord(word)...)
	}
	return tokens
}

// Whitespace is the trivial tokenizer: one token per word. It is the
// fallback when no vocabulary is configured, which makes word-level
// rationales align one-to-one.
type Whitespace struct{}

// TokenizeWord returns the word itself as its only token.
func (Whitespace) TokenizeWord(word string) []string {
	if word == "" {
		return nil
	}
	return []string{word}
}

// Tokenize splits text on whitespace.
func (Whitespace) Tokenize(text string) []string {
	return strings.Fields(text)
}
