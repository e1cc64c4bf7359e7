package model

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func testVocab() []string {
	return []string{
		"the", "cat", "sat", "on", "mat",
		"run", "##ning", "##ner",
		"un", "##believ", "##able",
	}
}

func TestWordPiece_TokenizeWord(t *testing.T) {
	wp := NewWordPiece(testVocab(), DefaultWordPieceConfig())

	tests := []struct {
		word string
		want []string
	}{
		{"the", []string{"the"}},
		{"The", []string{"the"}},
		{"running", []string{"run", "##ning"}},
		{"runner", []string{"run", "##ner"}},
		{"unbelievable", []string{"un", "##believ", "##able"}},
		{"xyzzy", []string{"[UNK]"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			got := wp.TokenizeWord(tt.word)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TokenizeWord(%q) = %v, want %v", tt.word, got, tt.want)
			}
		})
	}
}

func TestWordPiece_Tokenize(t *testing.T) {
	wp := NewWordPiece(testVocab(), DefaultWordPieceConfig())

	got := wp.Tokenize("the cat running")
	want := []string{"the", "cat", "run", "##ning"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}
}

func TestWordPiece_NoLowercase(t *testing.T) {
	cfg := DefaultWordPieceConfig()
	cfg.Lowercase = false
	wp := NewWordPiece(testVocab(), cfg)

	got := wp.TokenizeWord("The")
	if !reflect.DeepEqual(got, []string{"[UNK]"}) {
		t.Errorf("TokenizeWord(The) = %v, want [UNK] without lowercasing", got)
	}
}

func TestLoadWordPiece(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.txt")

	content := "the\ncat\n\nrun\n##ning\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write vocab: %v", err)
	}

	wp, err := LoadWordPiece(path, DefaultWordPieceConfig())
	if err != nil {
		t.Fatalf("LoadWordPiece() error = %v", err)
	}

	got := wp.TokenizeWord("running")
	want := []string{"run", "##ning"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TokenizeWord(running) = %v, want %v", got, want)
	}

	if _, err := LoadWordPiece(filepath.Join(dir, "missing.txt"), DefaultWordPieceConfig()); err == nil {
		t.Error("expected error for missing vocab file")
	}
}
