package evaluation

import (
	"reflect"
	"strings"
	"testing"
)

// splitTokenizer splits words on "+" so tests control sub-word counts
// directly: "run+ning" yields two tokens, "" yields zero.
type splitTokenizer struct{}

func (splitTokenizer) TokenizeWord(word string) []string {
	if word == "" {
		return nil
	}
	return strings.Split(word, "+")
}

func (st splitTokenizer) Tokenize(text string) []string {
	var tokens []string
	for _, w := range strings.Fields(text) {
		tokens = append(tokens, st.TokenizeWord(w)...)
	}
	return tokens
}

func TestAlignRationale_OneTokenPerWord(t *testing.T) {
	got, err := AlignRationale(splitTokenizer{}, []string{"The", "cat", "sat"}, []int{0, 1, 0})
	if err != nil {
		t.Fatalf("AlignRationale() error = %v", err)
	}
	if !reflect.DeepEqual(got, []int{0, 1, 0}) {
		t.Errorf("AlignRationale() = %v, want [0 1 0]", got)
	}
}

func TestAlignRationale_MultiTokenWord(t *testing.T) {
	got, err := AlignRationale(splitTokenizer{}, []string{"the", "run+ning"}, []int{0, 1})
	if err != nil {
		t.Fatalf("AlignRationale() error = %v", err)
	}
	if !reflect.DeepEqual(got, []int{0, 1, 1}) {
		t.Errorf("AlignRationale() = %v, want [0 1 1]", got)
	}
}

func TestAlignRationale_ZeroTokenWordDropped(t *testing.T) {
	got, err := AlignRationale(splitTokenizer{}, []string{"the", "", "cat"}, []int{1, 1, 0})
	if err != nil {
		t.Fatalf("AlignRationale() error = %v", err)
	}
	// The empty word contributes no entries and no error.
	if !reflect.DeepEqual(got, []int{1, 0}) {
		t.Errorf("AlignRationale() = %v, want [1 0]", got)
	}
}

func TestAlignRationale_LengthMismatch(t *testing.T) {
	_, err := AlignRationale(splitTokenizer{}, []string{"a", "b"}, []int{1})
	if err == nil {
		t.Fatal("expected shape mismatch error")
	}
}

func TestAlignRationale_OutputLengthProperty(t *testing.T) {
	words := []string{"a", "b+c", "d+e+f", "g"}
	rationale := []int{1, 0, 1, 0}

	got, err := AlignRationale(splitTokenizer{}, words, rationale)
	if err != nil {
		t.Fatalf("AlignRationale() error = %v", err)
	}

	want := 0
	for _, w := range words {
		want += len(splitTokenizer{}.TokenizeWord(w))
	}
	if len(got) != want {
		t.Errorf("aligned length = %d, want %d (sum of per-word token counts)", len(got), want)
	}
}
