package hash

import (
	"testing"
)

func TestSHA256(t *testing.T) {
	tests := []struct {
		input []byte
		want  string
	}{
		{
			[]byte("hello"),
			"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		},
		{
			[]byte(""),
			"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			got := SHA256(tt.input)
			if got != tt.want {
				t.Errorf("SHA256(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestSHA256Short(t *testing.T) {
	full := SHA256([]byte("hello"))

	if got := SHA256Short([]byte("hello"), 16); got != full[:16] {
		t.Errorf("SHA256Short(16) = %s, want %s", got, full[:16])
	}
	if got := SHA256Short([]byte("hello"), 1000); got != full {
		t.Errorf("SHA256Short(1000) = %s, want full hash", got)
	}
}

func TestPredictionKey_Deterministic(t *testing.T) {
	a := PredictionKey([]string{"the", "cat", "sat"}, 1)
	b := PredictionKey([]string{"the", "cat", "sat"}, 1)

	if a != b {
		t.Errorf("PredictionKey not deterministic: %s vs %s", a, b)
	}
	if len(a) != 32 {
		t.Errorf("PredictionKey length = %d, want 32", len(a))
	}
}

func TestPredictionKey_SegmentationSafe(t *testing.T) {
	// "ab"+"c" and "a"+"bc" must not collide
	a := PredictionKey([]string{"ab", "c"}, 0)
	b := PredictionKey([]string{"a", "bc"}, 0)

	if a == b {
		t.Error("PredictionKey collides across different segmentations")
	}

	// Same tokens, different target
	c := PredictionKey([]string{"ab", "c"}, 1)
	if a == c {
		t.Error("PredictionKey collides across targets")
	}
}
