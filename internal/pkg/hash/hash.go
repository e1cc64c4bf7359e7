// Package hash provides hashing utilities.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// SHA256 computes the SHA256 hash of data and returns it as a hex string.
func SHA256(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SHA256String computes the SHA256 hash of a string.
func SHA256String(s string) string {
	return SHA256([]byte(s))
}

// SHA256Short returns the first n characters of a SHA256 hash.
func SHA256Short(data []byte, n int) string {
	h := SHA256(data)
	if n > len(h) {
		return h
	}
	return h[:n]
}

// PredictionKey generates a deterministic cache key for a model prediction
// over a token sequence and target class. Tokens are joined with a unit
// separator so that different segmentations never collide.
func PredictionKey(tokens []string, target int) string {
	var sb strings.Builder
	for i, tok := range tokens {
		if i > 0 {
			sb.WriteByte(0x1f)
		}
		sb.WriteString(tok)
	}
	sb.WriteByte(0x1f)
	sb.WriteString(strconv.Itoa(target))
	return SHA256Short([]byte(sb.String()), 32)
}
