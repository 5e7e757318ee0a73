// Package simhash implements the 64-bit similarity-preserving fingerprint
// used to detect near-duplicate markup. Inputs that differ only in cosmetic
// noise (whitespace, comments, reordered attributes) collapse to identical
// or close fingerprints, which drives the ingestion cache. This is not a
// cryptographic digest; unrelated collisions are acceptable.
package simhash

import (
	"fmt"
	"strings"
)

// FNV-1a 64-bit parameters.
const (
	offsetBasis uint64 = 0xcbf29ce484222325
	prime       uint64 = 0x100000001b3
)

// Fingerprint returns a deterministic 16-hex-digit SimHash of text.
//
// The text is lowercased and split into alphanumeric runs; each token is
// hashed with FNV-1a-64 and every hash bit votes +1/-1 into a 64-slot
// accumulator. Bit i of the result is set when accumulator[i] >= 0, so
// empty input (no tokens) yields "ffffffffffffffff".
func Fingerprint(text string) string {
	var acc [64]int

	for _, tok := range tokenize(text) {
		h := fnv1a64(tok)
		for i := 0; i < 64; i++ {
			if h>>uint(i)&1 == 1 {
				acc[i]++
			} else {
				acc[i]--
			}
		}
	}

	var out uint64
	for i := 0; i < 64; i++ {
		if acc[i] >= 0 {
			out |= 1 << uint(i)
		}
	}
	return fmt.Sprintf("%016x", out)
}

// tokenize splits lowercased text into maximal [a-z0-9]+ runs.
func tokenize(text string) []string {
	text = strings.ToLower(text)

	var tokens []string
	start := -1
	for i := 0; i < len(text); i++ {
		c := text[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, text[start:i])
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, text[start:])
	}
	return tokens
}

func fnv1a64(s string) uint64 {
	h := offsetBasis
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	return h
}
