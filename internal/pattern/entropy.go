package pattern

import (
	"math"
	"regexp"
	"unicode"
)

// candidateRe finds token-shaped runs worth measuring. Placeholder tokens are
// 12 characters, below any sensible minimum length, so redacted output never
// measures its own substitutions.
var candidateRe = regexp.MustCompile(`[A-Za-z0-9+/=_\-]{16,}`)

// EntropyVerifier flags high-entropy strings that survived redaction. It is an
// optional supplement to the generic-shape rules in the verification pass; it
// only ever adds matches.
type EntropyVerifier struct {
	threshold float64
	minLength int
	maxLength int
}

// NewEntropyVerifier creates an entropy verifier. Values at or above threshold
// bits of Shannon entropy per character are reported.
func NewEntropyVerifier(threshold float64, minLength, maxLength int) *EntropyVerifier {
	return &EntropyVerifier{
		threshold: threshold,
		minLength: minLength,
		maxLength: maxLength,
	}
}

// Verify scans text for high-entropy candidates and returns them as matches of
// class high_entropy.
func (e *EntropyVerifier) Verify(text string) []Match {
	var matches []Match
	for _, idx := range candidateRe.FindAllStringIndex(text, -1) {
		candidate := text[idx[0]:idx[1]]
		if len(candidate) < e.minLength || len(candidate) > e.maxLength {
			continue
		}
		if isLikelyProse(candidate) {
			continue
		}
		if shannonEntropy(candidate) >= e.threshold {
			matches = append(matches, Match{
				Value: candidate,
				Start: idx[0],
				End:   idx[1],
				Rule:  "entropy",
				Class: ClassEntropy,
			})
		}
	}
	return matches
}

func shannonEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	freq := make(map[rune]int)
	for _, c := range s {
		freq[c]++
	}
	length := float64(len(s))
	entropy := 0.0
	for _, count := range freq {
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// isLikelyProse filters all-lowercase runs, which are words, slugs, or paths
// rather than secret material.
func isLikelyProse(s string) bool {
	for _, c := range s {
		if unicode.IsUpper(c) || unicode.IsDigit(c) {
			return false
		}
	}
	return true
}
