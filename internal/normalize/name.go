package normalize

import (
	"strings"
	"unicode"
)

// Common company-suffix noise that carries no identity signal. Compared
// tokens keep these; overlap ratios ignore them.
var stopTokens = map[string]bool{
	"PTY": true, "LTD": true, "LIMITED": true, "INC": true, "CO": true,
	"COMPANY": true, "CORP": true, "CORPORATION": true, "THE": true,
}

// Name canonicalizes a raw business/location/terminal string for
// comparison: uppercase, punctuation stripped, whitespace collapsed.
// Catalog entries are normalized at comparison time, never stored
// normalized, so curators keep human-readable aliases.
func Name(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	lastSpace := true
	for _, r := range strings.ToUpper(strings.TrimSpace(raw)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteByte(' ')
			lastSpace = true
		}
	}

	return strings.TrimSpace(b.String())
}

// Tokens splits a normalized name into its word tokens
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}

// SignificantTokens returns the tokens of a normalized name with
// company-suffix noise removed. Falls back to all tokens when everything
// was noise.
func SignificantTokens(normalized string) []string {
	tokens := Tokens(normalized)

	var kept []string
	for _, token := range tokens {
		if !stopTokens[token] {
			kept = append(kept, token)
		}
	}

	if len(kept) == 0 {
		return tokens
	}
	return kept
}

// TokenOverlapRatio returns the fraction of a's significant tokens that
// also appear in b. Asymmetric, range [0, 1].
func TokenOverlapRatio(a, b string) float64 {
	aTokens := SignificantTokens(a)
	if len(aTokens) == 0 {
		return 0.0
	}

	bSet := make(map[string]bool)
	for _, token := range SignificantTokens(b) {
		bSet[token] = true
	}

	matches := 0
	for _, token := range aTokens {
		if bSet[token] {
			matches++
		}
	}

	return float64(matches) / float64(len(aTokens))
}
