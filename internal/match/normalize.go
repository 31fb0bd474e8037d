// Package match is the shared name-resolution library: normalization,
// registry lookup, fuzzy scoring, candidate parsing, and classification.
// Every remediation phase and the standalone resolve command go through
// this package so there is exactly one implementation of each rule.
package match

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	punctChars   = regexp.MustCompile(`[.,;:!?'"()\[\]{}]`)
	multiSpace   = regexp.MustCompile(`\s{2,}`)
	suffixTokens = regexp.MustCompile(`\b(inc|llc|ltd|corp|co|the|and)\b`)
	nonAlnum     = regexp.MustCompile(`[^a-z0-9]`)
)

// accentFold decomposes and strips combining marks ("Café" -> "Cafe").
var accentFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize canonicalizes a company name for comparison and merge keys.
// Lower-cases, folds accents, strips punctuation, drops standalone corporate
// suffix tokens, and collapses whitespace. Idempotent and total: never errors,
// empty input yields "".
func Normalize(s string) string {
	n := strings.ToLower(strings.TrimSpace(s))
	if n == "" {
		return ""
	}
	if folded, _, err := transform.String(accentFold, n); err == nil {
		n = folded
	}
	n = punctChars.ReplaceAllString(n, "")
	n = multiSpace.ReplaceAllString(n, " ")
	n = suffixTokens.ReplaceAllString(n, "")
	n = multiSpace.ReplaceAllString(n, " ")
	return strings.TrimSpace(n)
}

// StripNonAlnum lower-cases and removes every non-alphanumeric rune,
// erasing token boundaries ("Pro End" and "ProEnd" compare equal).
func StripNonAlnum(s string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(s), "")
}

// Tokens splits a normalized name on whitespace, keeping tokens longer
// than one rune.
func Tokens(s string) []string {
	fields := strings.Fields(s)
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
