package match

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Scoring constants. Thresholds are fixed for the duration of a run.
const (
	// MinNormalizedLength is the shortest normalized candidate that will be
	// scored at all. One- and two-letter fragments match half the registry.
	MinNormalizedLength = 4

	// Length-ratio pruning bounds: registry entries whose normalized length
	// differs from the candidate by more than these ratios are never scored.
	maxLengthRatio = 2.5
	minLengthRatio = 0.4

	containmentBonus = 0.08
	firstWordBonus   = 0.05
	firstWordMinLen  = 3
)

// Method tags recorded for auditability.
const (
	MethodExact      = "exact-normalized"
	MethodDesignator = "exact-designator"
	MethodLevNorm    = "levenshtein-normalized"
	MethodLevRaw     = "levenshtein-raw"
	MethodLevCompact = "levenshtein-compact"
	MethodJaccard    = "token-jaccard"
	MethodComposite  = "composite"
	MethodTooShort   = "too-short"
)

// Breakdown preserves every underlying metric so a reviewer can see which
// one drove a near-threshold decision, not just the final composite.
type Breakdown struct {
	LevNormalized    float64
	LevRaw           float64
	LevCompact       float64
	TokenJaccard     float64
	ContainmentBonus float64
	FirstWordBonus   float64
}

// Result is the outcome of scoring one candidate against one registry name.
type Result struct {
	Score     float64
	Method    string
	Breakdown Breakdown
}

// Score computes the composite similarity of two raw company names.
// Exact normalized equality short-circuits to 1.0; otherwise the composite is
// the maximum of four metrics plus bounded containment and first-word bonuses,
// clamped to [0,1]. When several metrics tie for the maximum the method is
// reported as "composite".
func Score(candidateRaw, registryRaw string) Result {
	return scoreNormalized(candidateRaw, Normalize(candidateRaw), registryRaw, Normalize(registryRaw))
}

func scoreNormalized(candRaw, candNorm, regRaw, regNorm string) Result {
	if candNorm != "" && candNorm == regNorm {
		return Result{Score: 1.0, Method: MethodExact}
	}
	if cs, rs := stripDesignators(candNorm), stripDesignators(regNorm); cs != "" && cs == rs {
		return Result{Score: 1.0, Method: MethodDesignator}
	}

	b := Breakdown{
		LevNormalized: levSimilarity(candNorm, regNorm),
		LevRaw:        levSimilarity(strings.ToLower(candRaw), strings.ToLower(regRaw)),
		LevCompact:    levSimilarity(StripNonAlnum(candRaw), StripNonAlnum(regRaw)),
		TokenJaccard:  tokenJaccard(candNorm, regNorm),
	}

	metrics := []struct {
		value  float64
		method string
	}{
		{b.LevNormalized, MethodLevNorm},
		{b.LevRaw, MethodLevRaw},
		{b.LevCompact, MethodLevCompact},
		{b.TokenJaccard, MethodJaccard},
	}

	base, method, winners := 0.0, MethodComposite, 0
	for _, m := range metrics {
		switch {
		case m.value > base:
			base, method, winners = m.value, m.method, 1
		case m.value == base && m.value > 0:
			winners++
		}
	}
	if winners != 1 {
		method = MethodComposite
	}

	score := base
	if candNorm != "" && regNorm != "" &&
		(strings.Contains(candNorm, regNorm) || strings.Contains(regNorm, candNorm)) {
		b.ContainmentBonus = containmentBonus
		score += containmentBonus
	}
	if cw, rw := firstWord(candNorm), firstWord(regNorm); cw != "" && cw == rw && len(cw) >= firstWordMinLen {
		b.FirstWordBonus = firstWordBonus
		score += firstWordBonus
	}
	if score > 1.0 {
		score = 1.0
	}

	return Result{Score: score, Method: method, Breakdown: b}
}

// BestMatch is the outcome of searching the registry for a candidate.
type BestMatch struct {
	Entry     RegistryEntry
	Score     float64
	Method    string
	Breakdown Breakdown
	Found     bool
	TooShort  bool
}

// FindBestMatch scores a candidate against every registry entry and returns
// the best. Candidates with a normalized length below MinNormalizedLength are
// never scored and come back with TooShort set. Entries whose normalized
// length differs by more than the ratio bounds, both before and after
// designator stripping, are pruned before the expensive metrics run.
// A perfect score stops the search early.
func FindBestMatch(candidateRaw string, entries []RegistryEntry) BestMatch {
	candNorm := Normalize(candidateRaw)
	candLen := utf8.RuneCountInString(candNorm)
	if candLen < MinNormalizedLength {
		return BestMatch{TooShort: true, Method: MethodTooShort}
	}

	candStripLen := utf8.RuneCountInString(stripDesignators(candNorm))
	if candStripLen == 0 {
		candStripLen = candLen
	}

	var best BestMatch
	for _, e := range entries {
		entryLen := utf8.RuneCountInString(e.NormalizedName)
		entryStripLen := utf8.RuneCountInString(stripDesignators(e.NormalizedName))
		if entryStripLen == 0 {
			entryStripLen = entryLen
		}
		if lengthRatioOut(entryLen, candLen) && lengthRatioOut(entryStripLen, candStripLen) {
			continue
		}

		r := scoreNormalized(candidateRaw, candNorm, e.CanonicalName, e.NormalizedName)
		if !best.Found || r.Score > best.Score {
			best = BestMatch{
				Entry:     e,
				Score:     r.Score,
				Method:    r.Method,
				Breakdown: r.Breakdown,
				Found:     true,
			}
		}
		if best.Score >= 1.0 {
			break
		}
	}
	return best
}

// levSimilarity converts rune-level edit distance to a similarity in [0,1].
func levSimilarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 0
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(d)/float64(longest)
}

// tokenJaccard is set overlap over whitespace tokens longer than one rune,
// which catches word reordering that edit distance punishes.
func tokenJaccard(a, b string) float64 {
	ta, tb := Tokens(a), Tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	set := make(map[string]bool, len(ta))
	for _, t := range ta {
		set[t] = true
	}
	union := len(set)
	inter := 0
	seen := make(map[string]bool, len(tb))
	for _, t := range tb {
		if seen[t] {
			continue
		}
		seen[t] = true
		if set[t] {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}

// designatorTokens are long-form corporate designators dropped only for
// comparison. The normalizer keeps them because they are part of the stored
// canonical name; here "Acme Corporation" and "Acme Corp" must land on the
// same key.
var designatorTokens = map[string]bool{
	"corporation":  true,
	"company":      true,
	"incorporated": true,
	"limited":      true,
}

// stripDesignators removes long-form designator tokens from an
// already-normalized name. Returns "" when nothing but designators remain.
func stripDesignators(norm string) string {
	if !strings.ContainsRune(norm, ' ') {
		return norm
	}
	kept := make([]string, 0, 4)
	for _, t := range strings.Fields(norm) {
		if !designatorTokens[t] {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, " ")
}

func lengthRatioOut(entryLen, candLen int) bool {
	ratio := float64(entryLen) / float64(candLen)
	return ratio > maxLengthRatio || ratio < minLengthRatio
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}
