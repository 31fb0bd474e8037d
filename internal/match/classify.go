package match

import "regexp"

// Action is the terminal decision for one candidate.
type Action string

const (
	ActionAutoFix   Action = "AUTO-FIX"
	ActionReview    Action = "REVIEW"
	ActionSkip      Action = "SKIP"
	ActionTooShort  Action = "TOO-SHORT"
	ActionTest      Action = "TEST"
	ActionMalformed Action = "MALFORMED"
	ActionNoParse   Action = "NO-PARSE"
)

// Classification thresholds, fixed for the duration of a run.
const (
	AutoFixThreshold = 0.90
	ReviewThreshold  = 0.75
)

// testPatterns flag known test/placeholder entries. Anchored so that real
// company names containing these words are not swallowed.
var testPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^test(\s|$|ing\b|er\b)`),
	regexp.MustCompile(`(?i)^(sample|placeholder|demo|example)\b`),
	regexp.MustCompile(`(?i)^(asdf|qwerty|xxx+|zzz+)`),
	regexp.MustCompile(`(?i)\bdo not use\b`),
}

// malformedPattern catches names that begin with a dangling ampersand,
// an artifact of upstream concatenation bugs.
var malformedPattern = regexp.MustCompile(`^\s*&`)

// ClassifySpecial short-circuits test/placeholder and malformed names to
// terminal actions before any scoring runs. The second return reports
// whether a special classification applied.
func ClassifySpecial(raw string) (Action, bool) {
	if malformedPattern.MatchString(raw) {
		return ActionMalformed, true
	}
	for _, p := range testPatterns {
		if p.MatchString(raw) {
			return ActionTest, true
		}
	}
	return "", false
}

// Classify maps a best-match search outcome to an action using the run's
// fixed thresholds.
func Classify(best BestMatch) Action {
	if best.TooShort {
		return ActionTooShort
	}
	if !best.Found {
		return ActionSkip
	}
	return ClassifyAt(best.Score, AutoFixThreshold, ReviewThreshold)
}

// ClassifyAt maps a score to an action given explicit thresholds. Both
// boundaries are inclusive: a score of exactly autoFix classifies as
// AUTO-FIX and a score of exactly review as REVIEW.
func ClassifyAt(score, autoFix, review float64) Action {
	switch {
	case score >= autoFix:
		return ActionAutoFix
	case score >= review:
		return ActionReview
	default:
		return ActionSkip
	}
}
