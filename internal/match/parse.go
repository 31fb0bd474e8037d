package match

import (
	_ "embed"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed vocab.yaml
var vocabYAML []byte

type vocabFile struct {
	Placements []string `yaml:"placements"`
	Blacklist  []string `yaml:"blacklist"`
}

var (
	placementRe  *regexp.Regexp
	blacklistSet map[string]bool
)

func init() {
	var v vocabFile
	if err := yaml.Unmarshal(vocabYAML, &v); err != nil {
		panic("match: parse embedded vocab.yaml: " + err.Error())
	}

	// Longest phrase first so "left chest" wins over "chest".
	phrases := append([]string(nil), v.Placements...)
	sort.Slice(phrases, func(i, j int) bool { return len(phrases[i]) > len(phrases[j]) })
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = regexp.QuoteMeta(p)
	}
	placementRe = regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)

	blacklistSet = make(map[string]bool, len(v.Blacklist))
	for _, term := range v.Blacklist {
		blacklistSet[Normalize(term)] = true
	}
}

var (
	// A design/product code: optional letter prefix, 2-6 digits, optional
	// alphanumeric tail. Several codes may be joined by "&".
	designCode    = `#?[A-Za-z]{0,3}-?\d{2,6}[A-Za-z0-9-]*`
	leadingCodes  = regexp.MustCompile(`^\s*(?:` + designCode + `)(?:\s*&\s*(?:` + designCode + `))*`)
	leadingSeps   = regexp.MustCompile(`^[\s,.;:&-]+`)
	trailingYear  = regexp.MustCompile(`\b(199\d|20[0-2]\d)\s*$`)
	trailingParen = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
	trailingRev   = regexp.MustCompile(`(?i)[\s,.-]*\b(rev\.?\s*\d*|revised|revision\s*\d*|updated?|version\s*\d+|v\d+|copy)\s*$`)
	trailingFlag  = regexp.MustCompile(`(?i)[\s,.-]*\b(do not use|don'?t use|void|obsolete|old)\s*$`)
	trailingSeps  = regexp.MustCompile(`[\s,.;:&'"-]+$`)
	pureNumber    = regexp.MustCompile(`^\d+$`)
)

// ParseCompany extracts a company-name candidate from a compound design
// label ("P2641, Acme Corp Left Chest 2024"). Used only for records with
// no direct company field. Each step is a no-op on already-clean input, so
// re-running the parser on its own output is safe. Returns false when no
// plausible company name remains.
func ParseCompany(text string) (string, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return "", false
	}

	s = leadingCodes.ReplaceAllString(s, "")
	s = leadingSeps.ReplaceAllString(s, "")

	// Placement keywords can nest ("cap front left chest emb"); three
	// passes removes what one pass uncovers.
	for range 3 {
		prev := s
		s = placementRe.ReplaceAllString(s, " ")
		s = multiSpace.ReplaceAllString(s, " ")
		s = strings.TrimSpace(s)
		if s == prev {
			break
		}
	}

	s = trailingYear.ReplaceAllString(s, "")

	// Descriptors chain ("(old) do not use"); two passes.
	for range 2 {
		s = trailingParen.ReplaceAllString(s, "")
		s = trailingFlag.ReplaceAllString(s, "")
		s = trailingRev.ReplaceAllString(s, "")
	}

	s = leadingSeps.ReplaceAllString(s, "")
	s = trailingSeps.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	if len(s) < 3 {
		return "", false
	}
	if pureNumber.MatchString(s) || strings.HasPrefix(s, "#") {
		return "", false
	}
	if blacklistSet[Normalize(s)] {
		return "", false
	}
	if !strings.Contains(s, " ") && len(s) < 5 {
		return "", false
	}
	return s, true
}
