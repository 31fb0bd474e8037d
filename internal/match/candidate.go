package match

import "sort"

// maxSampleIDs bounds how many record IDs a candidate keeps for the audit
// trail; the occurrence count still reflects every record.
const maxSampleIDs = 20

// RawName is one unprocessed spelling observed on source records.
type RawName struct {
	Raw       string
	RecordIDs []int64
	Count     int
}

// Candidate is one decision unit: all raw spellings sharing a normalized
// form, merged so duplicate spellings are scored and counted exactly once.
type Candidate struct {
	Raw        string // representative spelling (most frequent)
	Normalized string
	Count      int
	Spellings  []string // every distinct raw spelling in the group
	RecordIDs  []int64
}

// GroupCandidates merges raw spellings by normalized key. Occurrence counts
// are summed across spellings, never double-counted, and the most frequent
// spelling becomes the representative. Names that normalize to "" are
// dropped. The result is sorted by descending count for stable processing
// order.
func GroupCandidates(raws []RawName) []Candidate {
	type group struct {
		cand     Candidate
		topCount int
	}
	byNorm := make(map[string]*group)
	var order []string

	for _, rn := range raws {
		norm := Normalize(rn.Raw)
		if norm == "" {
			continue
		}
		count := rn.Count
		if count == 0 {
			count = len(rn.RecordIDs)
		}

		g, ok := byNorm[norm]
		if !ok {
			g = &group{cand: Candidate{Raw: rn.Raw, Normalized: norm}, topCount: count}
			byNorm[norm] = g
			order = append(order, norm)
		} else if count > g.topCount {
			g.cand.Raw = rn.Raw
			g.topCount = count
		}

		if !containsString(g.cand.Spellings, rn.Raw) {
			g.cand.Spellings = append(g.cand.Spellings, rn.Raw)
		}
		g.cand.Count += count
		for _, id := range rn.RecordIDs {
			if len(g.cand.RecordIDs) >= maxSampleIDs {
				break
			}
			g.cand.RecordIDs = append(g.cand.RecordIDs, id)
		}
	}

	out := make([]Candidate, 0, len(byNorm))
	for _, norm := range order {
		out = append(out, byNorm[norm].cand)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
