package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupCandidates_MergesByNormalizedForm(t *testing.T) {
	cands := GroupCandidates([]RawName{
		{Raw: "Acme, Inc.", RecordIDs: []int64{1, 2, 3}, Count: 3},
		{Raw: "ACME INC", RecordIDs: []int64{4, 5}, Count: 2},
		{Raw: "Zebra Co", RecordIDs: []int64{6}, Count: 1},
	})

	require.Len(t, cands, 2)

	acme := cands[0]
	assert.Equal(t, "Acme, Inc.", acme.Raw)
	assert.Equal(t, "acme", acme.Normalized)
	assert.Equal(t, 5, acme.Count)
	assert.ElementsMatch(t, []string{"Acme, Inc.", "ACME INC"}, acme.Spellings)
	assert.ElementsMatch(t, []int64{1, 2, 3, 4, 5}, acme.RecordIDs)

	assert.Equal(t, "zebra", cands[1].Normalized)
	assert.Equal(t, 1, cands[1].Count)
}

func TestGroupCandidates_MostFrequentSpellingWins(t *testing.T) {
	cands := GroupCandidates([]RawName{
		{Raw: "smith trucking", Count: 2},
		{Raw: "Smith Trucking", Count: 9},
	})

	require.Len(t, cands, 1)
	assert.Equal(t, "Smith Trucking", cands[0].Raw)
	assert.Equal(t, 11, cands[0].Count)
}

func TestGroupCandidates_CountFallsBackToRecordIDs(t *testing.T) {
	cands := GroupCandidates([]RawName{
		{Raw: "Acme Corporation", RecordIDs: []int64{10, 11}},
	})
	require.Len(t, cands, 1)
	assert.Equal(t, 2, cands[0].Count)
}

func TestGroupCandidates_DropsEmptyNormalized(t *testing.T) {
	cands := GroupCandidates([]RawName{
		{Raw: ".,;", Count: 4},
		{Raw: "", Count: 2},
		{Raw: "Real Name", Count: 1},
	})
	require.Len(t, cands, 1)
	assert.Equal(t, "Real Name", cands[0].Raw)
}

func TestGroupCandidates_SampleIDsBounded(t *testing.T) {
	ids := make([]int64, 50)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	cands := GroupCandidates([]RawName{{Raw: "Busy Customer Co", RecordIDs: ids}})
	require.Len(t, cands, 1)
	assert.Len(t, cands[0].RecordIDs, maxSampleIDs)
	assert.Equal(t, 50, cands[0].Count)
}

func TestGroupCandidates_SortedByCountDescending(t *testing.T) {
	cands := GroupCandidates([]RawName{
		{Raw: "Rare Name Co", Count: 1},
		{Raw: "Common Name Co", Count: 40},
		{Raw: "Middling Name Co", Count: 5},
	})
	require.Len(t, cands, 3)
	assert.Equal(t, "Common Name Co", cands[0].Raw)
	assert.Equal(t, "Middling Name Co", cands[1].Raw)
	assert.Equal(t, "Rare Name Co", cands[2].Raw)
}
