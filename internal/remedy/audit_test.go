package remedy

import (
	"encoding/csv"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nwca-ops/remedy-cli/internal/match"
)

func TestReporter_ConcurrentAppend(t *testing.T) {
	r := NewReporter()
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Append(AuditRow{Phase: "resolve-orphans"})
		}()
	}
	wg.Wait()
	assert.Len(t, r.Rows(), 20)
}

func TestReporter_WriteCSV(t *testing.T) {
	r := NewReporter()
	r.Append(AuditRow{
		Phase:         "resolve-orphans",
		Action:        match.ActionAutoFix,
		RawName:       "Acme Corporaton",
		ParsedName:    "Acme Corporaton",
		BestMatchName: "Acme Corporation",
		CustomerID:    42,
		SalesRep:      "Dana",
		Score:         0.9875,
		Method:        match.MethodComposite,
		Breakdown:     match.Breakdown{LevNormalized: 0.9375, FirstWordBonus: 0.05},
		Records:       2,
	})
	r.Append(AuditRow{Phase: "deactivate-denylist", Action: match.ActionReview, RawName: "void order"})

	dir := t.TempDir()
	path, err := r.WriteCSV(dir)
	require.NoError(t, err)
	assert.Contains(t, path, dir)
	assert.Contains(t, path, "remedy-audit-")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	header := records[0]
	assert.Equal(t, "phase", header[0])
	assert.Contains(t, strings.Join(header, ","), "lev_normalized")

	row := records[1]
	assert.Equal(t, "resolve-orphans", row[0])
	assert.Equal(t, "AUTO-FIX", row[1])
	assert.Equal(t, "42", row[5])
	assert.Equal(t, "0.9875", row[7])
	assert.Equal(t, "0.9375", row[9])
}

func TestReporter_EmptyCustomerIDBlank(t *testing.T) {
	assert.Equal(t, "", formatID(0))
	assert.Equal(t, "17", formatID(17))
}

func TestReporter_UniqueRunIDs(t *testing.T) {
	assert.NotEqual(t, NewReporter().RunID(), NewReporter().RunID())
}
