package remedy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nwca-ops/remedy-cli/internal/match"
	"github.com/nwca-ops/remedy-cli/pkg/caspio"
)

func TestDeactivateCategoryPhase_Live(t *testing.T) {
	store := &mockStore{affected: 5}
	env := testEnv(store)

	res, err := (&DeactivateCategoryPhase{}).Run(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Matched)
	assert.Equal(t, 5, res.Updated)

	require.Len(t, store.updates, 1)
	assert.Contains(t, store.updates[0].where, "Category='Webstore'")
	assert.Contains(t, store.updates[0].where, "sts_Active=1")
	assert.Equal(t, map[string]any{"sts_Active": false}, store.updates[0].fields)
}

func TestDeactivateCategoryPhase_DryRun(t *testing.T) {
	store := &mockStore{
		queryFn: func(table string, q caspio.Query) any {
			return []caspio.DesignRecord{{PKID: 1}, {PKID: 2}, {PKID: 3}}
		},
	}
	env := testEnv(store)
	env.DryRun = true

	res, err := (&DeactivateCategoryPhase{}).Run(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Matched)
	assert.Zero(t, res.Updated)
	assert.Empty(t, store.updates)
}

func TestIsStructurallyEmpty(t *testing.T) {
	assert.True(t, isStructurallyEmpty(caspio.DesignRecord{PKID: 1}))
	assert.True(t, isStructurallyEmpty(caspio.DesignRecord{CompanyName: "  ", Notes: "\n"}))
	assert.False(t, isStructurallyEmpty(caspio.DesignRecord{Description: "P2641 Acme"}))
	assert.False(t, isStructurallyEmpty(caspio.DesignRecord{CustomerID: i64(42)}))
	assert.False(t, isStructurallyEmpty(caspio.DesignRecord{SalesRep: "Dana"}))
}

func TestDeactivateEmptyPhase(t *testing.T) {
	store := &mockStore{
		affected: 2,
		queryFn: func(table string, q caspio.Query) any {
			return []caspio.DesignRecord{
				{PKID: 1},
				{PKID: 2},
				{PKID: 3, Notes: "keep me"},
			}
		},
	}
	env := testEnv(store)

	res, err := (&DeactivateEmptyPhase{}).Run(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Matched)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, 1, res.Skipped)

	require.Len(t, store.updates, 1)
	assert.Contains(t, store.updates[0].where, "PK_ID IN (1,2)")
	assert.Contains(t, store.updates[0].where, "sts_Active=1")
}

func TestDeactivateEmptyPhase_NothingToDo(t *testing.T) {
	store := &mockStore{
		queryFn: func(table string, q caspio.Query) any {
			return []caspio.DesignRecord{{PKID: 1, CompanyName: "Acme"}}
		},
	}
	res, err := (&DeactivateEmptyPhase{}).Run(context.Background(), testEnv(store))
	require.NoError(t, err)
	assert.Zero(t, res.Matched)
	assert.Empty(t, store.updates)
}

func TestDenylistPhase(t *testing.T) {
	store := &mockStore{
		affected: 2,
		queryFn: func(table string, q caspio.Query) any {
			return []caspio.DesignRecord{
				{PKID: 1, CompanyName: "DELETE"},
				{PKID: 2, CompanyName: "zzz old file"},
				{PKID: 3, CompanyName: "Do not delete this customer"},
			}
		},
	}
	env := testEnv(store)

	res, err := (&DenylistPhase{}).Run(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Matched)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, 1, res.Reviewed)

	require.Len(t, store.updates, 1)
	assert.Contains(t, store.updates[0].where, "PK_ID IN (1,2)")

	var reviewRows int
	for _, row := range env.Reporter.Rows() {
		if row.Action == match.ActionReview {
			reviewRows++
			assert.Equal(t, "Do not delete this customer", row.RawName)
		}
	}
	assert.Equal(t, 1, reviewRows)
}

func TestDenylistPhase_DryRun(t *testing.T) {
	store := &mockStore{
		queryFn: func(table string, q caspio.Query) any {
			return []caspio.DesignRecord{{PKID: 1, CompanyName: "void"}}
		},
	}
	env := testEnv(store)
	env.DryRun = true

	res, err := (&DenylistPhase{}).Run(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Matched)
	assert.Zero(t, res.Updated)
	assert.Empty(t, store.updates)
}

func TestMatchesAny(t *testing.T) {
	assert.True(t, matchesAny(denylistSafe, "  deleted "))
	assert.True(t, matchesAny(denylistSafe, "DO NOT USE"))
	assert.True(t, matchesAny(denylistSafe, "zzzz"))
	assert.False(t, matchesAny(denylistSafe, "Delete Me Printing"))
}
