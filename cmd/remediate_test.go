package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nwca-ops/remedy-cli/internal/config"
	"github.com/nwca-ops/remedy-cli/internal/match"
	"github.com/nwca-ops/remedy-cli/pkg/caspio"
)

func TestCustomerSource(t *testing.T) {
	src := customerSource([]caspio.CustomerRecord{
		{CustomerID: 42, CompanyName: "Acme Corporation", SalesRep: "Dana"},
		{CustomerID: 7, CompanyName: "Smith Trucking"},
	})
	assert.Equal(t, "store", src.Name)
	assert.Equal(t, []match.Pair{
		{Name: "Acme Corporation", CustomerID: 42},
		{Name: "Smith Trucking", CustomerID: 7},
	}, src.Pairs)
}

func TestLoadSource_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "customers.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,id\nAcme,42\n"), 0o644))

	src, err := loadSource(context.Background(), config.SourceConfig{
		Type:       "csv",
		Path:       path,
		NameColumn: "name",
		IDColumn:   "id",
	}, nil)
	require.NoError(t, err)
	require.Len(t, src.Pairs, 1)
	assert.Equal(t, int64(42), src.Pairs[0].CustomerID)
}

func TestLoadSource_UnknownType(t *testing.T) {
	_, err := loadSource(context.Background(), config.SourceConfig{Type: "ftp"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown registry source type")
}
