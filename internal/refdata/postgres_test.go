package refdata

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nwca-ops/remedy-cli/internal/match"
)

func TestLoadPostgres(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT company_name, customer_id").
		WillReturnRows(pgxmock.NewRows([]string{"company_name", "customer_id"}).
			AddRow("Acme Corporation", int64(42)).
			AddRow("  Smith Trucking  ", int64(7)).
			AddRow("", int64(3)).
			AddRow("Zero Co", int64(0)))

	src, err := LoadPostgres(context.Background(), mock, "")
	require.NoError(t, err)
	assert.Equal(t, "postgres", src.Name)
	assert.Equal(t, []match.Pair{
		{Name: "Acme Corporation", CustomerID: 42},
		{Name: "Smith Trucking", CustomerID: 7},
	}, src.Pairs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadPostgres_CustomQuery(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT name, id FROM legacy").
		WillReturnRows(pgxmock.NewRows([]string{"name", "id"}).AddRow("Acme", int64(1)))

	src, err := LoadPostgres(context.Background(), mock, "SELECT name, id FROM legacy")
	require.NoError(t, err)
	require.Len(t, src.Pairs, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadPostgres_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT company_name").WillReturnError(assert.AnError)

	_, err = LoadPostgres(context.Background(), mock, "")
	assert.Error(t, err)
}
