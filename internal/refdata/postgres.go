package refdata

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/nwca-ops/remedy-cli/internal/match"
)

// Querier is the minimal pgx surface the loader needs, satisfied by
// *pgxpool.Pool and by pgxmock in tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// DefaultCustomerQuery reads the auxiliary customer snapshot table.
const DefaultCustomerQuery = `
SELECT company_name, customer_id
FROM ref_data.customers
WHERE company_name IS NOT NULL AND customer_id > 0`

// LoadPostgres reads (name, id) pairs from an auxiliary table. The query
// must select exactly two columns: name text, id bigint.
func LoadPostgres(ctx context.Context, db Querier, query string) (match.Source, error) {
	src := match.Source{Name: "postgres"}
	if query == "" {
		query = DefaultCustomerQuery
	}

	rows, err := db.Query(ctx, query)
	if err != nil {
		return src, eris.Wrap(err, "refdata: query customers")
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var id int64
		if err := rows.Scan(&name, &id); err != nil {
			return src, eris.Wrap(err, "refdata: scan customer row")
		}
		name = strings.TrimSpace(name)
		if name == "" || id <= 0 {
			continue
		}
		src.Pairs = append(src.Pairs, match.Pair{Name: name, CustomerID: id})
	}
	if err := rows.Err(); err != nil {
		return src, eris.Wrap(err, "refdata: iterate customer rows")
	}
	return src, nil
}
