package remedy

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/nwca-ops/remedy-cli/internal/config"
	"github.com/nwca-ops/remedy-cli/internal/match"
	"github.com/nwca-ops/remedy-cli/pkg/caspio"
)

type updateCall struct {
	table  string
	where  string
	fields map[string]any
}

// mockStore implements caspio.Client for phase tests. queryFn returns the
// rows for a given table/query; updates are recorded with their rendered
// predicates.
type mockStore struct {
	mu        sync.Mutex
	queryFn   func(table string, q caspio.Query) any
	queryErr  error
	affected  int
	updateErr error
	updates   []updateCall
}

func (m *mockStore) Query(ctx context.Context, table string, q caspio.Query, out any) error {
	if m.queryErr != nil {
		return m.queryErr
	}
	var data any
	if m.queryFn != nil {
		data = m.queryFn(table, q)
	}
	if data == nil {
		data = []struct{}{}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func (m *mockStore) UpdateWhere(ctx context.Context, table string, where caspio.Where, fields map[string]any) (int, error) {
	m.mu.Lock()
	m.updates = append(m.updates, updateCall{table: table, where: where.String(), fields: fields})
	m.mu.Unlock()
	if m.updateErr != nil {
		return 0, m.updateErr
	}
	return m.affected, nil
}

func (m *mockStore) Ping(ctx context.Context) error { return nil }

func i64(v int64) *int64 { return &v }

func testEnv(store caspio.Client) *Env {
	return &Env{
		Cfg:      config.RemedyConfig{Concurrency: 2, BatchSize: 100, MaxErrorsShown: 5},
		Store:    store,
		Registry: match.BuildRegistry(nil),
		Reps:     map[int64]string{},
		Reporter: NewReporter(),
	}
}
