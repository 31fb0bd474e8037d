// Package remedy orchestrates the remediation pipeline: an ordered set of
// idempotent phases over the bridge store, per-decision audit rows, and a
// resumable checkpoint for long scans.
package remedy

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/nwca-ops/remedy-cli/internal/match"
)

// AuditRow is one classification decision, flattened for the report. The
// per-metric breakdown is carried alongside the composite so reviewers can
// see which metric drove a near-threshold score.
type AuditRow struct {
	Phase         string
	Action        match.Action
	RawName       string
	ParsedName    string
	BestMatchName string
	CustomerID    int64
	SalesRep      string
	Score         float64
	Method        string
	Breakdown     match.Breakdown
	Records       int
	Notes         string
}

// Reporter accumulates audit rows during a run and writes the tabular
// artifact once at the end. Safe for concurrent Append.
type Reporter struct {
	mu    sync.Mutex
	runID string
	rows  []AuditRow
}

// NewReporter creates a reporter with a fresh run id.
func NewReporter() *Reporter {
	return &Reporter{runID: uuid.New().String()}
}

// RunID returns the unique id of this run.
func (r *Reporter) RunID() string { return r.runID }

// Append records one decision.
func (r *Reporter) Append(row AuditRow) {
	r.mu.Lock()
	r.rows = append(r.rows, row)
	r.mu.Unlock()
}

// Rows returns a copy of the accumulated rows.
func (r *Reporter) Rows() []AuditRow {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]AuditRow(nil), r.rows...)
}

var auditHeader = []string{
	"phase", "action", "raw_name", "parsed_name", "best_match", "customer_id",
	"sales_rep", "score", "method",
	"lev_normalized", "lev_raw", "lev_compact", "token_jaccard",
	"containment_bonus", "first_word_bonus",
	"records", "notes",
}

// WriteCSV writes the audit artifact into dir and returns its path. The
// filename embeds the date and run id so successive runs never collide.
func (r *Reporter) WriteCSV(dir string) (string, error) {
	r.mu.Lock()
	rows := append([]AuditRow(nil), r.rows...)
	r.mu.Unlock()

	name := fmt.Sprintf("remedy-audit-%s-%s.csv", time.Now().Format("20060102"), r.runID[:8])
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrapf(err, "audit: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(auditHeader); err != nil {
		return "", eris.Wrap(err, "audit: write header")
	}
	for _, row := range rows {
		rec := []string{
			row.Phase,
			string(row.Action),
			row.RawName,
			row.ParsedName,
			row.BestMatchName,
			formatID(row.CustomerID),
			row.SalesRep,
			formatScore(row.Score),
			row.Method,
			formatScore(row.Breakdown.LevNormalized),
			formatScore(row.Breakdown.LevRaw),
			formatScore(row.Breakdown.LevCompact),
			formatScore(row.Breakdown.TokenJaccard),
			formatScore(row.Breakdown.ContainmentBonus),
			formatScore(row.Breakdown.FirstWordBonus),
			strconv.Itoa(row.Records),
			row.Notes,
		}
		if err := w.Write(rec); err != nil {
			return "", eris.Wrap(err, "audit: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", eris.Wrap(err, "audit: flush")
	}
	return path, nil
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
