package remedy

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nwca-ops/remedy-cli/internal/match"
	"github.com/nwca-ops/remedy-cli/pkg/caspio"
)

// noteSeparator replaces embedded line breaks so notes render on one line
// in downstream exports.
const noteSeparator = " | "

// collapseNewlines rewrites a multi-line note as a single line. Idempotent:
// a note with no line breaks comes back unchanged.
func collapseNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	parts := strings.Split(s, "\n")
	kept := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, noteSeparator)
}

// CollapseNotesPhase rewrites notes containing embedded line breaks.
// Rows are grouped by the source value so duplicate notes cost one write,
// and the update predicate matches the original text, which makes the
// write a no-op for any row another run already fixed.
type CollapseNotesPhase struct{}

func (p *CollapseNotesPhase) Name() string { return "collapse-notes" }

func (p *CollapseNotesPhase) Description() string {
	return "collapse embedded line breaks in notes to a single line"
}

func (p *CollapseNotesPhase) Run(ctx context.Context, env *Env) (*PhaseResult, error) {
	res := &PhaseResult{}
	log := zap.L().With(zap.String("phase", p.Name()))

	var rows []caspio.DesignRecord
	q := caspio.Query{
		Where:  caspio.And(caspio.Eq("sts_Active", true), caspio.Ne("NOTES", "")),
		Select: []string{"PK_ID", "NOTES"},
	}
	if err := env.Store.Query(ctx, caspio.TableDesigns, q, &rows); err != nil {
		return nil, eris.Wrap(err, "collapse-notes: fetch candidates")
	}

	// Natural key: the exact source text. Duplicate rows share one update.
	byNote := make(map[string]int)
	for _, r := range rows {
		if strings.ContainsAny(r.Notes, "\r\n") {
			byNote[r.Notes]++
		}
	}
	res.Matched = len(byNote)
	res.Skipped = len(rows) - res.Matched
	if len(byNote) == 0 {
		return res, nil
	}

	tally := newErrTally(log, env.Cfg.MaxErrorsShown)
	for original, count := range byNote {
		collapsed := collapseNewlines(original)
		env.Reporter.Append(AuditRow{
			Phase:   p.Name(),
			Action:  match.ActionAutoFix,
			RawName: collapsed,
			Records: count,
			Notes:   "collapsed line breaks",
		})
		if env.DryRun {
			continue
		}

		where := caspio.And(caspio.Eq("sts_Active", true), caspio.Eq("NOTES", original))
		n, err := env.Store.UpdateWhere(ctx, caspio.TableDesigns, where, map[string]any{"NOTES": collapsed})
		if err != nil {
			if isFatal(err) {
				return nil, err
			}
			tally.add(collapsed, err)
			continue
		}
		res.Updated += n
	}
	res.Erred = tally.total()
	return res, nil
}

// PropagateRepPhase fills the missing sales-rep attribute on records that
// do carry a customer id, copying it from the customer side map with one
// update per unique customer rather than per row.
type PropagateRepPhase struct{}

func (p *PropagateRepPhase) Name() string { return "propagate-rep" }

func (p *PropagateRepPhase) Description() string {
	return "copy the sales rep from the customer record to rows missing it"
}

func (p *PropagateRepPhase) Run(ctx context.Context, env *Env) (*PhaseResult, error) {
	res := &PhaseResult{}
	log := zap.L().With(zap.String("phase", p.Name()))

	var rows []caspio.DesignRecord
	q := caspio.Query{
		Where: caspio.And(
			caspio.Eq("sts_Active", true),
			caspio.IsBlank("CustomerServiceRep"),
		),
		Select: []string{"PK_ID", "ID_Customer"},
	}
	if err := env.Store.Query(ctx, caspio.TableDesigns, q, &rows); err != nil {
		return nil, eris.Wrap(err, "propagate-rep: fetch candidates")
	}

	// One update per unique customer key, not per row.
	perCustomer := make(map[int64]int)
	for _, r := range rows {
		if !r.HasCustomer() {
			res.Skipped++
			continue
		}
		perCustomer[*r.CustomerID]++
	}

	tally := newErrTally(log, env.Cfg.MaxErrorsShown)
	for custID, count := range perCustomer {
		rep, ok := env.Reps[custID]
		if !ok || strings.TrimSpace(rep) == "" {
			res.Skipped += count
			continue
		}
		res.Matched += count
		env.Reporter.Append(AuditRow{
			Phase:      p.Name(),
			Action:     match.ActionAutoFix,
			CustomerID: custID,
			SalesRep:   rep,
			Records:    count,
			Notes:      "propagated sales rep",
		})
		if env.DryRun {
			continue
		}

		where := caspio.And(
			caspio.Eq("ID_Customer", custID),
			caspio.IsBlank("CustomerServiceRep"),
		)
		n, err := env.Store.UpdateWhere(ctx, caspio.TableDesigns, where, map[string]any{"CustomerServiceRep": rep})
		if err != nil {
			if isFatal(err) {
				return nil, err
			}
			tally.add(rep, err)
			continue
		}
		res.Updated += n
	}
	res.Erred = tally.total()
	return res, nil
}
