package remedy

import (
	"context"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nwca-ops/remedy-cli/internal/match"
	"github.com/nwca-ops/remedy-cli/pkg/caspio"
)

// retiredCategory marks designs migrated to the webstore platform; they
// stay in the table for history but must not surface as active work.
const retiredCategory = "Webstore"

// DeactivateCategoryPhase retires every active design in the migrated
// category with a single predicate-scoped update. No per-record loop: the
// store applies the predicate atomically and reports the affected count.
type DeactivateCategoryPhase struct{}

func (p *DeactivateCategoryPhase) Name() string { return "deactivate-category" }

func (p *DeactivateCategoryPhase) Description() string {
	return "bulk-deactivate designs in the retired category"
}

func (p *DeactivateCategoryPhase) Run(ctx context.Context, env *Env) (*PhaseResult, error) {
	res := &PhaseResult{}
	where := caspio.And(
		caspio.Eq("Category", retiredCategory),
		caspio.Eq("sts_Active", true),
	)

	if env.DryRun {
		var rows []caspio.DesignRecord
		q := caspio.Query{Where: where, Select: []string{"PK_ID"}}
		if err := env.Store.Query(ctx, caspio.TableDesigns, q, &rows); err != nil {
			return nil, eris.Wrap(err, "deactivate-category: count candidates")
		}
		res.Matched = len(rows)
		env.Reporter.Append(AuditRow{
			Phase:   p.Name(),
			Action:  match.ActionAutoFix,
			RawName: retiredCategory,
			Records: len(rows),
			Notes:   "would deactivate (dry-run)",
		})
		return res, nil
	}

	n, err := env.Store.UpdateWhere(ctx, caspio.TableDesigns, where, map[string]any{"sts_Active": false})
	if err != nil {
		return nil, eris.Wrap(err, "deactivate-category: update")
	}
	res.Matched = n
	res.Updated = n
	env.Reporter.Append(AuditRow{
		Phase:   p.Name(),
		Action:  match.ActionAutoFix,
		RawName: retiredCategory,
		Records: n,
		Notes:   "deactivated by category",
	})
	return res, nil
}

// emptyCheckFields is the set of content fields the structural-emptiness
// check inspects in-process; the store-side filter is deliberately coarser.
func isStructurallyEmpty(r caspio.DesignRecord) bool {
	return strings.TrimSpace(r.CompanyName) == "" &&
		strings.TrimSpace(r.Description) == "" &&
		strings.TrimSpace(r.Notes) == "" &&
		strings.TrimSpace(r.SalesRep) == "" &&
		!r.HasCustomer()
}

// DeactivateEmptyPhase fetches candidates by a coarse blank-company filter,
// applies the strict in-process emptiness check, and deactivates the
// survivors in identifier-list batches.
type DeactivateEmptyPhase struct{}

func (p *DeactivateEmptyPhase) Name() string { return "deactivate-empty" }

func (p *DeactivateEmptyPhase) Description() string {
	return "deactivate records with no content in any field"
}

func (p *DeactivateEmptyPhase) Run(ctx context.Context, env *Env) (*PhaseResult, error) {
	res := &PhaseResult{}
	log := zap.L().With(zap.String("phase", p.Name()))

	var rows []caspio.DesignRecord
	q := caspio.Query{
		Where: caspio.And(
			caspio.Eq("sts_Active", true),
			caspio.IsBlank("CompanyName"),
		),
		Select: []string{"PK_ID", "CompanyName", "Description", "NOTES", "CustomerServiceRep", "ID_Customer"},
	}
	if err := env.Store.Query(ctx, caspio.TableDesigns, q, &rows); err != nil {
		return nil, eris.Wrap(err, "deactivate-empty: fetch candidates")
	}

	var ids []int64
	for _, r := range rows {
		if isStructurallyEmpty(r) {
			ids = append(ids, r.PKID)
		}
	}
	res.Matched = len(ids)
	res.Skipped = len(rows) - len(ids)
	if len(ids) == 0 {
		return res, nil
	}

	env.Reporter.Append(AuditRow{
		Phase:   p.Name(),
		Action:  match.ActionAutoFix,
		Records: len(ids),
		Notes:   "structurally empty",
	})
	if env.DryRun {
		return res, nil
	}

	tally := newErrTally(log, env.Cfg.MaxErrorsShown)
	for _, batch := range batchIDs(ids, env.Cfg.BatchSize) {
		// Guard: only rows still active and still blank are written.
		where := caspio.And(
			caspio.In("PK_ID", batch),
			caspio.Eq("sts_Active", true),
			caspio.IsBlank("CompanyName"),
		)
		n, err := env.Store.UpdateWhere(ctx, caspio.TableDesigns, where, map[string]any{"sts_Active": false})
		if err != nil {
			if isFatal(err) {
				return nil, err
			}
			tally.add("batch", err)
			continue
		}
		res.Updated += n
	}
	res.Erred = tally.total()
	return res, nil
}

// Safe patterns deactivate without review: the whole name is a deletion
// marker. Anything that merely contains a trigger word is escalated to
// review instead of being silently dropped.
var (
	denylistSafe = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*(delete|deleted|void|remove|removed)\s*$`),
		regexp.MustCompile(`(?i)^\s*do not use\s*$`),
		regexp.MustCompile(`(?i)^\s*zzz+`),
	}
	denylistTriggers = []string{"delete", "void", "do not use", "remove"}
)

// DenylistPhase deactivates records whose company name is a known deletion
// marker and routes everything else matching the broader trigger pattern to
// human review.
type DenylistPhase struct{}

func (p *DenylistPhase) Name() string { return "deactivate-denylist" }

func (p *DenylistPhase) Description() string {
	return "deactivate deletion-marker names; escalate near-misses to review"
}

func (p *DenylistPhase) Run(ctx context.Context, env *Env) (*PhaseResult, error) {
	res := &PhaseResult{}
	log := zap.L().With(zap.String("phase", p.Name()))

	triggers := make([]caspio.Where, len(denylistTriggers))
	for i, t := range denylistTriggers {
		triggers[i] = caspio.Contains("CompanyName", t)
	}
	var rows []caspio.DesignRecord
	q := caspio.Query{
		Where:  caspio.And(caspio.Eq("sts_Active", true), caspio.Or(triggers...)),
		Select: []string{"PK_ID", "CompanyName"},
	}
	if err := env.Store.Query(ctx, caspio.TableDesigns, q, &rows); err != nil {
		return nil, eris.Wrap(err, "deactivate-denylist: fetch candidates")
	}

	var safeIDs []int64
	for _, r := range rows {
		if matchesAny(denylistSafe, r.CompanyName) {
			safeIDs = append(safeIDs, r.PKID)
			continue
		}
		res.Reviewed++
		env.Reporter.Append(AuditRow{
			Phase:   p.Name(),
			Action:  match.ActionReview,
			RawName: r.CompanyName,
			Records: 1,
			Notes:   "trigger word in company name; not a known deletion marker",
		})
	}
	res.Matched = len(safeIDs)
	if len(safeIDs) > 0 {
		env.Reporter.Append(AuditRow{
			Phase:   p.Name(),
			Action:  match.ActionAutoFix,
			Records: len(safeIDs),
			Notes:   "deletion-marker names",
		})
	}
	if env.DryRun || len(safeIDs) == 0 {
		return res, nil
	}

	tally := newErrTally(log, env.Cfg.MaxErrorsShown)
	for _, batch := range batchIDs(safeIDs, env.Cfg.BatchSize) {
		where := caspio.And(caspio.In("PK_ID", batch), caspio.Eq("sts_Active", true))
		n, err := env.Store.UpdateWhere(ctx, caspio.TableDesigns, where, map[string]any{"sts_Active": false})
		if err != nil {
			if isFatal(err) {
				return nil, err
			}
			tally.add("batch", err)
			continue
		}
		res.Updated += n
	}
	res.Erred = tally.total()
	return res, nil
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// batchIDs splits ids into batches of at most size.
func batchIDs(ids []int64, size int) [][]int64 {
	if size <= 0 {
		size = 200
	}
	var out [][]int64
	for len(ids) > 0 {
		n := min(size, len(ids))
		out = append(out, ids[:n])
		ids = ids[n:]
	}
	return out
}
