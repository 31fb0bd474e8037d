package remedy

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nwca-ops/remedy-cli/internal/match"
	"github.com/nwca-ops/remedy-cli/pkg/caspio"
)

// ResolveOrphansPhase handles records with neither a company name nor a
// customer id: parse a candidate out of the design label, try an exact
// registry lookup, fall back to fuzzy scoring, and classify. AUTO-FIX
// results fill name, identifier, and the sales rep in one guarded update
// per source spelling; REVIEW and SKIP results are only audited.
//
// Scoring is pure computation against the immutable registry, so it fans
// out across candidates. The scan checkpoints its offset and per-candidate
// progress so an interrupted run resumes without re-processing.
type ResolveOrphansPhase struct{}

func (p *ResolveOrphansPhase) Name() string { return "resolve-orphans" }

func (p *ResolveOrphansPhase) Description() string {
	return "parse, match, and fix records missing both company and customer id"
}

// decision pairs one candidate with its classification outcome.
type decision struct {
	cand   match.Candidate
	action match.Action
	best   match.BestMatch
	parsed string
}

func (p *ResolveOrphansPhase) Run(ctx context.Context, env *Env) (*PhaseResult, error) {
	res := &PhaseResult{}
	log := zap.L().With(zap.String("phase", p.Name()))

	var offset int64
	if env.Check != nil {
		var err error
		if offset, err = env.Check.Offset(ctx, p.Name()); err != nil {
			return nil, err
		}
		if offset > 0 {
			log.Info("resuming scan", zap.Int64("offset", offset))
		}
	}

	var rows []caspio.DesignRecord
	q := caspio.Query{
		Where: caspio.And(
			caspio.Eq("sts_Active", true),
			caspio.IsBlank("CompanyName"),
			caspio.IsNull("ID_Customer"),
			caspio.Gt("PK_ID", offset),
		),
		Select:  []string{"PK_ID", "Description"},
		OrderBy: "PK_ID",
		Limit:   env.Limit,
	}
	if err := env.Store.Query(ctx, caspio.TableDesigns, q, &rows); err != nil {
		return nil, eris.Wrap(err, "resolve-orphans: fetch orphans")
	}
	log.Info("fetched orphan records", zap.Int("rows", len(rows)))

	// One parse per distinct label, then merge parsed spellings by
	// normalized key so each name is scored exactly once. descsByNorm
	// remembers which source labels feed each candidate: the update
	// predicates are built from those exact labels.
	byDesc := make(map[string][]int64)
	var maxPK int64
	for _, r := range rows {
		desc := strings.TrimSpace(r.Description)
		if desc != "" {
			byDesc[desc] = append(byDesc[desc], r.PKID)
		} else {
			res.Skipped++
		}
		if r.PKID > maxPK {
			maxPK = r.PKID
		}
	}

	var raws []match.RawName
	descsByNorm := make(map[string][]string)
	for desc, ids := range byDesc {
		parsed, ok := match.ParseCompany(desc)
		if !ok {
			res.Skipped += len(ids)
			env.Reporter.Append(AuditRow{
				Phase:   p.Name(),
				Action:  match.ActionNoParse,
				RawName: desc,
				Records: len(ids),
				Notes:   "no company candidate in label",
			})
			continue
		}
		raws = append(raws, match.RawName{Raw: parsed, RecordIDs: ids, Count: len(ids)})
		norm := match.Normalize(parsed)
		descsByNorm[norm] = append(descsByNorm[norm], desc)
	}

	cands := match.GroupCandidates(raws)

	// Drop candidates a previous interrupted run already handled.
	if env.Check != nil {
		kept := cands[:0]
		for _, c := range cands {
			done, err := env.Check.IsDone(ctx, p.Name(), c.Normalized)
			if err != nil {
				return nil, err
			}
			if done {
				res.Skipped += c.Count
				continue
			}
			kept = append(kept, c)
		}
		cands = kept
	}
	log.Info("matching candidates", zap.Int("candidates", len(cands)), zap.Int("registry", env.Registry.Len()))

	// Scoring is read-only against the shared registry: fan out across
	// candidates with bounded parallelism.
	decisions := make([]decision, len(cands))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(env.Cfg.Concurrency, 1))
	for i, c := range cands {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			decisions[i] = classifyCandidate(c, env.Registry)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "resolve-orphans: score candidates")
	}

	tally := newErrTally(log, env.Cfg.MaxErrorsShown)
	retryFloor := maxPK
	for _, d := range decisions {
		incomplete := false
		row := AuditRow{
			Phase:      p.Name(),
			Action:     d.action,
			RawName:    d.cand.Raw,
			ParsedName: d.parsed,
			Records:    d.cand.Count,
		}
		if d.best.Found {
			row.BestMatchName = d.best.Entry.CanonicalName
			row.CustomerID = d.best.Entry.CustomerID
			row.Score = d.best.Score
			row.Method = d.best.Method
			row.Breakdown = d.best.Breakdown
			row.SalesRep = env.Reps[d.best.Entry.CustomerID]
		} else {
			row.Method = d.best.Method
		}

		switch d.action {
		case match.ActionAutoFix:
			res.Matched += d.cand.Count
			if !env.DryRun {
				n, failed, err := p.applyFix(ctx, env, d, descsByNorm[d.cand.Normalized], tally)
				if err != nil {
					return nil, eris.Wrap(err, "resolve-orphans: apply fix")
				}
				res.Updated += n
				// Erred spellings stay in front of the offset so the
				// next resumed run fetches and retries them.
				for _, desc := range failed {
					incomplete = true
					for _, id := range byDesc[desc] {
						if id-1 < retryFloor {
							retryFloor = id - 1
						}
					}
				}
			} else {
				row.Notes = "would update (dry-run)"
			}
		case match.ActionReview:
			res.Reviewed += d.cand.Count
		default:
			res.Skipped += d.cand.Count
		}
		env.Reporter.Append(row)

		if env.Check != nil && !env.DryRun && !incomplete {
			if err := env.Check.MarkDone(ctx, p.Name(), d.cand.Normalized); err != nil {
				return nil, err
			}
		}
	}
	res.Erred = tally.total()

	if env.Check != nil && !env.DryRun && maxPK > 0 {
		if err := env.Check.SetOffset(ctx, p.Name(), retryFloor); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// classifyCandidate runs the full decision cascade for one candidate:
// special patterns, exact registry lookup, then fuzzy search.
func classifyCandidate(c match.Candidate, reg *match.Registry) decision {
	d := decision{cand: c, parsed: c.Raw}

	if action, special := match.ClassifySpecial(c.Raw); special {
		d.action = action
		return d
	}

	if entry, ok := reg.Lookup(c.Normalized); ok {
		d.action = match.ActionAutoFix
		d.best = match.BestMatch{
			Entry:  entry,
			Score:  1.0,
			Method: match.MethodExact,
			Found:  true,
		}
		return d
	}

	d.best = match.FindBestMatch(c.Raw, reg.Entries())
	d.action = match.Classify(d.best)
	return d
}

// applyFix writes the resolved name, id, and rep to every record whose
// label produced this candidate, one guarded update per source spelling.
// Per-spelling failures are tallied and returned so the caller can hold
// the candidate out of the done-set; fatal errors abort.
func (p *ResolveOrphansPhase) applyFix(ctx context.Context, env *Env, d decision, descs []string, tally *errTally) (int, []string, error) {
	fields := map[string]any{
		"CompanyName": d.best.Entry.CanonicalName,
		"ID_Customer": d.best.Entry.CustomerID,
	}
	if rep, ok := env.Reps[d.best.Entry.CustomerID]; ok && rep != "" {
		fields["CustomerServiceRep"] = rep
	}

	updated := 0
	var failed []string
	for _, desc := range descs {
		// Guard: only rows still missing both values are written, so a
		// concurrent or repeated run cannot clobber a corrected record.
		where := caspio.And(
			caspio.Eq("sts_Active", true),
			caspio.Eq("Description", desc),
			caspio.IsBlank("CompanyName"),
			caspio.IsNull("ID_Customer"),
		)
		n, err := env.Store.UpdateWhere(ctx, caspio.TableDesigns, where, fields)
		if err != nil {
			if isFatal(err) {
				return updated, failed, err
			}
			tally.add(desc, err)
			failed = append(failed, desc)
			continue
		}
		updated += n
	}
	return updated, failed, nil
}
