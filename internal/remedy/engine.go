package remedy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nwca-ops/remedy-cli/internal/config"
	"github.com/nwca-ops/remedy-cli/internal/match"
	"github.com/nwca-ops/remedy-cli/pkg/caspio"
)

// Env is the per-run context handed to every phase. It is constructed once
// per run and holds no process-wide state.
type Env struct {
	Cfg      config.RemedyConfig
	Store    caspio.Client
	Registry *match.Registry
	Reps     map[int64]string // customer id → sales rep, for propagation
	Reporter *Reporter
	Check    *Checkpoint // nil disables resume
	DryRun   bool
	Limit    int // cap on records fetched by the orphan scan; 0 = all
}

// PhaseResult aggregates one phase's counters.
type PhaseResult struct {
	Name     string
	Matched  int // records/groups that met the phase's condition
	Updated  int // records actually written (0 in dry-run)
	Reviewed int // escalated to human review
	Skipped  int
	Erred    int
	Duration time.Duration
}

// Phase is one ordered, independently invokable remediation stage. Every
// mutation a phase issues re-checks the needs-fixing predicate at write
// time, so re-running a phase is always safe.
type Phase interface {
	Name() string
	Description() string
	Run(ctx context.Context, env *Env) (*PhaseResult, error)
}

// Phases returns the ordered phase registry. Later phases assume earlier
// phases' invariants, so the order is part of the contract.
func Phases() []Phase {
	return []Phase{
		&DeactivateCategoryPhase{},
		&DeactivateEmptyPhase{},
		&DenylistPhase{},
		&CollapseNotesPhase{},
		&PropagateRepPhase{},
		&ResolveOrphansPhase{},
	}
}

// SelectPhases filters the registry by name. An empty name selects all.
func SelectPhases(name string) ([]Phase, error) {
	all := Phases()
	if name == "" {
		return all, nil
	}
	for _, p := range all {
		if p.Name() == name {
			return []Phase{p}, nil
		}
	}
	names := make([]string, len(all))
	for i, p := range all {
		names[i] = p.Name()
	}
	return nil, eris.Errorf("remedy: unknown phase %q (have: %s)", name, strings.Join(names, ", "))
}

// Engine runs phases sequentially and aggregates their results.
type Engine struct {
	phases []Phase
}

// NewEngine creates an engine over the given phases.
func NewEngine(phases []Phase) *Engine {
	return &Engine{phases: phases}
}

// Run executes every phase in order. A hard authentication failure aborts
// the run immediately; any other phase-level error is recorded and the
// remaining phases still run. The returned error is non-nil when any phase
// failed fatally, so the exit status reflects it.
func (e *Engine) Run(ctx context.Context, env *Env) ([]PhaseResult, error) {
	log := zap.L().With(zap.String("component", "remedy.engine"), zap.Bool("dry_run", env.DryRun))
	start := time.Now()

	var results []PhaseResult
	var failed []string

	for _, p := range e.phases {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		pLog := log.With(zap.String("phase", p.Name()))
		pLog.Info("phase starting")

		phaseStart := time.Now()
		res, err := p.Run(ctx, env)
		elapsed := time.Since(phaseStart)

		if err != nil {
			if errors.Is(err, caspio.ErrAuth) || errors.Is(err, context.Canceled) {
				pLog.Error("aborting run", zap.Error(err))
				return results, err
			}
			pLog.Error("phase failed", zap.Error(err), zap.Duration("elapsed", elapsed))
			failed = append(failed, p.Name())
			results = append(results, PhaseResult{Name: p.Name(), Erred: 1, Duration: elapsed})
			continue
		}

		res.Name = p.Name()
		res.Duration = elapsed
		results = append(results, *res)
		pLog.Info("phase complete",
			zap.Int("matched", res.Matched),
			zap.Int("updated", res.Updated),
			zap.Int("reviewed", res.Reviewed),
			zap.Int("skipped", res.Skipped),
			zap.Int("erred", res.Erred),
			zap.Duration("elapsed", elapsed),
		)
	}

	log.Info("run complete",
		zap.Int("phases", len(results)),
		zap.Duration("total", time.Since(start)),
	)

	if len(failed) > 0 {
		return results, eris.Errorf("remedy: %d phase(s) failed: %s", len(failed), strings.Join(failed, ", "))
	}
	return results, nil
}

// FormatSummary renders the phase-by-phase summary printed at run end.
func FormatSummary(results []PhaseResult, dryRun bool) string {
	var b strings.Builder
	mode := "live"
	if dryRun {
		mode = "dry-run"
	}
	fmt.Fprintf(&b, "Remediation summary (%s):\n", mode)

	var total time.Duration
	for _, r := range results {
		total += r.Duration
		fmt.Fprintf(&b, "  %-20s matched=%-6d updated=%-6d review=%-5d skipped=%-6d erred=%-4d %s\n",
			r.Name, r.Matched, r.Updated, r.Reviewed, r.Skipped, r.Erred, r.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(&b, "Total duration: %s\n", total.Round(time.Millisecond))
	return b.String()
}

// isFatal reports whether an error must abort the phase (and the run)
// rather than being tallied as a per-record failure.
func isFatal(err error) bool {
	return errors.Is(err, caspio.ErrAuth) || errors.Is(err, context.Canceled)
}

// errTally logs the first few per-record errors in full and only counts the
// rest, so a systematic failure doesn't flood the log.
type errTally struct {
	log   *zap.Logger
	limit int
	count int
}

func newErrTally(log *zap.Logger, limit int) *errTally {
	if limit <= 0 {
		limit = 10
	}
	return &errTally{log: log, limit: limit}
}

func (t *errTally) add(key string, err error) {
	t.count++
	if t.count <= t.limit {
		t.log.Warn("record update failed", zap.String("key", key), zap.Error(err))
		if t.count == t.limit {
			t.log.Warn("further record errors will only be counted")
		}
	}
}

func (t *errTally) total() int { return t.count }
