package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nwca-ops/remedy-cli/internal/config"
	"github.com/nwca-ops/remedy-cli/internal/match"
	"github.com/nwca-ops/remedy-cli/internal/refdata"
	"github.com/nwca-ops/remedy-cli/internal/remedy"
	"github.com/nwca-ops/remedy-cli/pkg/caspio"
)

var remediateCmd = &cobra.Command{
	Use:   "remediate",
	Short: "Run the remediation pipeline",
	Long: `Run the remediation pipeline against the record store.

Runs in dry-run mode by default: every record is fetched, parsed, and
classified, and the audit report is written, but no updates are sent.
Pass --live to apply AUTO-FIX updates and deactivations.

Use --phase to run a single phase, --limit to cap the orphan scan while
tuning thresholds, and --resume=false to discard checkpoint state from a
previous interrupted run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "remediate"))

		live, _ := cmd.Flags().GetBool("live")
		phaseName, _ := cmd.Flags().GetString("phase")
		resume, _ := cmd.Flags().GetBool("resume")
		limit, _ := cmd.Flags().GetInt("limit")
		reportDir, _ := cmd.Flags().GetString("report")
		if reportDir == "" {
			reportDir = cfg.Remedy.ReportDir
		}

		phases, err := remedy.SelectPhases(phaseName)
		if err != nil {
			return err
		}

		store, err := buildStore()
		if err != nil {
			return err
		}
		if err := store.Ping(ctx); err != nil {
			return eris.Wrap(err, "remediate: record store unreachable")
		}

		registry, reps, err := loadRegistry(ctx, store)
		if err != nil {
			return err
		}
		if registry.Len() == 0 {
			return eris.New("remediate: registry is empty, check registry sources")
		}

		check, err := remedy.OpenCheckpoint(cfg.Remedy.CheckpointPath)
		if err != nil {
			return err
		}
		defer check.Close()
		if !resume {
			for _, p := range phases {
				if err := check.Reset(ctx, p.Name()); err != nil {
					return err
				}
			}
		}

		env := &remedy.Env{
			Cfg:      cfg.Remedy,
			Store:    store,
			Registry: registry,
			Reps:     reps,
			Reporter: remedy.NewReporter(),
			Check:    check,
			DryRun:   !live,
			Limit:    limit,
		}

		log.Info("starting remediation",
			zap.String("run_id", env.Reporter.RunID()),
			zap.Int("phases", len(phases)),
			zap.Int("registry", registry.Len()),
			zap.Bool("live", live),
		)

		results, runErr := remedy.NewEngine(phases).Run(ctx, env)

		path, werr := env.Reporter.WriteCSV(reportDir)
		if werr != nil {
			log.Error("write audit report", zap.Error(werr))
		} else {
			fmt.Printf("Audit report: %s\n", path)
		}

		fmt.Print(remedy.FormatSummary(results, env.DryRun))
		return runErr
	},
}

func init() {
	remediateCmd.Flags().Bool("live", false, "apply updates instead of dry-run")
	remediateCmd.Flags().String("phase", "", "run a single phase by name (see 'phases')")
	remediateCmd.Flags().Int("limit", 0, "cap how many records the orphan scan fetches (0 = all)")
	remediateCmd.Flags().String("report", "", "directory for the audit report (default from config)")
	remediateCmd.Flags().Bool("resume", true, "resume from checkpoint state; --resume=false starts over")
	rootCmd.AddCommand(remediateCmd)
}

// buildStore constructs the record store client from config.
func buildStore() (caspio.Client, error) {
	return caspio.New(caspio.Config{
		BaseURL:      cfg.Caspio.BaseURL,
		TokenURL:     cfg.Caspio.TokenURL,
		ClientID:     cfg.Caspio.ClientID,
		ClientSecret: cfg.Caspio.ClientSecret,
		RateLimit:    cfg.Caspio.RateLimit,
		PageSize:     cfg.Caspio.PageSize,
		MaxRetries:   cfg.Caspio.MaxRetries,
	})
}

// loadRegistry assembles the customer registry from the configured sources
// in priority order and returns it with the customer-to-rep map. The
// customer table is always fetched so later phases can backfill reps even
// when it is not the primary registry source.
func loadRegistry(ctx context.Context, store caspio.Client) (*match.Registry, map[int64]string, error) {
	customers, err := fetchCustomers(ctx, store)
	if err != nil {
		return nil, nil, err
	}
	reps := make(map[int64]string, len(customers))
	for _, c := range customers {
		if c.SalesRep != "" {
			reps[c.CustomerID] = c.SalesRep
		}
	}

	var sources []match.Source
	for _, sc := range cfg.Registry.Sources {
		src, err := loadSource(ctx, sc, customers)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "remediate: load registry source %s", sc.Type)
		}
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		sources = append(sources, customerSource(customers))
	}
	return match.BuildRegistry(sources), reps, nil
}

func loadSource(ctx context.Context, sc config.SourceConfig, customers []caspio.CustomerRecord) (match.Source, error) {
	switch sc.Type {
	case "store":
		return customerSource(customers), nil
	case "csv":
		return refdata.LoadCSV(sc.Path, sc.NameColumn, sc.IDColumn)
	case "xlsx":
		return refdata.LoadXLSX(sc.Path, sc.Sheet, sc.NameColumn, sc.IDColumn)
	case "postgres":
		pool, err := pgxpool.New(ctx, sc.DatabaseURL)
		if err != nil {
			return match.Source{}, eris.Wrap(err, "connect postgres")
		}
		defer pool.Close()
		query := sc.Query
		if query == "" {
			query = refdata.DefaultCustomerQuery
		}
		return refdata.LoadPostgres(ctx, pool, query)
	default:
		return match.Source{}, eris.Errorf("unknown registry source type %q", sc.Type)
	}
}

func fetchCustomers(ctx context.Context, store caspio.Client) ([]caspio.CustomerRecord, error) {
	var customers []caspio.CustomerRecord
	q := caspio.Query{
		Select: []string{"ID_Customer", "CompanyName", "CustomerServiceRep"},
	}
	if err := store.Query(ctx, caspio.TableCustomers, q, &customers); err != nil {
		return nil, eris.Wrap(err, "remediate: fetch customers")
	}
	return customers, nil
}

func customerSource(customers []caspio.CustomerRecord) match.Source {
	pairs := make([]match.Pair, 0, len(customers))
	for _, c := range customers {
		pairs = append(pairs, match.Pair{Name: c.CompanyName, CustomerID: c.CustomerID})
	}
	return match.Source{Name: "store", Pairs: pairs}
}
