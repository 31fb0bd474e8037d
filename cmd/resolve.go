package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nwca-ops/remedy-cli/internal/match"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <design label>",
	Short: "Resolve a single design label against the registry",
	Long: `Resolve a single free-text design label against the customer registry
and print the parse, the best match, and the classification. Useful for
spot-checking scoring behavior before a live run.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		raw := strings.Join(args, " ")

		store, err := buildStore()
		if err != nil {
			return err
		}
		registry, _, err := loadRegistry(ctx, store)
		if err != nil {
			return err
		}

		parsed, ok := match.ParseCompany(raw)
		if !ok {
			fmt.Printf("input:  %q\naction: %s\n", raw, match.ActionNoParse)
			return nil
		}
		fmt.Printf("input:      %q\n", raw)
		fmt.Printf("parsed:     %q\n", parsed)
		fmt.Printf("normalized: %q\n", match.Normalize(parsed))

		if action, special := match.ClassifySpecial(parsed); special {
			fmt.Printf("action:     %s\n", action)
			return nil
		}

		best := match.FindBestMatch(parsed, registry.Entries())
		action := match.Classify(best)
		fmt.Printf("action:     %s\n", action)
		if best.Found {
			fmt.Printf("match:      %q (customer %d)\n", best.Entry.CanonicalName, best.Entry.CustomerID)
			fmt.Printf("score:      %.4f via %s\n", best.Score, best.Method)
			b := best.Breakdown
			fmt.Printf("breakdown:  lev-norm=%.4f lev-raw=%.4f lev-compact=%.4f jaccard=%.4f containment=%.2f first-word=%.2f\n",
				b.LevNormalized, b.LevRaw, b.LevCompact, b.TokenJaccard, b.ContainmentBonus, b.FirstWordBonus)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
