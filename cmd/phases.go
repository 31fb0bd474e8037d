package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nwca-ops/remedy-cli/internal/remedy"
)

var phasesCmd = &cobra.Command{
	Use:   "phases",
	Short: "List pipeline phases in execution order",
	RunE: func(cmd *cobra.Command, args []string) error {
		for i, p := range remedy.Phases() {
			fmt.Printf("%d. %-22s %s\n", i+1, p.Name(), p.Description())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(phasesCmd)
}
