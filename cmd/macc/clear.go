package main

import (
	"github.com/spf13/cobra"

	"github.com/boshu2/macc/internal/ledger"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every path macc has managed, and nothing else",
	RunE: func(cmd *cobra.Command, args []string) error {
		pp, err := resolveProjectPaths()
		if err != nil {
			return err
		}
		report, err := ledger.Clear(pp.ManagedPathsFile(), pp.Root)
		if err != nil {
			return err
		}
		outf("removed %d, skipped %d", report.Removed, report.Skipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
}
