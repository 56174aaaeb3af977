package main

import (
	"bytes"
	"context"

	"github.com/spf13/cobra"

	"github.com/boshu2/macc/internal/plan"
)

var previewTools string

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show the before/after content of every planned operation",
	RunE: func(cmd *cobra.Command, args []string) error {
		pp, cfg, err := loadConfig()
		if err != nil {
			return err
		}
		specs, err := loadToolSpecs(pp)
		if err != nil {
			return err
		}
		p, warnings, err := buildPlan(context.Background(), pp, cfg, specs, previewTools)
		if err != nil {
			return err
		}
		for _, w := range warnings {
			outf("warning: %s", w)
		}
		ops, err := plan.CollectPlanOperations(pp.Root, p)
		if err != nil {
			return err
		}
		for _, op := range ops {
			printPreviewOp(op)
		}
		return nil
	},
}

func init() {
	previewCmd.Flags().StringVar(&previewTools, "tools", "", "comma-separated tool id override (replaces tools.enabled)")
	rootCmd.AddCommand(previewCmd)
}

func printPreviewOp(op plan.PlannedOp) {
	outf("--- %s (%s)", op.Path, op.Kind)
	switch {
	case op.Kind == plan.OpMkdir:
		outf("  (directory)")
	case !op.BeforeExists:
		outf("  + %d bytes (new)", len(op.After))
	case bytes.Equal(op.Before, op.After):
		outf("  (unchanged)")
	default:
		outf("  - %d bytes", len(op.Before))
		outf("  + %d bytes", len(op.After))
	}
	if op.Metadata.SetExecutable {
		outf("  chmod +x")
	}
}
