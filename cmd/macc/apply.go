package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/boshu2/macc/internal/apply"
	"github.com/boshu2/macc/internal/config"
	"github.com/boshu2/macc/internal/paths"
	"github.com/boshu2/macc/internal/plan"
	"github.com/boshu2/macc/internal/toolspec"
)

var applyTools string

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply the normalized action plan to disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		pp, cfg, err := loadConfig()
		if err != nil {
			return err
		}
		specs, err := loadToolSpecs(pp)
		if err != nil {
			return err
		}
		return runApply(pp, cfg, specs, applyTools)
	},
}

func init() {
	applyCmd.Flags().StringVar(&applyTools, "tools", "", "comma-separated tool id override (replaces tools.enabled)")
	rootCmd.AddCommand(applyCmd)
}

// runApply resolves and applies the plan for pp, printing progress and a
// final summary. Shared by `apply` and `worktree apply`.
func runApply(pp paths.ProjectPaths, cfg config.CanonicalConfig, specs *toolspec.Registry, toolsCSV string) error {
	p, warnings, err := buildPlan(context.Background(), pp, cfg, specs, toolsCSV)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		outf("warning: %s", w)
	}

	report, err := apply.ApplyPlan(context.Background(), pp, cfg, specs, p, GetAllowUserScope(), func(op plan.PlannedOp, index, total int) {
		outf("[%d/%d] %s %s", index, total, op.Kind, op.Path)
	})
	if err != nil {
		return err
	}

	created, updated, unchanged := 0, 0, 0
	for _, outcome := range report.Outcomes {
		switch outcome {
		case apply.OutcomeCreated:
			created++
		case apply.OutcomeUpdated:
			updated++
		case apply.OutcomeUnchanged:
			unchanged++
		}
	}
	outf("applied: %d created, %d updated, %d unchanged", created, updated, unchanged)
	for _, finding := range report.Warnings {
		outf("secret scan: %s: %s", finding.PatternName, finding.RedactedMatch)
	}
	if report.BackupDir != "" {
		outf("backups: %s", report.BackupDir)
	}
	return nil
}
