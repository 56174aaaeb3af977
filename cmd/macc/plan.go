package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/boshu2/macc/internal/plan"
)

var planTools string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compute the normalized action plan and print its operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		pp, cfg, err := loadConfig()
		if err != nil {
			return err
		}
		specs, err := loadToolSpecs(pp)
		if err != nil {
			return err
		}
		p, warnings, err := buildPlan(context.Background(), pp, cfg, specs, planTools)
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
		printPlannedOps(ops)
		return nil
	},
}

func init() {
	planCmd.Flags().StringVar(&planTools, "tools", "", "comma-separated tool id override (replaces tools.enabled)")
	rootCmd.AddCommand(planCmd)
}

func printPlannedOps(ops []plan.PlannedOp) {
	if len(ops) == 0 {
		outf("no changes")
		return
	}
	for _, op := range ops {
		suffix := ""
		if op.Metadata.SetExecutable {
			suffix = " (+x)"
		}
		status := "create"
		if op.BeforeExists {
			status = "modify"
		}
		outf("%-7s %-7s %s%s", op.Kind, status, op.Path, suffix)
	}
}
