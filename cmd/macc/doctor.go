package main

import (
	"github.com/spf13/cobra"

	"github.com/boshu2/macc/internal/doctor"
)

var doctorFix bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Probe the environment and repair what it safely can",
	RunE: func(cmd *cobra.Command, args []string) error {
		pp, err := resolveProjectPaths()
		if err != nil {
			return err
		}
		specs, err := loadToolSpecs(pp)
		if err != nil {
			return err
		}

		report, err := doctor.Run(pp, specs, doctor.Options{Fix: doctorFix})
		for _, issue := range report.Issues {
			printDoctorIssue(issue)
		}
		outf("%d error(s), %d warning(s), %d fixed", report.Errors, report.Warnings, report.Fixed)
		return err
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "apply the whitelisted automatic fixes")
	rootCmd.AddCommand(doctorCmd)
}

func printDoctorIssue(issue doctor.Issue) {
	fixed := ""
	if issue.Fixed {
		fixed = " (fixed)"
	}
	outf("[%s] %s: %s%s", issue.Level, issue.Check, issue.Status, fixed)
	if issue.Detail != "" {
		outf("    %s", issue.Detail)
	}
	if issue.Suggestion != "" && !issue.Fixed {
		outf("    suggestion: %s", issue.Suggestion)
	}
}
