package main

import (
	"github.com/spf13/cobra"

	"github.com/boshu2/macc/internal/macc"
)

var installCmd = &cobra.Command{Use: "install", Short: "Add a catalog entry to the project's selections"}

var installSkillCmd = &cobra.Command{
	Use:   "skill <id>",
	Short: "Select a cataloged skill for the next plan/apply",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return addSelection(args[0], "skills")
	},
}

var installMcpCmd = &cobra.Command{
	Use:   "mcp <id>",
	Short: "Select a cataloged mcp server for the next plan/apply",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return addSelection(args[0], "mcp")
	},
}

func init() {
	installCmd.AddCommand(installSkillCmd, installMcpCmd)
	rootCmd.AddCommand(installCmd)
}

// addSelection adds id to cfg.Selections.<kind> (skills, agents, or mcp) if
// not already present, then persists the config. Actually applying the
// selection to disk still requires a subsequent `macc apply`.
func addSelection(id, kind string) error {
	pp, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	switch kind {
	case "skills":
		if containsString(cfg.Selections.Skills, id) {
			outf("skill %q already selected", id)
			return nil
		}
		cfg.Selections.Skills = append(cfg.Selections.Skills, id)
	case "mcp":
		if containsString(cfg.Selections.Mcp, id) {
			outf("mcp %q already selected", id)
			return nil
		}
		cfg.Selections.Mcp = append(cfg.Selections.Mcp, id)
	default:
		return macc.Validationf("unknown selection kind %q", kind)
	}

	if err := cfg.Save(pp.ConfigFile()); err != nil {
		return err
	}
	outf("selected %s %q; run `macc plan` to preview the resulting changes", kind, id)
	return nil
}

func containsString(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
