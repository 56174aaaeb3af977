package main

import (
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/boshu2/macc/internal/config"
	"github.com/boshu2/macc/internal/doctor"
	"github.com/boshu2/macc/internal/macc"
	"github.com/boshu2/macc/internal/paths"
	"github.com/boshu2/macc/internal/worktree"
)

var worktreeCmd = &cobra.Command{Use: "worktree", Short: "Manage git worktrees for parallel AI-assistant sessions"}

var (
	wtBase  string
	wtTool  string
	wtScope string
	wtCount int
)

var worktreeCreateCmd = &cobra.Command{
	Use:   "create <slug>",
	Short: "Create one or more worktrees off a base ref",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pp, err := resolveProjectPaths()
		if err != nil {
			return err
		}
		created, err := worktree.CreateWorktrees(pp.Root, worktree.CreateSpec{
			Slug: args[0], Base: wtBase, Tool: wtTool, Scope: wtScope, Count: wtCount,
		})
		if err != nil {
			return err
		}
		for _, m := range created {
			outf("created worktree %s (branch %s, base %s)", m.ID, m.Branch, m.Base)
		}
		return nil
	},
}

var worktreeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every git worktree under the project",
	RunE: func(cmd *cobra.Command, args []string) error {
		pp, err := resolveProjectPaths()
		if err != nil {
			return err
		}
		entries, err := worktree.ListWorktrees(pp.Root)
		if err != nil {
			return err
		}
		for _, e := range entries {
			branch := e.Branch
			if e.Detached {
				branch = "(detached)"
			}
			outf("%s  %s  %s", e.Path, branch, e.HEAD)
		}
		return nil
	},
}

var worktreeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the worktree the working directory is currently inside, if any",
	RunE: func(cmd *cobra.Command, args []string) error {
		pp, err := resolveProjectPaths()
		if err != nil {
			return err
		}
		wd, err := os.Getwd()
		if err != nil {
			return macc.IO("getwd", ".", err)
		}
		entry, ok, err := worktree.CurrentWorktree(pp.Root, wd)
		if err != nil {
			return err
		}
		if !ok {
			outf("not inside a managed worktree")
			return nil
		}
		outf("%s  %s  %s", entry.Path, entry.Branch, entry.HEAD)
		if meta, ok, err := worktree.ReadMetadata(entry.Path); err == nil && ok {
			outf("tool=%s base=%s scope=%s", meta.Tool, meta.Base, meta.Scope)
		}
		return nil
	},
}

var worktreeOpenCmd = &cobra.Command{
	Use:   "open <path>",
	Short: "Print a worktree's absolute path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err != nil {
			return macc.IO("open worktree", args[0], err)
		}
		outf("%s", args[0])
		return nil
	},
}

var worktreeApplyTools string

var worktreeApplyCmd = &cobra.Command{
	Use:   "apply <path>",
	Short: "Run plan+apply inside one worktree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wtPaths := paths.FromRoot(args[0])
		cfg, err := config.Load(wtPaths.ConfigFile())
		if err != nil {
			return err
		}
		specs, err := loadToolSpecs(wtPaths)
		if err != nil {
			return err
		}
		return runApply(wtPaths, cfg, specs, worktreeApplyTools)
	},
}

var worktreeDoctorFix bool

var worktreeDoctorCmd = &cobra.Command{
	Use:   "doctor <path>",
	Short: "Run the doctor probe suite inside one worktree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wtPaths := paths.FromRoot(args[0])
		specs, err := loadToolSpecs(wtPaths)
		if err != nil {
			return err
		}
		report, err := doctor.Run(wtPaths, specs, doctor.Options{Fix: worktreeDoctorFix})
		for _, issue := range report.Issues {
			printDoctorIssue(issue)
		}
		outf("%d error(s), %d warning(s), %d fixed", report.Errors, report.Warnings, report.Fixed)
		return err
	},
}

var worktreeRunCmd = &cobra.Command{
	Use:   "run <path> -- <command> [args...]",
	Short: "Run a command with its working directory set to one worktree, capturing output",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := exec.Command(args[1], args[2:]...)
		c.Dir = args[0]
		out, err := c.CombinedOutput()
		outf("%s", out)
		if err != nil {
			return macc.Validationf("worktree run failed in %s: %v", args[0], err)
		}
		return nil
	},
}

var worktreeExecCmd = &cobra.Command{
	Use:   "exec <path> -- <command> [args...]",
	Short: "Exec a command interactively with its working directory set to one worktree",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := exec.Command(args[1], args[2:]...)
		c.Dir = args[0]
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return macc.Validationf("worktree exec failed in %s: %v", args[0], err)
		}
		return nil
	},
}

var (
	worktreeRemoveForce bool
)

var worktreeRemoveCmd = &cobra.Command{
	Use:   "remove <path>",
	Short: "Remove one worktree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pp, err := resolveProjectPaths()
		if err != nil {
			return err
		}
		if err := worktree.RemoveWorktree(pp.Root, args[0], worktreeRemoveForce); err != nil {
			return err
		}
		outf("removed %s", args[0])
		return nil
	},
}

var worktreePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Prune stale worktree administrative files",
	RunE: func(cmd *cobra.Command, args []string) error {
		pp, err := resolveProjectPaths()
		if err != nil {
			return err
		}
		if err := worktree.PruneWorktrees(pp.Root); err != nil {
			return err
		}
		outf("pruned")
		return nil
	},
}

func init() {
	worktreeCreateCmd.Flags().StringVar(&wtBase, "base", "main", "base ref to branch from")
	worktreeCreateCmd.Flags().StringVar(&wtTool, "tool", "", "tool id this worktree batch is dedicated to")
	worktreeCreateCmd.Flags().StringVar(&wtScope, "scope", "", "free-form scope label recorded in worktree.json")
	worktreeCreateCmd.Flags().IntVar(&wtCount, "count", 1, "number of worktrees to create")

	worktreeApplyCmd.Flags().StringVar(&worktreeApplyTools, "tools", "", "comma-separated tool id override")
	worktreeDoctorCmd.Flags().BoolVar(&worktreeDoctorFix, "fix", false, "apply the whitelisted automatic fixes")
	worktreeRemoveCmd.Flags().BoolVar(&worktreeRemoveForce, "force", false, "force removal even with uncommitted changes")

	worktreeCmd.AddCommand(
		worktreeCreateCmd, worktreeListCmd, worktreeStatusCmd, worktreeOpenCmd,
		worktreeApplyCmd, worktreeDoctorCmd, worktreeRunCmd, worktreeExecCmd,
		worktreeRemoveCmd, worktreePruneCmd,
	)
	rootCmd.AddCommand(worktreeCmd)
}
