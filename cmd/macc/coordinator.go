package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/boshu2/macc/internal/coordinator"
)

var coordinatorCmd = &cobra.Command{Use: "coordinator", Short: "Drive or stop the coordinator control loop"}

var (
	coordToolPriorityCSV string
	coordMaxDispatch     int
	coordMaxParallel     int
	coordTimeoutSeconds  int
	coordReferenceBranch string
	coordTool            string
)

func coordEnvFromFlags() coordinator.EnvConfig {
	env := coordinator.EnvConfig{
		CoordinatorTool: coordTool,
		MaxDispatch:     coordMaxDispatch,
		MaxParallel:     coordMaxParallel,
		TimeoutSeconds:  coordTimeoutSeconds,
		ReferenceBranch: coordReferenceBranch,
	}
	if strings.TrimSpace(coordToolPriorityCSV) != "" {
		for _, t := range strings.Split(coordToolPriorityCSV, ",") {
			if t = strings.TrimSpace(t); t != "" {
				env.ToolPriority = append(env.ToolPriority, t)
			}
		}
	}
	return env
}

func addCoordinatorEnvFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&coordToolPriorityCSV, "tool-priority", "", "comma-separated tool dispatch priority override")
	cmd.Flags().IntVar(&coordMaxDispatch, "max-dispatch", 0, "override max tasks dispatched per cycle (0: use config)")
	cmd.Flags().IntVar(&coordMaxParallel, "max-parallel", 0, "override max parallel tasks per tool (0: use config)")
	cmd.Flags().IntVar(&coordTimeoutSeconds, "timeout-seconds", 0, "override the wall-clock timeout (0: use config)")
	cmd.Flags().StringVar(&coordReferenceBranch, "base-branch", "", "override the default base branch")
	cmd.Flags().StringVar(&coordTool, "coordinator-tool", "", "override which tool id drives the coordinator role")
}

func coordinatorActionCmd(action string, extraArgs func(args []string) []string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   action,
		Short: "Run the coordinator's " + action + " phase once",
		RunE: func(cmd *cobra.Command, args []string) error {
			pp, cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var extra []string
			if extraArgs != nil {
				extra = extraArgs(args)
			}
			return coordinator.RunAction(context.Background(), pp.Root, pp.CoordinatorScript(), action, extra, cfg, coordEnvFromFlags())
		},
	}
	addCoordinatorEnvFlags(cmd)
	return cmd
}

var coordinatorRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive the coordinator through full sync/dispatch/advance/reconcile/cleanup cycles until convergence",
	RunE: func(cmd *cobra.Command, args []string) error {
		pp, cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := coordinator.RunFullCycle(context.Background(), pp.Root, pp.CoordinatorScript(), cfg, coordEnvFromFlags()); err != nil {
			return err
		}
		outf("coordinator run converged")
		return nil
	},
}

var (
	coordStopGraceful bool
	coordStopRemoveWT bool
	coordStopRemoveBr bool
)

var coordinatorStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Signal coordinator process groups, reconcile/cleanup/unlock, optionally remove worktrees",
	RunE: func(cmd *cobra.Command, args []string) error {
		pp, cfg, err := loadConfig()
		if err != nil {
			return err
		}
		opts := coordinator.StopOptions{Graceful: coordStopGraceful, RemoveWorktrees: coordStopRemoveWT, RemoveBranches: coordStopRemoveBr}
		if err := coordinator.Stop(context.Background(), pp.Root, pp.CoordinatorScript(), cfg, coordEnvFromFlags(), opts); err != nil {
			return err
		}
		outf("coordinator stopped")
		return nil
	},
}

var coordinatorUnlockAll bool

func init() {
	addCoordinatorEnvFlags(coordinatorRunCmd)

	coordinatorStopCmd.Flags().BoolVar(&coordStopGraceful, "graceful", false, "SIGTERM only, no SIGKILL escalation")
	coordinatorStopCmd.Flags().BoolVar(&coordStopRemoveWT, "remove-worktrees", false, "remove every managed worktree after stopping")
	coordinatorStopCmd.Flags().BoolVar(&coordStopRemoveBr, "remove-branches", false, "also delete each worktree's branch (requires --remove-worktrees)")
	addCoordinatorEnvFlags(coordinatorStopCmd)

	unlockCmd := coordinatorActionCmd("unlock", func(args []string) []string {
		if coordinatorUnlockAll {
			return []string{"--all"}
		}
		return nil
	})
	unlockCmd.Flags().BoolVar(&coordinatorUnlockAll, "all", false, "release every held resource lock")

	coordinatorCmd.AddCommand(
		coordinatorRunCmd,
		coordinatorActionCmd("sync", nil),
		coordinatorActionCmd("dispatch", nil),
		coordinatorActionCmd("advance", nil),
		coordinatorActionCmd("reconcile", nil),
		coordinatorActionCmd("cleanup", nil),
		unlockCmd,
		coordinatorStopCmd,
	)
	rootCmd.AddCommand(coordinatorCmd)
}
