package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/boshu2/macc/internal/macc"
)

var (
	// Global flags
	rootFlag    string
	verbose     bool
	allowUserOp bool
	output      string
)

// rootCmd is the base command when macc is invoked without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "macc",
	Short: "Deterministic configuration manager for multi-tool AI-assistant repos",
	Long: `macc plans and applies a repo's .macc/macc.yaml into every enabled
AI-assistant tool's own config files, tracks what it manages so clear only
touches its own writes, and drives the coordinator control loop across
worktrees.

Core commands:
  init         Write a starter .macc/macc.yaml
  plan/preview Compute and inspect the normalized action plan
  apply        Apply the plan to disk
  clear        Remove everything macc has written, and nothing else
  doctor       Probe the environment and repair what it safely can
  worktree     Create/list/remove git worktrees for parallel AI sessions
  coordinator  Drive or stop the coordinator control loop
  catalog      Inspect and edit the skills/mcp catalogs`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configureLogging()
		return nil
	},
}

// Execute runs the root command and exits the process with the exit code
// carried by any returned *macc.Error, or 1 for anything else.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "project root (default: discovered by ascending from the working directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")
	rootCmd.PersistentFlags().BoolVar(&allowUserOp, "allow-user-scope", false, "permit plans/applies touching user-home paths")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "text", "output format (text, json)")
}

// GetRoot returns the --root override, empty if unset.
func GetRoot() string { return rootFlag }

// GetVerbose returns the verbose flag value.
func GetVerbose() bool { return verbose }

// GetAllowUserScope returns the allow-user-scope flag value.
func GetAllowUserScope() bool { return allowUserOp }

// GetOutput returns the requested output format.
func GetOutput() string { return output }

// quiet is true when MACC_QUIET=1, suppressing everything but errors.
func quiet() bool {
	return strings.TrimSpace(os.Getenv("MACC_QUIET")) == "1"
}

// configureLogging sets the global zerolog logger's level and writer from
// the verbose flag and MACC_QUIET, once per invocation.
func configureLogging() {
	level := zerolog.InfoLevel
	switch {
	case quiet():
		level = zerolog.ErrorLevel
	case verbose:
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
}

// exitCodeFor maps a *macc.Error to its stable exit code, falling back to 1
// for any other error kind so the CLI never panics on an unrecognized
// error value.
func exitCodeFor(err error) int {
	if merr, ok := err.(*macc.Error); ok {
		return merr.ExitCode()
	}
	return 1
}

// outf writes a user-facing result line to stdout, suppressed by
// MACC_QUIET. Distinct from the structured zerolog diagnostics emitted via
// the global logger: this is command output, not a log line.
func outf(format string, args ...any) {
	if quiet() {
		return
	}
	fmt.Printf(format+"\n", args...)
}
