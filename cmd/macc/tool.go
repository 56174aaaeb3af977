package main

import (
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/boshu2/macc/internal/macc"
)

var toolCmd = &cobra.Command{Use: "tool", Short: "Manage the underlying AI-assistant tool binaries"}

var toolInstallCmd = &cobra.Command{
	Use:   "install <tool-id>",
	Short: "Run a tool spec's install command sequence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pp, err := resolveProjectPaths()
		if err != nil {
			return err
		}
		specs, err := loadToolSpecs(pp)
		if err != nil {
			return err
		}
		spec, ok := specs.Get(args[0])
		if !ok {
			return macc.Validationf("unknown tool id %q", args[0])
		}
		if spec.Install == nil {
			return macc.Validationf("tool %q declares no install spec", args[0])
		}
		if spec.Install.ConfirmMessage != "" {
			outf("%s", spec.Install.ConfirmMessage)
		}
		for _, step := range spec.Install.Commands {
			outf("running: %s %v", step.Command, step.Args)
			if err := runInherited(step.Command, step.Args); err != nil {
				return macc.ToolSpec(args[0], err)
			}
		}
		if post := spec.Install.PostInstall; post != nil {
			outf("running: %s %v", post.Command, post.Args)
			if err := runInherited(post.Command, post.Args); err != nil {
				return macc.ToolSpec(args[0], err)
			}
		}
		outf("installed %q", args[0])
		return nil
	},
}

func init() {
	toolCmd.AddCommand(toolInstallCmd)
	rootCmd.AddCommand(toolCmd)
}

func runInherited(command string, args []string) error {
	cmd := exec.Command(command, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	return cmd.Run()
}
