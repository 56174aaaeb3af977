package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/boshu2/macc/internal/config"
	"github.com/boshu2/macc/internal/macc"
	"github.com/boshu2/macc/internal/paths"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter .macc/macc.yaml at the project root",
	RunE: func(cmd *cobra.Command, args []string) error {
		root := GetRoot()
		if root == "" {
			wd, err := os.Getwd()
			if err != nil {
				return macc.IO("getwd", ".", err)
			}
			root = wd
		}
		pp := paths.FromRoot(root)

		if _, err := os.Stat(pp.ConfigFile()); err == nil && !initForce {
			return macc.Validationf("%s already exists; pass --force to overwrite", pp.ConfigFile())
		}

		if err := os.MkdirAll(pp.MaccDir(), 0o755); err != nil {
			return macc.IO("mkdir", pp.MaccDir(), err)
		}

		cfg := config.Default()
		if err := cfg.Save(pp.ConfigFile()); err != nil {
			return err
		}
		outf("wrote %s", pp.ConfigFile())
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing macc.yaml")
	rootCmd.AddCommand(initCmd)
}
