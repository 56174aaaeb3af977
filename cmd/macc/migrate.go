package main

import (
	"github.com/spf13/cobra"

	"github.com/boshu2/macc/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Rewrite .macc/macc.yaml in the current canonical schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		pp, cfg, err := loadConfig()
		if err != nil {
			return err
		}
		current := config.Default().Version
		if cfg.Version == current {
			outf("macc.yaml is already at schema version %d", current)
			return nil
		}
		previous := cfg.Version
		cfg.Version = current
		if err := cfg.Save(pp.ConfigFile()); err != nil {
			return err
		}
		outf("migrated %s from schema version %d to %d", pp.ConfigFile(), previous, current)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
