package main

import (
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/boshu2/macc/internal/macc"
)

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "Inspect apply-run backup sets under .macc/backups",
}

var backupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every backup set's timestamp directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		pp, err := resolveProjectPaths()
		if err != nil {
			return err
		}
		sets, err := backupSets(pp.BackupsDir())
		if err != nil {
			return err
		}
		if len(sets) == 0 {
			outf("no backup sets")
			return nil
		}
		for _, s := range sets {
			outf("%s", s)
		}
		return nil
	},
}

var backupsOpenCmd = &cobra.Command{
	Use:   "open <timestamp>",
	Short: "Print the absolute path of one backup set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pp, err := resolveProjectPaths()
		if err != nil {
			return err
		}
		dir := pp.BackupRunDir(args[0])
		if _, err := os.Stat(dir); err != nil {
			return macc.IO("open backup set", dir, err)
		}
		outf("%s", dir)
		return nil
	},
}

func init() {
	backupsCmd.AddCommand(backupsListCmd, backupsOpenCmd)
	rootCmd.AddCommand(backupsCmd)
}

// backupSets lists the immediate subdirectories of dir, sorted ascending
// (the timestamp naming convention sorts chronologically).
func backupSets(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, macc.IO("read backups directory", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
