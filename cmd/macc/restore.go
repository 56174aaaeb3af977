package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/boshu2/macc/internal/macc"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <timestamp>",
	Short: "Copy one backup set's files back over the current project tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pp, err := resolveProjectPaths()
		if err != nil {
			return err
		}
		backupDir := pp.BackupRunDir(args[0])
		info, err := os.Stat(backupDir)
		if err != nil || !info.IsDir() {
			return macc.Validationf("no backup set %q under %s", args[0], pp.BackupsDir())
		}

		restored := 0
		walkErr := filepath.Walk(backupDir, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if fi.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(backupDir, path)
			if err != nil {
				return err
			}
			dest := filepath.Join(pp.Root, rel)
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return err
			}
			if err := copyFileMode(path, dest, fi.Mode()); err != nil {
				return err
			}
			restored++
			return nil
		})
		if walkErr != nil {
			return macc.IO("restore backup set", backupDir, walkErr)
		}
		outf("restored %d file(s) from %s", restored, backupDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}

func copyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
