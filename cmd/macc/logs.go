package main

import (
	"bufio"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/boshu2/macc/internal/macc"
)

var (
	logsComponent string
	logsLines     int
)

var logsCmd = &cobra.Command{Use: "logs", Short: "Inspect coordinator/performer automation logs"}

var logsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print the tail of the most recent log file for one automation component",
	RunE: func(cmd *cobra.Command, args []string) error {
		pp, err := resolveProjectPaths()
		if err != nil {
			return err
		}
		dir := pp.LogDir(logsComponent)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				outf("no logs under %s", dir)
				return nil
			}
			return macc.IO("read log directory", dir, err)
		}
		var names []string
		for _, e := range entries {
			if !e.IsDir() {
				names = append(names, e.Name())
			}
		}
		if len(names) == 0 {
			outf("no logs under %s", dir)
			return nil
		}
		sort.Strings(names)
		latest := dir + string(os.PathSeparator) + names[len(names)-1]
		return tailFile(latest, logsLines)
	},
}

func init() {
	logsTailCmd.Flags().StringVar(&logsComponent, "component", "coordinator", "log component (coordinator, performer)")
	logsTailCmd.Flags().IntVar(&logsLines, "lines", 100, "number of trailing lines to print")
	logsCmd.AddCommand(logsTailCmd)
	rootCmd.AddCommand(logsCmd)
}

// tailFile prints the last n lines of path, reading the whole file since
// automation logs are modest in size and this avoids a seek-backwards
// scanner for a CLI convenience command.
func tailFile(path string, n int) error {
	f, err := os.Open(path)
	if err != nil {
		return macc.IO("open log", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return macc.IO("read log", path, err)
	}
	for _, line := range lines {
		outf("%s", line)
	}
	return nil
}
