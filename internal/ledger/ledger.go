// Package ledger tracks the set of repo-relative paths the system has
// created, so that `clear` touches nothing the system did not itself
// manage. Grounded on core/src/lib.rs's normalize_relative_path/
// load_managed_paths/save_managed_paths/record_managed_path/clear in the
// original source this spec was distilled from.
package ledger

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/boshu2/macc/internal/atomicfile"
	"github.com/boshu2/macc/internal/macc"
)

// Version is the schema_version written to managed_paths.json.
const Version = 1

// ErrPathEscapesRoot is returned when a path normalizes outside the repo
// root (absolute, or containing a ".." component).
var ErrPathEscapesRoot = errors.New("path escapes project root")

// State is the persisted shape of .macc/state/managed_paths.json.
type State struct {
	Version int      `json:"version"`
	Paths   []string `json:"paths"`
}

// NormalizeRelativePath converts p (which may be absolute or already
// relative) into a repo-relative POSIX path, rejecting anything that would
// escape root.
func NormalizeRelativePath(root, p string) (string, error) {
	abs := p
	if !filepath.IsAbs(p) {
		abs = filepath.Join(root, p)
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", ErrPathEscapesRoot
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") || rel == "." {
		return "", ErrPathEscapesRoot
	}
	return rel, nil
}

// Load reads the managed-path ledger, returning an empty State if the file
// does not yet exist.
func Load(ledgerFile string) (*State, error) {
	data, err := os.ReadFile(ledgerFile)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{Version: Version}, nil
		}
		return nil, macc.IO("read", ledgerFile, err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, macc.IO("parse", ledgerFile, err)
	}
	if s.Version == 0 {
		s.Version = Version
	}
	return &s, nil
}

// Save atomically persists the ledger.
func Save(ledgerFile string, s *State) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return macc.IO("marshal", ledgerFile, err)
	}
	return atomicfile.Write(ledgerFile, append(data, '\n'), 0o644)
}

// Record adds path (already normalized repo-relative POSIX) to the ledger if
// not already present, and persists the result.
func Record(ledgerFile, root, path string) error {
	rel, err := NormalizeRelativePath(root, path)
	if err != nil {
		return err
	}
	s, err := Load(ledgerFile)
	if err != nil {
		return err
	}
	for _, existing := range s.Paths {
		if existing == rel {
			return nil
		}
	}
	s.Paths = append(s.Paths, rel)
	return Save(ledgerFile, s)
}

// ClearReport summarizes the outcome of Clear.
type ClearReport struct {
	Removed int
	Skipped int
}

// Clear removes every path the ledger names, deepest-first (by path-segment
// count descending, then lexicographic descending as a tiebreak), attempting
// a single plain (non-recursive) removal per entry so a non-empty unmanaged
// directory just fails and is skipped rather than being force-deleted. The
// ledger file itself (and its parent, .macc/state) are added to the removal
// set explicitly so they are removed last by the same ordering. Errors are
// swallowed into the Skipped counter, never propagated: clear is best-effort
// by design, since pre-existing files are sacrosanct and any removal this
// function is unsure about should simply be left alone.
func Clear(ledgerFile, root string) (ClearReport, error) {
	s, err := Load(ledgerFile)
	if err != nil {
		return ClearReport{}, err
	}

	ledgerRel, _ := NormalizeRelativePath(root, ledgerFile)
	stateDirRel := filepath.ToSlash(filepath.Dir(ledgerRel))

	all := make([]string, 0, len(s.Paths)+2)
	all = append(all, s.Paths...)
	all = append(all, ledgerRel, stateDirRel)

	sort.Slice(all, func(i, j int) bool {
		ci, cj := strings.Count(all[i], "/"), strings.Count(all[j], "/")
		if ci != cj {
			return ci > cj
		}
		return all[i] > all[j]
	})

	var report ClearReport
	seen := make(map[string]bool, len(all))
	for _, rel := range all {
		if seen[rel] {
			continue
		}
		seen[rel] = true

		abs := filepath.Join(root, filepath.FromSlash(rel))
		if _, err := os.Lstat(abs); err != nil {
			report.Skipped++
			continue
		}
		if err := os.Remove(abs); err != nil {
			report.Skipped++
			continue
		}
		report.Removed++
	}
	return report, nil
}
