// Package worktree manages the git worktrees a coordinator run spreads
// performer processes across: creation with an advisory metadata file,
// listing and current-worktree lookup backed by `git worktree` itself as
// ground truth, and removal/pruning.
//
// Grounded on spec.md §4.L (create_worktrees/list_worktrees/
// current_worktree/remove_worktree/prune_worktrees) and on the teacher
// repo's (tim-coutinho-agentops) internal/rpi/worktree.go idiom: blocking
// exec.CommandContext calls with per-call timeouts, %w-wrapped errors, no
// background goroutines. The original Rust worktree.rs was not retained in
// the reference pack, so the exact git-plumbing sequence below is authored
// from spec.md's prose plus that teacher idiom rather than ported.
package worktree

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/boshu2/macc/internal/macc"
)

const MetadataFileName = "worktree.json"

// DefaultTimeout bounds every git subprocess invocation in this package.
const DefaultTimeout = 30 * time.Second

// Metadata is the advisory record written to each worktree's own
// .macc/worktree.json, per spec.md §4.L.
type Metadata struct {
	ID     string `json:"id"`
	Tool   string `json:"tool,omitempty"`
	Branch string `json:"branch"`
	Base   string `json:"base"`
	Scope  string `json:"scope,omitempty"`
}

// CreateSpec describes a batch of worktrees to create off one base ref.
type CreateSpec struct {
	Slug  string
	Base  string
	Tool  string
	Scope string
	Count int // number of worktrees to create; defaults to 1
}

// Entry is one listed git worktree, parsed from `git worktree list --porcelain`.
type Entry struct {
	Path     string
	Branch   string // empty when detached
	HEAD     string
	Detached bool
}

// CreateWorktrees creates spec.Count worktrees (default 1) under
// .macc/worktree/<slug>-<i>, each on a new branch "ai/<slug>-<i>" created
// off spec.Base, with an initialized .macc/worktree.json.
func CreateWorktrees(root string, spec CreateSpec) ([]Metadata, error) {
	count := spec.Count
	if count <= 0 {
		count = 1
	}
	base := spec.Base
	if base == "" {
		base = "main"
	}

	created := make([]Metadata, 0, count)
	for i := 1; i <= count; i++ {
		id := fmt.Sprintf("%s-%d", spec.Slug, i)
		branch := "ai/" + id
		dir := filepath.Join(root, ".macc", "worktree", id)

		if err := runGit(root, "worktree", "add", "-b", branch, dir, base); err != nil {
			return created, err
		}

		meta := Metadata{ID: id, Tool: spec.Tool, Branch: branch, Base: base, Scope: spec.Scope}
		if err := writeMetadata(dir, meta); err != nil {
			return created, err
		}
		created = append(created, meta)
	}
	return created, nil
}

func writeMetadata(worktreeDir string, meta Metadata) error {
	maccDir := filepath.Join(worktreeDir, ".macc")
	if err := os.MkdirAll(maccDir, 0o755); err != nil {
		return macc.IO("create worktree .macc directory", maccDir, err)
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(maccDir, MetadataFileName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return macc.IO("write worktree metadata", path, err)
	}
	return nil
}

// ReadMetadata reads and rebuilds-on-absence the .macc/worktree.json of a
// worktree at worktreeDir; returns (nil, false, nil) if missing, since
// spec.md §4.L treats this file as advisory rather than authoritative.
func ReadMetadata(worktreeDir string) (*Metadata, bool, error) {
	path := filepath.Join(worktreeDir, ".macc", MetadataFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, macc.IO("read worktree metadata", path, err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, false, macc.Validationf("corrupt worktree metadata %s: %v", path, err)
	}
	return &meta, true, nil
}

// ListWorktrees parses `git worktree list --porcelain` run from root. Git's
// own listing is ground truth; the per-worktree metadata file is never
// consulted here.
func ListWorktrees(root string) ([]Entry, error) {
	out, err := runGitOutput(root, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	return parsePorcelain(out), nil
}

func parsePorcelain(out string) []Entry {
	var entries []Entry
	var cur *Entry

	flush := func() {
		if cur != nil {
			entries = append(entries, *cur)
			cur = nil
		}
	}

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, "worktree "):
			flush()
			cur = &Entry{Path: strings.TrimPrefix(line, "worktree ")}
		case strings.HasPrefix(line, "HEAD "):
			if cur != nil {
				cur.HEAD = strings.TrimPrefix(line, "HEAD ")
			}
		case strings.HasPrefix(line, "branch "):
			if cur != nil {
				cur.Branch = strings.TrimPrefix(strings.TrimPrefix(line, "branch "), "refs/heads/")
			}
		case line == "detached":
			if cur != nil {
				cur.Detached = true
			}
		case line == "":
			flush()
		}
	}
	flush()
	return entries
}

// CurrentWorktree identifies which listed worktree (if any) contains start,
// matched by canonicalized path-prefix.
func CurrentWorktree(root, start string) (*Entry, bool, error) {
	entries, err := ListWorktrees(root)
	if err != nil {
		return nil, false, err
	}
	startAbs, err := filepath.EvalSymlinks(start)
	if err != nil {
		startAbs, err = filepath.Abs(start)
		if err != nil {
			return nil, false, macc.IO("resolve current worktree start path", start, err)
		}
	}

	var best *Entry
	for i, e := range entries {
		entryAbs, err := filepath.EvalSymlinks(e.Path)
		if err != nil {
			entryAbs = e.Path
		}
		if startAbs == entryAbs || strings.HasPrefix(startAbs, entryAbs+string(filepath.Separator)) {
			if best == nil || len(entryAbs) > len(best.Path) {
				best = &entries[i]
			}
		}
	}
	if best == nil {
		return nil, false, nil
	}
	return best, true, nil
}

// RemoveWorktree delegates to `git worktree remove`, passing --force when
// requested.
func RemoveWorktree(root, worktreePath string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, worktreePath)
	return runGit(root, args...)
}

// PruneWorktrees runs `git worktree prune`.
func PruneWorktrees(root string) error {
	return runGit(root, "worktree", "prune")
}

// RemoveAllWorktrees removes every non-root worktree listed for root,
// optionally deleting their branches too. Grounded on remove_all_worktrees
// in the original CLI source (used by `coordinator stop --remove-worktrees`).
func RemoveAllWorktrees(root string, removeBranches bool) (int, error) {
	entries, err := ListWorktrees(root)
	if err != nil {
		return 0, err
	}
	rootAbs, err := filepath.EvalSymlinks(root)
	if err != nil {
		rootAbs = root
	}

	removed := 0
	for _, e := range entries {
		entryAbs, err := filepath.EvalSymlinks(e.Path)
		if err != nil {
			entryAbs = e.Path
		}
		if entryAbs == rootAbs {
			continue
		}
		branch := e.Branch
		if err := RemoveWorktree(root, e.Path, true); err != nil {
			return removed, err
		}
		if removeBranches && branch != "" {
			_ = runGit(root, "branch", "-D", branch) // best effort; branch may already be gone
		}
		removed++
	}
	return removed, nil
}

func runGit(dir string, args ...string) error {
	_, err := runGitOutput(dir, args...)
	return err
}

func runGitOutput(dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", macc.Validationf("git %s timed out after %s", strings.Join(args, " "), DefaultTimeout)
		}
		return "", macc.Validationf("git %s failed: %v (output: %s)", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}
