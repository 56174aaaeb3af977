package worktree

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func initRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = root
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v (%s)", args, err, out)
		}
	}
	run("init", "-b", "main")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	if err := os.WriteFile(filepath.Join(root, "README.md"), []byte("hi\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	run("add", ".")
	run("commit", "-m", "initial")
	return root
}

func TestCreateWorktreesWritesMetadataAndBranch(t *testing.T) {
	root := initRepo(t)

	created, err := CreateWorktrees(root, CreateSpec{Slug: "feature", Base: "main", Tool: "claude", Count: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 worktrees, got %d", len(created))
	}
	if created[0].ID != "feature-1" || created[0].Branch != "ai/feature-1" {
		t.Fatalf("unexpected metadata: %+v", created[0])
	}

	dir := filepath.Join(root, ".macc", "worktree", "feature-1")
	meta, ok, err := ReadMetadata(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || meta.Tool != "claude" || meta.Base != "main" {
		t.Fatalf("unexpected stored metadata: %+v", meta)
	}
}

func TestListAndCurrentWorktree(t *testing.T) {
	root := initRepo(t)
	if _, err := CreateWorktrees(root, CreateSpec{Slug: "w", Base: "main", Count: 1}); err != nil {
		t.Fatal(err)
	}

	entries, err := ListWorktrees(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 { // root + the one created
		t.Fatalf("expected 2 entries, got %d: %+v", len(entries), entries)
	}

	wtDir := filepath.Join(root, ".macc", "worktree", "w-1")
	entry, found, err := CurrentWorktree(root, wtDir)
	if err != nil {
		t.Fatal(err)
	}
	if !found || entry.Branch != "ai/w-1" {
		t.Fatalf("expected to resolve current worktree, got %+v found=%v", entry, found)
	}
}

func TestRemoveAllWorktreesSkipsRoot(t *testing.T) {
	root := initRepo(t)
	if _, err := CreateWorktrees(root, CreateSpec{Slug: "tmp", Base: "main", Count: 1}); err != nil {
		t.Fatal(err)
	}

	removed, err := RemoveAllWorktrees(root, true)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}

	entries, err := ListWorktrees(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only root worktree to remain, got %+v", entries)
	}
}

func TestPruneWorktreesNoop(t *testing.T) {
	root := initRepo(t)
	if err := PruneWorktrees(root); err != nil {
		t.Fatal(err)
	}
}
