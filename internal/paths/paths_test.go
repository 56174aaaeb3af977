package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindProjectRootAtStart(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, StateDirName), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, StateDirName, ConfigFileName), []byte("version: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := FindProjectRoot(root)
	if err != nil {
		t.Fatalf("FindProjectRoot: %v", err)
	}
	resolvedRoot, _ := filepath.EvalSymlinks(root)
	if got.Root != resolvedRoot {
		t.Fatalf("Root = %q, want %q", got.Root, resolvedRoot)
	}
}

func TestFindProjectRootFromNestedDir(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, StateDirName), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, StateDirName, ConfigFileName), []byte("version: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot: %v", err)
	}
	resolvedRoot, _ := filepath.EvalSymlinks(root)
	if got.Root != resolvedRoot {
		t.Fatalf("Root = %q, want %q", got.Root, resolvedRoot)
	}
}

func TestFindProjectRootNotFound(t *testing.T) {
	dir := t.TempDir()
	if _, err := FindProjectRoot(dir); err == nil {
		t.Fatal("expected error when no .macc/macc.yaml exists above dir")
	}
}

func TestProjectPathsDerivedPaths(t *testing.T) {
	p := FromRoot("/repo")
	cases := map[string]string{
		p.MaccDir():           "/repo/.macc",
		p.ConfigFile():        "/repo/.macc/macc.yaml",
		p.ManagedPathsFile():  "/repo/.macc/state/managed_paths.json",
		p.CatalogDir():        "/repo/.macc/catalog",
		p.CacheEntryDir("k"):  "/repo/.macc/cache/k",
		p.WorktreePath("w-1"): "/repo/.macc/worktree/w-1",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}
