package ledger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRecordAndLoad(t *testing.T) {
	root := t.TempDir()
	ledgerFile := filepath.Join(root, ".macc", "state", "managed_paths.json")

	if err := Record(ledgerFile, root, "OUTPUT.txt"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := Record(ledgerFile, root, "OUTPUT.txt"); err != nil {
		t.Fatalf("Record (dup): %v", err)
	}

	s, err := Load(ledgerFile)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Paths) != 1 || s.Paths[0] != "OUTPUT.txt" {
		t.Fatalf("Paths = %v, want [OUTPUT.txt]", s.Paths)
	}
}

func TestNormalizeRelativePathRejectsEscape(t *testing.T) {
	root := t.TempDir()
	if _, err := NormalizeRelativePath(root, "../evil"); err != ErrPathEscapesRoot {
		t.Fatalf("err = %v, want ErrPathEscapesRoot", err)
	}
}

func TestClearRemovesOnlyManagedPaths(t *testing.T) {
	root := t.TempDir()
	ledgerFile := filepath.Join(root, ".macc", "state", "managed_paths.json")

	preexisting := filepath.Join(root, "KEEP.txt")
	if err := os.WriteFile(preexisting, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	managed := filepath.Join(root, "a", "b", "OUTPUT.txt")
	if err := os.MkdirAll(filepath.Dir(managed), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(managed, []byte("managed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Record(ledgerFile, root, "a/b/OUTPUT.txt"); err != nil {
		t.Fatal(err)
	}
	if err := Record(ledgerFile, root, "a/b"); err != nil {
		t.Fatal(err)
	}
	if err := Record(ledgerFile, root, "a"); err != nil {
		t.Fatal(err)
	}

	report, err := Clear(ledgerFile, root)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if report.Removed == 0 {
		t.Fatalf("expected removals, got report %+v", report)
	}

	if _, err := os.Stat(preexisting); err != nil {
		t.Fatalf("pre-existing file was removed: %v", err)
	}
	if _, err := os.Stat(managed); !os.IsNotExist(err) {
		t.Fatalf("managed file still exists: err=%v", err)
	}
	if _, err := os.Stat(filepath.Dir(managed)); !os.IsNotExist(err) {
		t.Fatalf("managed dir still exists: err=%v", err)
	}
}

func TestClearSkipsNonEmptyUnmanagedDir(t *testing.T) {
	root := t.TempDir()
	ledgerFile := filepath.Join(root, ".macc", "state", "managed_paths.json")

	dir := filepath.Join(root, "a")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	// An unmanaged file lives alongside a managed one in the same dir.
	if err := os.WriteFile(filepath.Join(dir, "unmanaged.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "managed.txt"), []byte("y"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Record(ledgerFile, root, "a/managed.txt"); err != nil {
		t.Fatal(err)
	}
	if err := Record(ledgerFile, root, "a"); err != nil {
		t.Fatal(err)
	}

	report, err := Clear(ledgerFile, root)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if report.Skipped == 0 {
		t.Fatalf("expected at least one skip (non-empty dir), got %+v", report)
	}
	if _, err := os.Stat(filepath.Join(dir, "unmanaged.txt")); err != nil {
		t.Fatalf("unmanaged file removed: %v", err)
	}
}
