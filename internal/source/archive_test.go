package source

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func buildZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "archive.zip")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUnpackArchiveExtractsFiles(t *testing.T) {
	archivePath := buildZip(t, map[string]string{
		"a.txt":     "hello",
		"sub/b.txt": "world",
	})
	target := filepath.Join(t.TempDir(), "out")

	if err := unpackArchive(archivePath, target); err != nil {
		t.Fatalf("unpackArchive: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(target, "a.txt"))
	if err != nil || string(got) != "hello" {
		t.Fatalf("a.txt = %q, %v", got, err)
	}
	got, err = os.ReadFile(filepath.Join(target, "sub", "b.txt"))
	if err != nil || string(got) != "world" {
		t.Fatalf("sub/b.txt = %q, %v", got, err)
	}
}

func TestUnpackArchiveRejectsPathTraversal(t *testing.T) {
	archivePath := buildZip(t, map[string]string{
		"../../evil.txt": "pwned",
	})
	target := filepath.Join(t.TempDir(), "out")

	err := unpackArchive(archivePath, target)
	if err == nil {
		t.Fatal("expected error for path-traversal entry")
	}
}

func TestEnclosedNameRejectsAbsoluteAndTraversal(t *testing.T) {
	if _, err := enclosedName("/etc/passwd"); err == nil {
		t.Fatal("expected error for absolute path")
	}
	if _, err := enclosedName("../escape.txt"); err == nil {
		t.Fatal("expected error for traversal path")
	}
	clean, err := enclosedName("a/./b.txt")
	if err != nil || clean != filepath.Join("a", "b.txt") {
		t.Fatalf("enclosedName = %q, %v", clean, err)
	}
}
