package atomicfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteCreatesParentAndTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a", "b", "out.txt")

	if err := Write(target, []byte("hello"), 0o644); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Fatalf("content = %q", got)
	}

	entries, err := os.ReadDir(filepath.Dir(target))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Fatalf("staging file left behind: %s", e.Name())
		}
	}
}

func TestWriteIfChangedCreatedThenUnchanged(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.txt")

	status, err := WriteIfChanged(target, []byte("hello"), 0o644, nil)
	if err != nil || status != Created {
		t.Fatalf("status=%v err=%v, want Created", status, err)
	}

	info1, _ := os.Stat(target)
	time.Sleep(10 * time.Millisecond)

	status, err = WriteIfChanged(target, []byte("hello"), 0o644, nil)
	if err != nil || status != Unchanged {
		t.Fatalf("status=%v err=%v, want Unchanged", status, err)
	}
	info2, _ := os.Stat(target)
	if !info1.ModTime().Equal(info2.ModTime()) {
		t.Fatal("mtime changed on Unchanged write")
	}
}

func TestWriteIfChangedUpdatedInvokesHook(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.txt")
	if err := os.WriteFile(target, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	var hookCalled bool
	var hookSaw string
	hook := func(existing []byte) error {
		hookCalled = true
		hookSaw = string(existing)
		return nil
	}

	status, err := WriteIfChanged(target, []byte("new"), 0o644, hook)
	if err != nil || status != Updated {
		t.Fatalf("status=%v err=%v, want Updated", status, err)
	}
	if !hookCalled || hookSaw != "old" {
		t.Fatalf("hook called=%v saw=%q", hookCalled, hookSaw)
	}
	got, _ := os.ReadFile(target)
	if string(got) != "new" {
		t.Fatalf("content = %q", got)
	}
}

func TestWriteIfChangedJSONKeyReorderingIsUnchanged(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.json")
	if err := os.WriteFile(target, []byte(`{"a":1,"b":2}`), 0o644); err != nil {
		t.Fatal(err)
	}

	status, err := WriteIfChanged(target, []byte(`{"b":2,"a":1}`), 0o644, nil)
	if err != nil || status != Unchanged {
		t.Fatalf("status=%v err=%v, want Unchanged", status, err)
	}
}
