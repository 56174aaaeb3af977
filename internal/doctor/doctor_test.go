package doctor

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/boshu2/macc/internal/paths"
	"github.com/boshu2/macc/internal/toolspec"
)

func newProjectPaths(t *testing.T) paths.ProjectPaths {
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
	if err := os.MkdirAll(filepath.Join(root, ".macc", "state"), 0o755); err != nil {
		t.Fatal(err)
	}
	return paths.FromRoot(root)
}

func TestRunReportsMissingDirsAsWarningsNotFixed(t *testing.T) {
	pp := newProjectPaths(t)

	report, err := Run(pp, toolspec.NewRegistry(), Options{Fix: false})
	if err != nil {
		t.Fatal(err)
	}
	if report.Fixed != 0 {
		t.Fatalf("expected nothing fixed without --fix, got %d", report.Fixed)
	}
	if report.Warnings == 0 {
		t.Fatalf("expected at least one warning for missing cache/log dirs, got report=%+v", report)
	}
}

func TestRunWithFixCreatesMissingDirsAndGitignoreEntry(t *testing.T) {
	pp := newProjectPaths(t)

	report, err := Run(pp, toolspec.NewRegistry(), Options{Fix: true})
	if err != nil {
		t.Fatal(err)
	}
	if report.Errors != 0 {
		t.Fatalf("expected no remaining errors after fix, got %+v", report)
	}
	if report.Fixed == 0 {
		t.Fatal("expected at least one issue to be fixed")
	}

	if _, err := os.Stat(pp.CacheDir()); err != nil {
		t.Fatalf("expected cache dir to be created: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(pp.Root, ".gitignore"))
	if err != nil {
		t.Fatal(err)
	}
	if !containsLine(string(data), ".macc/cache/") {
		t.Fatalf("expected .gitignore to contain .macc/cache/, got %q", data)
	}

	if _, err := os.Stat(pp.ToolSessionsFile()); err != nil {
		t.Fatalf("expected tool-sessions.json to be created: %v", err)
	}
}

func TestRunSecondPassIsClean(t *testing.T) {
	pp := newProjectPaths(t)

	if _, err := Run(pp, toolspec.NewRegistry(), Options{Fix: true}); err != nil {
		t.Fatal(err)
	}

	report, err := Run(pp, toolspec.NewRegistry(), Options{Fix: false})
	if err != nil {
		t.Fatal(err)
	}
	if report.Errors != 0 || report.Warnings != 0 {
		t.Fatalf("expected a clean second pass, got %+v", report)
	}
}

func containsLine(content, want string) bool {
	for _, line := range splitLines(content) {
		if line == want {
			return true
		}
	}
	return false
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
