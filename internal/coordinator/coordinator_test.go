package coordinator

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/boshu2/macc/internal/config"
)

func writeExecutableScript(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
}

func TestReadRegistryCountsTalliesKnownStates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "task_registry.json")
	doc := `{
  "schema_version": 1,
  "tasks": [
    {"id": "A", "state": "todo"},
    {"id": "B", "state": "in_progress"},
    {"id": "C", "state": "blocked"},
    {"id": "D", "state": "merged"},
    {"id": "E", "state": "something-unknown"}
  ]
}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	counts, err := ReadRegistryCounts(path)
	if err != nil {
		t.Fatal(err)
	}
	if counts != (RegistryCounts{Total: 5, Todo: 1, Active: 1, Blocked: 1, Merged: 1}) {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

func TestRunFullCycleConvergesToMerged(t *testing.T) {
	root := t.TempDir()
	registry := filepath.Join(root, "task_registry.json")
	initial := map[string]any{
		"schema_version": 1,
		"tasks": []map[string]any{
			{"id": "TASK-1", "state": "todo", "dependencies": []string{}, "exclusive_resources": []string{}},
		},
		"resource_locks": map[string]any{},
		"state_mapping":  map[string]any{},
	}
	data, _ := json.Marshal(initial)
	if err := os.WriteFile(registry, data, 0o644); err != nil {
		t.Fatal(err)
	}

	script := filepath.Join(root, "fake-coordinator.sh")
	writeExecutableScript(t, script, `#!/usr/bin/env bash
set -euo pipefail
case "$1" in
  dispatch)
    cat > "`+registry+`" <<'JSON'
{
  "schema_version": 1,
  "tasks": [
    {"id": "TASK-1", "state": "merged", "dependencies": [], "exclusive_resources": [], "worktree": null}
  ],
  "resource_locks": {},
  "state_mapping": {}
}
JSON
    ;;
  sync|advance|reconcile|cleanup) ;;
  *) ;;
esac
`)

	cfg := config.CanonicalConfig{}
	cfg.Automation.Coordinator = &config.CoordinatorConfig{TaskRegistryFile: registry, TimeoutSeconds: 10}
	env := EnvConfig{TimeoutSeconds: 10}

	if err := RunFullCycle(context.Background(), root, script, cfg, env); err != nil {
		t.Fatal(err)
	}

	final, err := ReadRegistryCounts(registry)
	if err != nil {
		t.Fatal(err)
	}
	if final.Merged != 1 || final.Todo != 0 {
		t.Fatalf("expected convergence to merged, got %+v", final)
	}
}

func TestRunFullCycleDetectsNoProgress(t *testing.T) {
	root := t.TempDir()
	registry := filepath.Join(root, "task_registry.json")
	doc := `{
  "schema_version": 1,
  "tasks": [{"id": "TASK-STALL", "state": "todo", "dependencies": [], "exclusive_resources": []}],
  "resource_locks": {},
  "state_mapping": {}
}`
	if err := os.WriteFile(registry, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	script := filepath.Join(root, "fake-stall-coordinator.sh")
	writeExecutableScript(t, script, "#!/usr/bin/env bash\nset -euo pipefail\nexit 0\n")

	cfg := config.CanonicalConfig{}
	cfg.Automation.Coordinator = &config.CoordinatorConfig{TaskRegistryFile: registry, TimeoutSeconds: 10}
	env := EnvConfig{TimeoutSeconds: 10}

	err := RunFullCycle(context.Background(), root, script, cfg, env)
	if err == nil {
		t.Fatal("expected a no-progress error")
	}
	if !containsSubstring(err.Error(), "no progress") {
		t.Fatalf("expected no-progress error, got: %v", err)
	}
}

func TestBuildEnvPrefersOverrideOverConfig(t *testing.T) {
	cfg := config.CanonicalConfig{}
	cfg.Tools.Enabled = []string{"claude", "cursor"}
	cfg.Automation.Coordinator = &config.CoordinatorConfig{MaxDispatch: 4, ReferenceBranch: "main"}

	env := BuildEnv(cfg, EnvConfig{MaxDispatch: 9, ReferenceBranch: "develop"})

	values := map[string]string{}
	for _, kv := range env {
		parts := splitOnce(kv, '=')
		values[parts[0]] = parts[1]
	}
	if values["MAX_DISPATCH"] != "9" {
		t.Fatalf("expected override to win, got %q", values["MAX_DISPATCH"])
	}
	if values["DEFAULT_BASE_BRANCH"] != "develop" {
		t.Fatalf("expected override branch, got %q", values["DEFAULT_BASE_BRANCH"])
	}
	if values["ENABLED_TOOLS_CSV"] != "claude,cursor" {
		t.Fatalf("expected enabled tools csv, got %q", values["ENABLED_TOOLS_CSV"])
	}
}

func splitOnce(s string, sep byte) [2]string {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			return [2]string{s[:i], s[i+1:]}
		}
	}
	return [2]string{s, ""}
}

func containsSubstring(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
