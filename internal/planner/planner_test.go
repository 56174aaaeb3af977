package planner

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/boshu2/macc/internal/catalog"
	"github.com/boshu2/macc/internal/config"
	"github.com/boshu2/macc/internal/plan"
	"github.com/boshu2/macc/internal/resolver"
	"github.com/boshu2/macc/internal/source"
	"github.com/boshu2/macc/internal/toolspec"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestPlanSkillInstallSortedWriteFiles(t *testing.T) {
	root := t.TempDir()
	skillDir := filepath.Join(root, "my-skill")
	writeFile(t, filepath.Join(skillDir, "SKILL.md"), "skill content")
	writeFile(t, filepath.Join(skillDir, "macc.package.json"), `{"type":"skill","id":"my-skill","version":"0.1.0"}`)

	p := plan.New()
	if err := planSkillInstall(p, "claude", "my-skill", root, "my-skill"); err != nil {
		t.Fatal(err)
	}
	p.Normalize()

	var paths []string
	for _, a := range p.Actions {
		if a.Kind == plan.KindWriteFile {
			paths = append(paths, a.Path)
		}
	}
	want := []string{".claude/skills/my-skill/SKILL.md", ".claude/skills/my-skill/macc.package.json"}
	if len(paths) != len(want) {
		t.Fatalf("got %v, want %v", paths, want)
	}
}

func TestPlanMcpInstallMergesIntoMcpJson(t *testing.T) {
	root := t.TempDir()
	mcpDir := filepath.Join(root, "my-mcp")
	manifest := map[string]any{
		"type":    "mcp",
		"id":      "my-mcp",
		"version": "1.0.0",
		"mcp": map[string]any{
			"server": map[string]any{"command": "node", "args": []any{"index.js"}},
		},
		"merge_target": "mcpServers.my-mcp",
	}
	data, _ := json.Marshal(manifest)
	writeFile(t, filepath.Join(mcpDir, source.PackageManifestName), string(data))

	p := plan.New()
	if err := planMcpInstall(p, "my-mcp", root, "my-mcp"); err != nil {
		t.Fatal(err)
	}
	p.Normalize()

	if len(p.Actions) != 1 || p.Actions[0].Kind != plan.KindMergeJSON {
		t.Fatalf("expected single MergeJson action, got %+v", p.Actions)
	}
	if p.Actions[0].Path != ".mcp.json" {
		t.Fatalf("expected .mcp.json, got %s", p.Actions[0].Path)
	}
	patch := p.Actions[0].Patch.(map[string]any)
	servers := patch["mcpServers"].(map[string]any)
	entry := servers["my-mcp"].(map[string]any)
	if entry["command"] != "node" {
		t.Fatalf("expected command=node, got %+v", entry)
	}
}

func TestCollectToolGitignoreEntriesDeduplicatesAcrossTools(t *testing.T) {
	reg := toolspec.NewRegistry()
	mustAdd(t, reg, toolspec.ToolSpec{
		APIVersion: "v1", ID: "claude", DisplayName: "Claude",
		Fields:    []toolspec.FieldSpec{},
		Gitignore: []string{".claude/", "*.log"},
	})
	mustAdd(t, reg, toolspec.ToolSpec{
		APIVersion: "v1", ID: "cursor", DisplayName: "Cursor",
		Fields:    []toolspec.FieldSpec{},
		Gitignore: []string{".cursor/", "*.log"},
	})

	entries := CollectToolGitignoreEntries(reg, []string{"claude", "cursor"})
	seen := make(map[string]int)
	for _, e := range entries {
		seen[e]++
	}
	if seen["*.log"] != 1 {
		t.Fatalf("expected *.log deduplicated once, got %d: %v", seen["*.log"], entries)
	}
	if seen[".claude/"] != 1 || seen[".cursor/"] != 1 {
		t.Fatalf("expected both tool-specific entries present: %v", entries)
	}
}

func TestCollectToolGitignoreEntriesFiltersDisabledTools(t *testing.T) {
	reg := toolspec.NewRegistry()
	mustAdd(t, reg, toolspec.ToolSpec{APIVersion: "v1", ID: "claude", DisplayName: "Claude", Fields: []toolspec.FieldSpec{}, Gitignore: []string{".claude/"}})
	mustAdd(t, reg, toolspec.ToolSpec{APIVersion: "v1", ID: "cursor", DisplayName: "Cursor", Fields: []toolspec.FieldSpec{}, Gitignore: []string{".cursor/"}})

	entries := CollectToolGitignoreEntries(reg, []string{"claude"})
	if len(entries) != 1 || entries[0] != ".claude/" {
		t.Fatalf("expected only claude's entry, got %v", entries)
	}
}

func mustAdd(t *testing.T, reg *toolspec.Registry, spec toolspec.ToolSpec) {
	t.Helper()
	if err := reg.Add(spec); err != nil {
		t.Fatal(err)
	}
}

func TestBuildPlanIncludesBaselineIgnoreAndRalphScript(t *testing.T) {
	reg := toolspec.NewRegistry()
	mustAdd(t, reg, toolspec.ToolSpec{APIVersion: "v1", ID: "claude", DisplayName: "Claude", Fields: []toolspec.FieldSpec{}, Gitignore: []string{".claude/"}})

	cfg := config.CanonicalConfig{}
	cfg.Tools.Enabled = []string{"claude"}
	cfg.Automation.Ralph = &config.RalphConfig{Enabled: true, IterationsDefault: 5, BranchName: "ralph", StopOnFailure: true}

	resolved := resolver.ResolvedConfig{Config: cfg, EnabledTools: []string{"claude"}}
	ctx := Context{Resolved: resolved, Specs: reg}

	p, err := BuildPlan(ctx, NewAdapterRegistry())
	if err != nil {
		t.Fatal(err)
	}

	var ignorePatterns []string
	var ralphPath string
	for _, a := range p.Actions {
		if a.Kind == plan.KindEnsureGitignore {
			ignorePatterns = append(ignorePatterns, a.Pattern)
		}
		if a.Kind == plan.KindWriteFile && a.Path == "scripts/ralph.sh" {
			ralphPath = a.Path
		}
	}
	if ralphPath == "" {
		t.Fatal("expected ralph.sh write action when ralph is enabled")
	}
	found := map[string]bool{}
	for _, p := range ignorePatterns {
		found[p] = true
	}
	if !found[".macc/"] || !found[".claude/"] {
		t.Fatalf("expected baseline + tool gitignore entries, got %v", ignorePatterns)
	}
}

func TestBuildPlanSkipsRalphWhenDisabled(t *testing.T) {
	reg := toolspec.NewRegistry()
	cfg := config.CanonicalConfig{}
	cfg.Automation.Ralph = &config.RalphConfig{Enabled: false}
	resolved := resolver.ResolvedConfig{Config: cfg}
	ctx := Context{Resolved: resolved, Specs: reg}

	p, err := BuildPlan(ctx, NewAdapterRegistry())
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range p.Actions {
		if a.Path == "scripts/ralph.sh" {
			t.Fatal("ralph.sh should not be planned when disabled")
		}
	}
}

func TestDefaultAdapterPlansSelectedSkillsAndMcp(t *testing.T) {
	root := t.TempDir()
	skillDir := filepath.Join(root, "skill-src")
	writeFile(t, filepath.Join(skillDir, "SKILL.md"), "content")

	cfg := config.CanonicalConfig{}
	cfg.Selections.Skills = []string{"demo-skill"}
	resolved := resolver.ResolvedConfig{Config: cfg, EnabledTools: []string{"claude"}}

	units := []source.MaterializedFetchUnit{
		{
			SourceRootPath: skillDir,
			Selections: []resolver.Selection{
				{ID: "demo-skill", Kind: catalog.EntrySkill, Subpath: ""},
			},
		},
	}

	ctx := Context{Resolved: resolved, MaterializedUnits: units}
	adapter := DefaultAdapter{}
	p, err := adapter.Plan(ctx, "claude")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Actions) != 1 || p.Actions[0].Path != ".claude/skills/demo-skill/SKILL.md" {
		t.Fatalf("unexpected actions: %+v", p.Actions)
	}
}
