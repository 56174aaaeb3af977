package resolver

import (
	"testing"

	"github.com/boshu2/macc/internal/catalog"
	"github.com/boshu2/macc/internal/config"
)

func TestCliOverridesDropsUnknownIDsWithWarning(t *testing.T) {
	o := CliOverrides{ToolsCSV: "claude,bogus,cursor", AllowedTools: []string{"claude", "cursor"}}
	got := o.Apply([]string{"ignored"})
	if len(got) != 2 || got[0] != "claude" || got[1] != "cursor" {
		t.Fatalf("Apply = %v", got)
	}
	if len(o.Warnings) != 1 {
		t.Fatalf("Warnings = %v, want exactly one", o.Warnings)
	}
}

func TestCliOverridesEmptyCSVIsNoop(t *testing.T) {
	o := CliOverrides{AllowedTools: []string{"claude"}}
	got := o.Apply([]string{"claude", "cursor"})
	if len(got) != 2 {
		t.Fatalf("Apply = %v, want base unchanged", got)
	}
}

func TestResolveGroupsSharedSourceAndUnionsSubpaths(t *testing.T) {
	src := catalog.Source{Kind: catalog.KindGit, URL: "https://example.com/repo.git", Reference: "main"}
	skills := catalog.SkillsCatalog{Entries: []catalog.SkillEntry{
		{ID: "skill-a", Source: src, Selector: catalog.Selector{Subpath: "a"}},
		{ID: "skill-b", Source: src, Selector: catalog.Selector{Subpath: "b"}},
	}}
	mcp := catalog.McpCatalog{}

	cfg := config.CanonicalConfig{Selections: config.SelectionsConfig{Skills: []string{"skill-a", "skill-b"}}}
	_, units, err := Resolve(cfg, CliOverrides{}, skills, mcp)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("units = %+v, want exactly one fetch unit", units)
	}
	if len(units[0].Selections) != 2 {
		t.Fatalf("Selections = %+v", units[0].Selections)
	}
	if len(units[0].Source.Subpaths) != 2 || units[0].Source.Subpaths[0] != "a" || units[0].Source.Subpaths[1] != "b" {
		t.Fatalf("Source.Subpaths = %v, want sorted [a b]", units[0].Source.Subpaths)
	}
}

func TestResolveSeparatesDistinctSources(t *testing.T) {
	srcA := catalog.Source{Kind: catalog.KindGit, URL: "https://example.com/a.git"}
	srcB := catalog.Source{Kind: catalog.KindGit, URL: "https://example.com/b.git"}
	skills := catalog.SkillsCatalog{Entries: []catalog.SkillEntry{
		{ID: "skill-a", Source: srcA},
		{ID: "skill-b", Source: srcB},
	}}

	cfg := config.CanonicalConfig{Selections: config.SelectionsConfig{Skills: []string{"skill-a", "skill-b"}}}
	_, units, err := Resolve(cfg, CliOverrides{}, skills, catalog.McpCatalog{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("units = %+v, want two distinct fetch units", units)
	}
}

func TestResolveErrorsOnMissingSelection(t *testing.T) {
	cfg := config.CanonicalConfig{Selections: config.SelectionsConfig{Skills: []string{"does-not-exist"}}}
	_, _, err := Resolve(cfg, CliOverrides{}, catalog.SkillsCatalog{}, catalog.McpCatalog{})
	if err == nil {
		t.Fatal("expected error for unresolved selection")
	}
}
