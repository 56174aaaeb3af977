package main

import (
	"context"
	"os"

	"github.com/boshu2/macc/internal/catalog"
	"github.com/boshu2/macc/internal/config"
	"github.com/boshu2/macc/internal/macc"
	"github.com/boshu2/macc/internal/paths"
	"github.com/boshu2/macc/internal/plan"
	"github.com/boshu2/macc/internal/planner"
	"github.com/boshu2/macc/internal/resolver"
	"github.com/boshu2/macc/internal/source"
	"github.com/boshu2/macc/internal/toolspec"
)

// resolveProjectPaths honors --root when set, otherwise discovers the
// project root by ascending from the working directory.
func resolveProjectPaths() (paths.ProjectPaths, error) {
	if root := GetRoot(); root != "" {
		return paths.FromRoot(root), nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return paths.ProjectPaths{}, macc.IO("getwd", ".", err)
	}
	return paths.FindProjectRoot(wd)
}

// loadConfig discovers the project root and loads its canonical config.
func loadConfig() (paths.ProjectPaths, config.CanonicalConfig, error) {
	pp, err := resolveProjectPaths()
	if err != nil {
		return paths.ProjectPaths{}, config.CanonicalConfig{}, err
	}
	cfg, err := config.Load(pp.ConfigFile())
	if err != nil {
		return paths.ProjectPaths{}, config.CanonicalConfig{}, err
	}
	return pp, cfg, nil
}

// loadToolSpecs loads every *.yaml/*.yml tool spec under the project's
// .macc/tool-specs directory, tolerating its absence (an empty registry,
// matching toolspec.LoadDir's not-exist-is-empty contract).
func loadToolSpecs(pp paths.ProjectPaths) (*toolspec.Registry, error) {
	dir := pp.Root + string(os.PathSeparator) + ".macc" + string(os.PathSeparator) + "tool-specs"
	return toolspec.LoadDir(dir)
}

// buildPlan runs the full resolve/materialize/plan pipeline: load the
// effective skills/mcp catalogs, resolve the canonical config plus CLI
// tool-list override against them, materialize every fetch unit, and
// assemble the normalized ActionPlan. Mirrors the plan()/build_plan() call
// chain the original source's CLI driver runs before every preview/apply.
func buildPlan(ctx context.Context, pp paths.ProjectPaths, cfg config.CanonicalConfig, specs *toolspec.Registry, toolsCSV string) (*plan.ActionPlan, []string, error) {
	skills, err := catalog.LoadSkillsCatalogWithLocal(mustUserCatalogDir(), pp.CatalogDir(), pp.SkillsDir())
	if err != nil {
		return nil, nil, err
	}
	mcp, err := catalog.LoadEffectiveMcpCatalog(mustUserCatalogDir(), pp.CatalogDir())
	if err != nil {
		return nil, nil, err
	}

	overrides := resolver.CliOverrides{ToolsCSV: toolsCSV, AllowedTools: specs.IDs()}
	resolved, units, err := resolver.Resolve(cfg, overrides, skills, mcp)
	if err != nil {
		return nil, nil, err
	}

	materialized, err := source.MaterializeFetchUnits(ctx, pp, units)
	if err != nil {
		return nil, nil, err
	}

	planCtx := planner.Context{
		Paths:             pp,
		Resolved:          resolved,
		MaterializedUnits: materialized,
		Specs:             specs,
	}
	p, err := planner.BuildPlan(planCtx, planner.NewAdapterRegistry())
	if err != nil {
		return nil, nil, err
	}
	return p, resolved.Warnings, nil
}

// mustUserCatalogDir resolves the invoking user's catalog directory,
// falling back to empty (no user layer) if the home directory cannot be
// found, since the user layer is optional at every call site that uses it.
func mustUserCatalogDir() string {
	dir, err := paths.UserCatalogDir()
	if err != nil {
		return ""
	}
	return dir
}
