// Package resolver implements the pure transformation from CanonicalConfig
// plus CLI overrides into a ResolvedConfig and a deduplicated fetch-unit
// list, grouped by source identity.
//
// The resolver performs no I/O; it is grounded on §4.F of the original
// specification (the resolve() function referenced from core/src/lib.rs in
// the original Rust source, whose own resolve.rs was not retained in the
// reference pack — its call sites and CliOverrides/ResolvedConfig naming in
// lib.rs are followed directly). The directory-walking and selection-set
// style of the teacher's own internal/resolver/resolver.go is not reused:
// that resolver matched filesystem learning files by glob, an unrelated
// problem to grouping catalog selections by source.
package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/boshu2/macc/internal/catalog"
	"github.com/boshu2/macc/internal/config"
	"github.com/boshu2/macc/internal/macc"
)

// CliOverrides carries the subset of config overridable from the command
// line, applied on top of the loaded CanonicalConfig before resolution.
type CliOverrides struct {
	// ToolsCSV, when non-empty, replaces tools.enabled after validation
	// against AllowedTools.
	ToolsCSV     string
	AllowedTools []string
	// Warnings accumulates unknown-tool-id notices; populated by Apply.
	Warnings []string
}

// Apply validates ToolsCSV against AllowedTools and returns the resulting
// enabled-tool list, plus any warnings for dropped unknown ids. An empty
// ToolsCSV is a no-op: base returns unchanged.
func (o *CliOverrides) Apply(base []string) []string {
	if strings.TrimSpace(o.ToolsCSV) == "" {
		return base
	}
	allowed := make(map[string]bool, len(o.AllowedTools))
	for _, id := range o.AllowedTools {
		allowed[id] = true
	}
	var kept []string
	for _, raw := range strings.Split(o.ToolsCSV, ",") {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if !allowed[id] {
			o.Warnings = append(o.Warnings, fmt.Sprintf("unknown tool id %q ignored", id))
			continue
		}
		kept = append(kept, id)
	}
	return kept
}

// ResolvedConfig is the frozen result of applying overrides to a
// CanonicalConfig: a deep copy with selections treated as immutable from
// this point forward.
type ResolvedConfig struct {
	Config       config.CanonicalConfig
	EnabledTools []string
	Warnings     []string
}

// Selection identifies one catalog entry chosen for installation.
type Selection struct {
	ID      string
	Subpath string
	Kind    catalog.EntryKind
}

// FetchUnit groups every Selection that shares the same source identity
// (ignoring subpaths) so materialization happens once per distinct
// clone/download regardless of how many selections it serves.
type FetchUnit struct {
	Source     catalog.Source
	Selections []Selection
}

// Resolve applies overrides to cfg and groups every selected skill/MCP
// catalog entry into fetch units by Source.WithoutSubpaths() equality,
// unioning and sorting subpaths across member selections.
func Resolve(cfg config.CanonicalConfig, overrides CliOverrides, skills catalog.SkillsCatalog, mcp catalog.McpCatalog) (ResolvedConfig, []FetchUnit, error) {
	enabled := overrides.Apply(cfg.Tools.Enabled)
	resolved := ResolvedConfig{
		Config:       cfg,
		EnabledTools: enabled,
		Warnings:     overrides.Warnings,
	}
	resolved.Config.Tools.Enabled = enabled

	skillByID := make(map[string]catalog.SkillEntry, len(skills.Entries))
	for _, e := range skills.Entries {
		skillByID[e.ID] = e
	}
	mcpByID := make(map[string]catalog.McpEntry, len(mcp.Entries))
	for _, e := range mcp.Entries {
		mcpByID[e.ID] = e
	}

	type group struct {
		source   catalog.Source
		subpaths map[string]bool
		sels     []Selection
	}
	groups := make(map[string]*group)
	var order []string

	addSelection := func(id string, kind catalog.EntryKind, source catalog.Source, subpath string) {
		key := source.WithoutSubpaths().CacheKey()
		g, ok := groups[key]
		if !ok {
			g = &group{source: source.WithoutSubpaths(), subpaths: make(map[string]bool)}
			groups[key] = g
			order = append(order, key)
		}
		if subpath != "" {
			g.subpaths[subpath] = true
		}
		g.sels = append(g.sels, Selection{ID: id, Subpath: subpath, Kind: kind})
	}

	for _, id := range cfg.Selections.Skills {
		entry, ok := skillByID[id]
		if !ok {
			return ResolvedConfig{}, nil, macc.Validationf("resolver: selected skill %q not found in any catalog layer", id)
		}
		addSelection(id, catalog.EntrySkill, entry.Source, entry.Selector.Subpath)
	}
	for _, id := range cfg.Selections.Mcp {
		entry, ok := mcpByID[id]
		if !ok {
			return ResolvedConfig{}, nil, macc.Validationf("resolver: selected mcp %q not found in any catalog layer", id)
		}
		addSelection(id, catalog.EntryMCP, entry.Source, entry.Selector.Subpath)
	}

	units := make([]FetchUnit, 0, len(order))
	for _, key := range order {
		g := groups[key]
		subpaths := make([]string, 0, len(g.subpaths))
		for sp := range g.subpaths {
			subpaths = append(subpaths, sp)
		}
		sort.Strings(subpaths)
		src := g.source
		src.Subpaths = subpaths
		units = append(units, FetchUnit{Source: src, Selections: g.sels})
	}

	return resolved, units, nil
}
