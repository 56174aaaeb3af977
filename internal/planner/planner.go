// Package planner assembles the normalized ActionPlan from resolved config,
// materialized fetch units, and tool adapters.
//
// Grounded on core/src/lib.rs's plan()/build_plan()/plan_ralph_script() and
// core/src/plan/builders.rs's expand_directory_to_plan/plan_skill_install/
// plan_mcp_install in the original Rust source this spec was distilled
// from. Tool adapters are modeled as the capability trait spec.md §9
// describes (`plan(ctx) -> ActionPlan`), kept by a small id-keyed registry;
// a DefaultAdapter ships as the reference adapter every enabled tool with
// no custom registration falls back to, since individual tool adapters are
// themselves out of this engine's scope per spec.md.
package planner

import (
	"fmt"

	"github.com/boshu2/macc/internal/catalog"
	"github.com/boshu2/macc/internal/config"
	"github.com/boshu2/macc/internal/embedded"
	"github.com/boshu2/macc/internal/macc"
	"github.com/boshu2/macc/internal/paths"
	"github.com/boshu2/macc/internal/plan"
	"github.com/boshu2/macc/internal/resolver"
	"github.com/boshu2/macc/internal/source"
	"github.com/boshu2/macc/internal/toolspec"
)

// BaselineIgnoreEntries are the always-present .gitignore patterns.
var BaselineIgnoreEntries = []string{".macc/"}

// Context is the read-only view a ToolAdapter plans against.
type Context struct {
	Paths             paths.ProjectPaths
	Resolved          resolver.ResolvedConfig
	MaterializedUnits []source.MaterializedFetchUnit
	Specs             *toolspec.Registry
}

// ToolAdapter is the capability trait every tool integration implements:
// one pure function from Context to an ActionPlan fragment.
type ToolAdapter interface {
	Plan(ctx Context, toolID string) (*plan.ActionPlan, error)
}

// AdapterRegistry maps tool id to its adapter.
type AdapterRegistry struct {
	adapters map[string]ToolAdapter
	fallback ToolAdapter
}

// NewAdapterRegistry builds a registry whose fallback is DefaultAdapter,
// used for any enabled tool id with no specific registration.
func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{adapters: make(map[string]ToolAdapter), fallback: DefaultAdapter{}}
}

// Register associates adapter with toolID, overriding the fallback.
func (r *AdapterRegistry) Register(toolID string, adapter ToolAdapter) {
	r.adapters[toolID] = adapter
}

// Get returns the adapter registered for toolID, or the fallback.
func (r *AdapterRegistry) Get(toolID string) ToolAdapter {
	if a, ok := r.adapters[toolID]; ok {
		return a
	}
	return r.fallback
}

// BuildPlan composes the baseline ignore entries, per-tool ignore entries,
// the optional ralph automation script, and every enabled tool's delegated
// plan into one normalized ActionPlan. Mirrors build_plan in the original
// source's core/src/lib.rs.
func BuildPlan(ctx Context, adapters *AdapterRegistry) (*plan.ActionPlan, error) {
	total := plan.New()

	for _, entry := range BaselineIgnoreEntries {
		total.Add(plan.EnsureGitignore(entry, plan.ScopeProject))
	}
	for _, entry := range CollectToolGitignoreEntries(ctx.Specs, ctx.Resolved.EnabledTools) {
		total.Add(plan.EnsureGitignore(entry, plan.ScopeProject))
	}

	if ralph := ctx.Resolved.Config.Automation.Ralph; ralph != nil && ralph.Enabled {
		if err := planRalphScript(total, ctx.Resolved, *ralph); err != nil {
			return nil, err
		}
	}

	for _, toolID := range ctx.Resolved.EnabledTools {
		adapter := adapters.Get(toolID)
		toolPlan, err := adapter.Plan(ctx, toolID)
		if err != nil {
			return nil, fmt.Errorf("planner: tool %q: %w", toolID, err)
		}
		if toolPlan != nil {
			total.Actions = append(total.Actions, toolPlan.Actions...)
		}
	}

	total.Normalize()
	return total, nil
}

// CollectToolGitignoreEntries gathers the deduplicated union of every
// enabled tool spec's gitignore entries, in spec-file order. When
// enabledTools is nil every registered spec contributes (used by `init`,
// before any tools.enabled selection is known).
func CollectToolGitignoreEntries(specs *toolspec.Registry, enabledTools []string) []string {
	if specs == nil {
		return nil
	}
	var enabledSet map[string]bool
	if enabledTools != nil {
		enabledSet = make(map[string]bool, len(enabledTools))
		for _, id := range enabledTools {
			enabledSet[id] = true
		}
	}

	seen := make(map[string]bool)
	var entries []string
	for _, id := range specs.IDs() {
		if enabledSet != nil && !enabledSet[id] {
			continue
		}
		spec, _ := specs.Get(id)
		for _, entry := range spec.Gitignore {
			if !seen[entry] {
				seen[entry] = true
				entries = append(entries, entry)
			}
		}
	}
	return entries
}

// DefaultAdapter is the reference ToolAdapter every enabled tool without a
// custom registration uses: it installs every selected skill into
// `.{tool}/skills/{id}/` and every selected MCP entry's manifest into
// `.mcp.json`, per the conventions in core/src/plan/builders.rs's
// plan_skill_install/plan_mcp_install.
type DefaultAdapter struct{}

func (DefaultAdapter) Plan(ctx Context, toolID string) (*plan.ActionPlan, error) {
	p := plan.New()

	selected := make(map[string]resolver.Selection)
	for _, unit := range ctx.MaterializedUnits {
		for _, sel := range unit.Selections {
			selected[sel.ID] = sel
		}
	}

	for _, skillID := range ctx.Resolved.Config.Selections.Skills {
		sel, ok := selected[skillID]
		if !ok || sel.Kind != catalog.EntrySkill {
			continue
		}
		root := sourceRootFor(ctx.MaterializedUnits, skillID)
		if root == "" {
			continue
		}
		if err := planSkillInstall(p, toolID, skillID, root, sel.Subpath); err != nil {
			return nil, err
		}
	}

	for _, mcpID := range ctx.Resolved.Config.Selections.Mcp {
		sel, ok := selected[mcpID]
		if !ok || sel.Kind != catalog.EntryMCP {
			continue
		}
		root := sourceRootFor(ctx.MaterializedUnits, mcpID)
		if root == "" {
			continue
		}
		if err := planMcpInstall(p, mcpID, root, sel.Subpath); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func sourceRootFor(units []source.MaterializedFetchUnit, id string) string {
	for _, unit := range units {
		for _, sel := range unit.Selections {
			if sel.ID == id {
				return unit.SourceRootPath
			}
		}
	}
	return ""
}

func planRalphScript(p *plan.ActionPlan, resolved resolver.ResolvedConfig, ralph config.RalphConfig) error {
	if len(embedded.RalphScript) == 0 {
		return macc.Validationf("ralph script template is empty")
	}
	const path = "scripts/ralph.sh"
	p.Add(plan.Mkdir("scripts", plan.ScopeProject))
	p.Add(plan.WriteFile(path, embedded.RalphScript, plan.ScopeProject))
	p.Add(plan.SetExecutable(path, plan.ScopeProject))
	return nil
}
