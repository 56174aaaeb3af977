// Package config models CanonicalConfig, the user-authored .macc/macc.yaml
// document, and its load/validate/save lifecycle.
//
// The struct layout and yaml-tag conventions follow the teacher's
// internal/config/config.go; the schema itself — tools/standards/
// selections/automation/mcp_templates and their deny-unknown-fields,
// unique-id, and flattened-map invariants — is ported from
// core/src/config/mod.rs in the original Rust source this spec was
// distilled from.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/boshu2/macc/internal/atomicfile"
	"github.com/boshu2/macc/internal/macc"
)

// CanonicalConfig is the full contents of .macc/macc.yaml.
type CanonicalConfig struct {
	Version      int              `yaml:"version"`
	Tools        ToolsConfig      `yaml:"tools"`
	Standards    StandardsConfig  `yaml:"standards,omitempty"`
	Selections   SelectionsConfig `yaml:"selections,omitempty"`
	Automation   AutomationConfig `yaml:"automation,omitempty"`
	McpTemplates []McpTemplate    `yaml:"mcp_templates,omitempty"`
}

// ToolsConfig carries the enabled-tool list plus per-tool opaque config.
// Config is the explicit map; Settings is a flattened catch-all consulted as
// a fallback — both mechanisms exist simultaneously per the original
// source, and the core never interprets either's inner structure (tool
// adapters do).
type ToolsConfig struct {
	Enabled  []string                  `yaml:"enabled,omitempty"`
	Config   map[string]map[string]any `yaml:"config,omitempty"`
	Settings map[string]any            `yaml:",inline"`
}

// Setting looks up a key path (one segment for a flat key, more for a
// nested one such as "context", "protect") within toolID's per-tool Config,
// falling back to the same path within the flattened Settings catch-all when
// Config lacks it (or lacks toolID entirely). Both mechanisms exist
// simultaneously per the original source, and this is their one shared
// resolution order.
func (t ToolsConfig) Setting(toolID string, path ...string) (any, bool) {
	if v, ok := lookupPath(t.Config[toolID], path); ok {
		return v, true
	}
	return lookupPath(t.Settings, path)
}

// lookupPath walks path through nested map[string]any values starting at m.
func lookupPath(m map[string]any, path []string) (any, bool) {
	var cur any = m
	for _, key := range path {
		asMap, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := asMap[key]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// StandardsConfig carries an optional path plus a flattened inline map of
// key/value standards. Inline is kept as an ordered slice (rather than a
// plain map) so that, like the original's BTreeMap, serialization is
// deterministic: keys are sorted alphabetically on MarshalYAML regardless
// of insertion order.
type StandardsConfig struct {
	Path   string            `yaml:"path,omitempty"`
	Inline map[string]string `yaml:"-"`
}

type standardsConfigWire struct {
	Path string `yaml:"path,omitempty"`
}

// UnmarshalYAML decodes path plus every other (flattened) key into Inline.
func (s *StandardsConfig) UnmarshalYAML(value *yaml.Node) error {
	var wire standardsConfigWire
	if err := value.Decode(&wire); err != nil {
		return err
	}
	s.Path = wire.Path

	var raw map[string]string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	delete(raw, "path")
	s.Inline = raw
	return nil
}

// MarshalYAML renders Inline keys in sorted order for deterministic output.
func (s StandardsConfig) MarshalYAML() (any, error) {
	node := yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if s.Path != "" {
		addScalarPair(&node, "path", s.Path)
	}
	keys := make([]string, 0, len(s.Inline))
	for k := range s.Inline {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		addScalarPair(&node, k, s.Inline[k])
	}
	return &node, nil
}

func addScalarPair(node *yaml.Node, key, value string) {
	node.Content = append(node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	)
}

// SelectionsConfig is the ordered sets of chosen catalog ids.
type SelectionsConfig struct {
	Skills []string `yaml:"skills,omitempty"`
	Agents []string `yaml:"agents,omitempty"`
	Mcp    []string `yaml:"mcp,omitempty"`
}

// AutomationConfig is the optional ralph/coordinator substructures.
type AutomationConfig struct {
	Ralph       *RalphConfig       `yaml:"ralph,omitempty"`
	Coordinator *CoordinatorConfig `yaml:"coordinator,omitempty"`
}

// RalphConfig controls generation of scripts/ralph.sh (§4.H).
type RalphConfig struct {
	Enabled           bool   `yaml:"enabled"`
	IterationsDefault int    `yaml:"iterations_default"`
	BranchName        string `yaml:"branch_name"`
	StopOnFailure     bool   `yaml:"stop_on_failure"`
}

// DefaultRalphConfig mirrors the original source's RalphConfig::default().
func DefaultRalphConfig() RalphConfig {
	return RalphConfig{Enabled: true, IterationsDefault: 5, BranchName: "ralph", StopOnFailure: true}
}

// CoordinatorConfig parameterizes the coordinator control loop (§4.K, §6).
type CoordinatorConfig struct {
	CoordinatorTool              string            `yaml:"coordinator_tool,omitempty"`
	ReferenceBranch              string            `yaml:"reference_branch,omitempty"`
	PrdFile                      string            `yaml:"prd_file,omitempty"`
	TaskRegistryFile             string            `yaml:"task_registry_file,omitempty"`
	ToolPriority                 []string          `yaml:"tool_priority,omitempty"`
	MaxParallelPerTool           map[string]int    `yaml:"max_parallel_per_tool,omitempty"`
	ToolSpecializations          map[string]string `yaml:"tool_specializations,omitempty"`
	MaxDispatch                  int               `yaml:"max_dispatch,omitempty"`
	MaxParallel                  int               `yaml:"max_parallel,omitempty"`
	TimeoutSeconds               int               `yaml:"timeout_seconds,omitempty"`
	PhaseRunnerMaxAttempts       int               `yaml:"phase_runner_max_attempts,omitempty"`
	StaleClaimedSeconds          int               `yaml:"stale_claimed_seconds,omitempty"`
	StaleInProgressSeconds       int               `yaml:"stale_in_progress_seconds,omitempty"`
	StaleChangesRequestedSeconds int               `yaml:"stale_changes_requested_seconds,omitempty"`
	StaleAction                  string            `yaml:"stale_action,omitempty"`
}

// DefaultCoordinatorConfig mirrors the original source's defaults.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		ReferenceBranch:              "main",
		TaskRegistryFile:             ".macc/state/task_registry.json",
		MaxDispatch:                  4,
		MaxParallel:                  4,
		TimeoutSeconds:               3600,
		PhaseRunnerMaxAttempts:       3,
		StaleClaimedSeconds:          600,
		StaleInProgressSeconds:       3600,
		StaleChangesRequestedSeconds: 7200,
		StaleAction:                  "requeue",
	}
}

// McpTemplate is one reusable MCP server template offered by `catalog mcp add`.
type McpTemplate struct {
	ID              string              `yaml:"id"`
	Title           string              `yaml:"title"`
	Description     string              `yaml:"description,omitempty"`
	Command         string              `yaml:"command"`
	Args            []string            `yaml:"args,omitempty"`
	EnvPlaceholders []McpEnvPlaceholder `yaml:"env_placeholders,omitempty"`
	AuthNotes       string              `yaml:"auth_notes,omitempty"`
}

// McpEnvPlaceholder names one environment variable an MCP template expects
// the user to supply, with a human-facing placeholder and description.
type McpEnvPlaceholder struct {
	Name        string `yaml:"name"`
	Placeholder string `yaml:"placeholder"`
	Description string `yaml:"description,omitempty"`
}

// DefaultMcpTemplates returns the three hardcoded built-in templates ported
// from the original source's default_mcp_templates().
func DefaultMcpTemplates() []McpTemplate {
	return []McpTemplate{
		{
			ID:          "brave-search",
			Title:       "Brave Search",
			Description: "Web search via the Brave Search API.",
			Command:     "node",
			Args:        []string{"brave-search-mcp/index.js"},
			EnvPlaceholders: []McpEnvPlaceholder{
				{Name: "BRAVE_API_KEY", Placeholder: "<your-brave-api-key>", Description: "API key from the Brave Search API dashboard."},
			},
			AuthNotes: "Requires a Brave Search API key; see https://brave.com/search/api/.",
		},
		{
			ID:          "github-issues",
			Title:       "GitHub Issues",
			Description: "Read and create GitHub issues.",
			Command:     "python",
			Args:        []string{"-m", "github_issues_mcp"},
			EnvPlaceholders: []McpEnvPlaceholder{
				{Name: "GITHUB_TOKEN", Placeholder: "<your-github-token>", Description: "Personal access token with repo scope."},
			},
			AuthNotes: "Requires a GitHub personal access token with the repo scope.",
		},
		{
			ID:          "local-notes",
			Title:       "Local Notes",
			Description: "Read and write notes in a local directory.",
			Command:     "bash",
			Args:        []string{"local-notes-mcp/run.sh"},
			AuthNotes:   "No authentication required; operates on the local filesystem.",
		},
	}
}

// Default returns a minimal, valid CanonicalConfig.
func Default() CanonicalConfig {
	return CanonicalConfig{
		Version:      1,
		Tools:        ToolsConfig{},
		McpTemplates: DefaultMcpTemplates(),
	}
}

// Load reads and validates CanonicalConfig from path.
func Load(path string) (CanonicalConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CanonicalConfig{}, macc.Config(path, err)
	}
	cfg, err := FromYAML(data)
	if err != nil {
		return CanonicalConfig{}, macc.Config(path, err)
	}
	if err := cfg.Validate(); err != nil {
		return CanonicalConfig{}, macc.Config(path, err)
	}
	return cfg, nil
}

// FromYAML parses bytes into a CanonicalConfig, rejecting unknown top-level
// and nested keys the way the original's deny_unknown_fields does.
func FromYAML(data []byte) (CanonicalConfig, error) {
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	var cfg CanonicalConfig
	if err := dec.Decode(&cfg); err != nil {
		return CanonicalConfig{}, err
	}
	return cfg, nil
}

// ToYAML serializes cfg back to canonical YAML bytes.
func (c CanonicalConfig) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Save writes cfg to path atomically.
func (c CanonicalConfig) Save(path string) error {
	data, err := c.ToYAML()
	if err != nil {
		return macc.Config(path, err)
	}
	return atomicfile.Write(path, data, 0o644)
}

// Validate enforces the invariants spec.md §3 requires of mcp_templates:
// unique trimmed ids, non-empty trimmed command, and non-empty name and
// placeholder for every env placeholder.
func (c CanonicalConfig) Validate() error {
	seen := make(map[string]bool, len(c.McpTemplates))
	for _, tmpl := range c.McpTemplates {
		id := strings.TrimSpace(tmpl.ID)
		if id == "" {
			return fmt.Errorf("mcp_templates: entry has empty id")
		}
		if seen[id] {
			return fmt.Errorf("mcp_templates: duplicate id %q", id)
		}
		seen[id] = true

		if strings.TrimSpace(tmpl.Command) == "" {
			return fmt.Errorf("mcp_templates[%s]: command must not be empty", id)
		}
		for _, ph := range tmpl.EnvPlaceholders {
			if strings.TrimSpace(ph.Name) == "" {
				return fmt.Errorf("mcp_templates[%s]: env_placeholders entry has empty name", id)
			}
			if strings.TrimSpace(ph.Placeholder) == "" {
				return fmt.Errorf("mcp_templates[%s]: env_placeholders entry has empty placeholder", id)
			}
		}
	}
	return nil
}
