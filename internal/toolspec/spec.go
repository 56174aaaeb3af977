// Package toolspec models ToolSpec, the declarative YAML/JSON wire format
// each tool adapter ships, plus its parse-time validation.
//
// Ported field-for-field from core/src/tool/spec.rs in the original Rust
// source (ActionSpec/FieldKindSpec/ToolPerformerSpec/ToolInstallSpec/
// DoctorCheckSpec/ToolSpec and the is_pointer_allowed/is_kebab_case/
// validate() rules), using the teacher's tagged-union-via-custom-unmarshal
// idiom (as in internal/config/config.go's source-tracked field handling)
// in place of serde's #[serde(tag = "...")] enums, which yaml.v3/encoding
// json have no direct equivalent for.
package toolspec

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/boshu2/macc/internal/macc"
)

// ActionKind discriminates the Action field-kind variants.
type ActionKind string

const (
	ActionOpenMcp    ActionKind = "open_mcp"
	ActionOpenSkills ActionKind = "open_skills"
	ActionOpenAgents ActionKind = "open_agents"
	ActionCustom     ActionKind = "custom"
)

// ActionSpec is the payload of a FieldKindSpec{Kind: "action"} field.
type ActionSpec struct {
	Action        ActionKind `yaml:"action" json:"action"`
	TargetPointer string     `yaml:"target_pointer,omitempty" json:"target_pointer,omitempty"`
	Target        string     `yaml:"target,omitempty" json:"target,omitempty"`
}

// FieldKind discriminates a FieldSpec's value type.
type FieldKind string

const (
	FieldBool   FieldKind = "bool"
	FieldEnum   FieldKind = "enum"
	FieldText   FieldKind = "text"
	FieldNumber FieldKind = "number"
	FieldArray  FieldKind = "array"
	FieldAction FieldKind = "action"
)

// FieldKindSpec is a field's declared value type, with type-specific extras.
type FieldKindSpec struct {
	Type    FieldKind  `yaml:"type" json:"type"`
	Options []string   `yaml:"options,omitempty" json:"options,omitempty"`
	Action  ActionSpec `yaml:"-" json:"-"`
}

// UnmarshalYAML decodes the tagged union by reading `type` first.
func (f *FieldKindSpec) UnmarshalYAML(value *yaml.Node) error {
	var wire struct {
		Type          string     `yaml:"type"`
		Options       []string   `yaml:"options"`
		Action        ActionKind `yaml:"action"`
		TargetPointer string     `yaml:"target_pointer"`
		Target        string     `yaml:"target"`
	}
	if err := value.Decode(&wire); err != nil {
		return err
	}
	f.Type = FieldKind(wire.Type)
	f.Options = wire.Options
	if f.Type == FieldAction {
		f.Action = ActionSpec{Action: wire.Action, TargetPointer: wire.TargetPointer, Target: wire.Target}
	}
	return nil
}

// ToolPerformerCommand is a bare command+args pair used by retry/resume/discover.
type ToolPerformerCommand struct {
	Command string   `yaml:"command" json:"command"`
	Args    []string `yaml:"args,omitempty" json:"args,omitempty"`
}

// ToolPerformerPrompt describes how the one-shot prompt is delivered.
type ToolPerformerPrompt struct {
	Mode string `yaml:"mode" json:"mode"`
	Arg  string `yaml:"arg,omitempty" json:"arg,omitempty"`
}

// ToolPerformerSessionSpec describes optional long-lived session support.
type ToolPerformerSessionSpec struct {
	Enabled      bool                  `yaml:"enabled" json:"enabled"`
	Scope        string                `yaml:"scope,omitempty" json:"scope,omitempty"`
	InitPrompt   string                `yaml:"init_prompt,omitempty" json:"init_prompt,omitempty"`
	ExtractRegex string                `yaml:"extract_regex,omitempty" json:"extract_regex,omitempty"`
	Resume       *ToolPerformerCommand `yaml:"resume,omitempty" json:"resume,omitempty"`
	Discover     *ToolPerformerCommand `yaml:"discover,omitempty" json:"discover,omitempty"`
	IDStrategy   string                `yaml:"id_strategy,omitempty" json:"id_strategy,omitempty"`
}

// ToolPerformerSpec is the tool's automation entry point.
type ToolPerformerSpec struct {
	Runner  string                    `yaml:"runner" json:"runner"`
	Command string                    `yaml:"command" json:"command"`
	Args    []string                  `yaml:"args,omitempty" json:"args,omitempty"`
	Retry   *ToolPerformerCommand     `yaml:"retry,omitempty" json:"retry,omitempty"`
	Prompt  *ToolPerformerPrompt      `yaml:"prompt,omitempty" json:"prompt,omitempty"`
	Session *ToolPerformerSessionSpec `yaml:"session,omitempty" json:"session,omitempty"`
}

// ToolInstallCommand is one step of an install sequence.
type ToolInstallCommand struct {
	Command string   `yaml:"command" json:"command"`
	Args    []string `yaml:"args,omitempty" json:"args,omitempty"`
}

// ToolInstallSpec describes how to install the underlying tool binary.
type ToolInstallSpec struct {
	Commands       []ToolInstallCommand `yaml:"commands,omitempty" json:"commands,omitempty"`
	PostInstall    *ToolInstallCommand  `yaml:"post_install,omitempty" json:"post_install,omitempty"`
	ConfirmMessage string               `yaml:"confirm_message,omitempty" json:"confirm_message,omitempty"`
}

// FieldSpec is one configurable field a tool exposes through `macc tool`.
type FieldSpec struct {
	ID      string          `yaml:"id" json:"id"`
	Label   string          `yaml:"label" json:"label"`
	Kind    FieldKindSpec   `yaml:"kind" json:"kind"`
	Help    string          `yaml:"help,omitempty" json:"help,omitempty"`
	Pointer string          `yaml:"pointer,omitempty" json:"pointer,omitempty"`
	Default json.RawMessage `yaml:"default,omitempty" json:"default,omitempty"`
}

// DoctorCheckKind discriminates a doctor probe's mechanism.
type DoctorCheckKind string

const (
	DoctorWhich      DoctorCheckKind = "which"
	DoctorPathExists DoctorCheckKind = "path_exists"
	DoctorCustom     DoctorCheckKind = "custom"
)

// CheckSeverity is a doctor finding's severity.
type CheckSeverity string

const (
	SeverityError   CheckSeverity = "error"
	SeverityWarning CheckSeverity = "warning"
)

// DoctorCheckSpec is one health probe a tool spec declares.
type DoctorCheckSpec struct {
	Kind     DoctorCheckKind `yaml:"kind" json:"kind"`
	Value    string          `yaml:"value" json:"value"`
	Severity CheckSeverity   `yaml:"severity" json:"severity"`
}

// ToolSpec is the full declarative wire format for one tool adapter.
type ToolSpec struct {
	APIVersion   string             `yaml:"api_version" json:"api_version"`
	ID           string             `yaml:"id" json:"id"`
	DisplayName  string             `yaml:"display_name" json:"display_name"`
	Description  string             `yaml:"description,omitempty" json:"description,omitempty"`
	Capabilities []string           `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
	Fields       []FieldSpec        `yaml:"fields" json:"fields"`
	Doctor       []DoctorCheckSpec  `yaml:"doctor,omitempty" json:"doctor,omitempty"`
	Gitignore    []string           `yaml:"gitignore,omitempty" json:"gitignore,omitempty"`
	Performer    *ToolPerformerSpec `yaml:"performer,omitempty" json:"performer,omitempty"`
	Install      *ToolInstallSpec   `yaml:"install,omitempty" json:"install,omitempty"`
	Defaults     json.RawMessage    `yaml:"defaults,omitempty" json:"defaults,omitempty"`
}

// FromYAML parses and validates a ToolSpec document: first its shape
// against the tool-spec JSON Schema, then the hand-written rules Validate
// enforces that schema validation alone can't express.
func FromYAML(data []byte) (ToolSpec, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return ToolSpec{}, macc.ToolSpec("ToolSpec(yaml)", err)
	}
	normalized, err := normalizeForSchema(doc)
	if err != nil {
		return ToolSpec{}, macc.ToolSpec("ToolSpec(schema)", err)
	}
	if err := validateSchema(normalized); err != nil {
		return ToolSpec{}, macc.ToolSpec("ToolSpec(schema)", err)
	}

	var spec ToolSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return ToolSpec{}, macc.ToolSpec("ToolSpec(yaml)", err)
	}
	if err := spec.Validate(); err != nil {
		return ToolSpec{}, macc.ToolSpec(spec.ID, err)
	}
	return spec, nil
}

// FromJSON parses and validates a ToolSpec document: first its shape
// against the tool-spec JSON Schema, then the hand-written rules Validate
// enforces that schema validation alone can't express.
func FromJSON(data []byte) (ToolSpec, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return ToolSpec{}, macc.ToolSpec("ToolSpec(json)", err)
	}
	if err := validateSchema(doc); err != nil {
		return ToolSpec{}, macc.ToolSpec("ToolSpec(schema)", err)
	}

	var spec ToolSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return ToolSpec{}, macc.ToolSpec("ToolSpec(json)", err)
	}
	if err := spec.Validate(); err != nil {
		return ToolSpec{}, macc.ToolSpec(spec.ID, err)
	}
	return spec, nil
}

func isKebabCase(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !(c >= 'a' && c <= 'z') && !(c >= '0' && c <= '9') && c != '-' {
			return false
		}
	}
	return !strings.HasPrefix(s, "-") && !strings.HasSuffix(s, "-") && !strings.Contains(s, "--")
}

// isPointerAllowed enforces the allowed-roots whitelist a tool spec's own
// field/action pointers may target, scoped to this tool's own config
// subtree plus the shared tools.enabled/selections/standards roots.
func (s ToolSpec) isPointerAllowed(ptr string) bool {
	switch ptr {
	case "/tools/enabled", "/selections/skills", "/selections/agents", "/selections/mcp", "/standards/path":
		return true
	}
	if strings.HasPrefix(ptr, "/standards/inline/") {
		return true
	}
	configPrefix := fmt.Sprintf("/tools/config/%s/", s.ID)
	if strings.HasPrefix(ptr, configPrefix) {
		return true
	}
	return ptr == fmt.Sprintf("/tools/config/%s", s.ID)
}

// Validate enforces the invariants spec.md §4 requires of a tool spec:
// a supported api_version, a kebab-case id, pointer whitelisting for every
// field and action target, type-matched defaults, and non-empty performer
// command/runner plus mode-restricted prompt/session fields when present.
func (s ToolSpec) Validate() error {
	if s.APIVersion != "v1" {
		return fmt.Errorf("unsupported api_version: %s (supported: v1)", s.APIVersion)
	}
	if !isKebabCase(s.ID) {
		return fmt.Errorf("tool id must be kebab-case: %s", s.ID)
	}

	for _, field := range s.Fields {
		if field.Kind.Type == FieldEnum && len(field.Kind.Options) == 0 {
			return fmt.Errorf("enum field %q must have at least one option", field.ID)
		}

		if field.Pointer != "" {
			if !strings.HasPrefix(field.Pointer, "/") {
				return fmt.Errorf("pointer for field %q must start with '/': %s", field.ID, field.Pointer)
			}
			if !s.isPointerAllowed(field.Pointer) {
				return fmt.Errorf("pointer for field %q uses unauthorized root: %s", field.ID, field.Pointer)
			}
		}

		if len(field.Default) > 0 {
			if field.Pointer == "" {
				return fmt.Errorf("default value for field %q requires a pointer", field.ID)
			}
			if err := validateFieldDefault(field); err != nil {
				return err
			}
		}

		if field.Kind.Type == FieldAction {
			ptr := field.Kind.Action.TargetPointer
			if ptr != "" {
				if !strings.HasPrefix(ptr, "/") {
					return fmt.Errorf("action target pointer for field %q must start with '/': %s", field.ID, ptr)
				}
				if !s.isPointerAllowed(ptr) {
					return fmt.Errorf("action target pointer for field %q uses unauthorized root: %s", field.ID, ptr)
				}
			}
		}
	}

	if s.Performer != nil {
		if err := validatePerformer(s.ID, s.Performer); err != nil {
			return err
		}
	}

	return nil
}

func validateFieldDefault(field FieldSpec) error {
	var raw any
	if err := json.Unmarshal(field.Default, &raw); err != nil {
		return fmt.Errorf("default value for field %q is not valid JSON: %v", field.ID, err)
	}

	switch field.Kind.Type {
	case FieldBool:
		if _, ok := raw.(bool); !ok {
			return fmt.Errorf("default value for field %q must be boolean", field.ID)
		}
	case FieldText:
		if _, ok := raw.(string); !ok {
			return fmt.Errorf("default value for field %q must be a string", field.ID)
		}
	case FieldEnum:
		str, ok := raw.(string)
		if !ok {
			return fmt.Errorf("default value for field %q must be a string", field.ID)
		}
		found := false
		for _, opt := range field.Kind.Options {
			if opt == str {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("default value %q for field %q must be one of: %s", str, field.ID, strings.Join(field.Kind.Options, ", "))
		}
	case FieldNumber:
		switch raw.(type) {
		case float64:
		default:
			return fmt.Errorf("default value for field %q must be a number", field.ID)
		}
	case FieldArray:
		switch raw.(type) {
		case []any, string:
		default:
			return fmt.Errorf("default value for field %q must be an array or comma-separated string", field.ID)
		}
	case FieldAction:
		return fmt.Errorf("default value is not allowed for action field %q", field.ID)
	}
	return nil
}

func validatePerformer(toolID string, p *ToolPerformerSpec) error {
	if strings.TrimSpace(p.Command) == "" {
		return fmt.Errorf("performer command must be set for tool %q", toolID)
	}
	if strings.TrimSpace(p.Runner) == "" {
		return fmt.Errorf("performer runner must be set for tool %q", toolID)
	}
	if p.Retry != nil && strings.TrimSpace(p.Retry.Command) == "" {
		return fmt.Errorf("performer retry command must be set for tool %q", toolID)
	}
	if p.Prompt != nil {
		if p.Prompt.Mode != "stdin" && p.Prompt.Mode != "arg" {
			return fmt.Errorf("performer prompt mode must be 'stdin' or 'arg' for tool %q", toolID)
		}
		if p.Prompt.Mode == "arg" && strings.TrimSpace(p.Prompt.Arg) == "" {
			return fmt.Errorf("performer prompt arg must be set for tool %q", toolID)
		}
	}
	if p.Session != nil {
		s := p.Session
		if s.Scope != "" && s.Scope != "project" && s.Scope != "worktree" {
			return fmt.Errorf("performer session scope must be 'project' or 'worktree' for tool %q", toolID)
		}
		if s.Resume != nil && strings.TrimSpace(s.Resume.Command) == "" {
			return fmt.Errorf("performer session resume command must be set for tool %q", toolID)
		}
		if s.Discover != nil && strings.TrimSpace(s.Discover.Command) == "" {
			return fmt.Errorf("performer session discover command must be set for tool %q", toolID)
		}
		if s.IDStrategy != "" && s.IDStrategy != "generated" && s.IDStrategy != "discovered" {
			return fmt.Errorf("performer session id_strategy must be 'generated' or 'discovered' for tool %q", toolID)
		}
	}
	return nil
}
