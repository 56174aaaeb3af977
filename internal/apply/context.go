package apply

import (
	"strings"

	"github.com/boshu2/macc/internal/config"
	"github.com/boshu2/macc/internal/ledger"
	"github.com/boshu2/macc/internal/toolspec"
)

// LoadProtectedContextPaths computes the set of repo-relative paths that
// must be skipped (left untouched if they already exist) on apply, per
// each enabled tool's own `context.protect`/`context.fileName` config.
// Ported from load_protected_context_paths/context_protect_enabled/
// context_file_names_from_config in core/src/lib.rs in the original Rust
// source this spec was distilled from: a tool opts in with
// `context.protect: true`, names its file(s) with `context.fileName`
// (string or array), falls back to its own spec's `.md`-suffixed
// gitignore entries, and finally to `{TOOL_ID_UPPER_SNAKE}.md` if nothing
// else applies.
func LoadProtectedContextPaths(root string, cfg config.CanonicalConfig, specs *toolspec.Registry) map[string]bool {
	protected := make(map[string]bool)

	for _, toolID := range cfg.Tools.Enabled {
		if !contextProtectEnabled(cfg.Tools, toolID) {
			continue
		}

		files := contextFileNames(cfg.Tools, toolID)
		if len(files) == 0 {
			if spec, ok := specs.Get(toolID); ok {
				for _, entry := range spec.Gitignore {
					if strings.HasSuffix(strings.ToLower(entry), ".md") {
						files = append(files, entry)
					}
				}
			}
		}
		if len(files) == 0 {
			files = append(files, strings.ToUpper(strings.ReplaceAll(toolID, "-", "_"))+".md")
		}

		for _, file := range files {
			if rel, err := ledger.NormalizeRelativePath(root, file); err == nil {
				protected[rel] = true
			}
		}
	}

	return protected
}

func contextProtectEnabled(tools config.ToolsConfig, toolID string) bool {
	v, ok := tools.Setting(toolID, "context", "protect")
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func contextFileNames(tools config.ToolsConfig, toolID string) []string {
	v, ok := tools.Setting(toolID, "context", "fileName")
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
