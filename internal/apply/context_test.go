package apply

import (
	"testing"

	"github.com/boshu2/macc/internal/config"
)

func TestContextProtectEnabledFallsBackToFlattenedSettings(t *testing.T) {
	var tools config.ToolsConfig
	tools.Settings = map[string]any{
		"context": map[string]any{"protect": true, "fileName": "AGENTS.md"},
	}

	if !contextProtectEnabled(tools, "claude") {
		t.Fatal("expected context.protect to fall back to the flattened settings catch-all")
	}
	if got := contextFileNames(tools, "claude"); len(got) != 1 || got[0] != "AGENTS.md" {
		t.Fatalf("contextFileNames fallback = %v", got)
	}
}

func TestContextProtectEnabledPerToolConfigWinsOverSettings(t *testing.T) {
	var tools config.ToolsConfig
	tools.Settings = map[string]any{
		"context": map[string]any{"protect": true, "fileName": "GLOBAL.md"},
	}
	tools.Config = map[string]map[string]any{
		"claude": {
			"context": map[string]any{"protect": false, "fileName": "CLAUDE.md"},
		},
	}

	if contextProtectEnabled(tools, "claude") {
		t.Fatal("expected per-tool config to win over the settings fallback")
	}
	if got := contextFileNames(tools, "claude"); len(got) != 1 || got[0] != "CLAUDE.md" {
		t.Fatalf("contextFileNames = %v", got)
	}
}
