package source

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/boshu2/macc/internal/macc"
)

// PackageManifestName is the manifest file every skill/MCP package carries.
const PackageManifestName = "macc.package.json"

// skillMarkerNames lists filenames whose presence satisfies the "at least
// one skill marker" requirement for remote skill sources.
var skillMarkerNames = []string{PackageManifestName, "SKILL.md"}

// PackageManifest is the shape of macc.package.json, used for both skill
// and MCP packages; fields irrelevant to the current kind are left zero.
type PackageManifest struct {
	Type        string          `json:"type"`
	ID          string          `json:"id"`
	Version     string          `json:"version"`
	Targets     json.RawMessage `json:"targets,omitempty"`
	Mcp         *McpManifestMcp `json:"mcp,omitempty"`
	MergeTarget string          `json:"merge_target,omitempty"`
}

// McpManifestMcp is the "mcp" block of an MCP package manifest: an opaque
// server descriptor merged verbatim into the target config at MergeTarget.
type McpManifestMcp struct {
	Server map[string]any `json:"server"`
}

// ValidateSkillFolder requires at least one skill marker file to be present
// when requireManifest is true (always true for remote sources per §4.G).
// When the marker present is macc.package.json rather than SKILL.md, its
// shape is schema-checked the same way an MCP package's manifest is.
func ValidateSkillFolder(dir string, requireManifest bool) error {
	if !requireManifest {
		return nil
	}
	if data, err := os.ReadFile(filepath.Join(dir, PackageManifestName)); err == nil {
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return macc.Validationf("skill folder %s: invalid %s: %v", dir, PackageManifestName, err)
		}
		if err := validateManifestSchema(doc); err != nil {
			return macc.Validationf("skill folder %s: %s schema: %v", dir, PackageManifestName, err)
		}
		return nil
	}
	for _, marker := range skillMarkerNames {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return nil
		}
	}
	return macc.Validationf("skill folder %s is missing a manifest or SKILL.md marker", dir)
}

// ValidateMcpFolder parses and validates macc.package.json within dir,
// requiring a non-empty dotted merge_target and a non-empty server
// description.
func ValidateMcpFolder(dir, mcpID string) (PackageManifest, error) {
	manifestPath := filepath.Join(dir, PackageManifestName)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return PackageManifest{}, macc.Validationf("mcp package %s: missing %s", mcpID, PackageManifestName)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return PackageManifest{}, macc.Validationf("mcp package %s: invalid %s: %v", mcpID, PackageManifestName, err)
	}
	if err := validateManifestSchema(doc); err != nil {
		return PackageManifest{}, macc.Validationf("mcp package %s: %s schema: %v", mcpID, PackageManifestName, err)
	}

	var manifest PackageManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return PackageManifest{}, macc.Validationf("mcp package %s: invalid %s: %v", mcpID, PackageManifestName, err)
	}

	if strings.TrimSpace(manifest.MergeTarget) == "" {
		return PackageManifest{}, macc.Validationf("mcp package %s: merge_target must not be empty", mcpID)
	}
	for _, part := range strings.Split(manifest.MergeTarget, ".") {
		if strings.TrimSpace(part) == "" {
			return PackageManifest{}, macc.Validationf("mcp package %s: invalid merge_target %q", mcpID, manifest.MergeTarget)
		}
	}

	if manifest.Mcp == nil || len(manifest.Mcp.Server) == 0 {
		return PackageManifest{}, macc.Validationf("mcp package %s: mcp.server must describe a non-empty server", mcpID)
	}

	return manifest, nil
}
