// Package embedded holds compiled-in defaults used as the bottom layer of
// every layered resource the core exposes: the embedded catalog layer
// (§4.E) and the generated ralph automation script template (§4.H).
//
// Mirrors the teacher's own embedded/embed.go, which ships fallback hooks
// and skill files via //go:embed for environments where a full checkout is
// unavailable; here the embedded content is the catalog/script defaults
// this domain actually needs.
package embedded

import _ "embed"

// SkillsCatalogJSON is the compiled-in default skills catalog layer.
//
//go:embed catalog/skills.catalog.json
var SkillsCatalogJSON []byte

// McpCatalogJSON is the compiled-in default MCP catalog layer.
//
//go:embed catalog/mcp.catalog.json
var McpCatalogJSON []byte

// RalphScript is the template written to scripts/ralph.sh when
// automation.ralph.enabled is set.
//
//go:embed scripts/ralph.sh
var RalphScript []byte
