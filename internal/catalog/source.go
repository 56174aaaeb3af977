// Package catalog models fetchable sources (git / http / local), skill and
// MCP catalog entries, and the three-layer (embedded/user/project) merge
// that produces the effective catalog consulted by the resolver.
//
// Grounded on core/src/catalog.rs in the original Rust source this spec was
// distilled from, reworked into Go's json-tag/struct idiom the way the
// teacher structures its wire types (internal/types/types.go).
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Kind discriminates the three source variants.
type Kind string

const (
	KindGit   Kind = "git"
	KindHTTP  Kind = "http"
	KindLocal Kind = "local"
)

// Source is a tagged record identifying one fetchable origin.
type Source struct {
	Kind      Kind     `json:"kind"`
	URL       string   `json:"url"`
	Reference string   `json:"reference,omitempty"`
	Checksum  string   `json:"checksum,omitempty"`
	Subpaths  []string `json:"subpaths,omitempty"`
}

// CacheKey is SHA-256("<kind>|<url>|<reference>|<checksum-or-empty>") hex
// encoded. Subpaths are deliberately excluded so that multiple selections
// from one repo share one cache directory; comparison is case-insensitive
// on checksum per spec §4.D.
func (s Source) CacheKey() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s", s.Kind, s.URL, s.Reference, strings.ToLower(s.Checksum))
	return hex.EncodeToString(h.Sum(nil))
}

// WithoutSubpaths returns a copy of s with Subpaths cleared, used to group
// selections sharing one underlying clone/download.
func (s Source) WithoutSubpaths() Source {
	s.Subpaths = nil
	return s
}

// EntryKind distinguishes catalog entry kinds.
type EntryKind string

const (
	EntrySkill EntryKind = "skill"
	EntryMCP   EntryKind = "mcp"
)

// Selector names the subpath within a materialized source an entry resolves
// to.
type Selector struct {
	Subpath string `json:"subpath,omitempty"`
}

// SkillEntry is one skill catalog entry.
type SkillEntry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Selector    Selector `json:"selector"`
	Source      Source   `json:"source"`
}

// McpEntry is one MCP catalog entry.
type McpEntry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Selector    Selector `json:"selector"`
	Source      Source   `json:"source"`
}

// UnmarshalJSON rejects unknown fields, mirroring the original source's
// `deny_unknown_fields` on every catalog-adjacent struct.
func (e *SkillEntry) UnmarshalJSON(data []byte) error {
	type alias SkillEntry
	return unmarshalStrict(data, (*alias)(e))
}

// UnmarshalJSON rejects unknown fields.
func (e *McpEntry) UnmarshalJSON(data []byte) error {
	type alias McpEntry
	return unmarshalStrict(data, (*alias)(e))
}

func unmarshalStrict(data []byte, v any) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// SkillsCatalog is {schema_version, type, updated_at, entries[]} for skills.
type SkillsCatalog struct {
	SchemaVersion string       `json:"schema_version"`
	Type          string       `json:"type"`
	UpdatedAt     string       `json:"updated_at,omitempty"`
	Entries       []SkillEntry `json:"entries"`
}

// McpCatalog is {schema_version, type, updated_at, entries[]} for MCP.
type McpCatalog struct {
	SchemaVersion string     `json:"schema_version"`
	Type          string     `json:"type"`
	UpdatedAt     string     `json:"updated_at,omitempty"`
	Entries       []McpEntry `json:"entries"`
}

// DefaultSkillsCatalog returns an empty, schema_version "1.0" catalog.
func DefaultSkillsCatalog() SkillsCatalog {
	return SkillsCatalog{SchemaVersion: "1.0", Type: "skills"}
}

// DefaultMcpCatalog returns an empty, schema_version "1.0" catalog.
func DefaultMcpCatalog() McpCatalog {
	return McpCatalog{SchemaVersion: "1.0", Type: "mcp"}
}

// MergeSkillLayers merges layers in order (later overwrites earlier) by
// entry id; duplicate ids within one layer are tolerated, last-in-list
// wins. The returned catalog's schema_version/type/updated_at come wholesale
// from the last non-empty overriding layer, never merged field-by-field.
func MergeSkillLayers(layers ...SkillsCatalog) SkillsCatalog {
	merged := make(map[string]SkillEntry)
	order := make([]string, 0)
	result := DefaultSkillsCatalog()

	for _, layer := range layers {
		if layer.SchemaVersion != "" || layer.Type != "" || layer.UpdatedAt != "" {
			result.SchemaVersion = layer.SchemaVersion
			result.Type = layer.Type
			result.UpdatedAt = layer.UpdatedAt
		}
		for _, e := range layer.Entries {
			if _, exists := merged[e.ID]; !exists {
				order = append(order, e.ID)
			}
			merged[e.ID] = e
		}
	}

	sort.Strings(order)
	result.Entries = make([]SkillEntry, 0, len(order))
	for _, id := range order {
		result.Entries = append(result.Entries, merged[id])
	}
	return result
}

// MergeMcpLayers is MergeSkillLayers's MCP counterpart.
func MergeMcpLayers(layers ...McpCatalog) McpCatalog {
	merged := make(map[string]McpEntry)
	order := make([]string, 0)
	result := DefaultMcpCatalog()

	for _, layer := range layers {
		if layer.SchemaVersion != "" || layer.Type != "" || layer.UpdatedAt != "" {
			result.SchemaVersion = layer.SchemaVersion
			result.Type = layer.Type
			result.UpdatedAt = layer.UpdatedAt
		}
		for _, e := range layer.Entries {
			if _, exists := merged[e.ID]; !exists {
				order = append(order, e.ID)
			}
			merged[e.ID] = e
		}
	}

	sort.Strings(order)
	result.Entries = make([]McpEntry, 0, len(order))
	for _, id := range order {
		result.Entries = append(result.Entries, merged[id])
	}
	return result
}
