package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/boshu2/macc/embedded"
	"github.com/boshu2/macc/internal/atomicfile"
	"github.com/boshu2/macc/internal/macc"
)

// skillMarkers lists filenames whose presence in a directory identifies it
// as a skill folder, per the original source's packages::SKILL_MARKERS.
var skillMarkers = []string{"macc.package.json", "SKILL.md"}

// LoadSkillsLayer reads one skills catalog layer from path, returning an
// empty catalog (not an error) if the file does not exist — a missing
// optional layer is not a failure.
func LoadSkillsLayer(path string) (SkillsCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSkillsCatalog(), nil
		}
		return SkillsCatalog{}, macc.IO("read", path, err)
	}
	var c SkillsCatalog
	if err := json.Unmarshal(data, &c); err != nil {
		return SkillsCatalog{}, macc.IO("parse", path, err)
	}
	return c, nil
}

// LoadMcpLayer is LoadSkillsLayer's MCP counterpart.
func LoadMcpLayer(path string) (McpCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultMcpCatalog(), nil
		}
		return McpCatalog{}, macc.IO("read", path, err)
	}
	var c McpCatalog
	if err := json.Unmarshal(data, &c); err != nil {
		return McpCatalog{}, macc.IO("parse", path, err)
	}
	return c, nil
}

// EmbeddedSkillsCatalog parses the compiled-in default skills catalog.
func EmbeddedSkillsCatalog() (SkillsCatalog, error) {
	var c SkillsCatalog
	if err := json.Unmarshal(embedded.SkillsCatalogJSON, &c); err != nil {
		return SkillsCatalog{}, err
	}
	return c, nil
}

// EmbeddedMcpCatalog parses the compiled-in default MCP catalog.
func EmbeddedMcpCatalog() (McpCatalog, error) {
	var c McpCatalog
	if err := json.Unmarshal(embedded.McpCatalogJSON, &c); err != nil {
		return McpCatalog{}, err
	}
	return c, nil
}

// LoadEffectiveSkillsCatalog merges embedded → userCatalogDir → projectCatalogDir,
// per spec §4.E.
func LoadEffectiveSkillsCatalog(userCatalogDir, projectCatalogDir string) (SkillsCatalog, error) {
	embeddedLayer, err := EmbeddedSkillsCatalog()
	if err != nil {
		return SkillsCatalog{}, err
	}
	userLayer, err := LoadSkillsLayer(filepath.Join(userCatalogDir, "skills.catalog.json"))
	if err != nil {
		return SkillsCatalog{}, err
	}
	projectLayer, err := LoadSkillsLayer(filepath.Join(projectCatalogDir, "skills.catalog.json"))
	if err != nil {
		return SkillsCatalog{}, err
	}
	return MergeSkillLayers(embeddedLayer, userLayer, projectLayer), nil
}

// LoadEffectiveMcpCatalog is LoadEffectiveSkillsCatalog's MCP counterpart.
func LoadEffectiveMcpCatalog(userCatalogDir, projectCatalogDir string) (McpCatalog, error) {
	embeddedLayer, err := EmbeddedMcpCatalog()
	if err != nil {
		return McpCatalog{}, err
	}
	userLayer, err := LoadMcpLayer(filepath.Join(userCatalogDir, "mcp.catalog.json"))
	if err != nil {
		return McpCatalog{}, err
	}
	projectLayer, err := LoadMcpLayer(filepath.Join(projectCatalogDir, "mcp.catalog.json"))
	if err != nil {
		return McpCatalog{}, err
	}
	return MergeMcpLayers(embeddedLayer, userLayer, projectLayer), nil
}

// SaveAtomically writes a skills catalog to path using atomicfile.Write.
func SaveSkillsCatalog(path string, c SkillsCatalog) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return atomicfile.Write(path, append(data, '\n'), 0o644)
}

// SaveMcpCatalog writes an MCP catalog to path using atomicfile.Write.
func SaveMcpCatalog(path string, c McpCatalog) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return atomicfile.Write(path, append(data, '\n'), 0o644)
}

// hasSkillMarker reports whether dir contains any file named in skillMarkers.
func hasSkillMarker(dir string) bool {
	for _, marker := range skillMarkers {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

// DiscoverLocalSkillEntries scans <macc>/skills/<id>/ directories for a
// skill marker and synthesizes a SkillEntry for each, sourced locally
// (Kind=local, URL=absolute directory path). Supplements the layered
// catalog with skills the user dropped directly on disk without
// registering them anywhere (ported from
// load_skills_catalog_with_local/discover_local_skill_entries in the
// original source).
func DiscoverLocalSkillEntries(skillsDir string) ([]SkillEntry, error) {
	entries, err := os.ReadDir(skillsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, macc.IO("read", skillsDir, err)
	}

	var found []SkillEntry
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(skillsDir, e.Name())
		if !hasSkillMarker(dir) {
			continue
		}
		found = append(found, SkillEntry{
			ID:   e.Name(),
			Name: e.Name(),
			Source: Source{
				Kind: KindLocal,
				URL:  dir,
			},
		})
	}
	return found, nil
}

// LoadSkillsCatalogWithLocal merges the layered catalog with
// locally-discovered skill folders; catalog-declared entries win over a
// local duplicate with the same id, and the combined list is sorted by id.
func LoadSkillsCatalogWithLocal(userCatalogDir, projectCatalogDir, skillsDir string) (SkillsCatalog, error) {
	layered, err := LoadEffectiveSkillsCatalog(userCatalogDir, projectCatalogDir)
	if err != nil {
		return SkillsCatalog{}, err
	}
	local, err := DiscoverLocalSkillEntries(skillsDir)
	if err != nil {
		return SkillsCatalog{}, err
	}

	byID := make(map[string]SkillEntry, len(layered.Entries)+len(local))
	for _, e := range layered.Entries {
		byID[e.ID] = e
	}
	for _, e := range local {
		if _, exists := byID[e.ID]; !exists {
			byID[e.ID] = e
		}
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := layered
	result.Entries = make([]SkillEntry, 0, len(ids))
	for _, id := range ids {
		result.Entries = append(result.Entries, byID[id])
	}
	return result, nil
}

// BuiltinSkill is display metadata for a well-known skill id, used to seed
// `catalog list` output when no catalog layer defines the id yet.
type BuiltinSkill struct {
	ID          string
	Name        string
	Description string
}

// BuiltinSkills returns the hardcoded skill display metadata ported from
// the original source's builtin_skills().
func BuiltinSkills() []BuiltinSkill {
	return []BuiltinSkill{
		{ID: "create-plan", Name: "Create Plan", Description: "Draft an implementation plan before writing code."},
		{ID: "implement", Name: "Implement", Description: "Execute an approved plan against the repository."},
		{ID: "security-check", Name: "Security Check", Description: "Review a change for common security pitfalls."},
	}
}

// SeedBuiltinSkills appends a display-only SkillEntry for every BuiltinSkills
// id not already present in cat, per §12's "seed catalog list output when no
// catalog layer defines them yet." Catalog-declared entries always win on id
// collision; seeded rows carry no Source and so cannot be resolved or
// installed, only listed/searched.
func SeedBuiltinSkills(cat SkillsCatalog) SkillsCatalog {
	have := make(map[string]bool, len(cat.Entries))
	for _, e := range cat.Entries {
		have[e.ID] = true
	}
	result := cat
	result.Entries = append([]SkillEntry(nil), cat.Entries...)
	for _, b := range BuiltinSkills() {
		if have[b.ID] {
			continue
		}
		result.Entries = append(result.Entries, SkillEntry{ID: b.ID, Name: b.Name, Description: b.Description})
	}
	return result
}

// BuiltinAgent is display metadata for a well-known agent id.
type BuiltinAgent struct {
	ID          string
	Name        string
	Description string
}

// BuiltinAgents returns the hardcoded agent display metadata ported from
// the original source's builtin_agents().
func BuiltinAgents() []BuiltinAgent {
	return []BuiltinAgent{
		{ID: "architect", Name: "Architect", Description: "Designs system structure and component boundaries."},
		{ID: "reviewer", Name: "Reviewer", Description: "Reviews changes for correctness and style."},
		{ID: "prompt-engineer", Name: "Prompt Engineer", Description: "Refines prompts and instructions for other agents."},
		{ID: "nextjs-developer", Name: "Next.js Developer", Description: "Implements Next.js frontend features."},
	}
}

// validChecksumPrefix is the required prefix for a Source.Checksum field.
const validChecksumPrefix = "sha256:"

// ValidChecksum reports whether checksum is empty (unset) or well-formed:
// "sha256:" followed by exactly 64 hex characters, compared
// case-insensitively per spec §4.D.
func ValidChecksum(checksum string) bool {
	if checksum == "" {
		return true
	}
	lower := strings.ToLower(checksum)
	if !strings.HasPrefix(lower, validChecksumPrefix) {
		return false
	}
	hex := strings.TrimPrefix(lower, validChecksumPrefix)
	if len(hex) != 64 {
		return false
	}
	for _, c := range hex {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}
