// Package paths computes the canonical on-disk layout for a project rooted
// at a discovered directory. Every well-known location is a pure function of
// the root; nothing here probes the filesystem except FindProjectRoot, whose
// entire job is to locate that root.
package paths

import (
	"os"
	"path/filepath"

	"github.com/boshu2/macc/internal/macc"
)

// StateDirName is the internal state directory at the project root.
const StateDirName = ".macc"

// ConfigFileName is the canonical config file within StateDirName.
const ConfigFileName = "macc.yaml"

// ProjectPaths is an immutable record of every well-known path derived from
// a project root. Construction never touches disk; only FindProjectRoot
// does, and only to locate the root in the first place.
type ProjectPaths struct {
	Root string // repository root, absolute

	maccDir string
}

// FindProjectRoot ascends from start until it finds a directory containing
// .macc/macc.yaml, returning the canonicalized ProjectPaths. It fails with
// ProjectRootNotFound carrying the starting directory if none is found.
//
// Grounded on the teacher's walk-up-to-marker-directory idiom (originally
// pkg/vault.DetectVault, which ascends looking for .obsidian).
func FindProjectRoot(start string) (ProjectPaths, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return ProjectPaths{}, macc.IO("resolve", start, err)
	}
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		dir = resolved
	}

	for {
		candidate := filepath.Join(dir, StateDirName, ConfigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return FromRoot(dir), nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ProjectPaths{}, macc.ProjectRootNotFound(start)
		}
		dir = parent
	}
}

// FromRoot builds ProjectPaths for an already-known root, without touching
// disk. Used by `init`, where the .macc/macc.yaml does not exist yet.
func FromRoot(root string) ProjectPaths {
	return ProjectPaths{Root: root, maccDir: filepath.Join(root, StateDirName)}
}

// MaccDir is the internal state directory, <root>/.macc.
func (p ProjectPaths) MaccDir() string { return p.maccDir }

// ConfigFile is <root>/.macc/macc.yaml.
func (p ProjectPaths) ConfigFile() string { return filepath.Join(p.maccDir, ConfigFileName) }

// StateDir is <root>/.macc/state.
func (p ProjectPaths) StateDir() string { return filepath.Join(p.maccDir, "state") }

// ManagedPathsFile is <root>/.macc/state/managed_paths.json.
func (p ProjectPaths) ManagedPathsFile() string {
	return filepath.Join(p.StateDir(), "managed_paths.json")
}

// ToolSessionsFile is <root>/.macc/state/tool-sessions.json.
func (p ProjectPaths) ToolSessionsFile() string {
	return filepath.Join(p.StateDir(), "tool-sessions.json")
}

// CatalogDir is <root>/.macc/catalog (project-scope catalog layer).
func (p ProjectPaths) CatalogDir() string { return filepath.Join(p.maccDir, "catalog") }

// SkillsCatalogFile is the project-scope skills catalog JSON.
func (p ProjectPaths) SkillsCatalogFile() string {
	return filepath.Join(p.CatalogDir(), "skills.catalog.json")
}

// MCPCatalogFile is the project-scope MCP catalog JSON.
func (p ProjectPaths) MCPCatalogFile() string {
	return filepath.Join(p.CatalogDir(), "mcp.catalog.json")
}

// SkillsDir is <root>/.macc/skills, where locally-dropped skill folders
// (not registered in any catalog layer) are discovered from.
func (p ProjectPaths) SkillsDir() string { return filepath.Join(p.maccDir, "skills") }

// CacheDir is <root>/.macc/cache, the project-scope source cache root.
func (p ProjectPaths) CacheDir() string { return filepath.Join(p.maccDir, "cache") }

// CacheEntryDir is the cache directory for one content-addressed key.
func (p ProjectPaths) CacheEntryDir(key string) string { return filepath.Join(p.CacheDir(), key) }

// BackupsDir is <root>/.macc/backups.
func (p ProjectPaths) BackupsDir() string { return filepath.Join(p.maccDir, "backups") }

// BackupRunDir is the backup directory for one timestamped apply run.
func (p ProjectPaths) BackupRunDir(timestamp string) string {
	return filepath.Join(p.BackupsDir(), timestamp)
}

// WorktreeDir is <root>/.macc/worktree, the parent of all managed worktrees.
func (p ProjectPaths) WorktreeDir() string { return filepath.Join(p.maccDir, "worktree") }

// WorktreePath is the directory for one named worktree.
func (p ProjectPaths) WorktreePath(name string) string {
	return filepath.Join(p.WorktreeDir(), name)
}

// AutomationDir is <root>/.macc/automation.
func (p ProjectPaths) AutomationDir() string { return filepath.Join(p.maccDir, "automation") }

// CoordinatorScript is the coordinator automation entry point.
func (p ProjectPaths) CoordinatorScript() string {
	return filepath.Join(p.AutomationDir(), "coordinator.sh")
}

// PerformerScript is the performer automation entry point.
func (p ProjectPaths) PerformerScript() string {
	return filepath.Join(p.AutomationDir(), "performer.sh")
}

// RunnerScript is the per-tool performer runner script.
func (p ProjectPaths) RunnerScript(toolID string) string {
	return filepath.Join(p.AutomationDir(), "runners", toolID+".performer.sh")
}

// LogDir is <root>/.macc/log/<kind> for kind in {coordinator, performer}.
func (p ProjectPaths) LogDir(kind string) string { return filepath.Join(p.maccDir, "log", kind) }

// TmpDir is <root>/.macc/tmp, scratch space for staged extraction etc.
func (p ProjectPaths) TmpDir() string { return filepath.Join(p.maccDir, "tmp") }

// UserHomeDir resolves the invoking user's home directory, distinctly
// erroring with HomeDirNotFound (rather than a generic I/O error) since
// every user-scope path depends on it.
func UserHomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", macc.HomeDirNotFound()
	}
	return home, nil
}

// UserMaccDir is <home>/.macc, the root of every user-scope location.
func UserMaccDir() (string, error) {
	home, err := UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, StateDirName), nil
}

// UserCacheDir is <home>/.macc/cache, the user-scope source cache root.
func UserCacheDir() (string, error) {
	dir, err := UserMaccDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cache"), nil
}

// UserCacheEntryDir is the user-scope cache directory for one content
// addressed key.
func UserCacheEntryDir(key string) (string, error) {
	dir, err := UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, key), nil
}

// UserCatalogDir is <home>/.macc/catalog, the user-scope catalog layer.
//
// The reference Rust implementation this spec was distilled from collapses
// this onto the same path as the project-scope catalog directory (both
// resolve to macc_dir.join("catalog")); spec.md §4.E is explicit that these
// are three genuinely distinct layers (embedded/user/project), so this Go
// port implements a real, separate user-home directory here, the same way
// UserCacheDir already derives a home-based cache root distinct from
// ProjectPaths.CacheDir. See DESIGN.md's Open-question decisions.
func UserCatalogDir() (string, error) {
	dir, err := UserMaccDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "catalog"), nil
}

// UserBackupsDir is <home>/.macc/backups, the user-scope backup root.
func UserBackupsDir() (string, error) {
	dir, err := UserMaccDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "backups"), nil
}
