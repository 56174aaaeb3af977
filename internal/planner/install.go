package planner

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/boshu2/macc/internal/macc"
	"github.com/boshu2/macc/internal/plan"
	"github.com/boshu2/macc/internal/source"
)

// planSkillInstall expands the materialized skill folder at
// sourceRoot/subpath into a sorted sequence of WriteFile actions rooted at
// `.{toolID}/skills/{skillID}/`, ported from
// expand_directory_to_plan/plan_skill_install in the original source's
// core/src/plan/builders.rs. Parent directories are created by the apply
// executor as each file is written, same as the original: the plan itself
// carries no explicit Mkdir for a skill's files. Symlinks within the
// source tree are rejected, matching the original's "Symlinks are not
// supported" behavior.
func planSkillInstall(p *plan.ActionPlan, toolID, skillID, sourceRoot, subpath string) error {
	srcDir := sourceRoot
	if subpath != "" && subpath != "." {
		srcDir = filepath.Join(sourceRoot, subpath)
	}
	destRoot := filepath.ToSlash(filepath.Join("."+toolID, "skills", skillID))

	files, err := collectFilesRecursive(srcDir)
	if err != nil {
		return err
	}

	sort.Strings(files)
	for _, rel := range files {
		full := filepath.Join(srcDir, rel)
		content, err := os.ReadFile(full)
		if err != nil {
			return macc.IO("read skill file", full, err)
		}
		destPath := filepath.ToSlash(filepath.Join(destRoot, rel))
		p.Add(plan.WriteFile(destPath, content, plan.ScopeProject))
	}
	return nil
}

// collectFilesRecursive walks dir returning every regular file's
// slash-separated path relative to dir, in deterministic (pre-sort)
// order. A symlink anywhere in the tree is a hard error, since materialized
// sources are meant to be byte-for-byte copied, never symlink-aliased.
func collectFilesRecursive(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&os.ModeSymlink != 0 {
			return macc.Validationf("symlinks are not supported: %s", path)
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// planMcpInstall reads the materialized MCP package's manifest and emits a
// MergeJson action against its merge_target pointer, ported from
// plan_mcp_install in core/src/plan/builders.rs.
func planMcpInstall(p *plan.ActionPlan, mcpID, sourceRoot, subpath string) error {
	dir := sourceRoot
	if subpath != "" && subpath != "." {
		dir = filepath.Join(sourceRoot, subpath)
	}

	data, err := os.ReadFile(filepath.Join(dir, source.PackageManifestName))
	if err != nil {
		return macc.Validationf("mcp package %s: missing %s", mcpID, source.PackageManifestName)
	}
	var manifest source.PackageManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return macc.Validationf("mcp package %s: invalid manifest: %v", mcpID, err)
	}
	if manifest.Mcp == nil {
		return macc.Validationf("mcp package %s: manifest missing mcp block", mcpID)
	}

	patch, err := plan.BuildPatchFromMergeTarget(manifest.MergeTarget, manifest.Mcp.Server)
	if err != nil {
		return err
	}
	p.Add(plan.MergeJSON(".mcp.json", patch, plan.ScopeProject))
	return nil
}
