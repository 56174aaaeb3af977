// Package source materializes catalog Source values (git, HTTP, or local)
// into the on-disk cache, per §4.G of the specification.
//
// Grounded directly on adapters/shared/src/fetch.rs in the original Rust
// source: the two-tier cache-root selection, git clone/fetch/sparse-
// checkout/ref-resolution chain, HTTP download-with-checksum-reverify, and
// Zip-Slip-safe archive extraction are all ported from that file into
// idiomatic Go (context-scoped exec.Command calls, wrapped *macc.Error
// values in place of MaccError, the teacher's verbose-flag-gated log style
// via zerolog instead of Rust's println!).
package source

import (
	"os"
	"path/filepath"

	"github.com/boshu2/macc/internal/catalog"
	"github.com/boshu2/macc/internal/macc"
	"github.com/boshu2/macc/internal/paths"
)

// cacheCandidates returns, in lookup order, every cache root that might
// already hold the entry for key: project first, then user.
func cacheCandidates(pp paths.ProjectPaths, key string) []string {
	candidates := []string{pp.CacheEntryDir(key)}
	if userEntry, err := paths.UserCacheEntryDir(key); err == nil {
		candidates = append(candidates, userEntry)
	}
	return candidates
}

func existingCacheRoot(pp paths.ProjectPaths, key string) (string, bool) {
	for _, root := range cacheCandidates(pp, key) {
		if info, err := os.Stat(root); err == nil && info.IsDir() {
			return root, true
		}
	}
	return "", false
}

// chooseWritableCacheRoot prefers the user-scope cache (for cross-project
// sharing) and falls back to the project cache on permission failure.
func chooseWritableCacheRoot(pp paths.ProjectPaths, key string) (string, error) {
	if userRoot, err := paths.UserCacheEntryDir(key); err == nil {
		if err := os.MkdirAll(userRoot, 0o755); err == nil {
			return userRoot, nil
		}
	}

	projectRoot := pp.CacheEntryDir(key)
	if err := os.MkdirAll(projectRoot, 0o755); err != nil {
		return "", macc.IO("create project cache directory", projectRoot, err)
	}
	return projectRoot, nil
}

func cacheRootFromArchivePath(archivePath string) (string, error) {
	rawDir := filepath.Dir(archivePath)
	cacheRoot := filepath.Dir(rawDir)
	if cacheRoot == "." || cacheRoot == rawDir {
		return "", macc.Validationf("invalid archive path layout (missing cache root): %s", archivePath)
	}
	return cacheRoot, nil
}

// MaterializeLocal resolves a Kind=local source relative to the project
// root (or as an absolute path) and verifies it exists.
func MaterializeLocal(pp paths.ProjectPaths, src catalog.Source) (string, error) {
	p := src.URL
	if !filepath.IsAbs(p) {
		p = filepath.Join(pp.Root, p)
	}
	if _, err := os.Stat(p); err != nil {
		return "", macc.Validationf("local source path not found: %s", p)
	}
	return p, nil
}
