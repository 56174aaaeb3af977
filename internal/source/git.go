package source

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/boshu2/macc/internal/catalog"
	"github.com/boshu2/macc/internal/macc"
	"github.com/boshu2/macc/internal/paths"
)

// gitTimeout bounds every individual git subprocess invocation.
const gitTimeout = 2 * time.Minute

// GitFetch materializes a Kind=git source into the cache, cloning on first
// use and fetching thereafter, then resolving and checking out Reference.
func GitFetch(ctx context.Context, pp paths.ProjectPaths, src catalog.Source) (string, error) {
	if src.Kind != catalog.KindGit {
		return "", macc.Validationf("GitFetch only supports git sources, got %q", src.Kind)
	}

	key := src.CacheKey()
	cacheRoot, existing := existingCacheRoot(pp, key)
	if !existing {
		root, err := chooseWritableCacheRoot(pp, key)
		if err != nil {
			return "", err
		}
		cacheRoot = root
	}
	repoDir := filepath.Join(cacheRoot, "repo")

	if _, err := os.Stat(repoDir); err != nil {
		log.Info().Str("url", src.URL).Str("dir", repoDir).Msg("cloning source")
		args := []string{"clone", "--no-checkout"}
		if len(src.Subpaths) > 0 {
			args = append(args, "--filter=blob:none")
		}
		args = append(args, src.URL, "repo")
		if err := runGit(ctx, cacheRoot, args...); err != nil {
			return "", err
		}
	} else {
		log.Info().Str("url", src.URL).Str("dir", repoDir).Msg("fetching source")
		if err := runGit(ctx, repoDir, "fetch", "--all", "--tags"); err != nil {
			return "", err
		}
	}

	if len(src.Subpaths) > 0 {
		if err := enableSparseCheckout(ctx, repoDir); err != nil {
			return "", err
		}
		if err := setSparsePaths(ctx, repoDir, src.Subpaths); err != nil {
			return "", err
		}
	}

	switch {
	case src.Reference != "":
		sha, err := resolveRefToSHA(ctx, repoDir, src.Reference)
		if err != nil {
			return "", err
		}
		if err := checkoutRef(ctx, repoDir, sha); err != nil {
			return "", err
		}
	case len(src.Subpaths) > 0:
		if err := checkoutRef(ctx, repoDir, "HEAD"); err != nil {
			return "", err
		}
	}

	for _, subpath := range src.Subpaths {
		p := filepath.Join(repoDir, subpath)
		if _, err := os.Stat(p); err != nil {
			return "", macc.Validationf("subpath %q not found in repository after checkout", subpath)
		}
	}

	return repoDir, nil
}

func runGit(ctx context.Context, dir string, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return macc.Validationf("git %s timed out in %s", strings.Join(args, " "), dir)
	}
	if err != nil {
		return macc.Validationf("git %s failed: %s", strings.Join(args, " "), strings.TrimSpace(string(out)))
	}
	return nil
}

func enableSparseCheckout(ctx context.Context, repoDir string) error {
	return runGit(ctx, repoDir, "sparse-checkout", "init", "--cone")
}

func setSparsePaths(ctx context.Context, repoDir string, subpaths []string) error {
	args := append([]string{"sparse-checkout", "set"}, subpaths...)
	return runGit(ctx, repoDir, args...)
}

// resolveRefToSHA tries, in order, refs/remotes/origin/<ref>, refs/tags/<ref>,
// then the bare ref, each suffixed with ^{commit}. First resolving candidate
// wins.
func resolveRefToSHA(ctx context.Context, repoDir, reference string) (string, error) {
	candidates := []string{
		"refs/remotes/origin/" + reference,
		"refs/tags/" + reference,
		reference,
	}

	for _, candidate := range candidates {
		runCtx, cancel := context.WithTimeout(ctx, gitTimeout)
		cmd := exec.CommandContext(runCtx, "git", "rev-parse", fmt.Sprintf("%s^{commit}", candidate))
		cmd.Dir = repoDir
		out, err := cmd.Output()
		cancel()
		if err == nil {
			sha := strings.TrimSpace(string(out))
			if sha != "" {
				return sha, nil
			}
		}
	}

	return "", macc.Validationf("git rev-parse %s failed", reference)
}

func checkoutRef(ctx context.Context, repoDir, reference string) error {
	return runGit(ctx, repoDir, "checkout", "--force", reference)
}
