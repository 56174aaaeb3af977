package source

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/boshu2/macc/internal/atomicfile"
	"github.com/boshu2/macc/internal/catalog"
	"github.com/boshu2/macc/internal/macc"
	"github.com/boshu2/macc/internal/paths"
)

// httpTimeout bounds the archive download.
const httpTimeout = 30 * time.Second

func sha256Checksum(data []byte) string {
	return fmt.Sprintf("sha256:%x", sha256.Sum256(data))
}

func checksumsMatch(a, b string) bool {
	return strings.EqualFold(a, b)
}

// DownloadSourceRaw downloads a Kind=http source's archive into the cache,
// reusing and re-verifying a cached copy when present.
func DownloadSourceRaw(ctx context.Context, pp paths.ProjectPaths, src catalog.Source) (string, error) {
	if src.Kind != catalog.KindHTTP {
		return "", macc.Validationf("DownloadSourceRaw only supports http sources, got %q", src.Kind)
	}

	key := src.CacheKey()
	if root, ok := existingCacheRoot(pp, key); ok {
		target := filepath.Join(root, "raw", "archive.zip")
		if _, err := os.Stat(target); err == nil {
			if src.Checksum == "" {
				return target, nil
			}
			existing, err := os.ReadFile(target)
			if err != nil {
				return "", macc.IO("read cached archive", target, err)
			}
			if checksumsMatch(sha256Checksum(existing), src.Checksum) {
				return target, nil
			}
			log.Info().Str("url", src.URL).Msg("cached archive checksum mismatch, re-downloading")
			_ = os.Remove(target)
		}
	}

	cacheRoot, err := chooseWritableCacheRoot(pp, key)
	if err != nil {
		return "", err
	}
	rawDir := filepath.Join(cacheRoot, "raw")
	targetPath := filepath.Join(rawDir, "archive.zip")
	if err := os.MkdirAll(rawDir, 0o755); err != nil {
		return "", macc.IO("create raw cache directory", rawDir, err)
	}

	log.Info().Str("url", src.URL).Msg("fetching source")

	downloadCtx, cancel := context.WithTimeout(ctx, httpTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(downloadCtx, http.MethodGet, src.URL, nil)
	if err != nil {
		return "", macc.Validationf("failed to build request for %s: %v", src.URL, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", macc.Validationf("failed to fetch %s: %v", src.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", macc.Validationf("failed to fetch %s: status %d", src.URL, resp.StatusCode)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return "", macc.Validationf("failed to read response bytes from %s: %v", src.URL, err)
	}
	data := buf.Bytes()

	if src.Checksum != "" {
		actual := sha256Checksum(data)
		if !checksumsMatch(actual, src.Checksum) {
			return "", macc.Validationf("checksum mismatch for %s: expected %s, got %s", src.URL, src.Checksum, actual)
		}
	}

	if err := atomicfile.Write(targetPath, data, 0o644); err != nil {
		return "", err
	}

	return targetPath, nil
}

// DownloadAndUnpack downloads (if needed) and extracts a Kind=http source,
// returning the path to its unpacked directory. A pre-existing unpacked/
// directory is assumed valid and reused.
func DownloadAndUnpack(ctx context.Context, pp paths.ProjectPaths, src catalog.Source) (string, error) {
	archivePath, err := DownloadSourceRaw(ctx, pp, src)
	if err != nil {
		return "", err
	}
	cacheRoot, err := cacheRootFromArchivePath(archivePath)
	if err != nil {
		return "", err
	}
	unpackDir := filepath.Join(cacheRoot, "unpacked")

	if _, err := os.Stat(unpackDir); err == nil {
		return unpackDir, nil
	}

	tmpUnpack := filepath.Join(cacheRoot, fmt.Sprintf("unpacked-%d", time.Now().UnixNano()))
	_ = os.RemoveAll(tmpUnpack)

	if err := unpackArchive(archivePath, tmpUnpack); err != nil {
		_ = os.RemoveAll(tmpUnpack)
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(unpackDir), 0o755); err != nil {
		return "", macc.IO("create unpack parent directory", filepath.Dir(unpackDir), err)
	}
	if err := os.Rename(tmpUnpack, unpackDir); err != nil {
		return "", macc.IO("finalize unpack directory", unpackDir, err)
	}

	return unpackDir, nil
}
