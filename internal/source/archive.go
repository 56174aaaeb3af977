package source

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/boshu2/macc/internal/macc"
)

// dangerousModeBits is the setuid/setgid/sticky mask; entries carrying any
// of these bits are rejected outright rather than masked.
const dangerousModeBits = 0o7000

// safeModeMask strips everything except standard permission bits.
const safeModeMask = 0o777

// unpackArchive extracts the zip at archivePath into targetDir, enforcing
// three defenses per §4.G: Zip-Slip (canonicalized-path containment),
// symlink rejection, and dangerous-mode-bit rejection.
func unpackArchive(archivePath, targetDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return macc.Validationf("failed to read zip archive %s: %v", archivePath, err)
	}
	defer r.Close()

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return macc.IO("create target unpack directory", targetDir, err)
	}
	targetCanonical, err := filepath.EvalSymlinks(targetDir)
	if err != nil {
		return macc.IO("canonicalize target unpack directory", targetDir, err)
	}

	for _, f := range r.File {
		name, err := enclosedName(f.Name)
		if err != nil {
			return macc.Validationf("invalid or malicious entry name in zip: %s", f.Name)
		}
		outPath := filepath.Join(targetCanonical, name)

		if f.Mode()&os.ModeSymlink != 0 {
			return macc.Validationf("symlinks are not supported in zip archives: %s", f.Name)
		}

		rel, err := filepath.Rel(targetCanonical, outPath)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
			return macc.Validationf("zip-slip detected: entry %s attempts to write outside target directory", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(outPath, 0o755); err != nil {
				return macc.IO("create directory from zip", outPath, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return macc.IO("create parent directory from zip", filepath.Dir(outPath), err)
		}

		if err := extractZipEntry(f, outPath); err != nil {
			return err
		}

		mode := uint32(f.Mode().Perm())
		if f.ExternalAttrs != 0 {
			unixMode := f.ExternalAttrs >> 16
			if unixMode&dangerousModeBits != 0 {
				return macc.Validationf("refusing to apply dangerous permission bits for %s", f.Name)
			}
			if unixMode != 0 {
				mode = unixMode & safeModeMask
			}
		}
		_ = os.Chmod(outPath, os.FileMode(mode))
	}

	return nil
}

// enclosedName rejects absolute paths and paths that, once cleaned,
// traverse above the archive root — the Go stdlib equivalent of the Rust
// zip crate's enclosed_name().
func enclosedName(name string) (string, error) {
	clean := filepath.Clean(name)
	if filepath.IsAbs(clean) {
		return "", macc.Validationf("absolute path in zip entry: %s", name)
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(os.PathSeparator)) {
		return "", macc.Validationf("path traversal in zip entry: %s", name)
	}
	return clean, nil
}

func extractZipEntry(f *zip.File, outPath string) error {
	rc, err := f.Open()
	if err != nil {
		return macc.Validationf("failed to read zip entry %s: %v", f.Name, err)
	}
	defer rc.Close()

	outFile, err := os.Create(outPath)
	if err != nil {
		return macc.IO("create file from zip", outPath, err)
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, rc); err != nil {
		return macc.IO("extract file from zip", outPath, err)
	}
	return nil
}
