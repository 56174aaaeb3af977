// Package atomicfile implements write-temp-then-rename semantics and the
// "write if changed" idempotence policy every apply path in this repo
// relies on.
//
// Grounded on the original Rust source's atomic_write/write_if_changed
// (core/src/lib.rs) and the teacher's same-directory-staging idiom in
// internal/storage/file.go (atomicWrite) and internal/pool/pool.go
// (atomicMove): temp file lives beside the target so the final rename stays
// on one filesystem.
package atomicfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/boshu2/macc/internal/macc"
)

// Status classifies the outcome of a write-if-changed decision.
type Status int

const (
	// Created means the target did not exist before the write.
	Created Status = iota
	// Unchanged means the target already held byte- or semantically-equal
	// content; no write occurred and mtime did not change.
	Unchanged
	// Updated means the target existed with different content and was
	// overwritten.
	Updated
)

func (s Status) String() string {
	switch s {
	case Created:
		return "Created"
	case Unchanged:
		return "Unchanged"
	case Updated:
		return "Updated"
	default:
		return "Unknown"
	}
}

// Write writes bytes to target via a temp file in target's own directory,
// then renames over target. Parent directories are created on demand. On
// rename failure the temp file is unlinked before the error is returned.
func Write(target string, content []byte, perm os.FileMode) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return macc.IO("mkdir", dir, err)
	}

	tmp := filepath.Join(dir, fmt.Sprintf(".macc-%d-%09d.tmp", time.Now().Unix(), time.Now().Nanosecond()))
	if err := os.WriteFile(tmp, content, perm); err != nil {
		return macc.IO("write-temp", tmp, err)
	}

	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return macc.IO("rename", target, err)
	}
	return nil
}

// PreWriteHook is invoked with the existing bytes immediately before an
// Updated write proceeds (used by the apply executor to take a backup).
type PreWriteHook func(existing []byte) error

// WriteIfChanged computes a Created/Unchanged/Updated decision before doing
// any I/O beyond reading the existing file, and only writes when the
// decision is not Unchanged.
//
//   - Target does not exist → Created, write proceeds.
//   - Target exists, bytes byte-equal → Unchanged, no write, no mtime change.
//   - Target is JSON-named (.json suffix) and the rendered bytes deep-equal
//     the on-disk parse modulo key ordering → Unchanged.
//   - Otherwise → Updated: hook(existing) runs first (for per-op backup),
//     then the write proceeds.
func WriteIfChanged(target string, content []byte, perm os.FileMode, hook PreWriteHook) (Status, error) {
	existing, err := os.ReadFile(target)
	if err != nil {
		if os.IsNotExist(err) {
			if writeErr := Write(target, content, perm); writeErr != nil {
				return Created, writeErr
			}
			return Created, nil
		}
		return Created, macc.IO("read", target, err)
	}

	if bytes.Equal(existing, content) {
		return Unchanged, nil
	}
	if strings.HasSuffix(target, ".json") && jsonSemanticallyEqual(existing, content) {
		return Unchanged, nil
	}

	if hook != nil {
		if err := hook(existing); err != nil {
			return Updated, err
		}
	}
	if err := Write(target, content, perm); err != nil {
		return Updated, err
	}
	return Updated, nil
}

// jsonSemanticallyEqual reports whether a and b parse as JSON and are deep
// equal once decoded into generic values, so that serialization reordering
// keys does not count as a change. Non-JSON or malformed input returns false
// (forcing a byte-level decision upstream).
func jsonSemanticallyEqual(a, b []byte) bool {
	var av, bv any
	if err := json.Unmarshal(a, &av); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bv); err != nil {
		return false
	}
	return deepEqualJSON(av, bv)
}

func deepEqualJSON(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bvv, ok := bv[k]
			if !ok || !deepEqualJSON(v, bvv) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !deepEqualJSON(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
