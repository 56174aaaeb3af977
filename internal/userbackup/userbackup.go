// Package userbackup implements the one-backup-per-path manager for
// apply's user-scope writes. Grounded on core/src/lib.rs's
// UserBackupManager::try_new/backup_file/report call sites in the
// original Rust source this spec was distilled from, which copy each
// user-scope file synchronously inline as the apply loop reaches it.
// SPEC_FULL.md §11 calls for generalizing that sequential copy into a
// bounded-parallel flush using golang.org/x/sync/errgroup — the one
// concurrency exception in an otherwise single-threaded core — since
// each queued copy targets a distinct source file and none can race.
package userbackup

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/boshu2/macc/internal/macc"
)

// DefaultConcurrency bounds how many backup copies run at once.
const DefaultConcurrency = 4

// Entry records one completed user-scope backup.
type Entry struct {
	SourcePath string
	BackupPath string
}

// Report summarizes a flush.
type Report struct {
	Timestamp string
	Entries   []Entry
}

type job struct {
	sourcePath string
	backupPath string
}

// Manager accumulates user-scope file backups for one apply run, each path
// enqueued at most once, and flushes them with bounded parallelism.
type Manager struct {
	backupsDir string

	mu   sync.Mutex
	seen map[string]bool
	jobs []job
}

// New builds a Manager rooted at backupsDir (typically
// paths.UserBackupsDir()).
func New(backupsDir string) *Manager {
	return &Manager{backupsDir: backupsDir, seen: make(map[string]bool)}
}

// Enqueue registers sourcePath for backup under timestamp, returning false
// if this path was already enqueued this run (a no-op in that case).
func (m *Manager) Enqueue(timestamp, sourcePath string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[sourcePath] {
		return false
	}
	m.seen[sourcePath] = true

	rel := filepath.Base(sourcePath)
	if abs, err := filepath.Abs(sourcePath); err == nil {
		rel = filepath.ToSlash(abs)
		rel = filepath.Clean(rel)
	}
	backupPath := filepath.Join(m.backupsDir, timestamp, filepath.FromSlash(flattenAbsolutePath(rel)))
	m.jobs = append(m.jobs, job{sourcePath: sourcePath, backupPath: backupPath})
	return true
}

// flattenAbsolutePath turns an absolute path into a filesystem-safe relative
// path preserving its structure (leading separator and drive-letter colons
// stripped), so every user-scope backup nests under one timestamped
// directory without collapsing distinct absolute paths into each other.
func flattenAbsolutePath(p string) string {
	p = filepath.ToSlash(p)
	for len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	return p
}

// Flush copies every enqueued job concurrently (bounded by concurrency),
// skipping any source that no longer exists, and returns a Report
// describing what was actually copied. A zero or negative concurrency
// falls back to DefaultConcurrency.
func (m *Manager) Flush(ctx context.Context, timestamp string, concurrency int) (Report, error) {
	m.mu.Lock()
	jobs := append([]job(nil), m.jobs...)
	m.mu.Unlock()

	if len(jobs) == 0 {
		return Report{Timestamp: timestamp}, nil
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	var mu sync.Mutex
	var entries []Entry

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, j := range jobs {
		j := j
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			copied, err := copyFile(j.sourcePath, j.backupPath)
			if err != nil {
				return err
			}
			if copied {
				mu.Lock()
				entries = append(entries, Entry{SourcePath: j.sourcePath, BackupPath: j.backupPath})
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	return Report{Timestamp: timestamp, Entries: entries}, nil
}

func copyFile(src, dst string) (bool, error) {
	in, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, macc.IO("open source for user backup", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return false, macc.IO("create backup directory", filepath.Dir(dst), err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return false, macc.IO("create backup file", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return false, macc.IO("copy to user backup", dst, err)
	}
	return true, nil
}
