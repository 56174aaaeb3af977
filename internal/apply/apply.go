// Package apply executes a normalized ActionPlan's PlannedOps against disk:
// per-op timestamped backups, protected-context skip logic, the secret
// scanner's warning surfacing, executable-bit application, and managed-path
// ledger recording.
//
// Grounded on core/src/lib.rs's apply/apply_plan/apply_operations/
// create_timestamped_backup/write_if_changed_with_existing in the original
// Rust source this spec was distilled from.
package apply

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/boshu2/macc/internal/atomicfile"
	"github.com/boshu2/macc/internal/config"
	"github.com/boshu2/macc/internal/ledger"
	"github.com/boshu2/macc/internal/macc"
	"github.com/boshu2/macc/internal/paths"
	"github.com/boshu2/macc/internal/plan"
	"github.com/boshu2/macc/internal/security"
	"github.com/boshu2/macc/internal/toolspec"
	"github.com/boshu2/macc/internal/userbackup"
)

// Outcome is the per-path result recorded in an ApplyReport.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeNoop      Outcome = "noop"
)

// ApplyReport summarizes one apply run.
type ApplyReport struct {
	Outcomes         map[string]Outcome
	BackupDir        string
	UserBackupReport *userbackup.Report
	Warnings         []security.Finding
}

// ProgressFunc is invoked after each op is applied, 1-indexed.
type ProgressFunc func(op plan.PlannedOp, index, total int)

// ApplyPlan normalizes p, validates it, projects it to PlannedOps against
// root, and applies them. Mirrors apply_plan in the original source.
func ApplyPlan(ctx context.Context, pp paths.ProjectPaths, cfg config.CanonicalConfig, specs *toolspec.Registry, p *plan.ActionPlan, allowUserScope bool, onProgress ProgressFunc) (ApplyReport, error) {
	p.Normalize()
	if _, err := security.ValidatePlan(p, allowUserScope); err != nil {
		return ApplyReport{}, err
	}

	ops, err := plan.CollectPlanOperations(pp.Root, p)
	if err != nil {
		return ApplyReport{}, err
	}

	return ApplyOperations(ctx, pp, cfg, specs, ops, allowUserScope, onProgress)
}

// ApplyOperations is the executor proper: mirrors apply_operations in the
// original source, one PlannedOp at a time, in plan order.
func ApplyOperations(ctx context.Context, pp paths.ProjectPaths, cfg config.CanonicalConfig, specs *toolspec.Registry, ops []plan.PlannedOp, allowUserScope bool, onProgress ProgressFunc) (ApplyReport, error) {
	for _, op := range ops {
		if op.Scope == plan.ScopeUser && !allowUserScope {
			return ApplyReport{}, macc.UserScopeNotAllowed()
		}
	}

	timestamp := time.Now().Format("20060102-150405")
	report := ApplyReport{Outcomes: make(map[string]Outcome, len(ops))}
	backupCreated := false

	protected := LoadProtectedContextPaths(pp.Root, cfg, specs)

	var userBackups *userbackup.Manager
	needsUserScope := false
	for _, op := range ops {
		if op.Scope == plan.ScopeUser {
			needsUserScope = true
			break
		}
	}
	if allowUserScope && needsUserScope {
		backupsDir, err := paths.UserBackupsDir()
		if err != nil {
			return ApplyReport{}, err
		}
		userBackups = userbackup.New(backupsDir)
	}

	total := len(ops)
	for i, op := range ops {
		if onProgress != nil {
			onProgress(op, i+1, total)
		}
		fullPath := filepath.Join(pp.Root, op.Path)

		switch op.Kind {
		case plan.OpMkdir:
			outcome, err := applyMkdir(pp, op, fullPath)
			if err != nil {
				return ApplyReport{}, err
			}
			report.Outcomes[op.Path] = outcome

		case plan.OpWrite, plan.OpMerge:
			if protected[op.Path] {
				if _, exists, _ := plan.ReadExisting(fullPath); exists {
					report.Outcomes[op.Path] = OutcomeUnchanged
					continue
				}
			}

			outcome, warnings, didBackupProject, err := applyWriteOrMerge(pp, op, fullPath, timestamp, userBackups)
			if err != nil {
				return ApplyReport{}, err
			}
			report.Warnings = append(report.Warnings, warnings...)
			if didBackupProject {
				backupCreated = true
			}
			report.Outcomes[op.Path] = outcome

			if outcome == OutcomeCreated && op.Scope == plan.ScopeProject {
				if err := ledger.Record(pp.ManagedPathsFile(), pp.Root, op.Path); err != nil {
					return ApplyReport{}, err
				}
			}

		default:
			report.Outcomes[op.Path] = OutcomeNoop
		}
	}

	if backupCreated {
		report.BackupDir = pp.BackupRunDir(timestamp)
	}

	if userBackups != nil {
		userReport, err := userBackups.Flush(ctx, timestamp, userbackup.DefaultConcurrency)
		if err != nil {
			return ApplyReport{}, err
		}
		if len(userReport.Entries) > 0 {
			report.UserBackupReport = &userReport
		}
	}

	return report, nil
}

func applyMkdir(pp paths.ProjectPaths, op plan.PlannedOp, fullPath string) (Outcome, error) {
	if _, err := os.Stat(fullPath); err == nil {
		return OutcomeUnchanged, nil
	}
	if err := os.MkdirAll(fullPath, 0o755); err != nil {
		return "", macc.IO("create directory", fullPath, err)
	}
	if op.Scope == plan.ScopeProject {
		if err := ledger.Record(pp.ManagedPathsFile(), pp.Root, op.Path); err != nil {
			return "", err
		}
	}
	return OutcomeCreated, nil
}

// applyWriteOrMerge performs one Write/Merge PlannedOp: secret-scans the
// effective content, takes a project-scope timestamped backup or enqueues
// a user-scope one when the write is non-trivial, writes via
// WriteIfChanged, and applies the executable bit when requested.
func applyWriteOrMerge(pp paths.ProjectPaths, op plan.PlannedOp, fullPath, timestamp string, userBackups *userbackup.Manager) (outcome Outcome, warnings []security.Finding, backedUpProject bool, err error) {
	content := op.After
	if content == nil {
		return OutcomeNoop, nil, false, nil
	}

	findings := security.ScanBytes(op.Path, content)
	for _, f := range findings {
		if f.Severity == security.SeverityWarning {
			log.Warn().Str("path", op.Path).Str("pattern", f.PatternName).Str("match", f.RedactedMatch).Msg("security warning")
			warnings = append(warnings, f)
		}
	}
	if security.IsSensitiveFile(op.Path) && !security.ContainsPlaceholder(string(content)) {
		log.Warn().Str("path", op.Path).Msg("sensitive file missing placeholder tokens")
	}

	willChange := op.Metadata.BackupRequired

	if willChange && op.BeforeExists && op.Scope == plan.ScopeProject {
		if err := createTimestampedBackup(pp, timestamp, op.Path); err != nil {
			return "", warnings, false, err
		}
		backedUpProject = true
	}

	if willChange && op.Scope == plan.ScopeUser && userBackups != nil {
		userBackups.Enqueue(timestamp, fullPath)
	}

	status, err := atomicfile.WriteIfChanged(fullPath, content, 0o644, nil)
	if err != nil {
		return "", warnings, backedUpProject, err
	}

	if op.Metadata.SetExecutable && status != atomicfile.Unchanged {
		if err := applyExecutableBit(fullPath); err != nil {
			return "", warnings, backedUpProject, err
		}
	}

	return outcomeFromStatus(status), warnings, backedUpProject, nil
}

func outcomeFromStatus(s atomicfile.Status) Outcome {
	switch s {
	case atomicfile.Created:
		return OutcomeCreated
	case atomicfile.Updated:
		return OutcomeUpdated
	default:
		return OutcomeUnchanged
	}
}

// createTimestampedBackup copies the current on-disk file at relPath into
// .macc/backups/<timestamp>/<relPath>, ported from
// create_timestamped_backup in core/src/lib.rs.
func createTimestampedBackup(pp paths.ProjectPaths, timestamp, relPath string) error {
	src := filepath.Join(pp.Root, relPath)
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return macc.IO("stat for backup", src, err)
	}

	dst := filepath.Join(pp.BackupRunDir(timestamp), relPath)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return macc.IO("create backup directory", filepath.Dir(dst), err)
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return macc.IO("read for backup", src, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return macc.IO("write backup", dst, err)
	}
	return nil
}

func applyExecutableBit(fullPath string) error {
	info, err := os.Stat(fullPath)
	if err != nil {
		return macc.IO("stat for chmod", fullPath, err)
	}
	mode := info.Mode().Perm() | 0o111
	if err := os.Chmod(fullPath, mode); err != nil {
		return macc.IO("set executable permissions", fullPath, err)
	}
	return nil
}
