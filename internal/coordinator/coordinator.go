package coordinator

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/boshu2/macc/internal/config"
	"github.com/boshu2/macc/internal/macc"
	"github.com/boshu2/macc/internal/worktree"
)

// MaxCycles bounds RunFullCycle, matching the original's hardcoded limit.
const MaxCycles = 128

// StallCycles is the number of consecutive no-progress cycles that trips a
// stall failure.
const StallCycles = 2

// RegistryCounts summarizes task_registry.json's tasks[] by state, per
// spec.md §4.K/§4.L's task-registry shape.
type RegistryCounts struct {
	Total   int
	Todo    int
	Active  int
	Blocked int
	Merged  int
}

// ReadRegistryCounts parses the task registry at path and tallies task
// states into RegistryCounts. Unknown states are ignored in the counters,
// per spec.md §4.L's read-only, tolerant-of-unknown-fields parsing rule.
// Ported from read_registry_counts in the original CLI source.
func ReadRegistryCounts(path string) (RegistryCounts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RegistryCounts{}, macc.IO("read task registry", path, err)
	}
	var doc struct {
		Tasks []struct {
			State string `json:"state"`
		} `json:"tasks"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return RegistryCounts{}, macc.Validationf("failed to parse task registry JSON %s: %v", path, err)
	}

	counts := RegistryCounts{Total: len(doc.Tasks)}
	for _, t := range doc.Tasks {
		state := strings.ToLower(t.State)
		if state == "" {
			state = "todo"
		}
		switch state {
		case "todo":
			counts.Todo++
		case "claimed", "in_progress", "pr_open", "changes_requested", "queued":
			counts.Active++
		case "blocked":
			counts.Blocked++
		case "merged":
			counts.Merged++
		}
	}
	return counts, nil
}

// RunAction invokes the coordinator script at coordinatorPath with action
// and extraArgs, its working directory set to repoRoot and its environment
// extended via BuildEnv. Ported from run_coordinator_action.
func RunAction(ctx context.Context, repoRoot, coordinatorPath, action string, extraArgs []string, cfg config.CanonicalConfig, env EnvConfig) error {
	cmd := exec.CommandContext(ctx, coordinatorPath, append([]string{action}, extraArgs...)...)
	cmd.Dir = repoRoot
	applyEnv(cmd, BuildEnv(cfg, env))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		hint := actionHint(action)
		return macc.Validationf("coordinator '%s' failed with status: %v. %s", action, err, hint)
	}
	return nil
}

func actionHint(action string) string {
	switch action {
	case "dispatch":
		return "Run `macc coordinator status` and inspect logs with `macc logs tail --component coordinator`."
	case "advance":
		return "Run `macc coordinator reconcile`, then `macc coordinator unlock --all` if tasks are stuck."
	case "reconcile", "cleanup":
		return "Run `macc worktree prune` and retry; if locks remain, run `macc coordinator unlock --all`."
	case "unlock":
		return "Inspect lock owners in task_registry.json then retry dispatch."
	case "sync":
		return "Check PRD/registry JSON validity and rerun `macc coordinator sync`."
	default:
		return "Inspect logs with `macc logs tail --component coordinator`."
	}
}

// RunFullCycle drives the coordinator through sync/dispatch/advance/
// reconcile/cleanup/sync phases repeatedly until the task registry
// converges (todo==0 && active==0), fails on any remaining blocked tasks,
// on two consecutive no-progress cycles, on exceeding its wall-clock
// timeout, or on exceeding MaxCycles without converging. Ported from
// run_coordinator_full_cycle.
func RunFullCycle(ctx context.Context, repoRoot, coordinatorPath string, cfg config.CanonicalConfig, env EnvConfig) error {
	registryPath := resolvedRegistryPath(repoRoot, cfg, env)
	if !filepath.IsAbs(registryPath) {
		registryPath = filepath.Join(repoRoot, registryPath)
	}
	timeoutSeconds := resolvedTimeoutSeconds(cfg, env)

	noProgressCycles := 0
	started := time.Now()

	for cycle := 1; cycle <= MaxCycles; cycle++ {
		if err := RunAction(ctx, repoRoot, coordinatorPath, "sync", nil, cfg, env); err != nil {
			return err
		}

		before, err := ReadRegistryCounts(registryPath)
		if err != nil {
			return err
		}

		for _, action := range []string{"dispatch", "advance", "reconcile", "cleanup", "sync"} {
			if err := RunAction(ctx, repoRoot, coordinatorPath, action, nil, cfg, env); err != nil {
				return err
			}
		}

		after, err := ReadRegistryCounts(registryPath)
		if err != nil {
			return err
		}

		log.Info().Int("cycle", cycle).Int("total", after.Total).Int("todo", after.Todo).
			Int("active", after.Active).Int("blocked", after.Blocked).Int("merged", after.Merged).
			Msg("coordinator cycle")

		if after.Todo == 0 && after.Active == 0 {
			if after.Blocked > 0 {
				return macc.Validationf("coordinator run finished with blocked tasks: %d (registry: %s)", after.Blocked, registryPath)
			}
			log.Info().Msg("coordinator run complete")
			return nil
		}

		if after == before {
			noProgressCycles++
		} else {
			noProgressCycles = 0
		}

		if noProgressCycles >= StallCycles {
			return macc.Validationf(
				"coordinator made no progress for %d cycles (todo=%d, active=%d, blocked=%d). Run `macc coordinator status`, then `macc coordinator unlock --all`, and inspect logs with `macc logs tail --component coordinator`.",
				noProgressCycles, after.Todo, after.Active, after.Blocked,
			)
		}

		if time.Since(started) > time.Duration(timeoutSeconds)*time.Second {
			return macc.Validationf("coordinator run timed out after %d seconds. Run `macc coordinator status` and `macc logs tail --component coordinator`.", timeoutSeconds)
		}
	}

	return macc.Validationf("coordinator run reached max cycles (%d) without converging.", MaxCycles)
}

// StopOptions configures Stop's shutdown sequence.
type StopOptions struct {
	Graceful        bool // true: SIGTERM only, no SIGKILL escalation
	RemoveWorktrees bool
	RemoveBranches  bool
}

// Stop performs the structured coordinator shutdown from spec.md §4.K:
// find coordinator processes scoped to repoRoot, SIGTERM their process
// groups, escalate to SIGKILL after a 5s poll unless graceful, run
// reconcile/cleanup/unlock synchronously, then optionally tear down
// worktrees. Ported from stop_coordinator_process_groups plus the
// Commands::Coordinator { Stop } handler in the original CLI source.
func Stop(ctx context.Context, repoRoot, coordinatorPath string, cfg config.CanonicalConfig, env EnvConfig, opts StopOptions) error {
	killed, err := stopProcessGroups(repoRoot, coordinatorPath, opts.Graceful)
	if err != nil {
		return err
	}
	log.Info().Int("process_groups", killed).Msg("coordinator stop: signaled process groups")

	for _, action := range []string{"reconcile", "cleanup"} {
		if err := RunAction(ctx, repoRoot, coordinatorPath, action, nil, cfg, env); err != nil {
			return err
		}
	}
	if err := RunAction(ctx, repoRoot, coordinatorPath, "unlock", []string{"--all"}, cfg, env); err != nil {
		return err
	}

	if opts.RemoveWorktrees {
		removed, err := worktree.RemoveAllWorktrees(repoRoot, opts.RemoveBranches)
		if err != nil {
			return err
		}
		log.Info().Int("removed", removed).Msg("coordinator stop: removed worktrees")
	}

	return nil
}

func stopProcessGroups(repoRoot, coordinatorPath string, graceful bool) (int, error) {
	repoAbs, err := filepath.EvalSymlinks(repoRoot)
	if err != nil {
		repoAbs = repoRoot
	}

	pids, err := pgrepPIDs(coordinatorPath)
	if err != nil {
		return 0, err
	}
	if len(pids) == 0 {
		pids, err = pgrepPIDs("coordinator.sh")
		if err != nil {
			return 0, err
		}
	}

	pgids := make(map[int]bool)
	self := os.Getpid()
	for _, pid := range pids {
		if pid == self {
			continue
		}
		if !pidInRepo(pid, repoAbs) {
			continue
		}
		if pgid, ok := getPGID(pid); ok {
			pgids[pgid] = true
		}
	}

	for pgid := range pgids {
		_ = signalProcessGroup(pgid, "-TERM")
	}
	if len(pgids) > 0 {
		time.Sleep(1 * time.Second)
	}

	if !graceful {
		for i := 0; i < 20; i++ {
			allDead := true
			for pgid := range pgids {
				if pgidIsAlive(pgid) {
					allDead = false
					break
				}
			}
			if allDead {
				break
			}
			time.Sleep(250 * time.Millisecond)
		}
		for pgid := range pgids {
			if pgidIsAlive(pgid) {
				_ = signalProcessGroup(pgid, "-KILL")
			}
		}
	}

	return len(pgids), nil
}

func pgrepPIDs(pattern string) ([]int, error) {
	out, err := exec.Command("pgrep", "-f", pattern).Output()
	if err != nil {
		// non-zero exit (no matches) is expected and not an error condition.
		if _, ok := err.(*exec.ExitError); ok {
			return nil, nil
		}
		return nil, macc.IO("find coordinator processes", "pgrep", err)
	}

	var pids []int
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		if pid, err := strconv.Atoi(strings.TrimSpace(scanner.Text())); err == nil {
			pids = append(pids, pid)
		}
	}
	return pids, nil
}

func pidInRepo(pid int, repoRoot string) bool {
	link := fmt.Sprintf("/proc/%d/cwd", pid)
	cwd, err := os.Readlink(link)
	if err != nil {
		return false
	}
	if resolved, err := filepath.EvalSymlinks(cwd); err == nil {
		cwd = resolved
	}
	return cwd == repoRoot || strings.HasPrefix(cwd, repoRoot+string(filepath.Separator))
}

func getPGID(pid int) (int, bool) {
	out, err := exec.Command("ps", "-o", "pgid=", "-p", strconv.Itoa(pid)).Output()
	if err != nil {
		return 0, false
	}
	pgid, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0, false
	}
	return pgid, true
}

func signalProcessGroup(pgid int, signal string) error {
	target := fmt.Sprintf("-%d", pgid)
	// Group can disappear between discovery and signaling; not an error.
	_ = exec.Command("kill", signal, target).Run()
	return nil
}

func pgidIsAlive(pgid int) bool {
	target := fmt.Sprintf("-%d", pgid)
	return exec.Command("kill", "-0", target).Run() == nil
}
