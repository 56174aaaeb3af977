// Package coordinator drives the external coordinator.sh automation script
// through its fixed phase cycle, builds its environment block from
// CanonicalConfig plus CLI overrides, and tears down its process groups on
// stop.
//
// Grounded on core/src/../cli/src/main.rs's apply_coordinator_env/
// run_coordinator_action/run_coordinator_full_cycle/
// stop_coordinator_process_groups/pgrep_pids/get_pgid/signal_process_group
// in the original Rust source this spec was distilled from (the
// coordinator's own control-loop logic lived in the CLI binary rather than
// core/, so these functions are ported from cli/src/main.rs specifically).
package coordinator

import (
	"encoding/json"
	"os/exec"
	"strconv"
	"strings"

	"github.com/boshu2/macc/internal/config"
)

// EnvConfig carries CLI-level overrides for one coordinator invocation; any
// field left at its zero value falls back to CanonicalConfig's
// automation.coordinator settings.
type EnvConfig struct {
	PRD                          string
	Registry                     string
	CoordinatorTool              string
	ReferenceBranch              string
	ToolPriority                 []string
	MaxParallelPerTool           map[string]int
	ToolSpecializations          map[string]string
	MaxDispatch                  int
	MaxParallel                  int
	TimeoutSeconds               int
	PhaseRunnerMaxAttempts       int
	StaleClaimedSeconds          int
	StaleInProgressSeconds       int
	StaleChangesRequestedSeconds int
	StaleAction                  string
}

// BuildEnv assembles the environment block passed to the coordinator
// script: ENABLED_TOOLS_CSV plus one variable per overridable setting, each
// preferring env (CLI override) over the canonical config's
// automation.coordinator block, omitted entirely when neither supplies a
// value. Ported from apply_coordinator_env.
func BuildEnv(cfg config.CanonicalConfig, env EnvConfig) []string {
	coord := cfg.Automation.Coordinator

	vars := map[string]string{
		"ENABLED_TOOLS_CSV": strings.Join(cfg.Tools.Enabled, ","),
	}

	setStr := func(key, override string, fallback func() string) {
		if override != "" {
			vars[key] = override
			return
		}
		if fallback != nil {
			if v := fallback(); v != "" {
				vars[key] = v
			}
		}
	}
	setInt := func(key string, override int, fallback func() int) {
		if override != 0 {
			vars[key] = strconv.Itoa(override)
			return
		}
		if fallback != nil {
			if v := fallback(); v != 0 {
				vars[key] = strconv.Itoa(v)
			}
		}
	}

	setStr("PRD_FILE", env.PRD, func() string {
		if coord != nil {
			return coord.PrdFile
		}
		return ""
	})
	setStr("TASK_REGISTRY_FILE", env.Registry, func() string {
		if coord != nil {
			return coord.TaskRegistryFile
		}
		return ""
	})
	setStr("COORDINATOR_TOOL", env.CoordinatorTool, func() string {
		if coord != nil {
			return coord.CoordinatorTool
		}
		return ""
	})
	setStr("DEFAULT_BASE_BRANCH", env.ReferenceBranch, func() string {
		if coord != nil {
			return coord.ReferenceBranch
		}
		return ""
	})

	toolPriority := env.ToolPriority
	if len(toolPriority) == 0 && coord != nil {
		toolPriority = coord.ToolPriority
	}
	if len(toolPriority) > 0 {
		vars["TOOL_PRIORITY_CSV"] = strings.Join(toolPriority, ",")
	}

	maxParallelPerTool := env.MaxParallelPerTool
	if len(maxParallelPerTool) == 0 && coord != nil {
		maxParallelPerTool = coord.MaxParallelPerTool
	}
	if len(maxParallelPerTool) > 0 {
		if data, err := json.Marshal(maxParallelPerTool); err == nil {
			vars["MAX_PARALLEL_PER_TOOL_JSON"] = string(data)
		}
	}

	toolSpecializations := env.ToolSpecializations
	if len(toolSpecializations) == 0 && coord != nil {
		toolSpecializations = coord.ToolSpecializations
	}
	if len(toolSpecializations) > 0 {
		if data, err := json.Marshal(toolSpecializations); err == nil {
			vars["TOOL_SPECIALIZATIONS_JSON"] = string(data)
		}
	}

	setInt("MAX_DISPATCH", env.MaxDispatch, func() int {
		if coord != nil {
			return coord.MaxDispatch
		}
		return 0
	})
	setInt("MAX_PARALLEL", env.MaxParallel, func() int {
		if coord != nil {
			return coord.MaxParallel
		}
		return 0
	})
	setInt("TIMEOUT_SECONDS", env.TimeoutSeconds, func() int {
		if coord != nil {
			return coord.TimeoutSeconds
		}
		return 0
	})
	setInt("PHASE_RUNNER_MAX_ATTEMPTS", env.PhaseRunnerMaxAttempts, func() int {
		if coord != nil {
			return coord.PhaseRunnerMaxAttempts
		}
		return 0
	})
	setInt("STALE_CLAIMED_SECONDS", env.StaleClaimedSeconds, func() int {
		if coord != nil {
			return coord.StaleClaimedSeconds
		}
		return 0
	})
	setInt("STALE_IN_PROGRESS_SECONDS", env.StaleInProgressSeconds, func() int {
		if coord != nil {
			return coord.StaleInProgressSeconds
		}
		return 0
	})
	setInt("STALE_CHANGES_REQUESTED_SECONDS", env.StaleChangesRequestedSeconds, func() int {
		if coord != nil {
			return coord.StaleChangesRequestedSeconds
		}
		return 0
	})
	setStr("STALE_ACTION", env.StaleAction, func() string {
		if coord != nil {
			return coord.StaleAction
		}
		return ""
	})

	out := make([]string, 0, len(vars))
	for k, v := range vars {
		out = append(out, k+"="+v)
	}
	return out
}

// resolvedRegistryPath returns env.Registry, falling back to the
// canonical config's automation.coordinator.task_registry_file, then to
// repoRoot/task_registry.json.
func resolvedRegistryPath(repoRoot string, cfg config.CanonicalConfig, env EnvConfig) string {
	if env.Registry != "" {
		return env.Registry
	}
	if cfg.Automation.Coordinator != nil && cfg.Automation.Coordinator.TaskRegistryFile != "" {
		return cfg.Automation.Coordinator.TaskRegistryFile
	}
	return repoRoot + "/task_registry.json"
}

func resolvedTimeoutSeconds(cfg config.CanonicalConfig, env EnvConfig) int {
	if env.TimeoutSeconds != 0 {
		return env.TimeoutSeconds
	}
	if cfg.Automation.Coordinator != nil && cfg.Automation.Coordinator.TimeoutSeconds != 0 {
		return cfg.Automation.Coordinator.TimeoutSeconds
	}
	return 3600
}

// applyEnv sets cmd.Env to the current process environment extended with
// the coordinator's own variables (cmd.Env nil means "inherit" in
// os/exec, so we must build the explicit inherited+override list here).
func applyEnv(cmd *exec.Cmd, extra []string) {
	cmd.Env = append(cmd.Environ(), extra...)
}
