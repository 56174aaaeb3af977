// Package plan models Action, ActionPlan, and the normalized PlannedOp
// preview projection that the apply executor consumes.
//
// Grounded on spec.md §3 (Action/PlannedOp/ActionPlan shapes) and §4.H
// (normalize order), and on core/src/plan/builders.rs's call sites
// (Action::WriteFile/MergeJson/Mkdir/EnsureGitignore/SetExecutable/
// BackupFile/Noop, each carrying a Scope) together with core/src/lib.rs's
// apply_operations/plan_operations/compute_write_status/read_existing/
// collect_plan_operations usage, in the original Rust source this spec was
// distilled from. plan/mod.rs itself was not retained in the reference
// pack, so the concrete Go shapes below follow spec.md's data model
// directly rather than porting Rust field-for-field.
package plan

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"sort"
)

// Scope is whether an action targets repo-relative paths or the invoking
// user's home.
type Scope string

const (
	ScopeProject Scope = "project"
	ScopeUser    Scope = "user"
)

// ActionKind discriminates the Action tagged variants.
type ActionKind string

const (
	KindWriteFile       ActionKind = "write_file"
	KindMergeJSON       ActionKind = "merge_json"
	KindMkdir           ActionKind = "mkdir"
	KindEnsureGitignore ActionKind = "ensure_gitignore"
	KindSetExecutable   ActionKind = "set_executable"
	KindBackupFile      ActionKind = "backup_file"
	KindNoop            ActionKind = "noop"
)

// Action is one planned filesystem mutation. Only the fields relevant to
// Kind are populated; see the Action* constructors.
type Action struct {
	Kind        ActionKind
	Path        string // repo-relative POSIX path; empty for EnsureGitignore
	Content     []byte // WriteFile
	Patch       any    // MergeJson, a JSON-shaped value (map[string]any etc.)
	Pattern     string // EnsureGitignore
	Description string // Noop
	Scope       Scope
}

func WriteFile(path string, content []byte, scope Scope) Action {
	return Action{Kind: KindWriteFile, Path: path, Content: content, Scope: scope}
}

func MergeJSON(path string, patch any, scope Scope) Action {
	return Action{Kind: KindMergeJSON, Path: path, Patch: patch, Scope: scope}
}

func Mkdir(path string, scope Scope) Action {
	return Action{Kind: KindMkdir, Path: path, Scope: scope}
}

func EnsureGitignore(pattern string, scope Scope) Action {
	return Action{Kind: KindEnsureGitignore, Pattern: pattern, Scope: scope}
}

func SetExecutable(path string, scope Scope) Action {
	return Action{Kind: KindSetExecutable, Path: path, Scope: scope}
}

func BackupFile(path string, scope Scope) Action {
	return Action{Kind: KindBackupFile, Path: path, Scope: scope}
}

func Noop(description string, scope Scope) Action {
	return Action{Kind: KindNoop, Description: description, Scope: scope}
}

// ActionPlan is the ordered list of actions to apply.
type ActionPlan struct {
	Actions []Action
}

// New returns an empty plan.
func New() *ActionPlan { return &ActionPlan{} }

// Add appends action, preserving arrival order (normalize imposes the
// canonical order afterward).
func (p *ActionPlan) Add(a Action) { p.Actions = append(p.Actions, a) }

// Normalize orders actions into the canonical total order from spec §4.H:
//  1. Mkdir (sorted by path, deduplicated)
//  2. WriteFile/MergeJson/SetExecutable (sorted by path)
//  3. EnsureGitignore (sorted by pattern, deduplicated)
//  4. BackupFile last (informational)
//
// Noop actions sort alongside their class by path, since they carry no path
// they retain arrival order within their bucket. Normalize is idempotent:
// normalizing an already-normalized plan, or any permutation of the same
// action multiset, yields an identical sequence.
func (p *ActionPlan) Normalize() {
	var mkdirs, writes, ignores, backups, others []Action

	seenMkdir := make(map[string]bool)
	seenIgnore := make(map[string]bool)

	for _, a := range p.Actions {
		switch a.Kind {
		case KindMkdir:
			if seenMkdir[a.Path] {
				continue
			}
			seenMkdir[a.Path] = true
			mkdirs = append(mkdirs, a)
		case KindWriteFile, KindMergeJSON, KindSetExecutable:
			writes = append(writes, a)
		case KindEnsureGitignore:
			if seenIgnore[a.Pattern] {
				continue
			}
			seenIgnore[a.Pattern] = true
			ignores = append(ignores, a)
		case KindBackupFile:
			backups = append(backups, a)
		default:
			others = append(others, a)
		}
	}

	sort.SliceStable(mkdirs, func(i, j int) bool { return mkdirs[i].Path < mkdirs[j].Path })
	sort.SliceStable(writes, func(i, j int) bool { return writes[i].Path < writes[j].Path })
	sort.SliceStable(ignores, func(i, j int) bool { return ignores[i].Pattern < ignores[j].Pattern })
	sort.SliceStable(backups, func(i, j int) bool { return backups[i].Path < backups[j].Path })

	ordered := make([]Action, 0, len(p.Actions))
	ordered = append(ordered, mkdirs...)
	ordered = append(ordered, writes...)
	ordered = append(ordered, ignores...)
	ordered = append(ordered, others...)
	ordered = append(ordered, backups...)
	p.Actions = ordered
}

// OpKind classifies a PlannedOp for the executor's dispatch switch.
type OpKind string

const (
	OpWrite  OpKind = "write"
	OpMerge  OpKind = "merge"
	OpMkdir  OpKind = "mkdir"
	OpDelete OpKind = "delete"
	OpOther  OpKind = "other"
)

// OpMetadata carries executor hints derived at plan time.
type OpMetadata struct {
	BackupRequired bool
	SetExecutable  bool
}

// PlannedOp is the preview projection of an Action: before/after bytes plus
// executor-relevant metadata, consumed by both `preview` and `apply`.
type PlannedOp struct {
	Path            string
	Scope           Scope
	Kind            OpKind
	ConsentRequired bool
	Metadata        OpMetadata
	Before          []byte // nil if the target does not exist
	BeforeExists    bool
	After           []byte // the would-be content; nil for Mkdir/Delete/Other
	Pattern         string // EnsureGitignore's pattern, carried through for preview
}

// ReadExisting reads target's current bytes, returning (nil, false, nil) if
// it does not exist.
func ReadExisting(target string) (content []byte, exists bool, err error) {
	return readExisting(target)
}

// CollectPlanOperations projects every action in plan into a PlannedOp,
// reading `before` from disk and computing `after` (including the effect of
// JSON merges against the current on-disk content) so previews and the
// apply executor share one source of truth. A SetExecutable action folds
// into the metadata of the Write/MergeJson PlannedOp emitted for the same
// path (normalize's canonical order keeps them adjacent) rather than
// becoming a standalone op, matching how the executor only ever inspects
// `metadata.set_executable` on a Write or Merge op in the original source.
// A SetExecutable with no preceding same-path Write/Merge still yields its
// own op (content equal to the file's current bytes) so a bare chmod on an
// already-materialized file is still honored.
func CollectPlanOperations(root string, p *ActionPlan) ([]PlannedOp, error) {
	ops := make([]PlannedOp, 0, len(p.Actions))
	lastIndexByPath := make(map[string]int)

	for _, a := range p.Actions {
		op := PlannedOp{Path: a.Path, Scope: a.Scope, ConsentRequired: a.Scope == ScopeUser}

		switch a.Kind {
		case KindMkdir:
			op.Kind = OpMkdir
		case KindWriteFile:
			op.Kind = OpWrite
			full := filepath.Join(root, a.Path)
			before, exists, err := readExisting(full)
			if err != nil {
				return nil, err
			}
			op.Before, op.BeforeExists = before, exists
			op.After = a.Content
			op.Metadata.BackupRequired = exists && !bytes.Equal(before, a.Content)
		case KindSetExecutable:
			if idx, ok := lastIndexByPath[a.Path]; ok && (ops[idx].Kind == OpWrite || ops[idx].Kind == OpMerge) {
				ops[idx].Metadata.SetExecutable = true
				continue
			}
			op.Kind = OpWrite
			full := filepath.Join(root, a.Path)
			before, exists, err := readExisting(full)
			if err != nil {
				return nil, err
			}
			op.Before, op.BeforeExists = before, exists
			op.After = before
			op.Metadata.SetExecutable = true
		case KindMergeJSON:
			op.Kind = OpMerge
			full := filepath.Join(root, a.Path)
			before, exists, err := readExisting(full)
			if err != nil {
				return nil, err
			}
			op.Before, op.BeforeExists = before, exists

			base := map[string]any{}
			if exists {
				_ = json.Unmarshal(before, &base)
			}
			DeepMerge(base, a.Patch)
			after, err := json.MarshalIndent(base, "", "  ")
			if err != nil {
				return nil, err
			}
			op.After = append(after, '\n')
			op.Metadata.BackupRequired = exists && !jsonBytesEqual(before, op.After)
		case KindEnsureGitignore:
			op.Kind = OpOther
			op.Pattern = a.Pattern
		case KindBackupFile:
			op.Kind = OpOther
		default:
			op.Kind = OpOther
		}

		if op.Kind == OpWrite || op.Kind == OpMerge {
			lastIndexByPath[a.Path] = len(ops)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// DeepMerge merges patch into base (a JSON object decoded as
// map[string]any), recursing into nested objects and overwriting scalars
// and arrays outright — a strict object merge with no array concatenation,
// per spec §9.
func DeepMerge(base map[string]any, patch any) {
	patchMap, ok := asJSONObject(patch)
	if !ok {
		return
	}
	for k, v := range patchMap {
		if vMap, ok := asJSONObject(v); ok {
			if baseMap, ok := asJSONObjectM(base[k]); ok {
				DeepMerge(baseMap, vMap)
				base[k] = baseMap
				continue
			}
			nested := map[string]any{}
			DeepMerge(nested, vMap)
			base[k] = nested
			continue
		}
		base[k] = v
	}
}

func asJSONObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	default:
		// round-trip through JSON to normalize struct/RawMessage patches
		data, err := json.Marshal(v)
		if err != nil {
			return nil, false
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, false
		}
		return m, true
	}
}

func asJSONObjectM(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// BuildPatchFromMergeTarget synthesizes the nested object a dotted
// merge_target pointer describes, with value at the leaf. Ported from
// build_patch_from_merge_target in core/src/plan/builders.rs.
func BuildPatchFromMergeTarget(mergeTarget string, value any) (map[string]any, error) {
	parts, err := splitMergeTarget(mergeTarget)
	if err != nil {
		return nil, err
	}
	current := value
	for i := len(parts) - 1; i >= 0; i-- {
		current = map[string]any{parts[i]: current}
	}
	m, _ := current.(map[string]any)
	return m, nil
}
