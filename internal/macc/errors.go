// Package macc defines the error taxonomy shared across the core: one Kind
// per stable exit code, constructed by the package that detects the failure.
package macc

import "fmt"

// Kind identifies which branch of the error taxonomy an Error belongs to.
// Each Kind maps to exactly one process exit code.
type Kind int

const (
	// KindValidation covers malformed inputs or failed invariants.
	KindValidation Kind = iota + 1
	// KindUserScopeNotAllowed means a plan carries user-scope operations
	// without explicit consent.
	KindUserScopeNotAllowed
	// KindIO covers filesystem failures, carrying path/action/source.
	KindIO
	// KindProjectRootNotFound means find_project_root ascended to the
	// filesystem root without finding .macc/macc.yaml.
	KindProjectRootNotFound
	// KindConfig covers YAML parse/structure errors in canonical config.
	KindConfig
	// KindSecretDetected means the secret scanner aborted validation.
	KindSecretDetected
	// KindHomeDirNotFound means a user-scope path could not be resolved.
	KindHomeDirNotFound
	// KindToolSpec means a tool definition failed to parse or validate.
	KindToolSpec
)

// ExitCode returns the stable process exit code for this Kind, per spec §6.
func (k Kind) ExitCode() int {
	switch k {
	case KindValidation:
		return 1
	case KindUserScopeNotAllowed:
		return 2
	case KindIO:
		return 3
	case KindProjectRootNotFound:
		return 4
	case KindConfig:
		return 5
	case KindSecretDetected:
		return 6
	case KindHomeDirNotFound:
		return 7
	case KindToolSpec:
		return 8
	default:
		return 1
	}
}

// Error is the typed error value propagated by the core. No panics occur on
// the happy path; every failure surfaces as an *Error so that callers (the
// CLI, the TUI) can map it to an exit code and a user-facing message without
// string matching.
type Error struct {
	Kind    Kind
	Path    string // repo-relative or absolute path, when applicable
	Action  string // short verb describing what was attempted, for Io errors
	Message string
	Err     error // underlying cause, if any
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Action != "":
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Action, e.Path, e.Err)
		}
		return fmt.Sprintf("%s: %s: %s", e.Action, e.Path, e.Message)
	case e.Path != "":
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Path, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	default:
		return e.Message
	}
}

// Unwrap allows errors.Is/errors.As to see through to the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// ExitCode returns the stable exit code for this error's Kind.
func (e *Error) ExitCode() int { return e.Kind.ExitCode() }

// Validation constructs a KindValidation error.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// Validationf constructs a KindValidation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// UserScopeNotAllowed constructs the scope-gating error.
func UserScopeNotAllowed() *Error {
	return &Error{Kind: KindUserScopeNotAllowed, Message: "plan contains user-scope actions; pass allow_user_scope to proceed"}
}

// IO wraps a filesystem failure with its path and the action attempted.
func IO(action, path string, err error) *Error {
	return &Error{Kind: KindIO, Action: action, Path: path, Err: err}
}

// ProjectRootNotFound constructs the project-root-discovery error.
func ProjectRootNotFound(start string) *Error {
	return &Error{Kind: KindProjectRootNotFound, Path: start, Message: "no .macc/macc.yaml found above this directory"}
}

// Config wraps a canonical-config parse/structure error.
func Config(path string, err error) *Error {
	return &Error{Kind: KindConfig, Path: path, Err: err}
}

// SecretDetected constructs the secret-scanner abort error. detail must
// already be redacted by the caller; this constructor never redacts.
func SecretDetected(path, detail string) *Error {
	return &Error{Kind: KindSecretDetected, Path: path, Message: detail}
}

// HomeDirNotFound constructs the error for an unresolvable user home.
func HomeDirNotFound() *Error {
	return &Error{Kind: KindHomeDirNotFound, Message: "could not resolve the invoking user's home directory"}
}

// ToolSpec wraps a tool-definition parse/validate failure.
func ToolSpec(toolID string, err error) *Error {
	return &Error{Kind: KindToolSpec, Path: toolID, Err: err}
}
