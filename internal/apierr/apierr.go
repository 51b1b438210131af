// Package apierr defines the typed error kinds shared by the supervisor
// and the HTTP control plane, so a single switch maps every failure to
// both a stable machine-readable string and an HTTP status code.
package apierr

import "fmt"

// Kind is a stable, snake_case-serializable error classification.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindAlreadyExists   Kind = "already_exists"
	KindAlreadyRunning  Kind = "already_running"
	KindNotRunning      Kind = "not_running"
	KindInvalidConfig   Kind = "invalid_config"
	KindLaunchFailed    Kind = "launch_failed"
	KindPersistenceFail Kind = "persistence_failed"
	KindUnauthorized    Kind = "unauthorized"
	KindBadRequest      Kind = "bad_request"
	KindInternal        Kind = "internal"
)

// Error wraps a Kind with a human-readable detail message and, optionally,
// an underlying cause. It implements the standard errors.Is/As protocol
// via Unwrap so callers can still test against sentinel causes.
type Error struct {
	Kind   Kind
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

func Wrap(kind Kind, detail string, cause error) *Error {
	return &Error{Kind: kind, Detail: detail, Cause: cause}
}

// As extracts an *Error from err, returning nil if err isn't one (or
// doesn't wrap one).
func As(err error) *Error {
	var e *Error
	if err == nil {
		return nil
	}
	if ae, ok := err.(*Error); ok {
		return ae
	}
	if ok := errorsAs(err, &e); ok {
		return e
	}
	return nil
}

// errorsAs is a tiny local indirection so we don't need to import
// "errors" twice in call sites; kept here to keep this file self-contained.
func errorsAs(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func NotFound(id string) *Error {
	return New(KindNotFound, fmt.Sprintf("process %q not found", id))
}

func AlreadyExists(id string) *Error {
	return New(KindAlreadyExists, fmt.Sprintf("process %q already exists", id))
}

func AlreadyRunning(id string) *Error {
	return New(KindAlreadyRunning, fmt.Sprintf("process %q is already running", id))
}

func NotRunning(id string) *Error {
	return New(KindNotRunning, fmt.Sprintf("process %q is not running", id))
}

func InvalidConfig(detail string) *Error {
	return New(KindInvalidConfig, detail)
}

func LaunchFailed(cause error) *Error {
	return Wrap(KindLaunchFailed, "failed to launch process", cause)
}

func PersistenceFailed(cause error) *Error {
	return Wrap(KindPersistenceFail, "failed to persist catalog", cause)
}

func Unauthorized() *Error {
	return New(KindUnauthorized, "missing or invalid credentials")
}

func BadRequest(detail string) *Error {
	return New(KindBadRequest, detail)
}

func Internal(detail string, cause error) *Error {
	return Wrap(KindInternal, detail, cause)
}
