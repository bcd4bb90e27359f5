// Package errs defines the failure kinds shared by the session service and the
// admission client. Handlers map kinds to HTTP status codes; the client maps
// them back and branches on the kind, never on message text.
package errs

import (
	"errors"
	"fmt"
)

// Kind is a stable, machine-readable failure category.
type Kind string

const (
	// KindNotFound: referenced gathering or session is absent. Terminal.
	KindNotFound Kind = "not_found"
	// KindForbidden: caller is authenticated but not allowed. Terminal.
	KindForbidden Kind = "forbidden"
	// KindConflict: a state-transition rule was violated (double start/end).
	KindConflict Kind = "conflict"
	// KindConfig: service-side misconfiguration (missing signing material).
	KindConfig Kind = "config_error"
	// KindUnauthenticated: missing or invalid caller identity.
	KindUnauthenticated Kind = "unauthenticated"
	// KindTransport: the media provider rejected the credential or the join failed.
	KindTransport Kind = "transport_failure"
	// KindDevicePermission: local camera/microphone unavailable.
	KindDevicePermission Kind = "device_permission"
	// KindInternal: everything else.
	KindInternal Kind = "internal"
)

// Error carries a Kind plus a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an Error of the given kind.
func E(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap builds an Error of the given kind around a cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// NotFound builds a not_found error.
func NotFound(msg string) *Error { return E(KindNotFound, msg) }

// Forbidden builds a forbidden error.
func Forbidden(msg string) *Error { return E(KindForbidden, msg) }

// Conflict builds a conflict error.
func Conflict(msg string) *Error { return E(KindConflict, msg) }

// Config builds a config_error error.
func Config(msg string) *Error { return E(KindConfig, msg) }

// Unauthenticated builds an unauthenticated error.
func Unauthenticated(msg string) *Error { return E(KindUnauthenticated, msg) }

// KindOf extracts the Kind from err, or KindInternal for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf extracts the human-readable message from err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool { return KindOf(err) == kind }
