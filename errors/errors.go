package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseConfig    Phase = "config"    // startup configuration
	PhaseSubmit    Phase = "submit"    // request submission
	PhaseHandle    Phase = "handle"    // resource table lookup
	PhaseJSON      Phase = "json"      // document parsing and traversal
	PhaseTransport Phase = "transport" // HTTP exchange
)

// Kind categorizes the error
type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindInvalidMethod Kind = "invalid_method"
	KindMalformedURI  Kind = "malformed_uri"
	KindMissingKey    Kind = "missing_key"
	KindParse         Kind = "parse"
	KindTypeMismatch  Kind = "type_mismatch"
	KindBadPath       Kind = "bad_path"
	KindOutOfBounds   Kind = "out_of_bounds"
	KindInvalidInput  Kind = "invalid_input"
	KindClosed        Kind = "closed"
	KindTimeout       Kind = "timeout"
	KindCancelled     Kind = "cancelled"
)

// Error is the structured error type used throughout the module
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Two errors match when
// their phase and kind agree; path and detail are ignored.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Convenience constructors for common error patterns

// NotFound creates a dead-or-unknown handle error
func NotFound(phase Phase, what string, id int64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s handle %d not found", what, id),
	}
}

// InvalidMethod creates an unknown HTTP method error
func InvalidMethod(method string) *Error {
	return &Error{
		Phase:  PhaseSubmit,
		Kind:   KindInvalidMethod,
		Detail: fmt.Sprintf("invalid request method %q", method),
	}
}

// MalformedURI creates a URI parse error
func MalformedURI(uri string, cause error) *Error {
	return &Error{
		Phase:  PhaseSubmit,
		Kind:   KindMalformedURI,
		Detail: fmt.Sprintf("parse URI %q", uri),
		Cause:  cause,
	}
}

// MissingKey creates a missing-configuration-key error
func MissingKey(section, key string) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindMissingKey,
		Detail: fmt.Sprintf("missing %q key in the [%s] section", key, section),
	}
}

// ParseFailed creates a parsing error
func ParseFailed(phase Phase, what string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindParse,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}

// TypeMismatch creates a document type mismatch error
func TypeMismatch(path []string, want, got string) *Error {
	return &Error{
		Phase:  PhaseJSON,
		Kind:   KindTypeMismatch,
		Path:   path,
		Detail: fmt.Sprintf("want %s, got %s", want, got),
	}
}

// BadPath creates a dot-path traversal error
func BadPath(path []string, detail string) *Error {
	return &Error{
		Phase:  PhaseJSON,
		Kind:   KindBadPath,
		Path:   path,
		Detail: detail,
	}
}

// OutOfBounds creates an array index error
func OutOfBounds(index, length int) *Error {
	return &Error{
		Phase:  PhaseJSON,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Closed creates an error for operations on a shut-down component
func Closed(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s is closed", component),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
