// Package errs provides the unified error type used across all of connshare.
//
// Every subsystem (permission, sharing, notebook, connection, …) wraps its
// native errors into *errs.Error before returning them to callers. The Code
// discriminant is a stable string that survives JSON serialization, so a
// foreign caller on the other side of the command boundary can switch on it
// without importing any Go package.
//
// Usage:
//
//	// In the gateway — reject an empty capability token:
//	return errs.New(errs.CodeInvalidConnectionURI, "connection URI is empty")
//
//	// In a caller — check the code:
//	if errs.CodeOf(err) == errs.CodePermissionDenied {
//	    // the user said no; do not retry
//	}
package errs

import (
	"errors"
	"fmt"
)

// Code identifies one failure class in the sharing API. Codes are part of
// the public contract: third-party callers match on these exact strings.
type Code string

const (
	CodeUnknown              Code = "UNKNOWN"
	CodePermissionDenied     Code = "PERMISSION_DENIED"      // user persisted an explicit denial
	CodePermissionRequired   Code = "PERMISSION_REQUIRED"    // never asked, or the prompt was dismissed
	CodeNoActiveEditor       Code = "NO_ACTIVE_EDITOR"       // no editor has focus
	CodeNoActiveConnection   Code = "NO_ACTIVE_CONNECTION"   // URI is valid but the session is not live
	CodeConnectionNotFound   Code = "CONNECTION_NOT_FOUND"   // connection id resolves to no stored profile
	CodeConnectionFailed     Code = "CONNECTION_FAILED"      // the underlying connect attempt failed
	CodeInvalidConnectionURI Code = "INVALID_CONNECTION_URI" // empty or malformed capability token
	CodeQueryExecutionFailed Code = "QUERY_EXECUTION_FAILED" // statement rejected or aborted by the server
	CodeExtensionNotFound    Code = "EXTENSION_NOT_FOUND"    // unknown extension identity
)

// Error is the single error type returned by all connshare subsystems.
// ExtensionID and ConnectionID are optional context fields; only the fields
// relevant to the failure are populated.
type Error struct {
	Code         Code   `json:"code"`
	Message      string `json:"message"`
	ExtensionID  string `json:"extensionId,omitempty"`
	ConnectionID string `json:"connectionId,omitempty"`
	Cause        error  `json:"-"` // original low-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given code and message and no cause.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Newf creates an *Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given code, message, and an underlying cause.
func Wrap(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, Cause: cause}
}

// WithExtension attaches the calling-extension identity to the error.
func (e *Error) WithExtension(id string) *Error {
	e.ExtensionID = id
	return e
}

// WithConnection attaches the connection id or URI to the error.
func (e *Error) WithConnection(id string) *Error {
	e.ConnectionID = id
	return e
}

// --- Predicates ---

// CodeOf extracts the Code from any error in the chain.
// Returns CodeUnknown for foreign or nil-wrapped errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsPermissionDenied reports whether err carries a persisted user denial.
func IsPermissionDenied(err error) bool {
	return CodeOf(err) == CodePermissionDenied
}

// IsPermissionRequired reports whether err means no decision could be obtained.
func IsPermissionRequired(err error) bool {
	return CodeOf(err) == CodePermissionRequired
}

// IsInvalidConnectionURI reports whether err was caused by an empty or
// malformed connection URI.
func IsInvalidConnectionURI(err error) bool {
	return CodeOf(err) == CodeInvalidConnectionURI
}

// IsNoActiveConnection reports whether err means the URI was valid but the
// underlying session is not live.
func IsNoActiveConnection(err error) bool {
	return CodeOf(err) == CodeNoActiveConnection
}

// IsConnectionNotFound reports whether err means the connection id did not
// resolve to any stored profile.
func IsConnectionNotFound(err error) bool {
	return CodeOf(err) == CodeConnectionNotFound
}

// IsConnectionFailed reports whether err means the connect attempt itself failed.
func IsConnectionFailed(err error) bool {
	return CodeOf(err) == CodeConnectionFailed
}

// IsQueryExecutionFailed reports whether err is a statement execution failure.
func IsQueryExecutionFailed(err error) bool {
	return CodeOf(err) == CodeQueryExecutionFailed
}
