// pkg/model/errors.go
package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a pipeline failure
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindSourceUnavailable covers extraction network and HTTP failures
	KindSourceUnavailable
	// KindMalformedInput covers structurally unexpected transform input
	KindMalformedInput
	// KindLoadFailed covers dataset creation, staging write and swap failures
	KindLoadFailed
	// KindVerificationMismatch is a post-load row count disagreement
	KindVerificationMismatch
)

// String returns a string representation of the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindUnknown:
		return "Unknown"
	case KindSourceUnavailable:
		return "SourceUnavailable"
	case KindMalformedInput:
		return "MalformedInput"
	case KindLoadFailed:
		return "LoadFailed"
	case KindVerificationMismatch:
		return "VerificationMismatch"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Sentinels for errors.Is checks against a kind
var (
	ErrSourceUnavailable    = &Error{Kind: KindSourceUnavailable}
	ErrMalformedInput       = &Error{Kind: KindMalformedInput}
	ErrLoadFailed           = &Error{Kind: KindLoadFailed}
	ErrVerificationMismatch = &Error{Kind: KindVerificationMismatch}
)

// Error is a classified pipeline error
type Error struct {
	Kind  ErrorKind
	Stage string // extract, transform, load, verify
	Msg   string
	Err   error
}

// Error returns a formatted error message
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.Stage != "" {
		sb.WriteString(" [" + e.Stage + "]")
	}
	if e.Msg != "" {
		sb.WriteString(": " + e.Msg)
	}
	if e.Err != nil {
		sb.WriteString(": " + e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrLoadFailed) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewError creates a classified error wrapping err
func NewError(kind ErrorKind, stage, msg string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Msg: msg, Err: err}
}

// SourceUnavailable wraps an extraction failure
func SourceUnavailable(msg string, err error) *Error {
	return NewError(KindSourceUnavailable, "extract", msg, err)
}

// MalformedInput wraps a transform-stage structural failure
func MalformedInput(msg string, err error) *Error {
	return NewError(KindMalformedInput, "transform", msg, err)
}

// LoadFailed wraps a staging, swap or dataset creation failure
func LoadFailed(msg string, err error) *Error {
	return NewError(KindLoadFailed, "load", msg, err)
}

// VerificationMismatch describes a production row count that differs from the batch
func VerificationMismatch(expected, actual int64) *Error {
	return NewError(KindVerificationMismatch, "verify",
		fmt.Sprintf("expected %d rows in production, found %d", expected, actual), nil)
}

// KindOf returns the kind of the first classified error in the chain
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable tells a scheduler whether rerunning the pipeline may help.
// Source and warehouse failures are usually transient; malformed input is not.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindSourceUnavailable, KindLoadFailed:
		return true
	default:
		return false
	}
}

// Cause describes what went wrong underneath a classified error, for logs
type Cause int

const (
	CauseOther Cause = iota
	CauseTimeout
	CauseConnection
	CausePermission
	CauseDataConversion
	CauseMissingObject
)

// String returns a string representation of the cause
func (c Cause) String() string {
	switch c {
	case CauseTimeout:
		return "Timeout"
	case CauseConnection:
		return "Connection"
	case CausePermission:
		return "Permission"
	case CauseDataConversion:
		return "DataConversion"
	case CauseMissingObject:
		return "MissingObject"
	default:
		return "Other"
	}
}

// CauseOf inspects the error chain and message to guess the underlying cause.
// Driver errors are not typed consistently across backends, so the message is matched.
func CauseOf(err error) Cause {
	if err == nil {
		return CauseOther
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CauseTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return CauseTimeout
	case strings.Contains(msg, "connection") || strings.Contains(msg, "dial") ||
		strings.Contains(msg, "eof") || strings.Contains(msg, "database is closed"):
		return CauseConnection
	case strings.Contains(msg, "permission") || strings.Contains(msg, "access denied") ||
		strings.Contains(msg, "not authorized") || strings.Contains(msg, "insufficient privileges"):
		return CausePermission
	case strings.Contains(msg, "convert") || strings.Contains(msg, "parse") ||
		strings.Contains(msg, "unmarshal") || strings.Contains(msg, "invalid character"):
		return CauseDataConversion
	case strings.Contains(msg, "does not exist") || strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "not found"):
		return CauseMissingObject
	default:
		return CauseOther
	}
}
