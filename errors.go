// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

import (
	"errors"
	"fmt"
)

// Kind is the closed set of abstract error categories defined by the
// system (see Error Handling Design). Kind decides HTTP status mapping;
// the errClass field in structured logs comes from [ErrClassifier]
// instead.
type Kind string

const (
	// KindConfiguration marks a bad configuration, fatal at load time.
	KindConfiguration Kind = "Configuration"

	// KindNotFound marks a failed named component lookup.
	KindNotFound Kind = "NotFound"

	// KindWrongClass marks a named lookup that resolved to an unexpected class.
	KindWrongClass Kind = "WrongClass"

	// KindAlreadyBound marks an attempt to add a PathMap entry or a named
	// child that already exists.
	KindAlreadyBound Kind = "AlreadyBound"

	// KindAlreadyStarted marks a start() call on a component that is
	// already in the STARTED state.
	KindAlreadyStarted Kind = "AlreadyStarted"

	// KindProtocolError marks a malformed request.
	KindProtocolError Kind = "ProtocolError"

	// KindUnknownHost marks a request whose host matched no endpoint hostname.
	KindUnknownHost Kind = "UnknownHost"

	// KindRateLimitExceeded marks a rejection by a rate limiter.
	KindRateLimitExceeded Kind = "RateLimitExceeded"

	// KindTimeout marks a request or stop deadline that elapsed.
	KindTimeout Kind = "Timeout"

	// KindTransport marks an I/O error talking to a peer.
	KindTransport Kind = "Transport"

	// KindInternal marks a caught handler panic or unexpected internal error.
	KindInternal Kind = "Internal"
)

// Error is the concrete error type carrying a [Kind] plus a message and an
// optional wrapped cause. All sentinel errors exported by this package
// (ErrConfiguration, ErrNotFound, ...) are *Error values; use [errors.Is]
// against those sentinels, or [AsKind] to recover the Kind of an arbitrary
// error returned by this package.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap supports errors.Is/errors.As traversal into the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind, so that
// errors.Is(err, ErrNotFound) matches any *Error of KindNotFound
// regardless of Message/Cause.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	if other.Message != "" || other.Cause != nil {
		return e.Kind == other.Kind && e.Message == other.Message
	}
	return e.Kind == other.Kind
}

// Sentinel errors for the closed Kind taxonomy, usable with [errors.Is].
var (
	ErrConfiguration     = &Error{Kind: KindConfiguration}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrWrongClass        = &Error{Kind: KindWrongClass}
	ErrAlreadyBound      = &Error{Kind: KindAlreadyBound}
	ErrAlreadyStarted    = &Error{Kind: KindAlreadyStarted}
	ErrProtocolError     = &Error{Kind: KindProtocolError}
	ErrUnknownHost       = &Error{Kind: KindUnknownHost}
	ErrRateLimitExceeded = &Error{Kind: KindRateLimitExceeded}
	ErrTimeout           = &Error{Kind: KindTimeout}
	ErrTransport         = &Error{Kind: KindTransport}
	ErrInternal          = &Error{Kind: KindInternal}
)

// NewError builds an *Error of the given kind wrapping cause, with message.
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// AsKind returns the [Kind] of err if it (or something it wraps) is an
// *Error, and ok=true. Otherwise returns ("", false).
func AsKind(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// HTTPStatus maps a [Kind] to the default HTTP status code used when no
// more specific handling applies (see Wire-level behaviors / Failure
// semantics in the spec).
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindUnknownHost, KindProtocolError:
		return 400
	case KindRateLimitExceeded:
		return 429
	case KindTimeout:
		return 408
	case KindTransport:
		return 502
	case KindInternal:
		return 500
	default:
		return 500
	}
}
