// Package apperror defines the error kinds surfaced by the jukebox usecases.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for guests and for logs.
type Kind string

const (
	KindInvalidInput    Kind = "invalid_input"
	KindJukeboxNotReady Kind = "jukebox_not_ready"
	KindAuthRejected    Kind = "auth_rejected"
	KindUpstream        Kind = "upstream_error"
	KindDuplicateEntry  Kind = "duplicate_entry"
	KindStorage         Kind = "storage_error"
	KindUnauthorized    Kind = "unauthorized"
	KindInternal        Kind = "internal"
)

// Error is a classified error. Reason is a short machine readable detail
// (e.g. "no_activation") that is logged but not shown to guests.
type Error struct {
	Kind    Kind
	Message string
	Reason  string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Reason)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithReason returns a copy of e carrying reason.
func (e *Error) WithReason(reason string) *Error {
	c := *e
	c.Reason = reason
	return &c
}

func InvalidInput(message string) *Error { return New(KindInvalidInput, message) }

func NotReady(reason string, err error) *Error {
	return &Error{Kind: KindJukeboxNotReady, Message: "jukebox is not ready", Reason: reason, Err: err}
}

func AuthRejected(message string, err error) *Error { return Wrap(KindAuthRejected, message, err) }

func Upstream(message string, err error) *Error { return Wrap(KindUpstream, message, err) }

func Duplicate(message string) *Error { return New(KindDuplicateEntry, message) }

func Storage(message string, err error) *Error { return Wrap(KindStorage, message, err) }

func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ReasonOf returns the reason of the first *Error in err's chain.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a kind to the status code used by the HTTP handlers.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindJukeboxNotReady:
		return http.StatusForbidden
	case KindAuthRejected, KindUpstream:
		return http.StatusBadGateway
	case KindDuplicateEntry:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
