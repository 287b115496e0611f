// Package faults classifies pipeline failures so every handler can convert
// them into a user-facing response.
package faults

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindConfiguration           Kind = "configuration"
	KindCollaboratorUnavailable Kind = "collaborator_unavailable"
	KindValidation              Kind = "validation"
	KindInternal                Kind = "internal"
)

// Error is a classified failure with an optional cause.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so callers can test against the
// Err* sentinels below.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Op == "" && other.Message == "" && other.Cause == nil && other.Kind == e.Kind
}

var (
	ErrConfiguration           = &Error{Kind: KindConfiguration}
	ErrCollaboratorUnavailable = &Error{Kind: KindCollaboratorUnavailable}
	ErrValidation              = &Error{Kind: KindValidation}
	ErrInternal                = &Error{Kind: KindInternal}
)

func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func Wrap(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: "failed", Cause: cause}
}

func Configuration(op, message string) *Error {
	return New(KindConfiguration, op, message)
}

func Unavailable(op string, cause error) *Error {
	return Wrap(KindCollaboratorUnavailable, op, cause)
}

func Validation(op, message string) *Error {
	return New(KindValidation, op, message)
}

// KindOf reports the kind of err, defaulting to KindInternal for
// unclassified errors. A nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}
