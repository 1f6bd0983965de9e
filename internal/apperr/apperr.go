// Package apperr is the dashboard's error taxonomy.
package apperr

import (
	"errors"
	"fmt"

	"github.com/taufik7000/efarina-finance-flow/internal/backend"
)

// Kind classifies a failure by how it is handled.
type Kind int

const (
	// KindAuth covers sign-in, sign-up and sign-out failures. Surfaced, never retried.
	KindAuth Kind = iota + 1
	// KindProfileInconsistency means an identity exists without its profile row.
	KindProfileInconsistency
	// KindMutation covers create/update/delete failures on a collection.
	KindMutation
	// KindBootstrap covers startup provisioning failures. Logged only.
	KindBootstrap
	// KindNotAuthenticated is returned when an action needs a session and there is none.
	KindNotAuthenticated
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindProfileInconsistency:
		return "profile_inconsistency"
	case KindMutation:
		return "mutation"
	case KindBootstrap:
		return "bootstrap"
	case KindNotAuthenticated:
		return "not_authenticated"
	}
	return "unknown"
}

// Error wraps a cause with its kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Message is the human-readable text for users: the data service message
// when there is one.
func (e *Error) Message() string {
	var be *backend.Error
	if errors.As(e.Err, &be) && be.Message != "" {
		return be.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Kind == KindNotAuthenticated {
		return "User tidak ditemukan"
	}
	return e.Kind.String()
}

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// ErrNotAuthenticated is the cause used for KindNotAuthenticated errors.
var ErrNotAuthenticated = errors.New("User tidak ditemukan")

// NotAuthenticated builds the error returned by actions that need a session.
func NotAuthenticated(op string) *Error {
	return New(KindNotAuthenticated, op, ErrNotAuthenticated)
}

// IsKind reports whether any error in err's chain is an *Error of kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

// Message returns the user-facing message of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message()
	}
	var be *backend.Error
	if errors.As(err, &be) {
		return be.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
