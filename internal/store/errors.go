package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a storage failure so callers can decide between degrading
// and aborting without inspecting driver error strings themselves.
type Kind int

const (
	// KindUnavailable covers connectivity, timeout, and driver failures.
	KindUnavailable Kind = iota + 1
	// KindConstraint covers unique/primary-key violations.
	KindConstraint
	// KindNotFound covers lookups that matched no row.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindConstraint:
		return "constraint"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned by every storage-facing operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Classify wraps err as an *Error for op, inferring the failure kind.
// Passing an existing *Error through is safe.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var already *Error
	if errors.As(err, &already) {
		return err
	}
	return &Error{Kind: kindOf(err), Op: op, Err: err}
}

// IsConstraint reports whether err is a constraint-violation storage error.
func IsConstraint(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == KindConstraint
}

func kindOf(err error) Kind {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return KindNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindUnavailable
	}
	// modernc/sqlite surfaces result codes in the error text; constraint
	// violations always carry the word "constraint".
	if strings.Contains(strings.ToLower(err.Error()), "constraint") {
		return KindConstraint
	}
	return KindUnavailable
}
