package dialect

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/querypilot/querypilot-engine/pkg/models"
)

// ErrorKind separates "cannot connect" from "connected but the statement
// was rejected". The validator degrades on the former and fails hard on the
// latter, so the kind is assigned here, where the error is raised, instead
// of sniffing message substrings downstream.
type ErrorKind string

const (
	// KindConnection covers network, auth, and timeout failures reaching
	// the database.
	KindConnection ErrorKind = "connection"
	// KindQuery covers statements the database understood and rejected.
	KindQuery ErrorKind = "query"
)

// Error is a structured adapter error carrying its classification and the
// dialect it came from.
type Error struct {
	Kind    ErrorKind
	Dialect models.Dialect
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s %s error: %v", e.Dialect, e.Kind, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// ConnectionError wraps err as a connection-level failure.
func ConnectionError(d models.Dialect, err error) *Error {
	return &Error{Kind: KindConnection, Dialect: d, Err: err}
}

// QueryError wraps err as a statement-level rejection.
func QueryError(d models.Dialect, err error) *Error {
	return &Error{Kind: KindQuery, Dialect: d, Err: err}
}

// ClassifyQueryError tags an error raised while running a statement over an
// already-open handle. Deadline expiry and network drops mid-statement are
// still connection-level: the statement itself was never judged.
func ClassifyQueryError(d models.Dialect, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ConnectionError(d, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ConnectionError(d, err)
	}
	return QueryError(d, err)
}

// IsConnectionError reports whether err is a connection-level adapter error.
func IsConnectionError(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == KindConnection
}

// IsQueryError reports whether err is a statement-level adapter error.
func IsQueryError(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == KindQuery
}
