// Package kqerr defines the tagged error taxonomy shared by every stage of
// the pipeline, from SQL parsing down to adaptive execution.
package kqerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Stage names the pipeline phase that raised an error.
type Stage string

const (
	Parse    Stage = "parse"
	Plan     Stage = "plan"
	Type     Stage = "type"
	IR       Stage = "ir"
	Alloc    Stage = "allocation"
	Runtime  Stage = "runtime"
	Adaptive Stage = "adaptive-driver"
)

// SourceLocation pinpoints a position in the original query text.
type SourceLocation struct {
	Query  string
	Line   int
	Column int
}

func (l SourceLocation) String() string {
	if l.Query == "" {
		return ""
	}
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// QueryError carries a stage tag and an optional source location alongside
// the wrapped cause, so a CLI front end can report "plan error at 3:14:
// ..." instead of a bare Go error string.
type QueryError struct {
	Stage    Stage
	Location SourceLocation
	cause    error
}

func (e *QueryError) Error() string {
	if loc := e.Location.String(); loc != "" {
		return fmt.Sprintf("%s error at %s: %s", e.Stage, loc, e.cause.Error())
	}
	return fmt.Sprintf("%s error: %s", e.Stage, e.cause.Error())
}

func (e *QueryError) Unwrap() error { return e.cause }

// New builds a QueryError from a stage and a formatted message, with a
// stack trace attached via pkg/errors.
func New(stage Stage, format string, args ...interface{}) *QueryError {
	return &QueryError{Stage: stage, cause: errors.Errorf(format, args...)}
}

// Wrap attaches a stage tag to an existing error, preserving its chain.
func Wrap(stage Stage, err error, context string) *QueryError {
	if err == nil {
		return nil
	}
	return &QueryError{Stage: stage, cause: errors.Wrap(err, context)}
}

// At attaches a source location to a QueryError, returning it for chaining.
func (e *QueryError) At(loc SourceLocation) *QueryError {
	e.Location = loc
	return e
}

// StageOf reports the stage of err if it is (or wraps) a *QueryError.
func StageOf(err error) (Stage, bool) {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Stage, true
	}
	return "", false
}
