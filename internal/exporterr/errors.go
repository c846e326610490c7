package exporterr

import (
	"errors"
	"fmt"
)

// Kind classifies why an export failed.
type Kind string

const (
	KindInvalidSurface  Kind = "invalid_surface"
	KindDegenerateScale Kind = "degenerate_scale"
	KindCaptureFailed   Kind = "capture_failed"
	KindAssemblyFailed  Kind = "assembly_failed"
	KindUnknown         Kind = "unknown"
)

// Sentinels for errors.Is matching against an *Error of the same kind.
var (
	ErrInvalidSurface  = &Error{Kind: KindInvalidSurface}
	ErrDegenerateScale = &Error{Kind: KindDegenerateScale}
	ErrCaptureFailed   = &Error{Kind: KindCaptureFailed}
	ErrAssemblyFailed  = &Error{Kind: KindAssemblyFailed}
)

// Error is a classified export failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so callers can match the package sentinels.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// New builds a classified error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds a classified error with a formatted cause.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
