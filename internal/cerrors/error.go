package cerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// CompilerError is the structured error every public API returns instead
// of a partially-mutated result (§6, §7).
type CompilerError struct {
	Kind Kind
	// Op is the failing operation's textual signature, e.g.
	// `split(L3, factor=32)` or `reorder([j, i])`.
	Op      string
	Message string
	cause   error
}

func (e *CompilerError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *CompilerError) Unwrap() error { return e.cause }

// Cause returns the deepest non-CompilerError cause, following the
// github.com/pkg/errors chain the way the teacher's error plumbing does.
func (e *CompilerError) Cause() error {
	if e.cause == nil {
		return e
	}
	return errors.Cause(e.cause)
}

// New builds a CompilerError with no wrapped cause.
func New(kind Kind, op, message string) *CompilerError {
	return &CompilerError{Kind: kind, Op: op, Message: message}
}

// Wrap builds a CompilerError wrapping cause, preserving its chain.
func Wrap(kind Kind, op string, cause error, message string) *CompilerError {
	return &CompilerError{Kind: kind, Op: op, Message: message, cause: errors.Wrap(cause, message)}
}

// Invalid builds an InvalidSchedule error, the conversion the Schedule
// façade performs for any internal error surfacing from a pass (§7
// Propagation).
func Invalid(op string, cause error) *CompilerError {
	if ce, ok := cause.(*CompilerError); ok && ce.Kind == InternalAssertion {
		// InternalAssertion never downgrades: it is fatal by definition.
		return ce
	}
	return Wrap(InvalidSchedule, op, cause, cause.Error())
}

// Is reports whether err is a CompilerError of the given kind.
func Is(err error, kind Kind) bool {
	ce, ok := err.(*CompilerError)
	return ok && ce.Kind == kind
}
