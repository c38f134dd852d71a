package cerrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"tensorc/internal/cerrors"
)

func TestNewFormatsOpAndMessage(t *testing.T) {
	err := cerrors.New(cerrors.InvalidSchedule, "split(L3)", "factor must be positive")
	assert.Contains(t, err.Error(), "InvalidSchedule")
	assert.Contains(t, err.Error(), "split(L3)")
	assert.Contains(t, err.Error(), "factor must be positive")
}

func TestIsMatchesKind(t *testing.T) {
	err := cerrors.New(cerrors.UnexpectedQuery, "find", "no match")
	assert.True(t, cerrors.Is(err, cerrors.UnexpectedQuery))
	assert.False(t, cerrors.Is(err, cerrors.InvalidProgram))
	assert.False(t, cerrors.Is(errors.New("plain"), cerrors.InvalidProgram))
}

func TestInvalidDoesNotDowngradeInternalAssertion(t *testing.T) {
	fatal := cerrors.New(cerrors.InternalAssertion, "pass-x", "broken invariant")
	wrapped := cerrors.Invalid("op", fatal)
	assert.Equal(t, cerrors.InternalAssertion, wrapped.Kind)
}

func TestInvalidWrapsPlainErrorAsInvalidSchedule(t *testing.T) {
	wrapped := cerrors.Invalid("split(L3)", errors.New("dependency violation"))
	assert.Equal(t, cerrors.InvalidSchedule, wrapped.Kind)
	assert.Contains(t, wrapped.Error(), "dependency violation")
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("underlying failure")
	wrapped := cerrors.Wrap(cerrors.InvalidProgram, "lower", cause, "lowering pipeline step failed")
	assert.ErrorIs(t, wrapped, cause)
}
