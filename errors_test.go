package coro

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapErrorPreservesCauseChain(t *testing.T) {
	cause := ErrFDNotRegistered
	wrapped := WrapError("unregister failed", cause)

	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "unregister failed: coro: fd not registered", wrapped.Error())
}

func TestWrapErrorSupportsErrorsAs(t *testing.T) {
	wrapped := WrapError("syscall failed", errors.New("boom"))
	var target error
	assert.True(t, errors.As(wrapped, &target))
}
