package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreErrorWrapsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk full")
	err := &StoreError{Cause: cause, Message: "could not write"}

	assert.Equal(t, "could not write: disk full", err.Error())
	assert.True(t, errors.Is(err, cause))
}

func TestToolErrorMessage(t *testing.T) {
	t.Parallel()

	err := &ToolError{Message: "library is required"}
	assert.Equal(t, "library is required", err.Error())
}

func TestVersionNotFoundErrorMessage(t *testing.T) {
	t.Parallel()

	err := &VersionNotFoundError{Library: "acme", Requested: "4.x"}
	assert.Contains(t, err.Error(), "acme")
	assert.Contains(t, err.Error(), "4.x")
}
