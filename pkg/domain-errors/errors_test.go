package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches outermost code through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("submit: %w", New(CodeInvalidState, "not a draft"))
		assert.True(t, HasCode(err, CodeInvalidState))
		assert.False(t, HasCode(err, CodeValidation))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		err := errors.New("boom")
		assert.False(t, HasCode(err, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(err))
	})

	t.Run("wrap keeps the underlying error reachable", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(cause, CodePersistence, "failed to save application")
		assert.True(t, HasCode(err, CodePersistence))
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestIncomplete(t *testing.T) {
	missing := []string{"document:identity_document", "field:national_id"}
	err := Incomplete(missing)
	missing[0] = "mutated"

	require.True(t, HasCode(err, CodeIncomplete))
	assert.Equal(t, []string{"document:identity_document", "field:national_id"}, MissingItems(err))
	assert.Contains(t, err.Error(), "field:national_id")
}
