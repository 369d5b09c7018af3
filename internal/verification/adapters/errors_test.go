package adapters

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewError_Retryable(t *testing.T) {
	tests := []struct {
		category  ErrorCategory
		retryable bool
	}{
		{ErrorTimeout, true},
		{ErrorOutage, true},
		{ErrorRateLimited, true},
		{ErrorBadData, false},
		{ErrorAuthentication, false},
		{ErrorContractMismatch, false},
		{ErrorNotFound, false},
		{ErrorInternal, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			err := NewError(tt.category, "registry", "boom", nil)
			assert.Equal(t, tt.retryable, err.Retryable)
			assert.Equal(t, tt.retryable, IsRetryable(fmt.Errorf("wrapped: %w", err)))
		})
	}
}

func TestClassify(t *testing.T) {
	assert.Nil(t, Classify("x", nil))

	ae := NewError(ErrorBadData, "x", "garbled", nil)
	assert.Same(t, ae, Classify("x", fmt.Errorf("call: %w", ae)))

	timeout := Classify("x", fmt.Errorf("dial: %w", context.DeadlineExceeded))
	assert.Equal(t, ErrorTimeout, timeout.Category)
	assert.True(t, timeout.Retryable)

	other := Classify("x", errors.New("connection reset"))
	assert.Equal(t, ErrorOutage, other.Category)
	assert.Equal(t, ErrorInternal, CategoryOf(errors.New("plain")))
}

func TestError_Message(t *testing.T) {
	err := NewError(ErrorNotFound, "registry", "no record", errors.New("404"))
	assert.Equal(t, "adapter registry [not_found]: no record: 404", err.Error())
	assert.EqualError(t, errors.Unwrap(err), "404")
}
