package adapters

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for adapter calls.
type ErrorCategory string

const (
	// ErrorTimeout indicates the adapter took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the adapter returned invalid or malformed data
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorAuthentication indicates credential or permission issues
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorOutage indicates the adapter is unavailable
	ErrorOutage ErrorCategory = "outage"

	// ErrorContractMismatch indicates the vendor API changed shape
	ErrorContractMismatch ErrorCategory = "contract_mismatch"

	// ErrorNotFound indicates the requested record doesn't exist
	ErrorNotFound ErrorCategory = "not_found"

	// ErrorRateLimited indicates too many requests
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorInternal indicates an unexpected internal error
	ErrorInternal ErrorCategory = "internal"
)

// Error wraps adapter failures with a normalized category.
type Error struct {
	Category   ErrorCategory
	AdapterID  string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("adapter %s [%s]: %s: %v", e.AdapterID, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("adapter %s [%s]: %s", e.AdapterID, e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewError creates a categorized adapter error. Timeouts, outages and rate
// limiting are retryable; everything else is a definitive answer.
func NewError(category ErrorCategory, adapterID, message string, underlying error) *Error {
	retryable := category == ErrorTimeout ||
		category == ErrorOutage ||
		category == ErrorRateLimited

	return &Error{
		Category:   category,
		AdapterID:  adapterID,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// Classify normalizes any error returned by an adapter. Context deadlines become
// timeouts; uncategorized errors are treated as transport outages.
func Classify(adapterID string, err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(ErrorTimeout, adapterID, "attempt timed out", err)
	}
	return NewError(ErrorOutage, adapterID, "transport failure", err)
}

// IsRetryable checks if an error is worth retrying
func IsRetryable(err error) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	return false
}

// CategoryOf extracts the error category from an error
func CategoryOf(err error) ErrorCategory {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Category
	}
	return ErrorInternal
}
