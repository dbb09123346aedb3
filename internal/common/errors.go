// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound = errors.New("not found")

	// Classification errors.
	ErrUpstreamCall  = errors.New("upstream call failed")
	ErrResponseParse = errors.New("failed to parse AI response")
	ErrResponseShape = errors.New("AI provided invalid response format")

	// Inbound message errors.
	ErrEmptyMessage       = errors.New("message text is empty")
	ErrUnauthorizedSender = errors.New("sender is not authorized")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}

// IsClassificationError reports whether err came from a malformed AI reply
// rather than from the network.
func IsClassificationError(err error) bool {
	return errors.Is(err, ErrResponseParse) || errors.Is(err, ErrResponseShape)
}
