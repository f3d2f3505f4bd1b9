// Package ai provides common error classification for the AI provider
// implementations (STT, TTS, LLM, VAD).
package ai

import "errors"

var (
	// ErrRecoverable indicates a temporary failure that may succeed if retried.
	// Examples: network timeout, rate limiting, temporary service unavailability.
	ErrRecoverable = errors.New("recoverable AI provider error")

	// ErrFatal indicates a permanent failure that will not succeed if retried.
	// Examples: invalid API key, unsupported format, malformed request.
	ErrFatal = errors.New("fatal AI provider error")
)

// IsRecoverable checks if an error is recoverable and should be retried.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrRecoverable)
}

// IsFatal checks if an error is fatal and should not be retried.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}

// ClassifiedError wraps an underlying error with retry classification.
type ClassifiedError struct {
	Underlying error
	Retryable  bool
	Message    string
}

func (e *ClassifiedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Underlying.Error()
}

func (e *ClassifiedError) Unwrap() error {
	if e.Retryable {
		return ErrRecoverable
	}
	return ErrFatal
}

// NewRecoverableError creates a recoverable error with context.
func NewRecoverableError(underlying error, message string) error {
	return &ClassifiedError{Underlying: underlying, Retryable: true, Message: message}
}

// NewFatalError creates a fatal error with context.
func NewFatalError(underlying error, message string) error {
	return &ClassifiedError{Underlying: underlying, Retryable: false, Message: message}
}
