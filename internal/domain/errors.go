package domain

import "errors"

// Common domain errors
var (
	// Request validation errors, raised before any gateway call
	ErrInvalidRequest  = errors.New("invalid refinement request")
	ErrEmptyPrompt     = errors.New("prompt cannot be empty")
	ErrUnknownStrategy = errors.New("unknown refinement strategy")

	// Model gateway errors
	ErrGatewayUnavailable = errors.New("model gateway unavailable")
	ErrTruncated          = errors.New("model output truncated before completion")
	ErrMalformedOutput    = errors.New("model output missing required fields")
	ErrUnknownInstruction = errors.New("unknown instruction")

	// Example cache errors
	ErrCacheCorrupt = errors.New("example cache corrupt")

	// History errors
	ErrHistoryUnavailable = errors.New("history log unavailable")
)

// IsGatewayFailure reports whether err is one of the model gateway failure
// kinds (unavailable, truncated, malformed).
func IsGatewayFailure(err error) bool {
	return errors.Is(err, ErrGatewayUnavailable) ||
		errors.Is(err, ErrTruncated) ||
		errors.Is(err, ErrMalformedOutput)
}

// DomainError wraps a domain error with additional context
type DomainError struct {
	Err     error
	Message string
	Code    string
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func NewDomainError(err error, message string) *DomainError {
	return &DomainError{
		Err:     err,
		Message: message,
	}
}

func NewDomainErrorWithCode(err error, message, code string) *DomainError {
	return &DomainError{
		Err:     err,
		Message: message,
		Code:    code,
	}
}
