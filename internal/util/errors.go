// Package util provides utility functions and types for the envelope server.
//
// # Error Conventions
//
// This project follows a standardized error pattern across all packages:
//
//   - Sentinel errors (errors.New) for well-known, stable conditions
//     that callers check with errors.Is(). Example: ErrMissingPayload.
//   - Structured error types for context-rich errors that carry
//     additional fields (e.g., PayloadError, ContractError). Each type
//     implements Error(), Unwrap() (if wrapping), and Is().
//   - fmt.Errorf with %w for ad-hoc wrapping that adds context to an
//     existing error without introducing a new type.
//
// All custom error types must implement:
//
//	Error() string           – human-readable message
//	Unwrap() error           – if the type wraps another error
//	Is(target error) bool    – for errors.Is() compatibility
package util

import (
	"errors"
	"fmt"
)

// Common sentinel errors.
var (
	ErrMissingPayload    = errors.New("missing payload")
	ErrContractViolation = errors.New("contract violation")
	ErrDepthExceeded     = errors.New("maximum nesting depth exceeded")
	ErrConfigInvalid     = errors.New("invalid configuration")
	ErrNotFound          = errors.New("not found")
)

// PayloadError reports an object-like response value that holds nothing,
// such as a nil pointer or nil map returned by a handler.
type PayloadError struct {
	// Type is the Go type of the empty value.
	Type string
}

// Error implements the error interface.
func (e *PayloadError) Error() string {
	if e.Type == "" {
		return "missing payload"
	}
	return fmt.Sprintf("missing payload: empty %s", e.Type)
}

// Is checks if the error matches the target.
func (e *PayloadError) Is(target error) bool {
	if target == ErrMissingPayload {
		return true
	}
	_, ok := target.(*PayloadError)
	return ok
}

// NewPayloadError creates a new PayloadError.
func NewPayloadError(typeName string) *PayloadError {
	return &PayloadError{Type: typeName}
}

// ContractError reports a handler result that does not satisfy the contract
// its route declared. It is a programming error, never user input.
type ContractError struct {
	Contract string
	Type     string
}

// Error implements the error interface.
func (e *ContractError) Error() string {
	return fmt.Sprintf("contract violation: %s route returned %s", e.Contract, e.Type)
}

// Is checks if the error matches the target.
func (e *ContractError) Is(target error) bool {
	if target == ErrContractViolation {
		return true
	}
	_, ok := target.(*ContractError)
	return ok
}

// NewContractError creates a new ContractError.
func NewContractError(contract, typeName string) *ContractError {
	return &ContractError{Contract: contract, Type: typeName}
}

// DepthError reports a tree nested deeper than the configured limit.
type DepthError struct {
	Limit int
}

// Error implements the error interface.
func (e *DepthError) Error() string {
	return fmt.Sprintf("maximum nesting depth of %d exceeded", e.Limit)
}

// Is checks if the error matches the target.
func (e *DepthError) Is(target error) bool {
	if target == ErrDepthExceeded {
		return true
	}
	_, ok := target.(*DepthError)
	return ok
}

// NewDepthError creates a new DepthError.
func NewDepthError(limit int) *DepthError {
	return &DepthError{Limit: limit}
}

// HTTPError is a handler error that carries the status code and the
// message that may be shown to the client.
type HTTPError struct {
	Code    int
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("http %d: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("http %d: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *HTTPError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *HTTPError) Is(target error) bool {
	_, ok := target.(*HTTPError)
	return ok || errors.Is(e.Cause, target)
}

// NewHTTPError creates a new HTTPError.
func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{Code: code, Message: message}
}

// NewHTTPErrorWithCause creates a new HTTPError with a cause.
func NewHTTPErrorWithCause(code int, message string, cause error) *HTTPError {
	return &HTTPError{Code: code, Message: message, Cause: cause}
}

// ConfigError represents a configuration-related error.
type ConfigError struct {
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error at %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ConfigError) Is(target error) bool {
	if target == ErrConfigInvalid {
		return true
	}
	_, ok := target.(*ConfigError)
	return ok || errors.Is(e.Cause, target)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewConfigErrorWithCause creates a new ConfigError with a cause.
func NewConfigErrorWithCause(field, message string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Cause: cause}
}

// ValidationError collects several field-level configuration failures.
type ValidationError struct {
	Fields  map[string]string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error: %s (fields: %v)", e.Message, e.Fields)
}

// Is checks if the error matches the target.
func (e *ValidationError) Is(target error) bool {
	if target == ErrConfigInvalid {
		return true
	}
	_, ok := target.(*ValidationError)
	return ok
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message, Fields: make(map[string]string)}
}

// AddField adds a field error.
func (e *ValidationError) AddField(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
}

// HasErrors reports whether any field error was recorded.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
