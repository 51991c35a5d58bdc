package domain

import (
	"errors"
	"fmt"
	"time"
)

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError is the base domain error type.
type AppError struct {
	Code       string        `json:"code"`
	Message    string        `json:"message"`
	Status     int           `json:"-"`
	Cause      error         `json:"-"`
	Details    []FieldError  `json:"errors,omitempty"`
	RetryAfter time.Duration `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// AsAppError unwraps err into an *AppError if one is in its chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Standard domain error constructors.

func ErrNotFound(entity, id string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: fmt.Sprintf("%s %s not found", entity, id), Status: 404}
}

// ErrNotFoundMsg is a not-found error with a caller-facing message.
func ErrNotFoundMsg(msg string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: msg, Status: 404}
}

func ErrConflict(msg string) *AppError {
	return &AppError{Code: "CONFLICT", Message: msg, Status: 409}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: msg, Status: 400}
}

// ErrInvalidStatus rejects a status outside pending, approved and rejected.
func ErrInvalidStatus() *AppError {
	return ErrValidation("Invalid status. Must be one of: pending, approved, rejected")
}

// ErrValidationFields is a validation error carrying per-field messages.
func ErrValidationFields(msg string, fields []FieldError) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: msg, Status: 400, Details: fields}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: msg, Status: 401}
}

func ErrRateLimited(msg string, retryAfter time.Duration) *AppError {
	return &AppError{Code: "RATE_LIMITED", Message: msg, Status: 429, RetryAfter: retryAfter}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: msg, Status: 500, Cause: cause}
}
