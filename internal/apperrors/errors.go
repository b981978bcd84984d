package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that can be rendered to API consumers.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// Is matches two AppErrors on their code so wrapped copies compare equal.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// WithInternal returns a copy of the AppError with an attached cause.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}
	cpy := *e
	cpy.Internal = err
	return &cpy
}

// Sentinel errors shared across handlers and services.
var (
	ErrValidation = &AppError{
		Code:       "VALIDATION",
		Message:    "Invalid input",
		StatusCode: http.StatusBadRequest,
	}
	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}
	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "Permission denied",
		StatusCode: http.StatusForbidden,
	}
	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}
	ErrBackend = &AppError{
		Code:       "BACKEND",
		Message:    "Store operation failed",
		StatusCode: http.StatusInternalServerError,
	}
)

// Validation builds a field-specific validation error.
func Validation(message string) *AppError {
	return &AppError{
		Code:       ErrValidation.Code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NotFound builds a not-found error with a concrete message.
func NotFound(message string) *AppError {
	return &AppError{
		Code:       ErrNotFound.Code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// Forbidden builds an authorization error with a concrete message.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:       ErrForbidden.Code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// Backend wraps a store failure, preserving the underlying cause.
func Backend(message string, cause error) *AppError {
	return &AppError{
		Code:       ErrBackend.Code,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   cause,
	}
}

// StatusCode resolves the HTTP status for any error value.
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
