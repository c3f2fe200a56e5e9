package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrRateLimited     ErrorType = "RATE_LIMITED"
	ErrUnauthenticated ErrorType = "UNAUTHENTICATED"
	ErrValidation      ErrorType = "VALIDATION_ERROR"
	ErrPayloadTooLarge ErrorType = "PAYLOAD_TOO_LARGE"
	ErrNotFound        ErrorType = "NOT_FOUND"
	ErrForbidden       ErrorType = "FORBIDDEN"
	ErrStorage         ErrorType = "STORAGE_ERROR"
	ErrReadOnly        ErrorType = "READ_ONLY"
	ErrInternal        ErrorType = "INTERNAL_ERROR"
)

// Messages shown to callers for kinds whose real cause must stay server-side.
const (
	MsgInternal  = "internal server error"
	MsgForbidden = "you do not have permission to perform this action"
)

// AppError is the standard error struct for the application
type AppError struct {
	Type       ErrorType      `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Cause      error          `json:"-"`
	Details    map[string]any `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail attaches audit-only context. The caller never sees it.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// PublicMessage is the text that is safe to put in a response body.
func (e *AppError) PublicMessage() string {
	switch e.Type {
	case ErrStorage, ErrInternal:
		return MsgInternal
	default:
		return e.Message
	}
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
	}
}

func NewValidation(msg string) *AppError {
	return New(ErrValidation, msg, nil)
}

func NewForbidden(reason string) *AppError {
	return New(ErrForbidden, MsgForbidden, nil).WithDetail("reason", reason)
}

func NewNotFound(resource string) *AppError {
	return New(ErrNotFound, resource+" not found", nil)
}

func NewStorage(cause error) *AppError {
	return New(ErrStorage, "storage operation failed", cause)
}

func NewUnauthenticated(cause error) *AppError {
	return New(ErrUnauthenticated, "authentication required", cause)
}

// Wrap turns any error into an AppError, treating unknown errors as internal faults.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

// Retryable reports whether a caller may retry after correcting its own state.
func Retryable(t ErrorType) bool {
	switch t {
	case ErrRateLimited, ErrUnauthenticated, ErrValidation, ErrPayloadTooLarge, ErrReadOnly:
		return true
	default:
		return false
	}
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrUnauthenticated:
		return http.StatusUnauthorized
	case ErrValidation:
		return http.StatusBadRequest
	case ErrPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrNotFound:
		return http.StatusNotFound
	case ErrForbidden:
		return http.StatusForbidden
	case ErrReadOnly:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
