package models

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// ErrorKind is the closed set of failure classes surfaced by the board.
type ErrorKind string

const (
	KindValidation         ErrorKind = "VALIDATION_ERROR"
	KindInvalidPagination  ErrorKind = "INVALID_PAGINATION"
	KindUnauthorized       ErrorKind = "UNAUTHORIZED"
	KindMissingToken       ErrorKind = "MISSING_TOKEN"
	KindInvalidToken       ErrorKind = "INVALID_TOKEN"
	KindInvalidCredentials ErrorKind = "INVALID_CREDENTIALS"
	KindForbidden          ErrorKind = "FORBIDDEN"
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindConflict           ErrorKind = "CONFLICT"
	KindHasReplies         ErrorKind = "HAS_REPLIES"
	KindInternal           ErrorKind = "INTERNAL_ERROR"
)

// Status returns the HTTP status code for the kind.
func (k ErrorKind) Status() int {
	switch k {
	case KindValidation, KindInvalidPagination:
		return http.StatusBadRequest
	case KindUnauthorized, KindMissingToken, KindInvalidToken, KindInvalidCredentials:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindHasReplies:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Sentinels for errors.Is matching by kind.
var (
	ErrValidation         = &AppError{Kind: KindValidation}
	ErrInvalidPagination  = &AppError{Kind: KindInvalidPagination}
	ErrUnauthorized       = &AppError{Kind: KindUnauthorized}
	ErrMissingToken       = &AppError{Kind: KindMissingToken}
	ErrInvalidToken       = &AppError{Kind: KindInvalidToken}
	ErrInvalidCredentials = &AppError{Kind: KindInvalidCredentials}
	ErrForbidden          = &AppError{Kind: KindForbidden}
	ErrNotFound           = &AppError{Kind: KindNotFound}
	ErrConflict           = &AppError{Kind: KindConflict}
	ErrHasReplies         = &AppError{Kind: KindHasReplies}
	ErrInternal           = &AppError{Kind: KindInternal}
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Kind     ErrorKind
	Message  string
	Resource string
	ID       any
	Field    string
	Err      error
}

func (e *AppError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError of the same kind, so callers can test against the
// package sentinels.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Status returns the HTTP status code for the error.
func (e *AppError) Status() int {
	return e.Kind.Status()
}

// KindOf classifies err. Anything that is not an AppError is internal.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Kind:     KindNotFound,
		Message:  fmt.Sprintf("%s with ID %v not found", resource, id),
		Resource: resource,
		ID:       id,
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Message: message,
	}
}

// NewFieldError is a validation error tied to one input field.
func NewFieldError(field, message string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Message: message,
		Field:   field,
	}
}

func NewInvalidPaginationError(field, raw string) *AppError {
	return &AppError{
		Kind:    KindInvalidPagination,
		Message: fmt.Sprintf("%s must be a positive integer, got %q", field, raw),
		Field:   field,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Kind:    KindUnauthorized,
		Message: message,
	}
}

func NewMissingTokenError() *AppError {
	return &AppError{
		Kind:    KindMissingToken,
		Message: "Authentication token is required",
	}
}

func NewInvalidTokenError(err error) *AppError {
	return &AppError{
		Kind:    KindInvalidToken,
		Message: "Invalid or expired token",
		Err:     err,
	}
}

func NewInvalidCredentialsError() *AppError {
	return &AppError{
		Kind:    KindInvalidCredentials,
		Message: "Invalid username or password",
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Kind:    KindForbidden,
		Message: message,
	}
}

func NewConflictError(field, message string) *AppError {
	return &AppError{
		Kind:    KindConflict,
		Message: message,
		Field:   field,
	}
}

func NewHasRepliesError(commentID uint) *AppError {
	return &AppError{
		Kind:     KindHasReplies,
		Message:  "Cannot delete a comment that has replies",
		Resource: "Comment",
		ID:       commentID,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Kind:    KindInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// RespondWithError writes the standardized error body with the status derived
// from the error kind. Wrapped causes of internal errors are never exposed.
func RespondWithError(c *fiber.Ctx, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = NewInternalError(err)
	}

	response := ErrorResponse{
		Error: appErr.Message,
		Code:  string(appErr.Kind),
		Field: appErr.Field,
	}
	if response.Error == "" {
		response.Error = string(appErr.Kind)
	}
	if appErr.Err != nil && appErr.Kind != KindInternal {
		response.Details = appErr.Err.Error()
	}

	return c.Status(appErr.Status()).JSON(response)
}
