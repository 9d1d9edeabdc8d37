package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes used across the service layer. Handlers map them to HTTP
// statuses through AppError.Status.
const (
	CodeNotFound            = "NOT_FOUND"
	CodeBadRequest          = "BAD_REQUEST"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeInvalidParticipants = "INVALID_PARTICIPANTS"
	CodeInvalidQuantity     = "INVALID_QUANTITY"
	CodeEmptyContent        = "EMPTY_CONTENT"
	CodeTooManyRequests     = "TOO_MANY_REQUESTS"
	CodeInternal            = "INTERNAL_ERROR"
)

type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code string, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

func NotFound(resource string, err error) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound, err)
}

func BadRequest(message string, err error) *AppError {
	return New(CodeBadRequest, message, http.StatusBadRequest, err)
}

func Unauthorized(message string, err error) *AppError {
	return New(CodeUnauthorized, message, http.StatusUnauthorized, err)
}

func Forbidden(message string, err error) *AppError {
	return New(CodeForbidden, message, http.StatusForbidden, err)
}

// InvalidTransition signals an RFQ status precondition failure. It maps to
// 409 so concurrent losers can distinguish it from input validation.
func InvalidTransition(message string) *AppError {
	return New(CodeInvalidTransition, message, http.StatusConflict, nil)
}

func InvalidParticipants(message string) *AppError {
	return New(CodeInvalidParticipants, message, http.StatusBadRequest, nil)
}

func InvalidQuantity(message string) *AppError {
	return New(CodeInvalidQuantity, message, http.StatusBadRequest, nil)
}

func EmptyContent(message string) *AppError {
	return New(CodeEmptyContent, message, http.StatusBadRequest, nil)
}

func TooManyRequests(message string) *AppError {
	return New(CodeTooManyRequests, message, http.StatusTooManyRequests, nil)
}

func Internal(message string, err error) *AppError {
	return New(CodeInternal, message, http.StatusInternalServerError, err)
}

// Is reports whether err carries the given application error code.
func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
