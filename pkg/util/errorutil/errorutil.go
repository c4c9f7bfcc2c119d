package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Error codes shared by services and the HTTP layer.
const (
	CodeValidation  = "VALIDATION_FAILED"
	CodeInvalidStat = "INVALID_STATUS"
	CodeNotFound    = "NOT_FOUND"
	CodePersistence = "PERSISTENCE_FAILED"
	CodeUnauthorize = "UNAUTHORIZED"
	CodeForbidden   = "FORBIDDEN"
	CodeInternal    = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

// NewInvalidStatus reports a status value outside the workflow enum.
func NewInvalidStatus(value string) error {
	return NewDomainError(CodeInvalidStat, "invalid status", http.StatusBadRequest, map[string]any{
		"status":  value,
		"allowed": []string{"open", "wip", "resolved"},
	})
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewPersistenceFailure wraps a write that did not complete durably.
func NewPersistenceFailure(op string, err error) error {
	return &DomainError{
		Code:       CodePersistence,
		Message:    op + " failed",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorize, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsCode reports whether err is a DomainError carrying code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code := CodeInternal
		switch fiberErr.Code {
		case http.StatusBadRequest:
			code = CodeValidation
		case http.StatusUnauthorized:
			code = CodeUnauthorize
		case http.StatusForbidden:
			code = CodeForbidden
		case http.StatusNotFound:
			code = CodeNotFound
		}
		return NewDomainError(code, fiberErr.Message, fiberErr.Code, nil)
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
