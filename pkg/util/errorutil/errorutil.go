package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Error codes carried by DomainError.
const (
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountExists      = "ACCOUNT_EXISTS"
	CodeStorageFailure     = "STORAGE_FAILURE"
	CodeInternal           = "INTERNAL_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeForbidden          = "FORBIDDEN"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	// Details carries per-field messages for validation failures.
	Details map[string]any
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

// Sentinel outcomes of the account flows. The messages are user facing.
var (
	ErrCredentialMismatch = NewDomainError(CodeInvalidCredentials, "Wrong credentials, cannot connect", http.StatusUnauthorized, nil)
	ErrDuplicateAccount   = NewDomainError(CodeAccountExists, "Account already exists.", http.StatusConflict, nil)
)

// NewValidationError reports input rejected after form validation passed; details maps field to message.
func NewValidationError(message string, details map[string]any) *DomainError {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound, nil)
}

func NewForbidden(message string) *DomainError {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

// AsValidationError finds a VALIDATION_FAILED DomainError in err's chain.
func AsValidationError(err error) (*DomainError, bool) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) && domainErr.Code == CodeValidationFailed {
		return domainErr, true
	}
	return nil, false
}

// NewStorageFailure marks an infrastructure error from the credential store.
func NewStorageFailure(err error) error {
	return &DomainError{
		Code:       CodeStorageFailure,
		Message:    "storage failure",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
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
		return fromFiberError(fiberErr)
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func fromFiberError(err *fiber.Error) *DomainError {
	switch err.Code {
	case http.StatusNotFound:
		return NewNotFound("page")
	case http.StatusForbidden:
		return NewForbidden("request forbidden")
	case http.StatusMethodNotAllowed:
		return NewDomainError("METHOD_NOT_ALLOWED", err.Message, err.Code, nil)
	}
	if err.Code >= http.StatusInternalServerError {
		return &DomainError{Code: CodeInternal, Message: "internal server error", HTTPStatus: err.Code, Err: err}
	}
	return NewDomainError("BAD_REQUEST", err.Message, err.Code, nil)
}
