package util

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound   = "NOT_FOUND"
	CodeValidation = "VALIDATION_FAILED"
	CodeConflict   = "CONFLICT"
	CodeInternal   = "INTERNAL_ERROR"

	CodeUnauthorized = "UNAUTHORIZED"
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

// NewNotFound reports a missing user or task.
func NewNotFound(entity, id string) error {
	return NewDomainError(CodeNotFound,
		fmt.Sprintf("%s not found", entity),
		http.StatusNotFound,
		map[string]any{"entity": entity, "id": id})
}

// NewValidationError reports structurally invalid input on a field.
func NewValidationError(field, reason string) error {
	return NewDomainError(CodeValidation,
		fmt.Sprintf("invalid %s: %s", field, reason),
		http.StatusBadRequest,
		map[string]any{"field": field, "reason": reason})
}

// NewConflict reports a uniqueness violation on a field.
func NewConflict(field string, value any) error {
	return NewDomainError(CodeConflict,
		fmt.Sprintf("%s already in use", field),
		http.StatusBadRequest,
		map[string]any{"field": field, "value": value})
}

// NewUnauthorized reports rejected credentials without saying which part failed.
func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
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

// HasCode reports whether err carries a DomainError with the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

func IsNotFound(err error) bool   { return HasCode(err, CodeNotFound) }
func IsValidation(err error) bool { return HasCode(err, CodeValidation) }
func IsConflict(err error) bool   { return HasCode(err, CodeConflict) }
func IsInternal(err error) bool   { return HasCode(err, CodeInternal) }

func IsUnauthorized(err error) bool { return HasCode(err, CodeUnauthorized) }
