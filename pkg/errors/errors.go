package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents an error code
type ErrorCode string

const (
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeConnection    ErrorCode = "CONNECTION_ERROR"
	ErrCodePersistence   ErrorCode = "PERSISTENCE_ERROR"
	ErrCodeNotification  ErrorCode = "NOTIFICATION_ERROR"
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// Validation kinds
const (
	KindMissingFields      = "missing_fields"
	KindInvalidEmailFormat = "invalid_email_format"
	KindDomainUnreachable  = "domain_unreachable"
)

// AppError represents an application error
type AppError struct {
	Code    ErrorCode
	Kind    string // validation kind, empty for other codes
	Message string
	Field   string // offending request field, if any
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Validation creates a client-caused validation error of the given kind.
func Validation(kind, field, message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Kind:    kind,
		Field:   field,
		Message: message,
	}
}

// Configuration reports a missing or malformed deployment setting.
func Configuration(message string) *AppError {
	return New(ErrCodeConfiguration, message)
}

// Connection wraps a failure to reach the backing store.
func Connection(message string, err error) *AppError {
	return Wrap(ErrCodeConnection, message, err)
}

// Persistence wraps a failed write.
func Persistence(message string, err error) *AppError {
	return Wrap(ErrCodePersistence, message, err)
}

// Notification wraps a failed notification attempt.
func Notification(message string, err error) *AppError {
	return Wrap(ErrCodeNotification, message, err)
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first AppError in err's chain, or
// ErrCodeInternalError when there is none.
func CodeOf(err error) ErrorCode {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return ErrCodeInternalError
}

// IsValidation checks if error is a validation error
func IsValidation(err error) bool {
	return CodeOf(err) == ErrCodeValidation
}

// IsConfiguration checks if error is a configuration error
func IsConfiguration(err error) bool {
	return CodeOf(err) == ErrCodeConfiguration
}

// IsConnection checks if error is a connection error
func IsConnection(err error) bool {
	return CodeOf(err) == ErrCodeConnection
}

// IsPersistence checks if error is a persistence error
func IsPersistence(err error) bool {
	return CodeOf(err) == ErrCodePersistence
}

// KindOf returns the validation kind of err, or "" if err is not a validation error.
func KindOf(err error) string {
	if appErr, ok := As(err); ok && appErr.Code == ErrCodeValidation {
		return appErr.Kind
	}
	return ""
}
