// Package errors provides typed errors for the signal relay.
package errors

import (
	"errors"
	"fmt"
)

// Category sentinels. Every AppError carries exactly one of these as its Type.
var (
	// ErrValidation indicates the inbound order request was malformed.
	ErrValidation = errors.New("validation error")

	// ErrAuthentication indicates the brokerage session could not be obtained.
	ErrAuthentication = errors.New("authentication error")

	// ErrSubmission indicates the order could not be placed.
	ErrSubmission = errors.New("submission error")

	// ErrConfiguration indicates required settings are missing.
	ErrConfiguration = errors.New("configuration error")

	// ErrInternal indicates an unexpected failure.
	ErrInternal = errors.New("internal error")
)

// Kind sentinels refine a category.
var (
	ErrMissingField       = errors.New("missing field")
	ErrInvalidAction      = errors.New("invalid action")
	ErrInvalidSymbol      = errors.New("invalid symbol")
	ErrInvalidSize        = errors.New("invalid size")
	ErrInvalidLevel       = errors.New("invalid level")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMalformedResponse  = errors.New("malformed response")
	ErrUnavailable        = errors.New("unavailable")
	ErrRejected           = errors.New("rejected")
)

// AppError is a structured application error.
type AppError struct {
	// Type is the error category (sentinel error).
	Type error
	// Kind narrows the category, e.g. ErrMissingField within ErrValidation.
	Kind error
	// Message is the caller-facing error message.
	Message string
	// Details contains additional error details.
	Details map[string]any
	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the category and the cause so errors.Is/As can reach both.
func (e *AppError) Unwrap() []error {
	errs := []error{e.Type}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Is checks if this error matches the target category or kind.
func (e *AppError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	return errors.Is(e.Type, target)
}

// WithDetails adds details to an AppError.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

// Detail returns a single detail value, or nil.
func (e *AppError) Detail(key string) any {
	if e.Details == nil {
		return nil
	}
	return e.Details[key]
}

// New creates a new AppError.
func New(errType, kind error, message string) *AppError {
	return &AppError{
		Type:    errType,
		Kind:    kind,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(errType, kind error, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

// MissingField creates a validation error for an absent required field.
func MissingField(field string) *AppError {
	return &AppError{
		Type:    ErrValidation,
		Kind:    ErrMissingField,
		Message: fmt.Sprintf("missing required field %q", field),
		Details: map[string]any{"field": field},
	}
}

// InvalidAction creates a validation error for an action other than buy/sell.
func InvalidAction(action string) *AppError {
	return &AppError{
		Type:    ErrValidation,
		Kind:    ErrInvalidAction,
		Message: fmt.Sprintf("invalid action %q (want buy or sell)", action),
		Details: map[string]any{"field": "action"},
	}
}

// InvalidSymbol creates a validation error for a symbol that is not a string.
func InvalidSymbol(v any) *AppError {
	return &AppError{
		Type:    ErrValidation,
		Kind:    ErrInvalidSymbol,
		Message: fmt.Sprintf("invalid symbol: want a string, got %T", v),
		Details: map[string]any{"field": "symbol"},
	}
}

// InvalidSize creates a validation error for a non-numeric or non-positive size.
func InvalidSize(reason string) *AppError {
	return &AppError{
		Type:    ErrValidation,
		Kind:    ErrInvalidSize,
		Message: "invalid size: " + reason,
		Details: map[string]any{"field": "size"},
	}
}

// InvalidLevel creates a validation error for a bad take-profit or stop-loss level.
func InvalidLevel(field, reason string) *AppError {
	return &AppError{
		Type:    ErrValidation,
		Kind:    ErrInvalidLevel,
		Message: fmt.Sprintf("invalid %s: %s", field, reason),
		Details: map[string]any{"field": field},
	}
}

// InvalidCredentials creates an authentication error for a rejected login.
func InvalidCredentials(body string) *AppError {
	return &AppError{
		Type:    ErrAuthentication,
		Kind:    ErrInvalidCredentials,
		Message: "brokerage rejected credentials",
		Details: map[string]any{"status": 401, "body": body},
	}
}

// MalformedResponse creates an authentication error for a login reply lacking tokens.
func MalformedResponse(missing string) *AppError {
	return &AppError{
		Type:    ErrAuthentication,
		Kind:    ErrMalformedResponse,
		Message: fmt.Sprintf("login response missing %s header", missing),
	}
}

// AuthUnavailable creates an authentication error for an unexpected status or transport failure.
// status is zero when the request never produced a response.
func AuthUnavailable(status int, body string, cause error) *AppError {
	e := &AppError{
		Type:    ErrAuthentication,
		Kind:    ErrUnavailable,
		Message: "brokerage login unavailable",
		Cause:   cause,
	}
	if status != 0 {
		e.Message = fmt.Sprintf("brokerage login unavailable: status %d", status)
		e.Details = map[string]any{"status": status, "body": body}
	}
	return e
}

// Rejected creates a submission error for a non-200 order response.
func Rejected(status int, body string) *AppError {
	return &AppError{
		Type:    ErrSubmission,
		Kind:    ErrRejected,
		Message: fmt.Sprintf("order rejected: status %d", status),
		Details: map[string]any{"status": status, "body": body},
	}
}

// SubmissionUnavailable creates a submission error for a transport failure.
func SubmissionUnavailable(cause error) *AppError {
	return &AppError{
		Type:    ErrSubmission,
		Kind:    ErrUnavailable,
		Message: "order endpoint unavailable",
		Cause:   cause,
	}
}

// MissingConfig creates a configuration error listing the absent settings.
func MissingConfig(names []string) *AppError {
	return &AppError{
		Type:    ErrConfiguration,
		Message: fmt.Sprintf("missing required settings: %v", names),
		Details: map[string]any{"missing": names},
	}
}

// Internal creates an internal error.
func Internal(message string, cause error) *AppError {
	return &AppError{
		Type:    ErrInternal,
		Message: message,
		Cause:   cause,
	}
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsAuthentication checks if an error is an authentication error.
func IsAuthentication(err error) bool {
	return errors.Is(err, ErrAuthentication)
}

// IsSubmission checks if an error is a submission error.
func IsSubmission(err error) bool {
	return errors.Is(err, ErrSubmission)
}

// IsConfiguration checks if an error is a configuration error.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// As is a shorthand for errors.As into an *AppError.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Category returns a short label for the error's category, used for metrics and the journal.
func Category(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrAuthentication):
		return "authentication"
	case errors.Is(err, ErrSubmission):
		return "submission"
	default:
		return "internal"
	}
}
