package eco

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an engine error for caller recovery logic.
type ErrorKind string

const (
	// ErrorKindNotFound indicates a referenced ECO, document, or entity does not exist.
	ErrorKindNotFound ErrorKind = "not_found"

	// ErrorKindValidation indicates malformed or missing effectivity configuration.
	// Examples: bad date format, non-numeric serial cutover, past-dated planned effective date.
	ErrorKindValidation ErrorKind = "validation"

	// ErrorKindState indicates an illegal status transition or a mutation attempted
	// in a status that forbids it. Carries the offending current status in Details.
	ErrorKindState ErrorKind = "state"

	// ErrorKindPermission indicates the actor lacks rights to mutate the ECO.
	// The engine only carries the signal; enforcement belongs to the caller.
	ErrorKindPermission ErrorKind = "permission"

	// ErrorKindInternal indicates an unexpected data-store or collaborator failure.
	// The underlying error is wrapped, never swallowed.
	ErrorKindInternal ErrorKind = "internal"
)

// Error represents a classified engine error with context.
type Error struct {
	// Kind is the error classification.
	Kind ErrorKind `json:"kind"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Resource is the ECO/document/entity ID that caused the error, if applicable.
	Resource string `json:"resource,omitempty"`

	// Operation is the operation being performed when the error occurred.
	Operation string `json:"operation,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`

	// Details contains additional context-specific information,
	// e.g. the current status for state errors.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Resource != "" && e.Operation != "" {
		return fmt.Sprintf("[%s] %s (resource=%s, operation=%s): %s",
			e.Kind, e.Message, e.Resource, e.Operation, e.unwrapMessage())
	}
	if e.Resource != "" {
		return fmt.Sprintf("[%s] %s (resource=%s): %s",
			e.Kind, e.Message, e.Resource, e.unwrapMessage())
	}
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Message, e.unwrapMessage())
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) unwrapMessage() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

// Is implements error equality checking for errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// NewNotFoundError creates a new not-found error for the given resource.
func NewNotFoundError(message, resource string) *Error {
	return &Error{
		Kind:     ErrorKindNotFound,
		Message:  message,
		Resource: resource,
	}
}

// NewValidationError creates a new validation error.
func NewValidationError(message string) *Error {
	return &Error{
		Kind:    ErrorKindValidation,
		Message: message,
	}
}

// NewStateError creates a new state error carrying the offending current status.
func NewStateError(message string, current Status) *Error {
	return &Error{
		Kind:    ErrorKindState,
		Message: message,
		Details: map[string]interface{}{"current_status": string(current)},
	}
}

// NewPermissionError creates a new permission error for the given actor.
func NewPermissionError(message, actor string) *Error {
	return &Error{
		Kind:    ErrorKindPermission,
		Message: message,
		Details: map[string]interface{}{"actor": actor},
	}
}

// NewInternalError wraps an unexpected collaborator failure.
func NewInternalError(message string, err error) *Error {
	return &Error{
		Kind:    ErrorKindInternal,
		Message: message,
		Err:     err,
	}
}

// WithResource adds resource context to an error.
func (e *Error) WithResource(resourceID string) *Error {
	e.Resource = resourceID
	return e
}

// WithOperation adds operation context to an error.
func (e *Error) WithOperation(operation string) *Error {
	e.Operation = operation
	return e
}

// WithCode adds an error code to an error.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// WithDetail adds a detail field to the error context.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsNotFound returns true if the error is classified as not-found.
func IsNotFound(err error) bool {
	return kindOf(err) == ErrorKindNotFound
}

// IsValidation returns true if the error is classified as a validation error.
func IsValidation(err error) bool {
	return kindOf(err) == ErrorKindValidation
}

// IsState returns true if the error is classified as a state error.
func IsState(err error) bool {
	return kindOf(err) == ErrorKindState
}

// IsPermission returns true if the error is classified as a permission error.
func IsPermission(err error) bool {
	return kindOf(err) == ErrorKindPermission
}

// IsInternal returns true if the error is classified as internal.
func IsInternal(err error) bool {
	return kindOf(err) == ErrorKindInternal
}

func kindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Common error codes.
const (
	ErrCodeECONotFound         = "ECO_NOT_FOUND"
	ErrCodeDocumentNotFound    = "DOCUMENT_NOT_FOUND"
	ErrCodePartNotFound        = "PART_NOT_FOUND"
	ErrCodeMissingEffectivity  = "MISSING_EFFECTIVITY"
	ErrCodeBadEffectivityValue = "BAD_EFFECTIVITY_VALUE"
	ErrCodePastEffectiveDate   = "PAST_EFFECTIVE_DATE"
	ErrCodePrematureImmediate  = "PREMATURE_IMMEDIATE"
	ErrCodeIllegalTransition   = "ILLEGAL_TRANSITION"
	ErrCodeEffectivityFrozen   = "EFFECTIVITY_FROZEN"
	ErrCodeConcurrentUpdate    = "CONCURRENT_UPDATE"
	ErrCodeStoreFailure        = "STORE_FAILURE"
)
