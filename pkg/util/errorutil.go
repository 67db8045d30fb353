package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// ErrorKind classifies every user-facing failure.
type ErrorKind string

const (
	KindValidation        ErrorKind = "VALIDATION"
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindUnauthenticated   ErrorKind = "UNAUTHENTICATED"
	KindUnauthorized      ErrorKind = "UNAUTHORIZED"
	KindInvalidTransition ErrorKind = "INVALID_TRANSITION"
	KindInvalidEvent      ErrorKind = "INVALID_EVENT"
	KindConflict          ErrorKind = "CONFLICT"
	KindInternal          ErrorKind = "INTERNAL"

	// KindInvalidRefreshToken is the single client-visible kind for every
	// refresh-token failure: unknown, revoked and expired tokens are
	// indistinguishable to callers.
	KindInvalidRefreshToken ErrorKind = "INVALID_REFRESH_TOKEN"
)

// DomainError standardizes application errors. Field is optional and
// scopes validation failures to a single input attribute.
type DomainError struct {
	Kind    ErrorKind
	Field   string
	Message string
	Err     error
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
func NewDomainError(kind ErrorKind, field, message string) *DomainError {
	return &DomainError{Kind: kind, Field: field, Message: message}
}

func NewValidationError(field, message string) error {
	return NewDomainError(KindValidation, field, message)
}

func NewNotFound(resource string) error {
	return NewDomainError(KindNotFound, "", fmt.Sprintf("%s not found", resource))
}

func NewUnauthenticated(message string) error {
	return NewDomainError(KindUnauthenticated, "", message)
}

func NewUnauthorized(message string) error {
	return NewDomainError(KindUnauthorized, "", message)
}

func NewInvalidTransition(message string) error {
	return NewDomainError(KindInvalidTransition, "status", message)
}

func NewInvalidEvent(message string) error {
	return NewDomainError(KindInvalidEvent, "event", message)
}

func NewConflict(message string) error {
	return NewDomainError(KindConflict, "", message)
}

func NewInternalError(err error) error {
	return &DomainError{Kind: KindInternal, Message: "internal server error", Err: err}
}

// ToDomainError converts generic errors to DomainError. Unrecognized
// errors collapse to INTERNAL; pgx.ErrNoRows maps to NOT_FOUND.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &DomainError{Kind: KindNotFound, Message: "resource not found"}
	}
	return &DomainError{Kind: KindInternal, Message: "internal server error", Err: err}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// HTTPStatus maps an error kind to a transport status code.
func HTTPStatus(kind ErrorKind) int {
	switch kind {
	case KindValidation, KindInvalidTransition, KindInvalidEvent:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthenticated, KindInvalidRefreshToken:
		return http.StatusUnauthorized
	case KindUnauthorized:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// FieldError is the uniform wire shape for mutation errors.
type FieldError struct {
	Field   string    `json:"field"`
	Message string    `json:"message"`
	Code    ErrorKind `json:"code"`
}

// FieldErrorFrom flattens a DomainError into its wire shape. Errors with
// no field scope report against "base", mirroring record-level failures.
func FieldErrorFrom(err *DomainError) FieldError {
	field := err.Field
	if field == "" {
		field = "base"
	}
	return FieldError{Field: field, Message: err.Message, Code: err.Kind}
}
