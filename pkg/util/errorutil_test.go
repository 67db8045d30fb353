package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainErrorPassesThrough(t *testing.T) {
	original := NewValidationError("subject", "can't be blank")
	mapped := ToDomainError(original)
	assert.Equal(t, KindValidation, mapped.Kind)
	assert.Equal(t, "subject", mapped.Field)

	wrapped := fmt.Errorf("while saving: %w", original)
	assert.Equal(t, KindValidation, ToDomainError(wrapped).Kind)
}

func TestToDomainErrorMapsNoRows(t *testing.T) {
	mapped := ToDomainError(pgx.ErrNoRows)
	assert.Equal(t, KindNotFound, mapped.Kind)
}

func TestToDomainErrorCollapsesUnknown(t *testing.T) {
	mapped := ToDomainError(errors.New("pq: connection reset"))
	assert.Equal(t, KindInternal, mapped.Kind)
	assert.Equal(t, "internal server error", mapped.Message)
	// The original sticks around for logging.
	require.Error(t, mapped.Err)
}

func TestHTTPStatus(t *testing.T) {
	cases := map[ErrorKind]int{
		KindValidation:          http.StatusUnprocessableEntity,
		KindInvalidTransition:   http.StatusUnprocessableEntity,
		KindInvalidEvent:        http.StatusUnprocessableEntity,
		KindNotFound:            http.StatusNotFound,
		KindUnauthenticated:     http.StatusUnauthorized,
		KindInvalidRefreshToken: http.StatusUnauthorized,
		KindUnauthorized:        http.StatusForbidden,
		KindConflict:            http.StatusConflict,
		KindInternal:            http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), string(kind))
	}
}

func TestFieldErrorFromDefaultsField(t *testing.T) {
	fe := FieldErrorFrom(NewDomainError(KindNotFound, "", "Ticket not found"))
	assert.Equal(t, "base", fe.Field)
	assert.Equal(t, KindNotFound, fe.Code)

	fe = FieldErrorFrom(NewDomainError(KindValidation, "email", "is invalid"))
	assert.Equal(t, "email", fe.Field)
}

func TestDomainErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := NewInternalError(inner)
	assert.True(t, errors.Is(err, inner))
}
