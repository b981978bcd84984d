package apperrors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithInternalPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := ErrBackend.WithInternal(cause)

	require.ErrorIs(t, err, ErrBackend)
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestValidationCarriesMessage(t *testing.T) {
	err := Validation("title is required")

	assert.Equal(t, "title is required", err.Message)
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	require.ErrorIs(t, err, ErrValidation)
}

func TestStatusCodeFallsBackToInternalServerError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusCode(errors.New("plain")))
	assert.Equal(t, http.StatusForbidden, StatusCode(Forbidden("admins only")))
	assert.Equal(t, http.StatusNotFound, StatusCode(NotFound("no such user")))
}
