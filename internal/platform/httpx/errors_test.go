package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldErrorsWrapValidation(t *testing.T) {
	err := FieldErrors{"name": "El nombre es obligatorio."}
	assert.ErrorIs(t, err, ErrValidation)

	wrapped := fmt.Errorf("create user: %w", err)
	fields, ok := AsFieldErrors(wrapped)
	require.True(t, ok)
	assert.Equal(t, "El nombre es obligatorio.", fields["name"])

	_, ok = AsFieldErrors(errors.New("plain"))
	assert.False(t, ok)
}

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrConflict, http.StatusConflict},
		{ErrValidation, http.StatusBadRequest},
		{ErrForbidden, http.StatusForbidden},
		{ErrUnauthorized, http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}

func TestRespondErrorValidationCarriesFields(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, FieldErrors{"email": "El email no es válido."})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "El email no es válido.", problem.Fields["email"])
}

func TestRespondErrorForbiddenHasNoDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, fmt.Errorf("delete user: %w", ErrForbidden))

	require.Equal(t, http.StatusForbidden, rec.Code)
	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Empty(t, problem.Detail)
	assert.NotContains(t, rec.Body.String(), "delete user")
}

func TestWantsJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/users", nil)
	assert.False(t, WantsJSON(r))

	r.Header.Set("Accept", "application/json")
	assert.True(t, WantsJSON(r))

	r = httptest.NewRequest(http.MethodGet, "/users", nil)
	r.Header.Set("X-Requested-With", "XMLHttpRequest")
	assert.True(t, WantsJSON(r))
}
