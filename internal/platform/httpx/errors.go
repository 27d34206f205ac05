package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for the domain layer. Handlers and the authorization gate
// map these to distinct status codes so clients can tell an authorization
// denial apart from a validation failure or a missing record.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// FieldErrors carries per-field validation messages. It wraps ErrValidation
// so errors.Is keeps working at the transport boundary.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	return ErrValidation.Error()
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (fe FieldErrors) Unwrap() error {
	return ErrValidation
}

// AsFieldErrors extracts field messages from err, if any.
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrValidation):
		if fields, ok := AsFieldErrors(err); ok {
			JSON(w, http.StatusBadRequest, ProblemDetail{
				Title:  "Validation Failed",
				Status: http.StatusBadRequest,
				Fields: fields,
			})
			return
		}
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrForbidden):
		// Generic title only; never disclose which sub-check failed.
		Problem(w, http.StatusForbidden, "Forbidden", "")
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
