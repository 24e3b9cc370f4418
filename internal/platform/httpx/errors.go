// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// GenericInternalMessage is the only text a client sees for unexpected failures.
const GenericInternalMessage = "something went wrong, please try again later"

// StatusOf maps a domain error to its HTTP status code.
func StatusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to `{"error": ...}` responses. Unexpected errors are logged
// with their cause and answered with a generic message.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request failed", slog.Any("error", err))
		}
		Error(w, status, GenericInternalMessage)
		return
	}
	var fieldErr *FieldErrors
	if errors.As(err, &fieldErr) {
		JSON(w, status, ErrorBody{Error: ErrValidation.Error(), Fields: fieldErr.Fields})
		return
	}
	Error(w, status, err.Error())
}
