// Package httpx provides the shared error taxonomy and the JSON envelope used
// by both sides of the receipt HTTP surface.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors shared by the server boundary, the cloud client and the
// reconciler. Wrap them with context and test with errors.Is.
var (
	// ErrValidation marks malformed mutation input, rejected before any
	// repository access.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized marks a device id or share key mismatch.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound marks an unknown receipt id.
	ErrNotFound = errors.New("receipt not found")
	// ErrNetwork marks a transport failure or a 5xx response on a cloud call.
	ErrNetwork = errors.New("network failure")
)

// RespondError maps a domain error to the HTTP envelope.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrUnauthorized):
		Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrNotFound):
		Error(w, http.StatusNotFound, err.Error())
	default:
		Error(w, http.StatusInternalServerError, "internal error")
	}
}

// StatusError converts a response status code from the receipt API back into
// the taxonomy. Used by the client side.
func StatusError(status int) error {
	switch {
	case status == http.StatusBadRequest:
		return ErrValidation
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return ErrNotFound
	default:
		return ErrNetwork
	}
}
