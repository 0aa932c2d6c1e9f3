package service

import (
	"errors"
	"net/http"

	"github.com/darmiel/paytrust/internal/core"
)

// HTTPError represents an error with an associated HTTP status code.
// TODO(future): it is probably not optimal to tie service errors to HTTP layer. We should refactor this later. :)
type HTTPError struct {
	StatusCode int
	Wrapped    error
}

func (e HTTPError) Error() string {
	return e.Wrapped.Error()
}

func (e HTTPError) Unwrap() error {
	return e.Wrapped
}

func httpError(statusCode int, err error) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Wrapped:    err,
	}
}

const (
	KindValidation    = "validation"
	KindMalformed     = "malformed"
	KindDecryption    = "decryption"
	KindConfiguration = "configuration"
	KindInternal      = "internal"
)

// Kind classifies err by the trust core error it wraps.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, core.ErrValidation):
		return KindValidation
	case errors.Is(err, core.ErrMalformedMessage):
		return KindMalformed
	case errors.Is(err, core.ErrDecryption):
		return KindDecryption
	case errors.Is(err, core.ErrConfiguration):
		return KindConfiguration
	default:
		return KindInternal
	}
}

// StatusFor maps an error kind to the status an inbound caller receives.
func StatusFor(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	switch Kind(err) {
	case KindValidation:
		return http.StatusUnauthorized
	case KindMalformed, KindDecryption:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
