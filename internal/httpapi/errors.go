package httpapi

import (
	"errors"
	"net/http"

	"github.com/hyperifyio/piproxy/internal/fetch"
	"github.com/hyperifyio/piproxy/internal/guard"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Fixed client-facing messages; internal detail only goes to the log.
const (
	msgInvalidScheme  = "Only https allowed"
	msgHostNotAllowed = "Host not allowed"
	msgUpstream       = "Upstream error"
	msgBadRequest     = "Invalid request body"
	msgInternal       = "Internal server error"
)

// statusFor maps an operation error to its HTTP status and message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, guard.ErrInvalidScheme):
		return http.StatusBadRequest, msgInvalidScheme
	case errors.Is(err, guard.ErrHostNotAllowed):
		return http.StatusForbidden, msgHostNotAllowed
	case errors.Is(err, fetch.ErrUpstream):
		return http.StatusBadGateway, msgUpstream
	default:
		return http.StatusInternalServerError, msgInternal
	}
}
