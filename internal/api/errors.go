package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/luki/smartfarm/internal/reading"
)

// ErrTransport wraps network failures: the request never produced an HTTP
// response.
var ErrTransport = errors.New("transport failure")

// StatusError is a non-2xx response. Message is the server's "message" or
// "error" field when it sent one.
type StatusError struct {
	Op      string
	Code    int
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Status)
}

// Describe maps an error from this package to the one line shown to the
// user. A rejected sign-in shows the server's reason; any other 401 means
// the stored token is missing or stale.
func Describe(err error) string {
	var se *StatusError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, reading.ErrMalformed):
		return "Invalid data format received from the server."
	case errors.As(err, &se):
		if se.Code == http.StatusUnauthorized && se.Op != opLogin {
			return "Not signed in or session expired. Run `smartfarm login` first."
		}
		if se.Message != "" {
			return se.Message
		}
		return fmt.Sprintf("Server returned %s.", se.Status)
	case errors.Is(err, ErrTransport):
		return "Error fetching data. Please check your internet connection or server status."
	default:
		return "An error occurred. Please try again."
	}
}
