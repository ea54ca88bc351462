package backend

import (
	"errors"
	"net/http"
	"strconv"
)

var (
	// ErrBackendRejected is returned when the backend answers with a non-zero envelope code.
	ErrBackendRejected = errors.New("backend rejected request")

	// ErrMalformedResponse is returned when the body is not a valid envelope.
	ErrMalformedResponse = errors.New("malformed backend response")

	// ErrNoLabels is returned by Deploy and Undeploy when called with no labels.
	ErrNoLabels = errors.New("no stack labels given")
)

// StatusError represents a non-2xx reply from the backend.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return "backend returned status " + strconv.Itoa(e.StatusCode) + " " + http.StatusText(e.StatusCode)
}
