package client

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Kind classifies a failed remote call. Local validation failures never get
// here; they are rejected by the state components before any call is made.
type Kind int

const (
	// KindTransport covers unreachable servers, timeouts and unstructured
	// responses.
	KindTransport Kind = iota
	// KindRemote covers structured rejections carrying a server message,
	// such as insufficient funds or a missing product.
	KindRemote
)

// APIError is a structured rejection from the server: an HTTP status of 400
// or above with a {"message": ...} body.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server rejected request (status %d)", e.Status)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// Classify reports whether err is a remote rejection or a transport failure.
func Classify(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return KindRemote
	}
	return KindTransport
}

// UserMessage renders err as the one-line notification shown to the user.
// A server-provided message wins; otherwise the error text; a nil error
// falls back to a generic line so callers can pass failures through blindly.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return "Something went wrong"
}
