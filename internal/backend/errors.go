package backend

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthorized reports that the session token was rejected.
var ErrUnauthorized = errors.New("backend: unauthorized")

// APIError is a non-2xx response other than a session-ending 401.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return "backend: " + http.StatusText(e.Status)
	}
	return "backend: " + e.Message
}

// errorBody covers the shapes the API uses for failures: a message string,
// a list of validation messages, or an `error` field.
type errorBody struct {
	Message json.RawMessage `json:"message"`
	Error   string          `json:"error"`
}

func newAPIError(status int, raw []byte) *APIError {
	e := &APIError{Status: status}
	var body errorBody
	if json.Unmarshal(raw, &body) != nil {
		return e
	}

	var s string
	var list []string
	switch {
	case json.Unmarshal(body.Message, &s) == nil && s != "":
		e.Message = s
	case json.Unmarshal(body.Message, &list) == nil && len(list) > 0:
		e.Message = strings.Join(list, "; ")
	default:
		e.Message = body.Error
	}
	return e
}

// Message returns the server-provided message carried by err, if any.
func Message(err error) (string, bool) {
	var ae *APIError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message, true
	}
	return "", false
}
