package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is the uniform failure returned by Client. Status is 0 when the
// request never got a response.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Transport reports whether the request failed before a response arrived.
func (e *APIError) Transport() bool {
	return e.Status == 0
}

// envelopeMessage extracts the message from the backend's error envelope.
// Supported shapes: {"error": "..."}, {"error": {"message": "..."}} and
// {"message": "..."}.
func envelopeMessage(body []byte) string {
	var env struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	if len(env.Error) > 0 {
		var s string
		if err := json.Unmarshal(env.Error, &s); err == nil && s != "" {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(env.Error, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}
	}
	return env.Message
}

func statusError(status int, body []byte) *APIError {
	msg := envelopeMessage(body)
	if msg == "" {
		msg = strings.ToLower(http.StatusText(status))
		if msg == "" {
			msg = "unexpected status"
		}
	}
	return &APIError{Status: status, Message: msg}
}
