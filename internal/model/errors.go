package model

import "fmt"

// ValidationError reports a client-side validation failure. It is returned
// before any network call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func required(field string) *ValidationError {
	return &ValidationError{Field: field, Message: "is required"}
}
