package store

import (
	"context"
	"errors"

	"apicatalog/internal/apiclient"
	"apicatalog/internal/model"
)

// DuplicateDomainMessage is the backend's error text for an already
// registered domain.
const DuplicateDomainMessage = "Domain sudah ada"

// ErrDuplicateDomain is returned when a domain is already registered, either
// in the local list or according to the backend.
var ErrDuplicateDomain = errors.New("domain already registered")

// Severity grades a Notice.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	default:
		return "error"
	}
}

// Notice is a user-facing report of a failed operation.
type Notice struct {
	Op       string
	Severity Severity
	Title    string
	Message  string
	Err      error
}

// Notifier receives notices for failures the stores swallow.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

type nopNotifier struct{}

func (nopNotifier) Notify(Notice) {}

// Classify maps an error to the category shown to the user.
func Classify(err error) Notice {
	if err == nil {
		return Notice{}
	}

	var verr *model.ValidationError
	if errors.As(err, &verr) {
		return Notice{Err: err, Severity: SeverityWarning, Title: "Invalid input", Message: verr.Error()}
	}

	switch {
	case errors.Is(err, ErrDuplicateDomain):
		return Notice{Err: err, Severity: SeverityWarning, Title: "Duplicate domain", Message: "The domain is already registered."}
	case errors.Is(err, context.DeadlineExceeded):
		return Notice{Err: err, Severity: SeverityError, Title: "Request timeout", Message: "The backend took too long to respond."}
	case errors.Is(err, context.Canceled):
		return Notice{Err: err, Severity: SeverityInfo, Title: "Cancelled", Message: "The request was cancelled."}
	}

	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Transport() {
			return Notice{Err: err, Severity: SeverityError, Title: "Backend unreachable", Message: apiErr.Message}
		}
		return Notice{Err: err, Severity: SeverityError, Title: "Request failed", Message: apiErr.Message}
	}

	return Notice{Err: err, Severity: SeverityError, Title: "Unexpected error", Message: err.Error()}
}

func isDuplicateDomain(err error) bool {
	var apiErr *apiclient.APIError
	return errors.As(err, &apiErr) && apiErr.Message == DuplicateDomainMessage
}
