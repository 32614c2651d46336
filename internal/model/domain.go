package model

import (
	"regexp"
	"strings"
)

// Domain is a registered base URL under which endpoints are grouped.
type Domain struct {
	ID  ID     `json:"id,omitempty"`
	URL string `json:"url"`
}

var domainPattern = regexp.MustCompile(`^https?://.+\..+`)

// ValidateDomainURL trims raw and checks it is non-empty and looks like an
// http(s) URL with a dotted host. It returns the trimmed value.
func ValidateDomainURL(raw string) (string, error) {
	url := strings.TrimSpace(raw)
	if url == "" {
		return "", &ValidationError{Field: "url", Message: "domain must not be empty"}
	}
	if !domainPattern.MatchString(url) {
		return "", &ValidationError{Field: "url", Message: "domain is not a valid http(s) URL"}
	}
	return url, nil
}
