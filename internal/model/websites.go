package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// WebsitesField is the shape a backend may use for an endpoint's websites:
// either DelimitedString or StringList.
type WebsitesField interface {
	websites()
}

// DelimitedString is a comma-joined list, e.g. "a, b,c".
type DelimitedString string

// StringList is an already split list. It is never re-split.
type StringList []string

func (DelimitedString) websites() {}
func (StringList) websites()      {}

// ParseWebsitesField decodes the raw websites value. null and absent values
// decode to an empty StringList.
func ParseWebsitesField(raw json.RawMessage) (WebsitesField, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return StringList{}, nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("websites: %w", err)
		}
		return DelimitedString(s), nil
	case '[':
		var l []string
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, fmt.Errorf("websites: %w", err)
		}
		return StringList(l), nil
	default:
		return nil, fmt.Errorf("websites: unsupported JSON value %s", raw)
	}
}

// NormalizeWebsites converts either shape into a list. Only the delimited
// form is split and trimmed; list elements are kept as they are.
func NormalizeWebsites(f WebsitesField) []string {
	switch v := f.(type) {
	case DelimitedString:
		if v == "" {
			return []string{}
		}
		parts := strings.Split(string(v), ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	case StringList:
		out := make([]string, len(v))
		copy(out, v)
		return out
	default:
		return []string{}
	}
}

// SplitWebsites turns comma-separated form input into a list. Empty input
// yields an empty list.
func SplitWebsites(input string) []string {
	if strings.TrimSpace(input) == "" {
		return []string{}
	}
	return NormalizeWebsites(DelimitedString(input))
}
