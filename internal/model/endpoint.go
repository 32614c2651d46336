package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"apicatalog/internal/logger"
)

// Method is the HTTP method of a catalogued endpoint.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
)

// ParseMethod upper-cases m and checks it is one of the catalogued methods.
func ParseMethod(m string) (Method, error) {
	switch v := Method(strings.ToUpper(strings.TrimSpace(m))); v {
	case MethodGet, MethodPost, MethodPut, MethodDelete:
		return v, nil
	default:
		return "", &ValidationError{Field: "method", Message: fmt.Sprintf("unsupported method %q", m)}
	}
}

// Status is the lifecycle stage of an endpoint.
type Status string

const (
	StatusDevelop    Status = "Develop"
	StatusProduction Status = "Production"
)

// ParseStatus accepts Develop or Production (case-insensitive). Empty input
// means Develop.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "develop":
		return StatusDevelop, nil
	case "production":
		return StatusProduction, nil
	default:
		return "", &ValidationError{Field: "status", Message: fmt.Sprintf("unsupported status %q", s)}
	}
}

// Endpoint is a documented REST route with an example response.
type Endpoint struct {
	ID          ID              `json:"id,omitempty"`
	BaseURL     string          `json:"baseUrl"`
	Method      Method          `json:"method"`
	Path        string          `json:"path"`
	Description string          `json:"description"`
	Status      Status          `json:"status"`
	Websites    []string        `json:"websites"`
	Response    json.RawMessage `json:"response"`
}

// UnmarshalJSON normalizes the websites field, which backends send either as
// a comma-joined string or as an array. Any other value becomes an empty list.
func (e *Endpoint) UnmarshalJSON(b []byte) error {
	type alias Endpoint
	var aux struct {
		alias
		Websites json.RawMessage `json:"websites"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*e = Endpoint(aux.alias)
	f, err := ParseWebsitesField(aux.Websites)
	if err != nil {
		// one malformed record must not fail the whole list
		logger.With(logger.Fields{"endpoint": e.ID.String()}).Warnf("ignoring websites: %v", err)
		f = StringList{}
	}
	e.Websites = NormalizeWebsites(f)
	return nil
}

// URL is the endpoint's own address, baseUrl + path.
func (e Endpoint) URL() string {
	return strings.TrimRight(e.BaseURL, "/") + NormalizePath(e.Path)
}

// NormalizePath returns p with exactly one leading slash. Empty input gives "/".
func NormalizePath(p string) string {
	return "/" + strings.TrimLeft(strings.TrimSpace(p), "/")
}

// EndpointDraft is the user-entered form of a new endpoint. Response holds
// the raw JSON text as typed.
type EndpointDraft struct {
	BaseURL     string
	Method      string
	Path        string
	Description string
	Status      string
	Websites    []string
	Response    string
}

// Normalize validates the draft and converts it into the record sent to the
// backend.
func (d EndpointDraft) Normalize() (Endpoint, error) {
	if strings.TrimSpace(d.BaseURL) == "" {
		return Endpoint{}, &ValidationError{Field: "baseUrl", Message: "no domain selected"}
	}
	switch {
	case strings.TrimSpace(d.Path) == "":
		return Endpoint{}, required("path")
	case strings.TrimSpace(d.Description) == "":
		return Endpoint{}, required("description")
	case strings.TrimSpace(d.Response) == "":
		return Endpoint{}, required("response")
	}
	resp, err := parseResponse(d.Response)
	if err != nil {
		return Endpoint{}, err
	}
	method := d.Method
	if strings.TrimSpace(method) == "" {
		method = string(MethodGet)
	}
	m, err := ParseMethod(method)
	if err != nil {
		return Endpoint{}, err
	}
	st, err := ParseStatus(d.Status)
	if err != nil {
		return Endpoint{}, err
	}
	websites := d.Websites
	if websites == nil {
		websites = []string{}
	}
	return Endpoint{
		BaseURL:     strings.TrimSpace(d.BaseURL),
		Method:      m,
		Path:        NormalizePath(d.Path),
		Description: d.Description,
		Status:      st,
		Websites:    websites,
		Response:    resp,
	}, nil
}

// EndpointPatch carries the fields to change; nil fields are left alone.
type EndpointPatch struct {
	BaseURL     *string
	Method      *string
	Path        *string
	Description *string
	Status      *string
	Websites    *[]string
	Response    *string
}

// EndpointUpdate is the wire body of a partial update.
type EndpointUpdate struct {
	BaseURL     *string         `json:"baseUrl,omitempty"`
	Method      *Method         `json:"method,omitempty"`
	Path        *string         `json:"path,omitempty"`
	Description *string         `json:"description,omitempty"`
	Status      *Status         `json:"status,omitempty"`
	Websites    *[]string       `json:"websites,omitempty"`
	Response    json.RawMessage `json:"response,omitempty"`
}

// Normalize applies the same checks as EndpointDraft to the fields present.
func (p EndpointPatch) Normalize() (EndpointUpdate, error) {
	var u EndpointUpdate
	empty := true
	if p.BaseURL != nil {
		if strings.TrimSpace(*p.BaseURL) == "" {
			return u, &ValidationError{Field: "baseUrl", Message: "no domain selected"}
		}
		v := strings.TrimSpace(*p.BaseURL)
		u.BaseURL, empty = &v, false
	}
	if p.Method != nil {
		m, err := ParseMethod(*p.Method)
		if err != nil {
			return u, err
		}
		u.Method, empty = &m, false
	}
	if p.Path != nil {
		if strings.TrimSpace(*p.Path) == "" {
			return u, required("path")
		}
		v := NormalizePath(*p.Path)
		u.Path, empty = &v, false
	}
	if p.Description != nil {
		if strings.TrimSpace(*p.Description) == "" {
			return u, required("description")
		}
		v := *p.Description
		u.Description, empty = &v, false
	}
	if p.Status != nil {
		st, err := ParseStatus(*p.Status)
		if err != nil {
			return u, err
		}
		u.Status, empty = &st, false
	}
	if p.Websites != nil {
		v := append([]string{}, (*p.Websites)...)
		u.Websites, empty = &v, false
	}
	if p.Response != nil {
		resp, err := parseResponse(*p.Response)
		if err != nil {
			return u, err
		}
		u.Response, empty = resp, false
	}
	if empty {
		return u, &ValidationError{Message: "nothing to update"}
	}
	return u, nil
}

func parseResponse(text string) (json.RawMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, required("response")
	}
	if !json.Valid([]byte(text)) {
		return nil, &ValidationError{Field: "response", Message: "not valid JSON"}
	}
	return json.RawMessage(strings.TrimSpace(text)), nil
}
