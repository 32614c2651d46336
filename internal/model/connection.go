package model

import (
	"strconv"
	"strings"
)

// RestApiConnection is a stored profile for introspecting an external
// relational database. Profiles are never updated in place.
type RestApiConnection struct {
	ID           ID     `json:"id,omitempty"`
	ProjectName  string `json:"projectName"`
	Engine       string `json:"engine"`
	IP           string `json:"ip"`
	Port         *int   `json:"port,omitempty"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	DatabaseName string `json:"database_name"`
}

// Params returns the connection part of the profile.
func (c RestApiConnection) Params() ConnectionParams {
	return ConnectionParams{
		Engine:       c.Engine,
		IP:           c.IP,
		Port:         c.Port,
		Username:     c.Username,
		Password:     c.Password,
		DatabaseName: c.DatabaseName,
	}
}

// ConnectionParams is the body of the test-connection call.
type ConnectionParams struct {
	Engine       string `json:"engine"`
	IP           string `json:"ip"`
	Port         *int   `json:"port,omitempty"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	DatabaseName string `json:"database_name"`
}

// DescribeRequest is the body of the describe-one-table call.
type DescribeRequest struct {
	ConnectionParams
	Table string `json:"table"`
}

// RestApiInput is the user-entered connection form. Every field is raw text.
type RestApiInput struct {
	ProjectName  string
	Engine       string
	IP           string
	Port         string
	Username     string
	Password     string
	DatabaseName string
}

func (in RestApiInput) trimmed() RestApiInput {
	return RestApiInput{
		ProjectName:  strings.TrimSpace(in.ProjectName),
		Engine:       strings.TrimSpace(in.Engine),
		IP:           strings.TrimSpace(in.IP),
		Port:         strings.TrimSpace(in.Port),
		Username:     strings.TrimSpace(in.Username),
		Password:     strings.TrimSpace(in.Password),
		DatabaseName: strings.TrimSpace(in.DatabaseName),
	}
}

// Normalize trims all fields, checks presence of the required ones and
// converts the port.
func (in RestApiInput) Normalize() (RestApiConnection, error) {
	in = in.trimmed()
	if in.ProjectName == "" {
		return RestApiConnection{}, required("projectName")
	}
	p, err := in.Params()
	if err != nil {
		return RestApiConnection{}, err
	}
	return RestApiConnection{
		ProjectName:  in.ProjectName,
		Engine:       p.Engine,
		IP:           p.IP,
		Port:         p.Port,
		Username:     p.Username,
		Password:     p.Password,
		DatabaseName: p.DatabaseName,
	}, nil
}

// Params validates the fields needed to reach the database. The project name
// is not needed for that.
func (in RestApiInput) Params() (ConnectionParams, error) {
	in = in.trimmed()
	switch {
	case in.Engine == "":
		return ConnectionParams{}, required("engine")
	case in.IP == "":
		return ConnectionParams{}, required("ip")
	case in.Username == "":
		return ConnectionParams{}, required("username")
	case in.DatabaseName == "":
		return ConnectionParams{}, required("database_name")
	}
	return ConnectionParams{
		Engine:       in.Engine,
		IP:           in.IP,
		Port:         ParsePort(in.Port),
		Username:     in.Username,
		Password:     in.Password,
		DatabaseName: in.DatabaseName,
	}, nil
}

// ParsePort reads the leading digits of s, so "3306x" gives 3306. It
// returns nil, leaving the engine default to the backend, when s has no
// leading digits or the number is not a TCP port (1-65535).
func ParsePort(s string) *int {
	s = strings.TrimSpace(s)
	end := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	if end == -1 {
		end = len(s)
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n < 1 || n > 65535 {
		return nil
	}
	return &n
}
