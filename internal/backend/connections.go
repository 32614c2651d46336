package backend

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"apicatalog/internal/db"
	"apicatalog/internal/introspect"
	"apicatalog/internal/logger"
	"apicatalog/internal/model"
	"apicatalog/pkg/config"
)

func (s *Server) listConnections(w http.ResponseWriter, r *http.Request) {
	s.jsonEncode(w, http.StatusOK, s.repo.ListConnections())
}

func (s *Server) createConnection(w http.ResponseWriter, r *http.Request) {
	var c model.RestApiConnection
	if !s.decode(w, r, &c) {
		return
	}
	in := model.RestApiInput{
		ProjectName:  c.ProjectName,
		Engine:       c.Engine,
		IP:           c.IP,
		Username:     c.Username,
		Password:     c.Password,
		DatabaseName: c.DatabaseName,
	}
	normalized, err := in.Normalize()
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	normalized.Port = c.Port
	if normalized.Port == nil {
		if p := config.DefaultPort(normalized.Engine); p != 0 {
			normalized.Port = &p
		}
	}
	s.jsonEncode(w, http.StatusCreated, s.repo.AddConnection(normalized))
}

func (s *Server) deleteConnection(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteConnection(chi.URLParam(r, "id")); err != nil {
		s.notFoundOr(w, err, "connection")
		return
	}
	s.jsonEncode(w, http.StatusOK, map[string]string{"message": "deleted"})
}

func dbConfigFrom(p model.ConnectionParams) config.DBConfig {
	c := config.DBConfig{
		Engine:       p.Engine,
		IP:           p.IP,
		Username:     p.Username,
		Password:     p.Password,
		DatabaseName: p.DatabaseName,
	}
	if p.Port != nil {
		c.Port = *p.Port
	}
	return c
}

func (s *Server) testConnection(w http.ResponseWriter, r *http.Request) {
	var p model.ConnectionParams
	if !s.decode(w, r, &p) {
		return
	}
	driver, dsn, err := config.BuildDriverAndDSN(dbConfigFrom(p))
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	tables, err := db.ConnectAndListTables(r.Context(), driver, dsn, s.dbTimeout)
	if err != nil {
		logger.Warn("test connection to %s %s: %v", p.Engine, p.IP, err)
		s.jsonError(w, http.StatusBadGateway, "connection failed: "+err.Error())
		return
	}
	s.jsonEncode(w, http.StatusOK, map[string]any{"tables": tables})
}

func (s *Server) describeTable(w http.ResponseWriter, r *http.Request) {
	var req model.DescribeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Table) == "" {
		s.jsonError(w, http.StatusBadRequest, "table is required")
		return
	}
	cols, status, err := s.describe(r, dbConfigFrom(req.ConnectionParams), req.Table)
	if err != nil {
		s.jsonError(w, status, err.Error())
		return
	}
	s.jsonEncode(w, http.StatusOK, map[string]any{"structure": introspect.TableStructure(cols)})
}

// describeDefault returns example data for a table of the configured default
// database.
func (s *Server) describeDefault(w http.ResponseWriter, r *http.Request) {
	if s.defaultDB.Engine == "" && s.defaultDB.DSN == "" {
		s.jsonEncode(w, http.StatusServiceUnavailable, map[string]any{"success": false, "error": "no default database configured"})
		return
	}
	cols, status, err := s.describe(r, s.defaultDB, chi.URLParam(r, "table"))
	if err != nil {
		s.jsonEncode(w, status, map[string]any{"success": false, "error": err.Error()})
		return
	}
	data, err := introspect.ExampleList(cols)
	if err != nil {
		s.jsonEncode(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
		return
	}
	s.jsonEncode(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

type generateRequest struct {
	Table   string `json:"table"`
	Path    string `json:"path"`
	BaseURL string `json:"baseUrl"`
}

// generateOne builds a GET endpoint from the shape of a table reachable
// through a stored connection and persists it.
func (s *Server) generateOne(w http.ResponseWriter, r *http.Request) {
	conn, err := s.repo.GetConnection(chi.URLParam(r, "id"))
	if err != nil {
		s.notFoundOr(w, err, "connection")
		return
	}
	var req generateRequest
	if !s.decode(w, r, &req) {
		return
	}
	req.Table = strings.TrimSpace(req.Table)
	if req.Table == "" {
		s.jsonError(w, http.StatusBadRequest, "table is required")
		return
	}

	cols, status, err := s.describe(r, dbConfigFrom(conn.Params()), req.Table)
	if err != nil {
		s.jsonError(w, status, err.Error())
		return
	}
	example, err := introspect.ExampleList(cols)
	if err != nil {
		s.jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}

	path := req.Path
	if strings.TrimSpace(path) == "" {
		path = req.Table
	}
	baseURL := strings.TrimSpace(req.BaseURL)
	if baseURL == "" {
		if domains := s.repo.ListDomains(); len(domains) > 0 {
			baseURL = domains[0].URL
		}
	}
	created := s.repo.AddEndpoint(model.Endpoint{
		BaseURL:     baseURL,
		Method:      model.MethodGet,
		Path:        model.NormalizePath(path),
		Description: "List " + req.Table + " (" + conn.ProjectName + ")",
		Status:      model.StatusDevelop,
		Websites:    []string{},
		Response:    example,
	})
	logger.Info("generated endpoint %s %s from %s.%s", created.Method, created.Path, conn.DatabaseName, req.Table)
	s.jsonEncode(w, http.StatusCreated, created)
}

// describe connects with c and describes table, returning the HTTP status to
// use on failure.
func (s *Server) describe(r *http.Request, c config.DBConfig, table string) ([]introspect.Column, int, error) {
	driver, dsn, err := config.BuildDriverAndDSN(c)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	cols, err := db.ConnectAndDescribe(r.Context(), driver, dsn, table, s.dbTimeout)
	if err != nil {
		logger.Warn("describe %s on %s %s: %v", table, c.Engine, c.IP, err)
		return nil, http.StatusBadGateway, err
	}
	return cols, http.StatusOK, nil
}
