// Package backend is a reference implementation of the REST surface the
// catalogue client talks to. It keeps records in memory and introspects
// databases through package db.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"apicatalog/internal/logger"
	"apicatalog/pkg/config"
)

// DuplicateDomainMessage is the error text clients match on for an already
// registered domain.
const DuplicateDomainMessage = "Domain sudah ada"

// Server serves the catalogue API from a Repository.
type Server struct {
	repo        *Repository
	defaultDB   config.DBConfig
	dbTimeout   int
	callTimeout time.Duration
	httpClient  *http.Client
}

// Option configures a Server.
type Option func(*Server)

// WithDefaultDatabase sets the database used by GET /describe/{table}.
func WithDefaultDatabase(db config.DBConfig) Option {
	return func(s *Server) { s.defaultDB = db }
}

// WithDBTimeout bounds each introspection connection, in seconds.
func WithDBTimeout(sec int) Option {
	return func(s *Server) {
		if sec > 0 {
			s.dbTimeout = sec
		}
	}
}

// WithCallTimeout bounds proxied calls to catalogued endpoints.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.callTimeout = d
		}
	}
}

// NewServer returns a server over repo. Without options it has no default
// database and uses the package timeouts from config.
func NewServer(repo *Repository, opts ...Option) *Server {
	s := &Server{
		repo:        repo,
		dbTimeout:   config.DefaultDBTimeout,
		callTimeout: config.DefaultProbeTimeout * time.Second,
		httpClient:  http.DefaultClient,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Router mounts every route under /api.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/get", s.listEndpoints)
		r.Post("/post", s.createEndpoint)
		r.Put("/put/{id}", s.updateEndpoint)
		r.Delete("/delete/{id}", s.deleteEndpoint)
		r.Get("/describe/{table}", s.describeDefault)

		r.Get("/domain/get", s.listDomains)
		r.Post("/domain/post", s.createDomain)
		r.Delete("/domain/delete/{id}", s.deleteDomain)

		r.Get("/restapi/get", s.listConnections)
		r.Post("/restapi/post", s.createConnection)
		r.Delete("/restapi/delete/{id}", s.deleteConnection)
		r.Post("/restapi/generateone/{id}", s.generateOne)

		r.Post("/testconn", s.testConnection)
		r.Post("/describe", s.describeTable)

		r.Get("/call/{id}", s.callEndpoint)
		r.Get("/call/{id}/*", s.callEndpoint)
	})
	return r
}

func (s *Server) jsonEncode(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("error while serializing data: %v", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, code int, msg string) {
	s.jsonEncode(w, code, map[string]string{"error": msg})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return false
	}
	return true
}

func (s *Server) notFoundOr(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, ErrNotFound) {
		s.jsonError(w, http.StatusNotFound, what+" not found")
		return
	}
	logger.Error("%s: %v", what, err)
	s.jsonError(w, http.StatusInternalServerError, err.Error())
}

// callEndpoint proxies a GET to a stored endpoint's baseUrl joined with the
// rest of the request path, passing the upstream body through.
func (s *Server) callEndpoint(w http.ResponseWriter, r *http.Request) {
	ep, err := s.repo.GetEndpoint(chi.URLParam(r, "id"))
	if err != nil {
		s.notFoundOr(w, err, "endpoint")
		return
	}
	target := strings.TrimRight(ep.BaseURL, "/") + "/" + strings.TrimLeft(chi.URLParam(r, "*"), "/")
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.callTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		logger.Warn("call %s: %v", target, err)
		s.jsonError(w, http.StatusBadGateway, "call failed: "+err.Error())
		return
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		logger.Warn("copy response from %s: %v", target, err)
	}
}
