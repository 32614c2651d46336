package backend

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"apicatalog/internal/model"
)

func (s *Server) listEndpoints(w http.ResponseWriter, r *http.Request) {
	s.jsonEncode(w, http.StatusOK, s.repo.ListEndpoints())
}

// checkEndpoint applies the server-side rules for a complete endpoint.
func checkEndpoint(ep *model.Endpoint) error {
	if strings.TrimSpace(ep.BaseURL) == "" || strings.TrimSpace(ep.Path) == "" ||
		strings.TrimSpace(ep.Description) == "" || len(ep.Response) == 0 {
		return &model.ValidationError{Message: "baseUrl, path, description and response are required"}
	}
	if !json.Valid(ep.Response) {
		return &model.ValidationError{Field: "response", Message: "not valid JSON"}
	}
	m, err := model.ParseMethod(string(ep.Method))
	if err != nil {
		return err
	}
	st, err := model.ParseStatus(string(ep.Status))
	if err != nil {
		return err
	}
	ep.Method, ep.Status = m, st
	ep.Path = model.NormalizePath(ep.Path)
	return nil
}

func (s *Server) createEndpoint(w http.ResponseWriter, r *http.Request) {
	var ep model.Endpoint
	if !s.decode(w, r, &ep) {
		return
	}
	if err := checkEndpoint(&ep); err != nil {
		s.jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.jsonEncode(w, http.StatusCreated, s.repo.AddEndpoint(ep))
}

func (s *Server) updateEndpoint(w http.ResponseWriter, r *http.Request) {
	var fields map[string]json.RawMessage
	if !s.decode(w, r, &fields) {
		return
	}
	updated, err := s.repo.UpdateEndpoint(chi.URLParam(r, "id"), func(se *storedEndpoint) error {
		return applyPatch(se, fields)
	})
	if err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			s.jsonError(w, http.StatusBadRequest, verr.Error())
			return
		}
		s.notFoundOr(w, err, "endpoint")
		return
	}
	s.jsonEncode(w, http.StatusOK, updated)
}

func (s *Server) deleteEndpoint(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteEndpoint(chi.URLParam(r, "id")); err != nil {
		s.notFoundOr(w, err, "endpoint")
		return
	}
	s.jsonEncode(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// applyPatch copies the present fields onto se.
func applyPatch(se *storedEndpoint, fields map[string]json.RawMessage) error {
	str := func(key string, dst *string) error {
		raw, ok := fields[key]
		if !ok {
			return nil
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return &model.ValidationError{Field: key, Message: err.Error()}
		}
		return nil
	}
	if err := str("baseUrl", &se.BaseURL); err != nil {
		return err
	}
	if err := str("description", &se.Description); err != nil {
		return err
	}
	var path string
	if _, ok := fields["path"]; ok {
		if err := str("path", &path); err != nil {
			return err
		}
		se.Path = model.NormalizePath(path)
	}
	var method string
	if _, ok := fields["method"]; ok {
		if err := str("method", &method); err != nil {
			return err
		}
		m, err := model.ParseMethod(method)
		if err != nil {
			return err
		}
		se.Method = m
	}
	var status string
	if _, ok := fields["status"]; ok {
		if err := str("status", &status); err != nil {
			return err
		}
		st, err := model.ParseStatus(status)
		if err != nil {
			return err
		}
		se.Status = st
	}
	if raw, ok := fields["websites"]; ok {
		f, err := model.ParseWebsitesField(raw)
		if err != nil {
			return &model.ValidationError{Field: "websites", Message: err.Error()}
		}
		se.Websites = joinWebsites(model.NormalizeWebsites(f))
	}
	if raw, ok := fields["response"]; ok {
		if !json.Valid(raw) {
			return &model.ValidationError{Field: "response", Message: "not valid JSON"}
		}
		se.Response = raw
	}
	return nil
}
