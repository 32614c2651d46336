package backend

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"apicatalog/internal/model"
)

func (s *Server) listDomains(w http.ResponseWriter, r *http.Request) {
	s.jsonEncode(w, http.StatusOK, s.repo.ListDomains())
}

func (s *Server) createDomain(w http.ResponseWriter, r *http.Request) {
	var req model.Domain
	if !s.decode(w, r, &req) {
		return
	}
	url, err := model.ValidateDomainURL(req.URL)
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	d, err := s.repo.AddDomain(url)
	if errors.Is(err, ErrDuplicateDomain) {
		s.jsonError(w, http.StatusConflict, DuplicateDomainMessage)
		return
	}
	s.jsonEncode(w, http.StatusCreated, d)
}

func (s *Server) deleteDomain(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteDomain(chi.URLParam(r, "id")); err != nil {
		s.notFoundOr(w, err, "domain")
		return
	}
	s.jsonEncode(w, http.StatusOK, map[string]string{"message": "deleted"})
}
