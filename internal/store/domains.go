package store

import (
	"context"
	"fmt"
	"slices"

	"apicatalog/internal/apiclient"
	"apicatalog/internal/model"
)

// DomainStore holds the registered base URLs. Domains are immutable once
// registered; there is no update.
type DomainStore struct {
	*core
	list collection[model.Domain]
}

// All returns the domains in the order of the last fetch.
func (s *DomainStore) All() []model.Domain {
	return s.list.snapshot()
}

// URLs returns just the url strings.
func (s *DomainStore) URLs() []string {
	domains := s.list.snapshot()
	urls := make([]string, len(domains))
	for i, d := range domains {
		urls[i] = d.URL
	}
	return urls
}

func (s *DomainStore) Loading() bool {
	return s.list.isLoading()
}

// Fetch replaces the domain list with the backend's. Failures are reported,
// not returned, and leave the list unchanged.
func (s *DomainStore) Fetch(ctx context.Context) {
	if err := s.fetch(ctx); err != nil {
		s.report("fetch domains", err)
	}
}

func (s *DomainStore) fetch(ctx context.Context) error {
	return fetchInto(ctx, s.core, keyDomainsList, "/domain/get", &s.list, DomainsChanged)
}

// Add validates and registers url. It returns a *model.ValidationError
// without calling the backend when the url is empty or malformed, and an
// error matching ErrDuplicateDomain when the url is already known locally or
// to the backend.
func (s *DomainStore) Add(ctx context.Context, url string) error {
	url, err := model.ValidateDomainURL(url)
	if err != nil {
		return err
	}
	if slices.Contains(s.URLs(), url) {
		return fmt.Errorf("%s: %w", url, ErrDuplicateDomain)
	}

	if err := s.client.Post(ctx, "/domain/post", model.Domain{URL: url}, nil); err != nil {
		if isDuplicateDomain(err) {
			return fmt.Errorf("%s: %w", url, ErrDuplicateDomain)
		}
		return fmt.Errorf("add domain: %w", err)
	}
	s.Fetch(ctx)
	return nil
}

// Delete removes a domain and refetches. Failures are reported, not returned.
func (s *DomainStore) Delete(ctx context.Context, id model.ID) {
	o := s.ops.begin(ctx, recordKey("domain", id.String()))
	err := s.client.Delete(o.ctx, "/domain/delete/"+apiclient.Segment(id.String()))
	superseded := o.superseded()
	o.done()
	if err != nil {
		if !superseded {
			s.report("delete domain", err)
		}
		return
	}
	s.Fetch(ctx)
}
