package store

import (
	"context"
	"fmt"

	"apicatalog/internal/apiclient"
	"apicatalog/internal/model"
)

// RestApiStore holds the registered database connection profiles. Test
// connection and describe results are not kept here; see package explorer.
type RestApiStore struct {
	*core
	list collection[model.RestApiConnection]
}

func (s *RestApiStore) All() []model.RestApiConnection {
	return s.list.snapshot()
}

// Get looks a profile up by id in the last fetched list.
func (s *RestApiStore) Get(id model.ID) (model.RestApiConnection, bool) {
	for _, c := range s.list.snapshot() {
		if c.ID == id {
			return c, true
		}
	}
	return model.RestApiConnection{}, false
}

func (s *RestApiStore) Loading() bool {
	return s.list.isLoading()
}

// Fetch replaces the profile list. Failures are reported, not returned.
func (s *RestApiStore) Fetch(ctx context.Context) {
	if err := s.fetch(ctx); err != nil {
		s.report("fetch connections", err)
	}
}

func (s *RestApiStore) fetch(ctx context.Context) error {
	return fetchInto(ctx, s.core, keyRestApisList, "/restapi/get", &s.list, RestApisChanged)
}

// Add registers a profile and refetches. Errors are returned so the caller
// can keep its own submitting state.
func (s *RestApiStore) Add(ctx context.Context, in model.RestApiInput) (model.RestApiConnection, error) {
	conn, err := in.Normalize()
	if err != nil {
		return model.RestApiConnection{}, err
	}
	var created model.RestApiConnection
	if err := s.client.Post(ctx, "/restapi/post", conn, &created); err != nil {
		return model.RestApiConnection{}, fmt.Errorf("add connection: %w", err)
	}
	s.Fetch(ctx)
	return created, nil
}

// Delete removes a profile and refetches. Failures are reported, not returned.
func (s *RestApiStore) Delete(ctx context.Context, id model.ID) {
	o := s.ops.begin(ctx, recordKey("restapi", id.String()))
	err := s.client.Delete(o.ctx, "/restapi/delete/"+apiclient.Segment(id.String()))
	superseded := o.superseded()
	o.done()
	if err != nil {
		if !superseded {
			s.report("delete connection", err)
		}
		return
	}
	s.Fetch(ctx)
}
