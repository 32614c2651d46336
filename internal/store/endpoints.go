package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"apicatalog/internal/apiclient"
	"apicatalog/internal/logger"
	"apicatalog/internal/model"
)

// EndpointStore holds the catalogued endpoints.
type EndpointStore struct {
	*core
	list collection[model.Endpoint]

	filterMu     sync.RWMutex
	statusFilter model.Status
}

// All returns the endpoints in the order of the last fetch.
func (s *EndpointStore) All() []model.Endpoint {
	return s.list.snapshot()
}

func (s *EndpointStore) Loading() bool {
	return s.list.isLoading()
}

// SetStatusFilter restricts Filtered to one status. Empty clears it.
func (s *EndpointStore) SetStatusFilter(st model.Status) {
	s.filterMu.Lock()
	s.statusFilter = st
	s.filterMu.Unlock()
	s.bus.emit(Event{Kind: EndpointsChanged})
}

func (s *EndpointStore) StatusFilter() model.Status {
	s.filterMu.RLock()
	defer s.filterMu.RUnlock()
	return s.statusFilter
}

// Filtered returns the endpoints matching the status filter whose baseUrl
// contains domainSearch, case-insensitively.
func (s *EndpointStore) Filtered(domainSearch string) []model.Endpoint {
	status := s.StatusFilter()
	needle := strings.ToLower(domainSearch)
	var out []model.Endpoint
	for _, ep := range s.list.snapshot() {
		if status != "" && ep.Status != status {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(ep.BaseURL), needle) {
			continue
		}
		out = append(out, ep)
	}
	return out
}

// Fetch replaces the endpoint list. websites is normalized while decoding.
// Failures are reported, not returned.
func (s *EndpointStore) Fetch(ctx context.Context) {
	if err := s.fetch(ctx); err != nil {
		s.report("fetch endpoints", err)
	}
}

func (s *EndpointStore) fetch(ctx context.Context) error {
	return fetchInto(ctx, s.core, keyEndpointsList, "/get", &s.list, EndpointsChanged)
}

// Add validates the draft, creates the endpoint and refetches. A validation
// failure makes no network call.
func (s *EndpointStore) Add(ctx context.Context, d model.EndpointDraft) (model.Endpoint, error) {
	ep, err := d.Normalize()
	if err != nil {
		return model.Endpoint{}, err
	}
	var created model.Endpoint
	if err := s.client.Post(ctx, "/post", ep, &created); err != nil {
		return model.Endpoint{}, fmt.Errorf("add endpoint: %w", err)
	}
	s.Fetch(ctx)
	return created, nil
}

// Update applies a partial change and refetches. A newer update of the same
// endpoint cancels an older one still in flight.
func (s *EndpointStore) Update(ctx context.Context, id model.ID, p model.EndpointPatch) error {
	u, err := p.Normalize()
	if err != nil {
		return err
	}
	o := s.ops.begin(ctx, recordKey("endpoint", id.String()))
	err = s.client.Put(o.ctx, "/put/"+apiclient.Segment(id.String()), u, nil)
	superseded := o.superseded()
	o.done()
	if err != nil {
		if superseded {
			return fmt.Errorf("update endpoint %s: superseded: %w", id, err)
		}
		return fmt.Errorf("update endpoint %s: %w", id, err)
	}
	s.Fetch(ctx)
	return nil
}

// Delete removes an endpoint and refetches. Failures are reported, not
// returned, and leave the list unchanged.
func (s *EndpointStore) Delete(ctx context.Context, id model.ID) {
	o := s.ops.begin(ctx, recordKey("endpoint", id.String()))
	err := s.client.Delete(o.ctx, "/delete/"+apiclient.Segment(id.String()))
	superseded := o.superseded()
	o.done()
	if err != nil {
		if !superseded {
			s.report("delete endpoint", err)
		}
		return
	}
	s.Fetch(ctx)
}

type describeResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// GenerateResponseJSON asks the backend for example data of table and returns
// it verbatim, or nil on any failure.
func (s *EndpointStore) GenerateResponseJSON(ctx context.Context, table string) json.RawMessage {
	table = strings.TrimSpace(table)
	if table == "" {
		return nil
	}
	var res describeResponse
	if err := s.client.Get(ctx, "/describe/"+apiclient.Segment(table), &res); err != nil {
		logger.With(logger.Fields{"op": "generate response", "table": table}).Warnf("describe failed: %v", err)
		return nil
	}
	if !res.Success || len(res.Data) == 0 {
		logger.With(logger.Fields{"op": "generate response", "table": table}).Warn("describe returned no data")
		return nil
	}
	return res.Data
}

type generateRequest struct {
	Table string `json:"table"`
	Path  string `json:"path,omitempty"`
}

// GenerateFromTable has the backend build and persist an endpoint from the
// shape of a table reachable through a stored connection, then refetches.
// An empty path lets the backend derive one from the table name.
func (s *EndpointStore) GenerateFromTable(ctx context.Context, connectionID model.ID, table, path string) (model.Endpoint, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return model.Endpoint{}, &model.ValidationError{Field: "table", Message: "is required"}
	}
	if connectionID == "" {
		return model.Endpoint{}, &model.ValidationError{Field: "connection", Message: "is required"}
	}
	req := generateRequest{Table: table}
	if strings.TrimSpace(path) != "" {
		req.Path = model.NormalizePath(path)
	}

	var created model.Endpoint
	err := s.client.Post(ctx, "/restapi/generateone/"+apiclient.Segment(connectionID.String()), req, &created)
	if err != nil {
		return model.Endpoint{}, fmt.Errorf("generate endpoint from %s: %w", table, err)
	}
	s.Fetch(ctx)
	return created, nil
}

// CallPublicAPI smoke-tests an endpoint by calling its own baseUrl + path.
func (s *EndpointStore) CallPublicAPI(ctx context.Context, ep model.Endpoint) apiclient.ProbeResult {
	return s.client.Probe(ctx, ep.URL())
}

// CallPublicAPIByIDAndPath smoke-tests a stored endpoint through the
// backend's proxy route.
func (s *EndpointStore) CallPublicAPIByIDAndPath(ctx context.Context, id model.ID, path string) apiclient.ProbeResult {
	return s.client.ProbePath(ctx, "/call/"+apiclient.Segment(id.String())+model.NormalizePath(path))
}
