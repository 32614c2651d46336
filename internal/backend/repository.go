package backend

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"apicatalog/internal/model"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateDomain = errors.New("duplicate domain")
)

// storedEndpoint is the persisted form of an endpoint. Websites are kept
// comma-joined, the way the original database column holds them.
type storedEndpoint struct {
	ID          string          `json:"id"`
	BaseURL     string          `json:"baseUrl"`
	Method      model.Method    `json:"method"`
	Path        string          `json:"path"`
	Description string          `json:"description"`
	Status      model.Status    `json:"status"`
	Websites    string          `json:"websites"`
	Response    json.RawMessage `json:"response"`
}

func joinWebsites(w []string) string {
	return strings.Join(w, ", ")
}

// Repository is an in-memory store for the catalogue. Lists are returned in
// insertion order.
type Repository struct {
	mu        sync.RWMutex
	domains   []model.Domain
	endpoints []storedEndpoint
	conns     []model.RestApiConnection
}

// NewRepository returns an empty repository.
func NewRepository() *Repository {
	return &Repository{}
}

func newID() string {
	return uuid.NewString()
}

func (r *Repository) ListDomains() []model.Domain {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Domain, len(r.domains))
	copy(out, r.domains)
	return out
}

// AddDomain registers url. URLs are unique by exact match.
func (r *Repository) AddDomain(url string) (model.Domain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.domains {
		if d.URL == url {
			return model.Domain{}, ErrDuplicateDomain
		}
	}
	d := model.Domain{ID: model.ID(newID()), URL: url}
	r.domains = append(r.domains, d)
	return d, nil
}

func (r *Repository) DeleteDomain(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, d := range r.domains {
		if d.ID.String() == id {
			r.domains = append(r.domains[:i], r.domains[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (r *Repository) ListEndpoints() []storedEndpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]storedEndpoint, len(r.endpoints))
	copy(out, r.endpoints)
	return out
}

func (r *Repository) GetEndpoint(id string) (storedEndpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.endpoints {
		if e.ID == id {
			return e, nil
		}
	}
	return storedEndpoint{}, ErrNotFound
}

func (r *Repository) AddEndpoint(ep model.Endpoint) storedEndpoint {
	se := storedEndpoint{
		ID:          newID(),
		BaseURL:     ep.BaseURL,
		Method:      ep.Method,
		Path:        ep.Path,
		Description: ep.Description,
		Status:      ep.Status,
		Websites:    joinWebsites(ep.Websites),
		Response:    ep.Response,
	}
	r.mu.Lock()
	r.endpoints = append(r.endpoints, se)
	r.mu.Unlock()
	return se
}

// UpdateEndpoint applies fn to a copy of the endpoint and stores the result
// if fn succeeds.
func (r *Repository) UpdateEndpoint(id string, fn func(*storedEndpoint) error) (storedEndpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.endpoints {
		if r.endpoints[i].ID != id {
			continue
		}
		e := r.endpoints[i]
		if err := fn(&e); err != nil {
			return storedEndpoint{}, err
		}
		e.ID = id
		r.endpoints[i] = e
		return e, nil
	}
	return storedEndpoint{}, ErrNotFound
}

func (r *Repository) DeleteEndpoint(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.endpoints {
		if e.ID == id {
			r.endpoints = append(r.endpoints[:i], r.endpoints[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (r *Repository) ListConnections() []model.RestApiConnection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.RestApiConnection, len(r.conns))
	copy(out, r.conns)
	return out
}

func (r *Repository) GetConnection(id string) (model.RestApiConnection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.conns {
		if c.ID.String() == id {
			return c, nil
		}
	}
	return model.RestApiConnection{}, ErrNotFound
}

func (r *Repository) AddConnection(c model.RestApiConnection) model.RestApiConnection {
	c.ID = model.ID(newID())
	r.mu.Lock()
	r.conns = append(r.conns, c)
	r.mu.Unlock()
	return c
}

func (r *Repository) DeleteConnection(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.conns {
		if c.ID.String() == id {
			r.conns = append(r.conns[:i], r.conns[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
