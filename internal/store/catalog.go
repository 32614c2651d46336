// Package store holds the client-side state of the catalogue: registered
// domains, endpoints and database connection profiles.
//
// Every write is a single backend call followed by a full refetch of the
// affected collection; nothing is updated optimistically. Accessors return
// copies, and subscribers are told which collection changed.
package store

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"apicatalog/internal/apiclient"
	"apicatalog/internal/logger"
)

// Operation keys. Per-record keys are built with recordKey.
const (
	keyDomainsList   = "domains:list"
	keyEndpointsList = "endpoints:list"
	keyRestApisList  = "restapis:list"
)

func recordKey(kind, id string) string {
	return kind + ":" + id
}

type core struct {
	client   *apiclient.Client
	ops      *opRegistry
	bus      *bus
	notifier Notifier
}

// report logs a swallowed failure and hands it to the notifier.
func (c *core) report(op string, err error) {
	n := Classify(err)
	n.Op = op
	logger.With(logger.Fields{"op": op, "severity": n.Severity.String()}).Warnf("%s: %v", n.Title, err)
	c.notifier.Notify(n)
}

// collection is a fetched list plus its busy counter.
type collection[T any] struct {
	mu      sync.RWMutex
	items   []T
	loading int
}

func (c *collection[T]) snapshot() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *collection[T]) replace(items []T) {
	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
}

func (c *collection[T]) busy(delta int) {
	c.mu.Lock()
	c.loading += delta
	c.mu.Unlock()
}

func (c *collection[T]) isLoading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading > 0
}

// Catalog bundles the three stores around one client. It replaces a global
// store: views receive it explicitly.
type Catalog struct {
	Domains   *DomainStore
	Endpoints *EndpointStore
	RestApis  *RestApiStore

	core *core
}

// Option configures a Catalog.
type Option func(*core)

// WithNotifier sets where notices for swallowed failures go.
func WithNotifier(n Notifier) Option {
	return func(c *core) {
		if n != nil {
			c.notifier = n
		}
	}
}

// New returns a Catalog whose stores share client, one request registry and
// one event bus. Failures swallowed by the stores are dropped unless
// WithNotifier is given.
func New(client *apiclient.Client, opts ...Option) *Catalog {
	c := &core{
		client:   client,
		ops:      newOpRegistry(),
		bus:      newBus(),
		notifier: nopNotifier{},
	}
	for _, o := range opts {
		o(c)
	}
	return &Catalog{
		Domains:   &DomainStore{core: c},
		Endpoints: &EndpointStore{core: c},
		RestApis:  &RestApiStore{core: c},
		core:      c,
	}
}

// Subscribe registers fn for change events and returns a function that
// removes it.
func (c *Catalog) Subscribe(fn func(Event)) func() {
	return c.core.bus.subscribe(fn)
}

// Refresh fetches all three collections concurrently and returns the first
// failure. Collections that loaded are kept.
func (c *Catalog) Refresh(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return c.Domains.fetch(ctx) })
	g.Go(func() error { return c.Endpoints.fetch(ctx) })
	g.Go(func() error { return c.RestApis.fetch(ctx) })
	return g.Wait()
}

// Close cancels every in-flight request; their results are discarded. The
// catalog stays usable afterwards.
func (c *Catalog) Close() {
	c.core.ops.cancelAll()
}

// fetchInto runs a keyed list request and commits the decoded result with
// set. A request superseded by a newer one returns nil and commits nothing.
func fetchInto[T any](ctx context.Context, c *core, key, path string, coll *collection[T], kind EventKind) error {
	o := c.ops.begin(ctx, key)
	defer o.done()

	coll.busy(1)
	c.bus.emit(Event{Kind: LoadingChanged})
	defer func() {
		coll.busy(-1)
		c.bus.emit(Event{Kind: LoadingChanged})
	}()

	var items []T
	if err := c.client.Get(o.ctx, path, &items); err != nil {
		if o.superseded() {
			return nil
		}
		return err
	}
	if items == nil {
		items = []T{}
	}
	if o.commit(func() { coll.replace(items) }) {
		c.bus.emit(Event{Kind: kind})
	}
	return nil
}
