package store

import (
	"context"
	"sync"
	"sync/atomic"
)

// opRegistry admits one in-flight request per logical operation key.
// Starting an operation cancels the previous one under the same key, and only
// the newest operation may commit its result.
type opRegistry struct {
	mu       sync.Mutex
	seq      uint64
	inflight map[string]*op
}

type op struct {
	r         *opRegistry
	key       string
	token     uint64
	ctx       context.Context
	cancel    context.CancelFunc
	preempted atomic.Bool
}

func newOpRegistry() *opRegistry {
	return &opRegistry{inflight: make(map[string]*op)}
}

func (r *opRegistry) begin(parent context.Context, key string) *op {
	ctx, cancel := context.WithCancel(parent)

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.inflight[key]; ok {
		prev.preempted.Store(true)
		prev.cancel()
	}
	r.seq++
	o := &op{r: r, key: key, token: r.seq, ctx: ctx, cancel: cancel}
	r.inflight[key] = o
	return o
}

// cancelAll aborts every in-flight operation.
func (r *opRegistry) cancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, o := range r.inflight {
		o.preempted.Store(true)
		o.cancel()
		delete(r.inflight, k)
	}
}

func (r *opRegistry) inFlight(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.inflight[key]
	return ok
}

// commit runs fn only if o is still the current operation for its key.
func (o *op) commit(fn func()) bool {
	o.r.mu.Lock()
	defer o.r.mu.Unlock()
	if cur, ok := o.r.inflight[o.key]; !ok || cur.token != o.token {
		return false
	}
	fn()
	return true
}

// superseded reports whether a newer operation or Close cancelled o.
func (o *op) superseded() bool {
	return o.preempted.Load()
}

func (o *op) done() {
	o.r.mu.Lock()
	if cur, ok := o.r.inflight[o.key]; ok && cur.token == o.token {
		delete(o.r.inflight, o.key)
	}
	o.r.mu.Unlock()
	o.cancel()
}
