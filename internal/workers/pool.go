// Package workers owns the tenant-scoped pool of long-lived analysis worker
// handles. Workers accumulate context across calls within a tenant boundary;
// recreating one per call throws that context away, so reuse is a functional
// requirement of the orchestration core, not an optimization.
package workers

import (
	"container/list"
	"context"
	"sync"

	"migration-assess/backend/internal/logging"
	"migration-assess/backend/pkg/models"
)

// Worker is a long-lived, stateful handle to the analysis capability for one
// (tenant key, worker kind) pair. It is never persisted.
type Worker struct {
	key    models.TenantKey
	kind   string
	client *CapabilityClient

	mu     sync.Mutex
	calls  int
	memory []string
}

// Key returns the tenant key this worker is scoped to.
func (w *Worker) Key() models.TenantKey { return w.key }

// Kind returns the worker kind.
func (w *Worker) Kind() string { return w.kind }

// Calls returns how many invocations this handle has served. Identity of a
// reused handle is observable through this counter.
func (w *Worker) Calls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

// memoryCap bounds how many prior summaries a worker carries forward.
const memoryCap = 50

// Invoke submits a task through this worker, threading the worker's
// accumulated context into the task and folding the result summary back in.
func (w *Worker) Invoke(ctx context.Context, task TaskSpec) (*TaskResult, error) {
	task.TenantKey = w.key
	task.WorkerKind = w.kind

	w.mu.Lock()
	w.calls++
	task.Context = append([]string(nil), w.memory...)
	w.mu.Unlock()

	result, err := w.client.Invoke(ctx, task)
	if err != nil {
		return nil, err
	}

	if result.Summary != "" {
		w.mu.Lock()
		w.memory = append(w.memory, result.Summary)
		if len(w.memory) > memoryCap {
			w.memory = w.memory[len(w.memory)-memoryCap:]
		}
		w.mu.Unlock()
	}

	return result, nil
}

type poolKey struct {
	key  models.TenantKey
	kind string
}

type poolEntry struct {
	worker *Worker
	refs   int
	elem   *list.Element
}

// Pool hands out worker handles keyed by (tenant key, worker kind). At most
// one live handle exists per key; a second Acquire for the same key returns
// the existing handle. Entries are evicted least-recently-used once the pool
// exceeds its capacity, but never while a handle is checked out.
type Pool struct {
	client   *CapabilityClient
	capacity int
	logger   *logging.Logger

	mu      sync.Mutex
	entries map[poolKey]*poolEntry
	lru     *list.List // of poolKey, front = most recent

	// creating holds a per-key lock so slow handle construction for one
	// tenant never blocks Acquire calls for unrelated tenants.
	creating map[poolKey]*sync.Mutex
}

// NewPool creates a pool backed by the given capability client. A nil client
// means the capability is not configured; every Acquire then fails with
// ErrWorkerUnavailable.
func NewPool(client *CapabilityClient, capacity int, logger *logging.Logger) *Pool {
	if capacity <= 0 {
		capacity = 64
	}
	return &Pool{
		client:   client,
		capacity: capacity,
		logger:   logger,
		entries:  make(map[poolKey]*poolEntry),
		lru:      list.New(),
		creating: make(map[poolKey]*sync.Mutex),
	}
}

// Acquire returns the worker handle for (key, kind), creating it on first
// use. The returned release function must be called when the caller is done
// with the handle; eviction only considers handles with zero outstanding
// references.
func (p *Pool) Acquire(key models.TenantKey, kind string) (*Worker, func(), error) {
	if p.client == nil {
		return nil, nil, ErrWorkerUnavailable
	}

	pk := poolKey{key: key, kind: kind}

	p.mu.Lock()
	if entry, ok := p.entries[pk]; ok {
		entry.refs++
		p.lru.MoveToFront(entry.elem)
		p.mu.Unlock()
		return entry.worker, p.releaseFunc(pk), nil
	}
	keyLock, ok := p.creating[pk]
	if !ok {
		keyLock = &sync.Mutex{}
		p.creating[pk] = keyLock
	}
	p.mu.Unlock()

	// Construction happens under the per-key lock only, so two concurrent
	// first acquires for the same key produce one worker while other keys
	// proceed unblocked.
	keyLock.Lock()
	defer keyLock.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if entry, ok := p.entries[pk]; ok {
		entry.refs++
		p.lru.MoveToFront(entry.elem)
		return entry.worker, p.releaseFunc(pk), nil
	}

	worker := &Worker{key: key, kind: kind, client: p.client}
	entry := &poolEntry{worker: worker, refs: 1}
	entry.elem = p.lru.PushFront(pk)
	p.entries[pk] = entry

	p.evictLocked()

	p.logger.Debug("worker created", "tenant", key.String(), "kind", kind)
	return worker, p.releaseFunc(pk), nil
}

func (p *Pool) releaseFunc(pk poolKey) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if entry, ok := p.entries[pk]; ok && entry.refs > 0 {
				entry.refs--
			}
			p.evictLocked()
		})
	}
}

// evictLocked removes refcount-zero entries from the LRU tail until the pool
// is back within capacity. Callers must hold p.mu.
func (p *Pool) evictLocked() {
	for len(p.entries) > p.capacity {
		evicted := false
		for elem := p.lru.Back(); elem != nil; elem = elem.Prev() {
			pk := elem.Value.(poolKey)
			entry := p.entries[pk]
			if entry.refs > 0 {
				continue
			}
			p.lru.Remove(elem)
			delete(p.entries, pk)
			delete(p.creating, pk)
			p.logger.Debug("worker evicted", "tenant", pk.key.String(), "kind", pk.kind)
			evicted = true
			break
		}
		if !evicted {
			// Every entry is in use; the pool runs over capacity until
			// references drain.
			return
		}
	}
}

// Len returns the number of pooled workers.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Shutdown drops all pooled handles. Workers hold no external resources
// beyond their accumulated context, so draining is a map reset; the hook
// exists so process teardown is explicit rather than ambient.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = make(map[poolKey]*poolEntry)
	p.creating = make(map[poolKey]*sync.Mutex)
	p.lru.Init()
}
