// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package respool is the shared, thread-safe handle pool backing the
// in-memory rebase executor's worker pool (spec.md §4.7, "C11"): one VCS
// adapter handle per in-flight worker, created lazily and reused across
// jobs. It generalizes the ad hoc "one goroutine per concurrent batch"
// pattern the teacher's push/unpack paths build with a bare
// golang.org/x/sync/errgroup.Group (pkg/serve/repo/push.go,
// pkg/serve/odb/unpack.go) into a pool with an explicit creation and
// poisoning policy, since this package's callers spawn many more workers
// over the pool's lifetime than one errgroup batch.
package respool

import (
	"fmt"
	"sync"
)

// Pool holds handles of type T, created on demand up to no fixed bound
// (spec.md describes it as "unbounded": the in-memory executor caps
// concurrency via its numJobs worker limit, so the pool just needs to not
// leak).
type Pool[T any] struct {
	mu      sync.Mutex
	free    []T
	create  func() (T, error)
	destroy func(T)
	live    int
}

// New builds a Pool whose handles are produced by create and released by
// destroy (destroy may be nil if T needs no explicit teardown).
func New[T any](create func() (T, error), destroy func(T)) *Pool[T] {
	return &Pool[T]{create: create, destroy: destroy}
}

// Acquire returns a free handle, creating one via TryCreate if the pool
// is currently empty.
func (p *Pool[T]) Acquire() (T, error) {
	p.mu.Lock()
	if n := len(p.free); n > 0 {
		h := p.free[n-1]
		p.free = p.free[:n-1]
		p.mu.Unlock()
		return h, nil
	}
	p.mu.Unlock()
	return p.TryCreate()
}

// TryCreate always creates a fresh handle, bypassing the free list; used
// when a caller specifically wants a new handle rather than a recycled
// one (e.g. after observing a prior handle return a corruption error).
func (p *Pool[T]) TryCreate() (T, error) {
	h, err := p.create()
	if err != nil {
		var zero T
		return zero, fmt.Errorf("respool: create handle: %w", err)
	}
	p.mu.Lock()
	p.live++
	p.mu.Unlock()
	return h, nil
}

// Release returns h to the free list for reuse. A worker that panicked
// while holding h must not call Release — the handle is presumed
// poisoned and is abandoned (and, if destroy is set, torn down) instead,
// matching the "panicked handles are never returned" policy spec.md §4.7
// requires.
func (p *Pool[T]) Release(h T) {
	p.mu.Lock()
	p.free = append(p.free, h)
	p.mu.Unlock()
}

// Discard tears down h (via destroy, if set) instead of returning it to
// the pool: the caller's poisoning path.
func (p *Pool[T]) Discard(h T) {
	p.mu.Lock()
	p.live--
	p.mu.Unlock()
	if p.destroy != nil {
		p.destroy(h)
	}
}

// Live reports the number of handles currently created (free + in use),
// for diagnostics.
func (p *Pool[T]) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

// Close tears down every currently-free handle; handles still checked
// out by workers are the caller's responsibility to Discard or Release
// before calling Close.
func (p *Pool[T]) Close() {
	p.mu.Lock()
	free := p.free
	p.free = nil
	p.mu.Unlock()
	if p.destroy == nil {
		return
	}
	for _, h := range free {
		p.destroy(h)
	}
}
