package adapter

import (
	"context"
	"sync"
)

// ============================================================================
// LOADER — Lazy per-package resource loading with queued renders
// ============================================================================
// Some backends need a resource (a chart package, presets) before the first
// render. Requests arriving while a package loads are queued and run in
// arrival order once it is ready. A failed load fails the queued requests
// and is attempted again by the next request.
// ============================================================================

// LoadFunc loads one named package.
type LoadFunc func(ctx context.Context, pkg string) error

// Loader runs work once its package is loaded.
type Loader struct {
	load LoadFunc

	mu       sync.Mutex
	packages map[string]*pkgState
}

type pkgState struct {
	loaded  bool
	loading bool
	queue   []*request
}

type request struct {
	fn   func() error
	done chan error
}

// NewLoader creates a Loader backed by load.
func NewLoader(load LoadFunc) *Loader {
	return &Loader{load: load, packages: make(map[string]*pkgState)}
}

// Loaded reports whether pkg finished loading.
func (l *Loader) Loaded(pkg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.packages[pkg]
	return ok && st.loaded
}

// Do runs fn after pkg is loaded. The first caller for an unloaded package
// performs the load and then drains the queue in FIFO order; later callers
// wait for their turn or for ctx to end.
func (l *Loader) Do(ctx context.Context, pkg string, fn func() error) error {
	l.mu.Lock()
	st, ok := l.packages[pkg]
	if !ok {
		st = &pkgState{}
		l.packages[pkg] = st
	}
	if st.loaded && len(st.queue) == 0 {
		l.mu.Unlock()
		return fn()
	}

	req := &request{fn: fn, done: make(chan error, 1)}
	st.queue = append(st.queue, req)
	leader := !st.loading && !st.loaded
	if leader {
		st.loading = true
	}
	l.mu.Unlock()

	if leader {
		l.run(context.WithoutCancel(ctx), pkg, st)
	}

	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loader) run(ctx context.Context, pkg string, st *pkgState) {
	err := l.load(ctx, pkg)

	l.mu.Lock()
	st.loading = false
	st.loaded = err == nil
	l.mu.Unlock()

	// drain until empty; requests may keep arriving while earlier ones run
	for {
		l.mu.Lock()
		if len(st.queue) == 0 {
			l.mu.Unlock()
			return
		}
		req := st.queue[0]
		st.queue = st.queue[1:]
		l.mu.Unlock()

		if err != nil {
			req.done <- err
			continue
		}
		req.done <- req.fn()
	}
}
