package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spektr-org/chartkit/engine"
)

var (
	// ErrNoAdapter is returned when no registered backend can render a chart.
	ErrNoAdapter = errors.New("no adapter found")

	// ErrAdapterExists is returned when registering a name twice.
	ErrAdapterExists = errors.New("adapter already registered")
)

// Registry holds backends in priority order.
type Registry struct {
	mu       sync.RWMutex
	adapters []Adapter
	byName   map[string]Adapter
}

// NewRegistry creates a registry and registers adapters in order.
func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{byName: make(map[string]Adapter)}
	for _, a := range adapters {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a backend after every backend already registered.
func (r *Registry) Register(a Adapter) error {
	if a == nil || a.Name() == "" {
		return errors.New("adapter must have a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[a.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrAdapterExists, a.Name())
	}
	r.adapters = append(r.adapters, a)
	r.byName[a.Name()] = a
	return nil
}

// Adapters returns the registered backends in priority order.
func (r *Registry) Adapters() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Adapter, len(r.adapters))
	copy(out, r.adapters)
	return out
}

// Get returns the backend registered under name.
func (r *Registry) Get(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byName[name]
	return a, ok
}

// Lookup picks the backend for chart type t. A non-empty preferred name
// must match a registered backend that supports t; there is no fallback.
// Otherwise the first backend supporting t wins.
func (r *Registry) Lookup(t engine.ChartType, preferred string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.adapters {
		if (preferred == "" || preferred == a.Name()) && Supports(a, t) {
			return a, nil
		}
	}
	if preferred != "" {
		return nil, fmt.Errorf("%w: %s for %s", ErrNoAdapter, preferred, t)
	}
	return nil, fmt.Errorf("%w for %s", ErrNoAdapter, t)
}

// Dispatch renders c with the backend chosen by Lookup using the chart's
// adapter option. Failures are returned as-is and never retried.
func (r *Registry) Dispatch(ctx context.Context, c *Chart) (*Handle, error) {
	a, err := r.Lookup(c.Type, c.Options.Adapter)
	if err != nil {
		return nil, err
	}
	return Render(ctx, a, c)
}

// Render invokes a's capability for c.Type and stamps the handle.
func Render(ctx context.Context, a Adapter, c *Chart) (*Handle, error) {
	fn := renderFunc(a, c.Type)
	if fn == nil {
		return nil, fmt.Errorf("%w: %s cannot render %s", ErrNoAdapter, a.Name(), c.Type)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h, err := fn(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Name(), err)
	}
	if h == nil {
		h = &Handle{}
	}
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	h.ChartID = c.ID
	h.Adapter = a.Name()
	if h.RenderedAt.IsZero() {
		h.RenderedAt = time.Now().UTC()
	}
	return h, nil
}
