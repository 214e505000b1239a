// Package charts owns chart instances: it builds them from a data source
// and options, keeps one state per chart id, and rebuilds them on update
// or on a refresh timer.
package charts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/felixgeelhaar/fortify/bulkhead"

	"github.com/spektr-org/chartkit/adapter"
	"github.com/spektr-org/chartkit/coerce"
	"github.com/spektr-org/chartkit/engine"
	"github.com/spektr-org/chartkit/logging"
	"github.com/spektr-org/chartkit/source"
)

// ChartState is everything stored about one chart.
type ChartState struct {
	ID      string
	Element Element
	Type    engine.ChartType
	Source  DataSource
	Options *coerce.Map
	Handle  *adapter.Handle
	Err     error
}

// Option configures a Manager.
type Option func(*Manager)

// WithRegistry sets the backends charts are dispatched to.
func WithRegistry(r *adapter.Registry) Option {
	return func(m *Manager) {
		m.registry = r
	}
}

// WithFetcher sets how remote sources are acquired.
func WithFetcher(f source.Fetcher) Option {
	return func(m *Manager) {
		m.fetcher = f
	}
}

// WithNormalizer sets the data normalizer.
func WithNormalizer(n *engine.Normalizer) Option {
	return func(m *Manager) {
		m.normalizer = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *bolt.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithMaxConcurrentRefresh bounds how many refresh ticks rebuild charts
// at the same time.
func WithMaxConcurrentRefresh(n int) Option {
	return func(m *Manager) {
		m.maxRefresh = n
	}
}

// Manager is a chart registry. It is safe for concurrent use; builds run
// on the calling goroutine and refresh ticks on their own.
type Manager struct {
	registry   *adapter.Registry
	fetcher    source.Fetcher
	normalizer *engine.Normalizer
	logger     *bolt.Logger
	maxRefresh int
	refreshes  bulkhead.Bulkhead[struct{}]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	charts    map[string]*ChartState
	order     []string
	repeaters map[string]*Repeater
	closed    bool
}

// NewManager creates a Manager. Without WithRegistry it has no backends.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		maxRefresh: 4,
		charts:     make(map[string]*ChartState),
		repeaters:  make(map[string]*Repeater),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry, _ = adapter.NewRegistry()
	}
	if m.fetcher == nil {
		m.fetcher = source.NewRouter()
	}
	if m.normalizer == nil {
		m.normalizer = engine.NewNormalizer()
	}
	if m.maxRefresh <= 0 {
		m.maxRefresh = 1
	}
	m.logger = logging.Or(m.logger)
	m.refreshes = bulkhead.New[struct{}](bulkhead.Config{
		MaxConcurrent: m.maxRefresh,
	})
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m
}

// Registry returns the backends charts are dispatched to.
func (m *Manager) Registry() *adapter.Registry {
	return m.registry
}

// ============================================================================
// CONSTRUCTION
// ============================================================================

// NewChart stores a chart under el's id, replacing any chart already there,
// and builds it. When the options set refresh the chart is rebuilt on that
// interval. The returned state reflects the build; on failure the element
// shows the error and the error is returned as a *ChartError.
func (m *Manager) NewChart(ctx context.Context, t engine.ChartType, el Element, src DataSource, opts *coerce.Map) (ChartState, error) {
	return m.construct(ctx, t, el, src, opts, true)
}

// construct stores and builds a chart. Refresh ticks pass arm=false so a
// tick in flight during StopRefresh cannot start a new repeater.
func (m *Manager) construct(ctx context.Context, t engine.ChartType, el Element, src DataSource, opts *coerce.Map, arm bool) (ChartState, error) {
	if !t.Valid() {
		return ChartState{}, fmt.Errorf("%w: %q", engine.ErrUnknownChartType, t)
	}
	if el == nil || el.ID() == "" {
		return ChartState{}, ErrNoElement
	}

	st := &ChartState{
		ID:      el.ID(),
		Element: el,
		Type:    t,
		Source:  src,
		Options: opts.Clone(),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ChartState{}, ErrClosed
	}
	if _, exists := m.charts[st.ID]; !exists {
		m.order = append(m.order, st.ID)
	}
	m.charts[st.ID] = st
	m.mu.Unlock()

	handle, parsed, err := m.build(ctx, st)

	m.mu.Lock()
	if m.charts[st.ID] == st {
		st.Handle, st.Err = handle, err
	}
	out := *st
	m.mu.Unlock()

	if arm && parsed != nil && parsed.Refresh > 0 {
		m.arm(st.ID, parsed.Refresh)
	}
	return out, err
}

// build runs acquire, normalize and dispatch for st and shows the outcome
// in its element. parsed is nil when the options could not be read.
func (m *Manager) build(ctx context.Context, st *ChartState) (h *adapter.Handle, parsed *engine.Options, err error) {
	start := time.Now()
	fail := func(stage Stage, cause error) error {
		ce := &ChartError{ChartID: st.ID, Stage: stage, Err: cause}
		if serr := st.Element.SetError(ErrorMessage(ce)); serr != nil {
			m.logElement(st.ID, serr)
		}
		logging.NewEvent(m.logger.Error()).
			Add(logging.ChartID(st.ID)).
			Add(logging.ChartType(string(st.Type))).
			Add(logging.Stage(string(stage))).
			Add(logging.ErrorField(cause)).
			Msg("chart failed")
		return ce
	}

	opts, err := engine.ParseOptions(st.Options)
	if err != nil {
		return nil, nil, fail(StageNormalize, err)
	}

	raw := st.Source.Value()
	if st.Source.IsRemote() {
		raw, err = m.fetcher.Fetch(ctx, st.Source.URL())
		if err != nil {
			return nil, &opts, fail(StageAcquire, err)
		}
	}

	data, err := m.normalizer.Normalize(st.Type, raw, opts)
	if err != nil {
		return nil, &opts, fail(StageNormalize, err)
	}
	if data.Dropped > 0 {
		logging.NewEvent(m.logger.Debug()).
			Add(logging.ChartID(st.ID)).
			Add(logging.Dropped(data.Dropped)).
			Msg("points dropped during coercion")
	}

	backend, err := m.registry.Lookup(st.Type, opts.Adapter)
	if err != nil {
		return nil, &opts, fail(StageDispatch, err)
	}
	h, err = adapter.Render(ctx, backend, &adapter.Chart{ID: st.ID, Type: st.Type, Data: data, Options: opts})
	if err != nil {
		return nil, &opts, fail(StageRender, err)
	}
	if err := st.Element.SetHandle(h); err != nil {
		return nil, &opts, fail(StageRender, fmt.Errorf("element: %w", err))
	}

	logging.NewEvent(m.logger.Debug()).
		Add(logging.ChartID(st.ID)).
		Add(logging.ChartType(string(st.Type))).
		Add(logging.Adapter(backend.Name())).
		Add(logging.Remote(st.Source.IsRemote())).
		Add(logging.Duration(time.Since(start))).
		Msg("chart rendered")
	return h, &opts, nil
}

func (m *Manager) logElement(id string, err error) {
	logging.NewEvent(m.logger.Warn()).
		Add(logging.ChartID(id)).
		Add(logging.ErrorField(err)).
		Msg("element could not show error")
}

// ============================================================================
// LOOKUP
// ============================================================================

// Chart returns a copy of the state stored under id.
func (m *Manager) Chart(id string) (ChartState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.charts[id]
	if !ok {
		return ChartState{}, false
	}
	return *st, true
}

// Charts returns copies of every state in creation order.
func (m *Manager) Charts() []ChartState {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ChartState, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.charts[id])
	}
	return out
}

// ============================================================================
// UPDATES
// ============================================================================

// UpdateChart rebuilds the chart stored under id. A nil src keeps the
// stored source; opts are deep-merged onto the stored options. An unknown
// id returns ErrChartNotFound and changes nothing.
func (m *Manager) UpdateChart(ctx context.Context, id string, src *DataSource, opts *coerce.Map) (ChartState, error) {
	return m.update(ctx, id, src, opts, true)
}

func (m *Manager) update(ctx context.Context, id string, src *DataSource, opts *coerce.Map, arm bool) (ChartState, error) {
	m.mu.Lock()
	st, ok := m.charts[id]
	var prev ChartState
	if ok {
		prev = *st
	}
	m.mu.Unlock()
	if !ok {
		return ChartState{}, notFound(id)
	}

	next := prev.Source
	if src != nil {
		next = *src
	}
	merged := prev.Options
	if opts != nil {
		merged = coerce.Merge(prev.Options, opts)
	}
	return m.construct(ctx, prev.Type, prev.Element, next, merged, arm)
}

// UpdateFunc decides how UpdateAllCharts changes one chart. It returns
// nil to leave the chart alone, an Update (or *Update), or any other
// value to use as the chart's new literal data.
type UpdateFunc func(st ChartState, remote bool) any

// UpdateAllCharts rebuilds charts in creation order. Without fn only
// charts with a remote source are refetched. Every chart is attempted;
// failures are joined.
func (m *Manager) UpdateAllCharts(ctx context.Context, fn UpdateFunc) error {
	var errs []error
	for _, st := range m.Charts() {
		remote := st.Source.IsRemote()

		var err error
		switch {
		case fn != nil:
			err = m.apply(ctx, st, fn(st, remote))
		case remote:
			_, err = m.UpdateChart(ctx, st.ID, &st.Source, nil)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	logging.NewEvent(m.logger.Debug()).
		Add(logging.Count(len(errs))).
		Msg("all charts updated")
	return errors.Join(errs...)
}

func (m *Manager) apply(ctx context.Context, st ChartState, result any) error {
	var err error
	switch u := result.(type) {
	case nil:
		return nil
	case Update:
		_, err = m.UpdateChart(ctx, st.ID, u.Source, u.Options)
	case *Update:
		_, err = m.UpdateChart(ctx, st.ID, u.Source, u.Options)
	case DataSource:
		_, err = m.UpdateChart(ctx, st.ID, &u, nil)
	default:
		src := Literal(u)
		_, err = m.UpdateChart(ctx, st.ID, &src, nil)
	}
	return err
}

// ============================================================================
// REFRESH
// ============================================================================

// SetRefresh rebuilds the chart every interval. A chart that already has
// a repeater keeps it.
func (m *Manager) SetRefresh(id string, interval time.Duration) error {
	m.mu.Lock()
	_, ok := m.charts[id]
	m.mu.Unlock()
	if !ok {
		return notFound(id)
	}
	if interval <= 0 {
		return fmt.Errorf("%w: refresh interval must be positive", engine.ErrInvalidOption)
	}
	m.arm(id, interval)
	return nil
}

func (m *Manager) arm(id string, interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || m.repeaters[id] != nil {
		return
	}
	m.repeaters[id] = NewRepeater(interval, func() { m.tick(id) }, &m.wg)
	logging.NewEvent(m.logger.Debug()).
		Add(logging.ChartID(id)).
		Add(logging.Refresh(interval)).
		Msg("refresh armed")
}

// tick rebuilds one chart through the refresh bulkhead.
func (m *Manager) tick(id string) {
	_, err := m.refreshes.Execute(m.ctx, func(ctx context.Context) (struct{}, error) {
		_, err := m.update(ctx, id, nil, nil, false)
		return struct{}{}, err
	})
	if err != nil && m.ctx.Err() == nil {
		logging.NewEvent(m.logger.Warn()).
			Add(logging.ChartID(id)).
			Add(logging.Component("refresh")).
			Add(logging.ErrorField(err)).
			Msg("refresh failed")
	}
}

// StopRefresh stops the chart's repeater. It reports whether one was
// running. A rebuild already in progress finishes.
func (m *Manager) StopRefresh(id string) bool {
	m.mu.Lock()
	r := m.repeaters[id]
	delete(m.repeaters, id)
	m.mu.Unlock()

	if r == nil {
		return false
	}
	r.Stop()
	return true
}

// Refreshing reports whether the chart has a repeater.
func (m *Manager) Refreshing(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repeaters[id] != nil
}

// Close stops every repeater and waits for running ticks. Charts built
// after Close fail with ErrClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	repeaters := m.repeaters
	m.repeaters = make(map[string]*Repeater)
	m.mu.Unlock()

	for _, r := range repeaters {
		r.Stop()
	}
	m.cancel()
	m.wg.Wait()
	return nil
}
