package realm

import (
	"sort"
	"sync"

	"github.com/realmforge/realmforge/pkg/logger"
	"github.com/realmforge/realmforge/pkg/metrics"
)

// Listener is notified when realms are created or disposed
type Listener interface {
	RealmCreated(r *Realm)
	RealmDisposed(r *Realm)
}

// World owns a set of realms by id. Lookups may run concurrently; creating
// and disposing realms is exclusive.
type World struct {
	mu        sync.RWMutex
	realms    map[string]*Realm
	listeners []Listener

	provider        ContentProvider
	log             logger.Logger
	defaultStrategy string
}

// Option configures a World
type Option func(*World)

// WithContentProvider sets the provider used for realm search paths
func WithContentProvider(p ContentProvider) Option {
	return func(w *World) { w.provider = p }
}

// WithLogger sets the world logger
func WithLogger(l logger.Logger) Option {
	return func(w *World) { w.log = logger.OrNop(l) }
}

// WithDefaultStrategy sets the strategy id used when a realm names none
func WithDefaultStrategy(id string) Option {
	return func(w *World) { w.defaultStrategy = id }
}

// NewWorld creates an empty world. Without WithContentProvider realms read
// the host filesystem.
func NewWorld(opts ...Option) *World {
	w := &World{
		realms:          make(map[string]*Realm),
		log:             logger.NewNopLogger(),
		defaultStrategy: DefaultStrategy,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.provider == nil {
		w.provider = NewOSSearchPathProvider()
	}
	return w
}

// RealmOption configures a single realm at creation time
type RealmOption func(*realmOptions)

type realmOptions struct {
	strategy string
	filter   Filter
}

// WithStrategy selects the strategy for a new realm by id
func WithStrategy(id string) RealmOption {
	return func(o *realmOptions) { o.strategy = id }
}

// WithFilter restricts the new realm's own search path to names accepted by f
func WithFilter(f Filter) RealmOption {
	return func(o *realmOptions) { o.filter = f }
}

// NewRealm creates and registers a realm. base may be nil.
func (w *World) NewRealm(id string, base BaseResolver, opts ...RealmOption) (*Realm, error) {
	o := realmOptions{strategy: w.defaultStrategy}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Realm{
		id:       id,
		world:    w,
		base:     base,
		provider: w.provider,
		filter:   o.filter,
		log:      w.log.WithComponent(id),
		imports:  NewEntrySet(),
	}
	strategy, err := NewStrategy(o.strategy, r)
	if err != nil {
		return nil, err
	}
	r.strategy = strategy

	w.mu.Lock()
	if _, exists := w.realms[id]; exists {
		w.mu.Unlock()
		return nil, &DuplicateRealmError{ID: id}
	}
	w.realms[id] = r
	listeners := append([]Listener(nil), w.listeners...)
	w.mu.Unlock()

	metrics.RealmCount.Inc()
	w.log.Debug("Created realm",
		logger.WithField("realm", id),
		logger.WithField("strategy", strategy.ID()))

	for _, l := range listeners {
		l.RealmCreated(r)
	}
	return r, nil
}

// NewFilteredRealm creates a realm whose own search path only exposes
// names accepted by filter
func (w *World) NewFilteredRealm(id string, base BaseResolver, filter Filter, opts ...RealmOption) (*Realm, error) {
	return w.NewRealm(id, base, append(opts, WithFilter(filter))...)
}

// GetRealm returns the realm registered as id
func (w *World) GetRealm(id string) (*Realm, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	r, ok := w.realms[id]
	if !ok {
		return nil, &NoSuchRealmError{ID: id}
	}
	return r, nil
}

// GetClassRealm returns the realm registered as id, or nil
func (w *World) GetClassRealm(id string) *Realm {
	r, _ := w.GetRealm(id)
	return r
}

// Realms returns all realms sorted by id
func (w *World) Realms() []*Realm {
	w.mu.RLock()
	out := make([]*Realm, 0, len(w.realms))
	for _, r := range w.realms {
		out = append(out, r)
	}
	w.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// DisposeRealm removes the realm registered as id. Realms that still hold
// it as parent or import source keep their references.
func (w *World) DisposeRealm(id string) error {
	w.mu.Lock()
	r, ok := w.realms[id]
	if !ok {
		w.mu.Unlock()
		return &NoSuchRealmError{ID: id}
	}
	delete(w.realms, id)
	listeners := append([]Listener(nil), w.listeners...)
	w.mu.Unlock()

	metrics.RealmCount.Dec()
	w.log.Debug("Disposed realm", logger.WithField("realm", id))

	for _, l := range listeners {
		l.RealmDisposed(r)
	}
	return nil
}

// AddListener registers a listener
func (w *World) AddListener(l Listener) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, l)
}

// RemoveListener unregisters a listener
func (w *World) RemoveListener(l Listener) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, existing := range w.listeners {
		if existing == l {
			w.listeners = append(w.listeners[:i], w.listeners[i+1:]...)
			return
		}
	}
}
