package realm

import (
	"sort"
	"sync"

	"github.com/realmforge/realmforge/pkg/types"
)

// Strategy orders the import, self and parent lookups of one realm. The
// Lookup is passed on to the realm's import and parent delegation.
type Strategy interface {
	ID() string
	Realm() *Realm
	LoadClass(l *Lookup, name string) (*Class, error)
	GetResource(l *Lookup, name string) (*Resource, bool)
	GetResources(l *Lookup, name string) []*Resource
}

// StrategyFactory builds a strategy bound to a realm
type StrategyFactory func(*Realm) Strategy

// DefaultStrategy is used when a realm names no strategy
const DefaultStrategy = types.StrategySelfFirst

var (
	strategiesMu sync.RWMutex
	strategies   = map[string]StrategyFactory{
		types.StrategySelfFirst:   func(r *Realm) Strategy { return &SelfFirstStrategy{realm: r} },
		types.StrategyParentFirst: func(r *Realm) Strategy { return &ParentFirstStrategy{realm: r} },
	}
)

// RegisterStrategy adds or replaces a strategy factory
func RegisterStrategy(id string, factory StrategyFactory) {
	strategiesMu.Lock()
	defer strategiesMu.Unlock()
	strategies[id] = factory
}

// NewStrategy builds the strategy registered as id for realm r
func NewStrategy(id string, r *Realm) (Strategy, error) {
	if id == "" {
		id = DefaultStrategy
	}
	strategiesMu.RLock()
	factory, ok := strategies[id]
	strategiesMu.RUnlock()
	if !ok {
		return nil, &UnknownStrategyError{ID: id}
	}
	return factory(r), nil
}

// StrategyIDs lists the registered strategy ids in sorted order
func StrategyIDs() []string {
	strategiesMu.RLock()
	defer strategiesMu.RUnlock()
	ids := make([]string, 0, len(strategies))
	for id := range strategies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SelfFirstStrategy consults imports, then the realm itself, then the parent
type SelfFirstStrategy struct {
	realm *Realm
}

// ID implements Strategy
func (s *SelfFirstStrategy) ID() string { return types.StrategySelfFirst }

// Realm implements Strategy
func (s *SelfFirstStrategy) Realm() *Realm { return s.realm }

// LoadClass implements Strategy
func (s *SelfFirstStrategy) LoadClass(l *Lookup, name string) (*Class, error) {
	if c, ok := s.realm.ResolveClassByImport(l, name); ok {
		return c, nil
	}
	if c, ok := s.realm.ResolveClassBySelf(name); ok {
		return c, nil
	}
	if c, ok := s.realm.ResolveClassByParent(l, name); ok {
		return c, nil
	}
	return nil, &ClassNotFoundError{Name: name, Realm: s.realm.ID()}
}

// GetResource implements Strategy
func (s *SelfFirstStrategy) GetResource(l *Lookup, name string) (*Resource, bool) {
	if res, ok := s.realm.ResolveResourceByImport(l, name); ok {
		return res, true
	}
	if res, ok := s.realm.ResolveResourceBySelf(name); ok {
		return res, true
	}
	return s.realm.ResolveResourceByParent(l, name)
}

// GetResources implements Strategy
func (s *SelfFirstStrategy) GetResources(l *Lookup, name string) []*Resource {
	seen := make(map[string]bool)
	out := appendUnique(nil, seen, s.realm.ResolveResourcesByImport(l, name))
	out = appendUnique(out, seen, s.realm.ResolveResourcesBySelf(name))
	return appendUnique(out, seen, s.realm.ResolveResourcesByParent(l, name))
}

// ParentFirstStrategy consults imports, then the parent, then the realm itself
type ParentFirstStrategy struct {
	realm *Realm
}

// ID implements Strategy
func (s *ParentFirstStrategy) ID() string { return types.StrategyParentFirst }

// Realm implements Strategy
func (s *ParentFirstStrategy) Realm() *Realm { return s.realm }

// LoadClass implements Strategy
func (s *ParentFirstStrategy) LoadClass(l *Lookup, name string) (*Class, error) {
	if c, ok := s.realm.ResolveClassByImport(l, name); ok {
		return c, nil
	}
	if c, ok := s.realm.ResolveClassByParent(l, name); ok {
		return c, nil
	}
	if c, ok := s.realm.ResolveClassBySelf(name); ok {
		return c, nil
	}
	return nil, &ClassNotFoundError{Name: name, Realm: s.realm.ID()}
}

// GetResource implements Strategy
func (s *ParentFirstStrategy) GetResource(l *Lookup, name string) (*Resource, bool) {
	if res, ok := s.realm.ResolveResourceByImport(l, name); ok {
		return res, true
	}
	if res, ok := s.realm.ResolveResourceByParent(l, name); ok {
		return res, true
	}
	return s.realm.ResolveResourceBySelf(name)
}

// GetResources implements Strategy
func (s *ParentFirstStrategy) GetResources(l *Lookup, name string) []*Resource {
	seen := make(map[string]bool)
	out := appendUnique(nil, seen, s.realm.ResolveResourcesByImport(l, name))
	out = appendUnique(out, seen, s.realm.ResolveResourcesByParent(l, name))
	return appendUnique(out, seen, s.realm.ResolveResourcesBySelf(name))
}
