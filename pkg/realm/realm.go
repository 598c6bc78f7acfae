// Package realm implements isolated name resolution realms. A realm has
// its own search path, an optional parent, explicit imports from other
// realms and a Strategy deciding the order in which those are consulted.
package realm

import (
	"fmt"
	"io"
	"sync"

	"github.com/realmforge/realmforge/pkg/logger"
	"github.com/realmforge/realmforge/pkg/metrics"
)

// Filter decides whether a resource path on a realm's own search path is
// visible. It receives resource-path form, a/b/C.class for class a.b.C.
type Filter func(resourcePath string) bool

// Realm is an isolated namespace.
//
// All resolution methods are safe for concurrent use. Self resolution of a
// given name is serialized by a per-name lock, so concurrent requests for
// the same name read the search path once. Changing imports while
// resolutions are in flight is allowed but the result seen by those
// resolutions is unspecified.
type Realm struct {
	id       string
	world    *World
	base     BaseResolver
	provider ContentProvider
	filter   Filter
	log      logger.Logger

	mu            sync.RWMutex
	searchPath    []string
	parent        ClassLoader
	strategy      Strategy
	imports       *EntrySet
	parentImports *EntrySet

	locks  sync.Map // name -> *sync.Mutex
	loaded sync.Map // name -> *Class
}

var _ ClassLoader = (*Realm)(nil)

// ID returns the realm id
func (r *Realm) ID() string { return r.id }

// World returns the world that owns the realm
func (r *Realm) World() *World { return r.world }

// Strategy returns the active strategy
func (r *Realm) Strategy() Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.strategy
}

// SetStrategy replaces the active strategy
func (r *Realm) SetStrategy(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategy = s
}

// Parent returns the parent loader, or nil
func (r *Realm) Parent() ClassLoader {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.parent
}

// SetParent sets or replaces the parent loader. It may be called after
// construction to wire hierarchies once all realms exist.
func (r *Realm) SetParent(parent ClassLoader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parent = parent
}

// ParentRealm returns the parent when it is a realm
func (r *Realm) ParentRealm() *Realm {
	p, _ := r.Parent().(*Realm)
	return p
}

// IsFiltered reports whether the realm has a visibility filter
func (r *Realm) IsFiltered() bool { return r.filter != nil }

// AddSearchPathEntry appends an entry to the search path
func (r *Realm) AddSearchPathEntry(entry string) {
	entry = NormalizeSearchPathEntry(entry)

	r.mu.Lock()
	r.searchPath = append(r.searchPath, entry)
	r.mu.Unlock()

	r.log.Debug("Added search path entry", logger.WithField("entry", entry))
}

// SearchPath returns a snapshot of the search path
func (r *Realm) SearchPath() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.searchPath))
	copy(out, r.searchPath)
	return out
}

// ImportFrom imports names matching pattern from the realm registered as realmID
func (r *Realm) ImportFrom(realmID, pattern string) error {
	source, err := r.world.GetRealm(realmID)
	if err != nil {
		return err
	}
	r.ImportFromLoader(source, pattern)
	return nil
}

// ImportFromLoader imports names matching pattern from an arbitrary loader
func (r *Realm) ImportFromLoader(source ClassLoader, pattern string) {
	if !r.imports.Add(Entry{Source: source, Pattern: pattern}) {
		r.log.Warn("Import pattern already present, keeping the first source",
			logger.WithField("pattern", pattern))
	}
}

// ImportFromParent restricts parent delegation to names matching pattern.
// Without any parent imports every name may be delegated to the parent.
func (r *Realm) ImportFromParent(pattern string) {
	r.mu.Lock()
	if r.parentImports == nil {
		r.parentImports = NewEntrySet()
	}
	set := r.parentImports
	r.mu.Unlock()

	set.Add(Entry{Pattern: pattern})
}

// Imports returns the foreign imports in match order
func (r *Realm) Imports() []Entry {
	return r.imports.Entries()
}

// ParentImports returns the parent allow-list, nil when unrestricted
func (r *Realm) ParentImports() []Entry {
	r.mu.RLock()
	set := r.parentImports
	r.mu.RUnlock()
	return set.Entries()
}

// ImportLoader returns the loader of the first import matching name
func (r *Realm) ImportLoader(name string) ClassLoader {
	e, ok := r.imports.Match(name)
	if !ok {
		return nil
	}
	return e.Source
}

// ImportRealms returns the distinct realms this realm imports from
func (r *Realm) ImportRealms() []*Realm {
	var out []*Realm
	seen := make(map[*Realm]bool)
	for _, e := range r.imports.Entries() {
		if src, ok := e.Source.(*Realm); ok && !seen[src] {
			seen[src] = true
			out = append(out, src)
		}
	}
	return out
}

// CreateChildRealm creates a realm in the same world whose parent is r
func (r *Realm) CreateChildRealm(id string) (*Realm, error) {
	child, err := r.world.NewRealm(id, r.base)
	if err != nil {
		return nil, err
	}
	child.SetParent(r)
	return child, nil
}

func (r *Realm) isImportedFromParent(name string) bool {
	r.mu.RLock()
	set := r.parentImports
	r.mu.RUnlock()

	if set.Len() == 0 {
		return true
	}
	_, ok := set.Match(name)
	return ok
}

func (r *Realm) lockFor(name string) *sync.Mutex {
	if l, ok := r.locks.Load(name); ok {
		return l.(*sync.Mutex)
	}
	l, _ := r.locks.LoadOrStore(name, &sync.Mutex{})
	return l.(*sync.Mutex)
}

func (r *Realm) visible(resourcePath string) bool {
	return r.filter == nil || r.filter(resourcePath)
}

func (r *Realm) findOwn(resourcePath string) (*Resource, bool) {
	if !r.visible(resourcePath) {
		return nil, false
	}
	for _, entry := range r.SearchPath() {
		if res, ok := r.provider.Find(entry, resourcePath); ok {
			return res, true
		}
	}
	return nil, false
}

func (r *Realm) findAllOwn(resourcePath string) []*Resource {
	if !r.visible(resourcePath) {
		return nil
	}
	var out []*Resource
	for _, entry := range r.SearchPath() {
		if res, ok := r.provider.Find(entry, resourcePath); ok {
			out = append(out, res)
		}
	}
	return out
}

// ResolveClassBySelf resolves name from the realm's own search path only
func (r *Realm) ResolveClassBySelf(name string) (*Class, bool) {
	lock := r.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	if c, ok := r.loaded.Load(name); ok {
		metrics.RealmResolutions.WithLabelValues(r.id, metrics.SourceSelf).Inc()
		return c.(*Class), true
	}

	res, ok := r.findOwn(ClassResourceName(name))
	if !ok {
		return nil, false
	}

	c := &Class{Name: name, Realm: r.id, Resource: res}
	r.loaded.Store(name, c)
	metrics.RealmSelfLoads.WithLabelValues(r.id).Inc()
	metrics.RealmResolutions.WithLabelValues(r.id, metrics.SourceSelf).Inc()
	return c, true
}

// ResolveClassByImport delegates name to the first matching import
func (r *Realm) ResolveClassByImport(l *Lookup, name string) (*Class, bool) {
	source := r.ImportLoader(name)
	if source == nil {
		return nil, false
	}
	c, err := loadClassVia(l, source, name)
	if err != nil {
		return nil, false
	}
	metrics.RealmResolutions.WithLabelValues(r.id, metrics.SourceImport).Inc()
	return c, true
}

// ResolveClassByParent delegates name to the parent when one is set and
// the parent allow-list admits the name
func (r *Realm) ResolveClassByParent(l *Lookup, name string) (*Class, bool) {
	parent := r.Parent()
	if parent == nil || !r.isImportedFromParent(name) {
		return nil, false
	}
	c, err := loadClassVia(l, parent, name)
	if err != nil {
		return nil, false
	}
	metrics.RealmResolutions.WithLabelValues(r.id, metrics.SourceParent).Inc()
	return c, true
}

// ResolveResourceBySelf looks name up on the realm's own search path
func (r *Realm) ResolveResourceBySelf(name string) (*Resource, bool) {
	return r.findOwn(name)
}

// ResolveResourceByImport delegates name to the first matching import
func (r *Realm) ResolveResourceByImport(l *Lookup, name string) (*Resource, bool) {
	source := r.ImportLoader(name)
	if source == nil {
		return nil, false
	}
	return getResourceVia(l, source, name)
}

// ResolveResourceByParent delegates name to the parent when admitted
func (r *Realm) ResolveResourceByParent(l *Lookup, name string) (*Resource, bool) {
	parent := r.Parent()
	if parent == nil || !r.isImportedFromParent(name) {
		return nil, false
	}
	return getResourceVia(l, parent, name)
}

// ResolveResourcesBySelf returns every match on the realm's own search path
func (r *Realm) ResolveResourcesBySelf(name string) []*Resource {
	return r.findAllOwn(name)
}

// ResolveResourcesByImport returns every match from the first matching import
func (r *Realm) ResolveResourcesByImport(l *Lookup, name string) []*Resource {
	source := r.ImportLoader(name)
	if source == nil {
		return nil
	}
	return getResourcesVia(l, source, name)
}

// ResolveResourcesByParent returns every match from the parent when admitted
func (r *Realm) ResolveResourcesByParent(l *Lookup, name string) []*Resource {
	parent := r.Parent()
	if parent == nil || !r.isImportedFromParent(name) {
		return nil
	}
	return getResourcesVia(l, parent, name)
}

// LoadClass resolves name. The base resolver is always tried first; after
// that the strategy decides. A name found nowhere yields *ClassNotFoundError.
func (r *Realm) LoadClass(name string) (*Class, error) {
	return r.LoadClassWith(nil, name)
}

// LoadClassWith resolves name as one step of l. A realm already on the
// path of l yields *ClassNotFoundError.
func (r *Realm) LoadClassWith(l *Lookup, name string) (*Class, error) {
	l = orNewLookup(l)
	if !l.enter(r) {
		r.log.Debug("Delegation cycle, name not found here", logger.WithField("name", name))
		return nil, &ClassNotFoundError{Name: name, Realm: r.id}
	}
	defer l.leave(r)

	if r.base != nil {
		if c, ok := r.base.FindClass(name); ok {
			metrics.RealmResolutions.WithLabelValues(r.id, metrics.SourceBase).Inc()
			return c, nil
		}
	}

	c, err := r.Strategy().LoadClass(l, name)
	if err != nil {
		metrics.RealmResolutions.WithLabelValues(r.id, metrics.SourceMiss).Inc()
		return nil, err
	}
	return c, nil
}

// GetResource resolves a resource path, base first then strategy
func (r *Realm) GetResource(name string) (*Resource, bool) {
	return r.GetResourceWith(nil, name)
}

// GetResourceWith resolves a resource path as one step of l
func (r *Realm) GetResourceWith(l *Lookup, name string) (*Resource, bool) {
	l = orNewLookup(l)
	if !l.enter(r) {
		return nil, false
	}
	defer l.leave(r)

	if r.base != nil {
		if res, ok := r.base.FindResource(name); ok {
			return res, true
		}
	}
	return r.Strategy().GetResource(l, name)
}

// GetResources returns every visible match for name. Base and own matches
// come first, followed by whatever the strategy finds, without duplicates.
func (r *Realm) GetResources(name string) []*Resource {
	return r.GetResourcesWith(nil, name)
}

// GetResourcesWith collects every match for name as one step of l
func (r *Realm) GetResourcesWith(l *Lookup, name string) []*Resource {
	l = orNewLookup(l)
	if !l.enter(r) {
		return nil
	}
	defer l.leave(r)

	seen := make(map[string]bool)
	var out []*Resource
	if r.base != nil {
		out = appendUnique(out, seen, r.base.FindResources(name))
	}
	out = appendUnique(out, seen, r.findAllOwn(name))
	return appendUnique(out, seen, r.Strategy().GetResources(l, name))
}

// Display writes the realm chain with strategies, search paths and imports
func (r *Realm) Display(w io.Writer) {
	fmt.Fprintln(w, "-----------------------------------------------------")
	for cr := r; cr != nil; cr = cr.ParentRealm() {
		fmt.Fprintf(w, "realm =    %s\n", cr.ID())
		fmt.Fprintf(w, "strategy = %s\n", cr.Strategy().ID())
		if cr.IsFiltered() {
			fmt.Fprintln(w, "filtered = true")
		}

		for i, entry := range cr.SearchPath() {
			fmt.Fprintf(w, "searchPath[%d] = %s\n", i, entry)
		}

		imports := cr.Imports()
		fmt.Fprintf(w, "Number of foreign imports: %d\n", len(imports))
		for _, e := range imports {
			fmt.Fprintf(w, "import: %s\n", e)
		}

		if parentImports := cr.ParentImports(); parentImports != nil {
			fmt.Fprintf(w, "Number of parent imports: %d\n", len(parentImports))
			for _, e := range parentImports {
				fmt.Fprintf(w, "import: %s\n", e)
			}
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, "-----------------------------------------------------")
}

// String implements fmt.Stringer
func (r *Realm) String() string {
	parent := "none"
	if p := r.Parent(); p != nil {
		parent = fmt.Sprint(p)
	}
	return fmt.Sprintf("Realm[%s, parent: %s]", r.id, parent)
}
