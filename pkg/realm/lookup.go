package realm

// Lookup follows one resolution as it is delegated between realms. A realm
// that is asked for a name while it is already on the delegation path
// answers not found, so import and parent cycles end instead of recursing.
//
// A Lookup belongs to a single call chain and is not safe for concurrent
// use. A nil *Lookup starts a new one.
type Lookup struct {
	path map[*Realm]bool
}

// NewLookup starts an empty delegation path
func NewLookup() *Lookup {
	return &Lookup{path: make(map[*Realm]bool)}
}

func (l *Lookup) enter(r *Realm) bool {
	if l.path[r] {
		return false
	}
	l.path[r] = true
	return true
}

func (l *Lookup) leave(r *Realm) {
	delete(l.path, r)
}

func orNewLookup(l *Lookup) *Lookup {
	if l == nil {
		return NewLookup()
	}
	return l
}

// loadClassVia delegates a class lookup to loader, keeping the path when
// loader is a realm
func loadClassVia(l *Lookup, loader ClassLoader, name string) (*Class, error) {
	if r, ok := loader.(*Realm); ok {
		return r.LoadClassWith(l, name)
	}
	return loader.LoadClass(name)
}

func getResourceVia(l *Lookup, loader ClassLoader, name string) (*Resource, bool) {
	if r, ok := loader.(*Realm); ok {
		return r.GetResourceWith(l, name)
	}
	return loader.GetResource(name)
}

func getResourcesVia(l *Lookup, loader ClassLoader, name string) []*Resource {
	if r, ok := loader.(*Realm); ok {
		return r.GetResourcesWith(l, name)
	}
	return loader.GetResources(name)
}
