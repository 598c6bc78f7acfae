package realm

import "strings"

// BaseResolver is the platform lookup a realm consults before anything
// else. Names it satisfies can never be shadowed by imports, the realm's
// own search path or its parent.
type BaseResolver interface {
	FindClass(name string) (*Class, bool)
	FindResource(name string) (*Resource, bool)
	FindResources(name string) []*Resource
}

// PlatformRealmID is the defining realm reported for classes found by a
// PlatformResolver.
const PlatformRealmID = "platform"

// PlatformResolver serves names under a fixed set of namespace prefixes
// from its own search path entries.
type PlatformResolver struct {
	prefixes []string
	entries  []string
	provider ContentProvider
}

// NewPlatformResolver creates a base resolver. prefixes are dotted
// namespaces such as "realmforge.api"; entries are search path entries.
func NewPlatformResolver(provider ContentProvider, prefixes []string, entries ...string) *PlatformResolver {
	normalized := make([]string, 0, len(entries))
	for _, e := range entries {
		normalized = append(normalized, NormalizeSearchPathEntry(e))
	}
	return &PlatformResolver{
		prefixes: prefixes,
		entries:  normalized,
		provider: provider,
	}
}

func (p *PlatformResolver) owns(name string) bool {
	dotted := strings.ReplaceAll(name, "/", ".")
	for _, prefix := range p.prefixes {
		if (Entry{Pattern: prefix}).Matches(dotted) {
			return true
		}
	}
	return false
}

// FindClass implements BaseResolver
func (p *PlatformResolver) FindClass(name string) (*Class, bool) {
	if !p.owns(name) {
		return nil, false
	}
	res, ok := p.FindResource(ClassResourceName(name))
	if !ok {
		return nil, false
	}
	return &Class{Name: name, Realm: PlatformRealmID, Resource: res}, true
}

// FindResource implements BaseResolver
func (p *PlatformResolver) FindResource(name string) (*Resource, bool) {
	if !p.owns(name) {
		return nil, false
	}
	for _, entry := range p.entries {
		if res, ok := p.provider.Find(entry, name); ok {
			return res, true
		}
	}
	return nil, false
}

// FindResources implements BaseResolver
func (p *PlatformResolver) FindResources(name string) []*Resource {
	if !p.owns(name) {
		return nil
	}
	var out []*Resource
	for _, entry := range p.entries {
		if res, ok := p.provider.Find(entry, name); ok {
			out = append(out, res)
		}
	}
	return out
}
