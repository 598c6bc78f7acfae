package realm

import (
	"fmt"
	"io"
	"strings"
)

// ClassLoader is anything a realm can delegate a name lookup to. *Realm is
// the main implementation.
type ClassLoader interface {
	LoadClass(name string) (*Class, error)
	GetResource(name string) (*Resource, bool)
	GetResources(name string) []*Resource
}

// Class is a resolved class name together with the realm that defined it
type Class struct {
	Name     string
	Realm    string
	Resource *Resource
}

// Resource is a located entry on some search path
type Resource struct {
	Name     string
	Entry    string
	Location string
	open     func() (io.ReadCloser, error)
}

// NewResource creates a resource handle. open is called lazily by Open.
func NewResource(name, entry, location string, open func() (io.ReadCloser, error)) *Resource {
	return &Resource{
		Name:     name,
		Entry:    entry,
		Location: location,
		open:     open,
	}
}

// Open returns the resource content
func (r *Resource) Open() (io.ReadCloser, error) {
	if r.open == nil {
		return nil, fmt.Errorf("resource %s has no content", r.Location)
	}
	return r.open()
}

// ReadAll opens the resource and reads all of it
func (r *Resource) ReadAll() ([]byte, error) {
	rc, err := r.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// ClassResourceName converts a dotted class name to its resource path,
// a.b.C to a/b/C.class.
func ClassResourceName(name string) string {
	return strings.ReplaceAll(name, ".", "/") + ".class"
}

// NormalizeSearchPathEntry strips a jar:...!/ wrapper and a file: scheme
// from a search path entry.
func NormalizeSearchPathEntry(entry string) string {
	if strings.HasPrefix(entry, "jar:") && strings.HasSuffix(entry, "!/") {
		entry = entry[len("jar:") : len(entry)-len("!/")]
	}
	switch {
	case strings.HasPrefix(entry, "file://"):
		entry = entry[len("file://"):]
	case strings.HasPrefix(entry, "file:"):
		entry = entry[len("file:"):]
	}
	return entry
}

func appendUnique(dst []*Resource, seen map[string]bool, src []*Resource) []*Resource {
	for _, r := range src {
		if r == nil || seen[r.Location] {
			continue
		}
		seen[r.Location] = true
		dst = append(dst, r)
	}
	return dst
}
