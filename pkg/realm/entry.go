package realm

import (
	"sort"
	"strings"
	"sync"
)

// Entry is a single import rule. Source is the loader that names matching
// Pattern are delegated to; it is nil for parent-import allow-list entries.
//
// Identity is the pattern alone. Two entries with the same pattern and
// different sources are the same entry as far as an EntrySet is concerned.
type Entry struct {
	Source  ClassLoader
	Pattern string
}

// Matches reports whether name falls under the entry's pattern. Names
// without a '/' are treated as dotted class names, anything else as a
// resource path.
func (e Entry) Matches(name string) bool {
	pattern := e.Pattern

	if strings.HasSuffix(pattern, ".*") {
		var pkg string
		if !strings.Contains(name, "/") {
			if i := strings.LastIndexByte(name, '.'); i >= 0 {
				pkg = name[:i]
			}
		} else {
			if i := strings.LastIndexByte(name, '/'); i >= 0 {
				pkg = strings.ReplaceAll(name[:i], "/", ".")
			}
		}
		return pkg == pattern[:len(pattern)-2]
	}

	if pattern == "" {
		return true
	}

	if !strings.Contains(name, "/") {
		if !strings.HasPrefix(name, pattern) {
			return false
		}
		if len(name) == len(pattern) {
			return true
		}
		next := name[len(pattern)]
		return next == '.' || next == '$'
	}

	if name == pattern {
		return true
	}
	dir := strings.ReplaceAll(pattern, ".", "/")
	if !strings.HasPrefix(name, dir) || len(name) <= len(dir) {
		return false
	}
	switch name[len(dir)] {
	case '/', '$':
		return true
	}
	return len(name) == len(dir)+len(".class") && strings.HasSuffix(name, ".class")
}

// String implements fmt.Stringer
func (e Entry) String() string {
	if r, ok := e.Source.(*Realm); ok {
		return "Import[" + e.Pattern + " <- " + r.ID() + "]"
	}
	return "Import[" + e.Pattern + "]"
}

// CompareEntries orders entries by reverse lexicographic pattern, so that
// a more specific pattern sorts ahead of a shorter one sharing its prefix.
func CompareEntries(a, b Entry) int {
	return strings.Compare(b.Pattern, a.Pattern)
}

// EntrySet is an ordered set of entries keyed by pattern
type EntrySet struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewEntrySet creates an empty entry set
func NewEntrySet() *EntrySet {
	return &EntrySet{}
}

// Add inserts e in pattern order. It returns false and leaves the set
// unchanged when an entry with the same pattern is already present.
func (s *EntrySet) Add(e Entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := sort.Search(len(s.entries), func(i int) bool {
		return CompareEntries(s.entries[i], e) >= 0
	})
	if i < len(s.entries) && s.entries[i].Pattern == e.Pattern {
		return false
	}

	s.entries = append(s.entries, Entry{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = e
	return true
}

// Match returns the first entry, in set order, whose pattern matches name
func (s *EntrySet) Match(name string) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.Matches(name) {
			return e, true
		}
	}
	return Entry{}, false
}

// Entries returns a snapshot of the set in order
func (s *EntrySet) Entries() []Entry {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of entries
func (s *EntrySet) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
