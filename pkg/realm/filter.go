package realm

import (
	"fmt"

	"github.com/realmforge/realmforge/pkg/utils"
)

// GlobFilter builds a Filter accepting resource paths that match any of
// the glob patterns. "**" crosses directory boundaries.
func GlobFilter(patterns []string) (Filter, error) {
	matcher, err := utils.NewPatternMatcher(patterns)
	if err != nil {
		return nil, fmt.Errorf("invalid realm filter: %w", err)
	}
	return matcher.Match, nil
}

// PrefixFilter accepts resource paths under any of the given namespaces.
// Namespaces use dotted form and match the same way import patterns do.
func PrefixFilter(namespaces ...string) Filter {
	entries := make([]Entry, 0, len(namespaces))
	for _, ns := range namespaces {
		entries = append(entries, Entry{Pattern: ns})
	}
	return func(resourcePath string) bool {
		for _, e := range entries {
			if e.Matches(resourcePath) {
				return true
			}
		}
		return false
	}
}
