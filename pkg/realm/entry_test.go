package realm_test

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/realmforge/realmforge/pkg/realm"
)

func TestEntry_Matches(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		input   string
		want    bool
	}{
		{"wildcard direct child", "com.foo.*", "com.foo.Bar", true},
		{"wildcard sibling prefix", "com.foo.*", "com.foobar.Bar", false},
		{"wildcard nested package", "com.foo.*", "com.foo.bar.Baz", false},
		{"wildcard resource direct child", "com.foo.*", "com/foo/Bar.class", true},
		{"wildcard resource nested", "com.foo.*", "com/foo/bar/Baz.class", false},
		{"wildcard default package", ".*", "Bar", true},
		{"package prefix exact", "com.foo", "com.foo", true},
		{"package prefix nested", "com.foo", "com.foo.bar.Baz", true},
		{"package prefix not on boundary", "com.foo", "com.foobar", false},
		{"nested type", "com.foo.Outer", "com.foo.Outer$Inner", true},
		{"resource exact", "META-INF/plugin.xml", "META-INF/plugin.xml", true},
		{"resource under package dir", "com.foo", "com/foo/Bar.class", true},
		{"resource nested class file", "com.foo.Outer", "com/foo/Outer$Inner.class", true},
		{"resource class file", "com.foo.Bar", "com/foo/Bar.class", true},
		{"resource other suffix", "com.foo.Bar", "com/foo/Bar.txt", false},
		{"resource dir itself", "com.foo", "com/foo", false},
		{"resource sibling prefix", "com.foo", "com/foobar/X.class", false},
		{"empty pattern", "", "anything.at.All", true},
		{"empty pattern resource", "", "a/b/c.txt", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := realm.Entry{Pattern: tt.pattern}
			if got := e.Matches(tt.input); got != tt.want {
				t.Errorf("Entry{%q}.Matches(%q) = %v, want %v", tt.pattern, tt.input, got, tt.want)
			}
		})
	}
}

func TestCompareEntries_SpecificFirst(t *testing.T) {
	entries := []realm.Entry{{Pattern: "com.foo"}, {Pattern: "com.foo.bar"}, {Pattern: "com"}}
	sort.Slice(entries, func(i, j int) bool {
		return realm.CompareEntries(entries[i], entries[j]) < 0
	})

	got := patterns(entries)
	want := []string{"com.foo.bar", "com.foo", "com"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sorted patterns mismatch (-want +got):\n%s", diff)
	}
}

func TestEntrySet_OrderAndFirstWins(t *testing.T) {
	w := newTestWorld(t, nil)
	a := mustRealm(t, w, "a")
	b := mustRealm(t, w, "b")

	set := realm.NewEntrySet()
	for _, p := range []string{"com", "com.foo.bar.*", "com.foo"} {
		if !set.Add(realm.Entry{Source: a, Pattern: p}) {
			t.Fatalf("Add(%q) reported duplicate", p)
		}
	}
	if set.Add(realm.Entry{Source: b, Pattern: "com.foo"}) {
		t.Error("second entry with the same pattern must be ignored")
	}

	got := patterns(set.Entries())
	want := []string{"com.foo.bar.*", "com.foo", "com"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entry order mismatch (-want +got):\n%s", diff)
	}

	match, ok := set.Match("com.foo.Bar")
	if !ok || match.Pattern != "com.foo" {
		t.Fatalf("Match = %v, %v; want com.foo", match, ok)
	}
	if match.Source != a {
		t.Error("first inserted source must be kept")
	}

	match, _ = set.Match("com.foo.bar.Baz")
	if match.Pattern != "com.foo.bar.*" {
		t.Errorf("more specific pattern should win, got %q", match.Pattern)
	}
}

func patterns(entries []realm.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Pattern)
	}
	return out
}
