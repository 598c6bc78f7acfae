package lifecycle_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/realmforge/realmforge/pkg/lifecycle"
)

func withConfig(b *lifecycle.MojoBinding, kv ...string) *lifecycle.MojoBinding {
	b.Configuration = lifecycle.NewConfiguration("configuration")
	for i := 0; i+1 < len(kv); i += 2 {
		b.Configuration.AddChild(&lifecycle.Configuration{Name: kv[i], Value: kv[i+1]})
	}
	return b
}

func TestMergeBindings_Additive(t *testing.T) {
	existing := lifecycle.NewLifecycleBindings()
	mustAdd(t, existing, "compile", newBinding("g", "m1", "goal", ""))
	incoming := lifecycle.NewLifecycleBindings()
	mustAdd(t, incoming, "compile", newBinding("g", "m2", "goal", ""))

	result, err := lifecycle.MergeBindings(existing, incoming, nil, lifecycle.MergeOptions{})
	if err != nil {
		t.Fatalf("MergeBindings: %v", err)
	}

	want := []string{"compile=g:m1:goal", "compile=g:m2:goal"}
	if diff := cmp.Diff(want, phaseKeys(result.Build)); diff != "" {
		t.Errorf("merged bindings (-want +got):\n%s", diff)
	}
	if existing.Build.Phase("compile").Len() != 1 {
		t.Error("existing model was modified")
	}
}

func TestMergeBindings_SameKeyWithoutConfigMergeKeepsBoth(t *testing.T) {
	existing := lifecycle.NewLifecycleBindings()
	mustAdd(t, existing, "compile", newBinding("g", "a", "goal", "e1"))
	incoming := lifecycle.NewLifecycleBindings()
	mustAdd(t, incoming, "compile", newBinding("g", "a", "goal", "e1"))

	result, err := lifecycle.MergeBindings(existing, incoming, nil, lifecycle.MergeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if n := result.Build.Phase("compile").Len(); n != 2 {
		t.Errorf("expected both bindings without config merging, got %d", n)
	}
}

func TestMergeBindings_ConfigMergeOnExecutionIDMatch(t *testing.T) {
	tests := []struct {
		name    string
		reverse bool
		wantK   string
	}{
		{"incoming dominant", false, "incoming"},
		{"existing dominant", true, "existing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			existing := lifecycle.NewLifecycleBindings()
			mustAdd(t, existing, "compile",
				newBinding("g", "before", "goal", ""),
				withConfig(newBinding("g", "a", "goal", "e1"), "k1", "v1", "k", "existing"),
				newBinding("g", "after", "goal", ""))
			incoming := lifecycle.NewLifecycleBindings()
			mustAdd(t, incoming, "compile", withConfig(newBinding("g", "a", "goal", "e1"), "k2", "v2", "k", "incoming"))

			result, err := lifecycle.MergeBindings(existing, incoming, nil, lifecycle.MergeOptions{
				MergeConfigOnExecutionIDMatch: true,
				ReverseConfigMergeDirection:   tt.reverse,
			})
			if err != nil {
				t.Fatalf("MergeBindings: %v", err)
			}

			want := []string{"compile=g:before:goal", "compile=g:after:goal", "compile=g:a:goal"}
			if diff := cmp.Diff(want, phaseKeys(result.Build)); diff != "" {
				t.Fatalf("merged bindings (-want +got):\n%s", diff)
			}

			merged := result.Build.Phase("compile").Bindings()[2]
			for key, want := range map[string]string{"k1": "v1", "k2": "v2", "k": tt.wantK} {
				if got, _ := merged.Configuration.ChildValue(key); got != want {
					t.Errorf("config %s = %q, want %q", key, got, want)
				}
			}
		})
	}
}

func TestMergeBindings_InheritsOrigin(t *testing.T) {
	existing := lifecycle.NewLifecycleBindings()
	e := newBinding("g", "a", "goal", "")
	e.Origin = lifecycle.OriginLifecycleMapping
	mustAdd(t, existing, "compile", e)
	incoming := lifecycle.NewLifecycleBindings()
	mustAdd(t, incoming, "compile", newBinding("g", "a", "goal", ""))

	result, err := lifecycle.MergeBindings(existing, incoming, nil, lifecycle.MergeOptions{MergeConfigOnExecutionIDMatch: true})
	if err != nil {
		t.Fatal(err)
	}
	bindings := result.Build.Phase("compile").Bindings()
	if len(bindings) != 1 || bindings[0].Origin != lifecycle.OriginLifecycleMapping {
		t.Errorf("bindings = %v", bindings)
	}
}

func TestMergeBindings_RebindToOtherPhaseConsumesMatch(t *testing.T) {
	existing := lifecycle.NewLifecycleBindings()
	mustAdd(t, existing, "compile", newBinding("g", "a", "goal", "e1"))
	incoming := lifecycle.NewLifecycleBindings()
	mustAdd(t, incoming, "test", newBinding("g", "a", "goal", "e1"))

	result, err := lifecycle.MergeBindings(existing, incoming, nil, lifecycle.MergeOptions{MergeConfigOnExecutionIDMatch: true})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"test=g:a:goal"}, phaseKeys(result.Build)); diff != "" {
		t.Errorf("merged bindings (-want +got):\n%s", diff)
	}
}

func TestMergeBindings_DefaultsFallback(t *testing.T) {
	defaults := lifecycle.NewLifecycleBindings()
	mustAdd(t, defaults, "clean", newBinding("g", "clean-plugin", "clean", ""))
	mustAdd(t, defaults, "compile", newBinding("g", "default-compiler", "compile", ""))

	existing := &lifecycle.LifecycleBindings{Build: lifecycle.NewLifecycleBinding(lifecycle.KindBuild)}
	mustAdd(t, existing, "compile", newBinding("g", "compiler", "compile", ""))
	incoming := &lifecycle.LifecycleBindings{Packaging: "jar"}

	result, err := lifecycle.MergeBindings(existing, incoming, defaults, lifecycle.MergeOptions{})
	if err != nil {
		t.Fatal(err)
	}

	if result.Packaging != "jar" {
		t.Errorf("packaging = %q", result.Packaging)
	}
	if diff := cmp.Diff([]string{"clean=g:clean-plugin:clean"}, phaseKeys(result.Clean)); diff != "" {
		t.Errorf("clean should come from defaults (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"compile=g:compiler:compile"}, phaseKeys(result.Build)); diff != "" {
		t.Errorf("build should come from existing (-want +got):\n%s", diff)
	}
	if result.Site == nil || !result.Site.IsEmpty() {
		t.Error("site should be an empty skeleton")
	}
}

func TestMergeBindings_ResultIsWired(t *testing.T) {
	existing := lifecycle.NewLifecycleBindings()
	mustAdd(t, existing, "install", newBinding("g", "install", "install", ""))

	result, err := lifecycle.MergeBindings(existing, lifecycle.NewLifecycleBindings(), nil, lifecycle.MergeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	b := result.Build.Phase("install").Bindings()[0]
	if b.Phase() == nil || b.Phase().Name() != "install" || b.Phase().Lifecycle() != result.Build {
		t.Error("merged binding back-references not wired")
	}
}

func TestMergeInconsistencyError(t *testing.T) {
	err := error(&lifecycle.MergeInconsistencyError{
		Phase:   "compile",
		Binding: "g:a:goal:e1",
		Err:     &lifecycle.NoSuchPhaseError{Phase: "compile", Lifecycle: "build"},
	})
	if !errors.Is(err, lifecycle.ErrMergeInconsistency) || !errors.Is(err, lifecycle.ErrNoSuchPhase) {
		t.Errorf("error chain incomplete: %v", err)
	}
}
