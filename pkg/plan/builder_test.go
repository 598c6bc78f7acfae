package plan_test

import (
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/realmforge/realmforge/pkg/lifecycle"
	"github.com/realmforge/realmforge/pkg/mocks"
	"github.com/realmforge/realmforge/pkg/plan"
	"github.com/realmforge/realmforge/pkg/types"
)

func binding(artifactID, goal string) *lifecycle.MojoBinding {
	return &lifecycle.MojoBinding{GroupID: "org.example", ArtifactID: artifactID, Goal: goal}
}

func add(t *testing.T, lbs *lifecycle.LifecycleBindings, phase string, b *lifecycle.MojoBinding) *lifecycle.MojoBinding {
	t.Helper()
	if err := lifecycle.AddMojoBindingToBindings(phase, b, lbs); err != nil {
		t.Fatalf("AddMojoBindingToBindings(%s): %v", phase, err)
	}
	return b
}

// jarBindings is a small jar-style model: compile and package bound, with
// a clean binding in the clean lifecycle
func jarBindings(t *testing.T) *lifecycle.LifecycleBindings {
	t.Helper()
	lbs := lifecycle.NewLifecycleBindings()
	lbs.Packaging = "jar"
	add(t, lbs, "clean", binding("clean-plugin", "clean"))
	add(t, lbs, "compile", binding("compiler-plugin", "compile"))
	add(t, lbs, "test", binding("surefire-plugin", "test"))
	add(t, lbs, "package", binding("jar-plugin", "jar"))
	add(t, lbs, "install", binding("install-plugin", "install"))
	return lbs
}

func registry() *lifecycle.StaticRegistry {
	return lifecycle.NewStaticRegistry([]types.PluginDescriptorConfig{
		{
			GroupID:    "org.example",
			ArtifactID: "compiler-plugin",
			GoalPrefix: "compiler",
			Mojos:      []types.MojoDescriptorConfig{{Goal: "compile", Phase: "compile", ThreadSafe: true}},
		},
		{
			GroupID:    "org.example",
			ArtifactID: "surefire-plugin",
			GoalPrefix: "surefire",
			Mojos:      []types.MojoDescriptorConfig{{Goal: "test", Phase: "test", ThreadSafe: true}},
		},
	})
}

func itemStrings(p *plan.ExecutionPlan) []string {
	var out []string
	for _, item := range p.Items() {
		out = append(out, item.String())
	}
	return out
}

func TestBuildPlan_WalksToTargetPhase(t *testing.T) {
	b := plan.NewBuilder(registry(), nil)

	p, err := b.BuildPlan(jarBindings(t), "package")
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	want := []string{
		"compile: org.example:compiler-plugin:compile (default)",
		"test: org.example:surefire-plugin:test (default)",
		"package: org.example:jar-plugin:jar (default)",
	}
	if diff := cmp.Diff(want, itemStrings(p)); diff != "" {
		t.Errorf("items (-want +got):\n%s", diff)
	}
}

func TestBuildPlan_UnknownTarget(t *testing.T) {
	b := plan.NewBuilder(nil, nil)
	for _, target := range []string{"BEER", "compiler:compile", ""} {
		if _, err := b.BuildPlan(jarBindings(t), target); !errors.Is(err, lifecycle.ErrNoSuchPhase) {
			t.Errorf("BuildPlan(%q) error = %v, want ErrNoSuchPhase", target, err)
		}
	}
}

func TestFindLastInPhase(t *testing.T) {
	lbs := jarBindings(t)
	b := plan.NewBuilder(registry(), nil)

	p, err := b.BuildPlan(lbs, "install", plan.WithInsertedPhase("package", "BEER"))
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}

	pkg := p.FindLastInPhase("package")
	if pkg == nil || pkg.Binding.ArtifactID != "jar-plugin" {
		t.Fatalf("FindLastInPhase(package) = %v", pkg)
	}
	if got := p.FindLastInPhase("BEER"); got != pkg {
		t.Errorf("FindLastInPhase(BEER) = %v, want the package item %v", got, pkg)
	}
	if got := p.FindLastInPhase("verify"); got != pkg {
		t.Errorf("FindLastInPhase(verify) = %v, want %v", got, pkg)
	}
	if got := p.FindLastInPhase("test-compile"); got == nil || got.Binding.ArtifactID != "compiler-plugin" {
		t.Errorf("FindLastInPhase(test-compile) = %v", got)
	}
	if got := p.FindLastInPhase("install"); got == nil || got.Binding.ArtifactID != "install-plugin" {
		t.Errorf("FindLastInPhase(install) = %v", got)
	}

	for _, phase := range []string{"validate", "process-resources", "no-such-phase"} {
		if got := p.FindLastInPhase(phase); got != nil {
			t.Errorf("FindLastInPhase(%s) = %v, want nil", phase, got)
		}
	}
}

func TestFindLastInPhase_PopulatedInsertedPhase(t *testing.T) {
	drink := binding("beer-plugin", "drink")
	b := plan.NewBuilder(nil, nil)

	p, err := b.BuildPlan(jarBindings(t), "install", plan.WithInsertedPhase("package", "BEER", drink))
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	beer := p.FindLastInPhase("BEER")
	if beer == nil || beer.Binding != drink || beer.Phase != "BEER" {
		t.Fatalf("FindLastInPhase(BEER) = %v", beer)
	}
	if got := p.FindLastInPhase("verify"); got != beer {
		t.Errorf("FindLastInPhase(verify) = %v, want the BEER item", got)
	}
	if got := p.FindLastInPhase("package"); got == nil || got.Binding.ArtifactID != "jar-plugin" {
		t.Errorf("FindLastInPhase(package) = %v", got)
	}

	want := []string{
		"compile: org.example:compiler-plugin:compile (default)",
		"test: org.example:surefire-plugin:test (default)",
		"package: org.example:jar-plugin:jar (default)",
		"BEER: org.example:beer-plugin:drink (default)",
		"install: org.example:install-plugin:install (default)",
	}
	if diff := cmp.Diff(want, itemStrings(p)); diff != "" {
		t.Errorf("items (-want +got):\n%s", diff)
	}
}

func TestWithInsertedPhase_Chained(t *testing.T) {
	b := plan.NewBuilder(nil, nil)
	wine := binding("wine-plugin", "pour")

	p, err := b.BuildPlan(jarBindings(t), "WINE",
		plan.WithInsertedPhase("package", "BEER"),
		plan.WithInsertedPhase("BEER", "WINE", wine))
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}

	phases := p.Phases()
	idx := func(name string) int {
		for i, ph := range phases {
			if ph == name {
				return i
			}
		}
		return -1
	}
	if !(idx("package") < idx("BEER") && idx("BEER") < idx("WINE") && idx("WINE") < idx("pre-integration-test")) {
		t.Errorf("phase order = %v", phases)
	}
	items := p.Items()
	if last := items[len(items)-1]; last.Binding != wine {
		t.Errorf("last item = %v, want the WINE binding", last)
	}
	if got := p.FindLastInPhase("BEER"); got == nil || got.Binding.ArtifactID != "jar-plugin" {
		t.Errorf("FindLastInPhase(BEER) = %v", got)
	}
}

func TestWithInsertedPhase_Validation(t *testing.T) {
	tests := []struct {
		name    string
		opts    []plan.BuildOption
		wantErr error
	}{
		{
			name:    "clashes with a standard phase",
			opts:    []plan.BuildOption{plan.WithInsertedPhase("package", "compile")},
			wantErr: lifecycle.ErrLifecycleSpecification,
		},
		{
			name: "inserted twice",
			opts: []plan.BuildOption{
				plan.WithInsertedPhase("package", "BEER"),
				plan.WithInsertedPhase("compile", "BEER"),
			},
			wantErr: lifecycle.ErrLifecycleSpecification,
		},
		{
			name:    "unknown anchor",
			opts:    []plan.BuildOption{plan.WithInsertedPhase("brew", "BEER")},
			wantErr: lifecycle.ErrNoSuchPhase,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := plan.NewBuilder(nil, nil).BuildPlan(jarBindings(t), "package", tt.opts...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNonThreadSafePlugins(t *testing.T) {
	b := plan.NewBuilder(registry(), nil)
	p, err := b.BuildPlan(jarBindings(t), "install")
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	want := []string{"org.example:install-plugin", "org.example:jar-plugin"}
	if diff := cmp.Diff(want, p.NonThreadSafePlugins()); diff != "" {
		t.Errorf("NonThreadSafePlugins (-want +got):\n%s", diff)
	}

	unknown, err := plan.NewBuilder(nil, nil).BuildPlan(jarBindings(t), "compile")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"org.example:compiler-plugin"}, unknown.NonThreadSafePlugins()); diff != "" {
		t.Errorf("without a registry every plugin is unsafe (-want +got):\n%s", diff)
	}
}

func TestBuildPlanForTasks(t *testing.T) {
	lbs := jarBindings(t)
	compile := lbs.Build.Phase("compile").Bindings()[0]
	compile.Configuration = lifecycle.NewConfiguration("configuration")
	compile.Configuration.AddChild(&lifecycle.Configuration{Name: "source", Value: "17"})

	b := plan.NewBuilder(registry(), nil)
	p, err := b.BuildPlanForTasks(lbs, []string{"clean", "compile", "compiler:compile", "package"})
	if err != nil {
		t.Fatalf("BuildPlanForTasks: %v", err)
	}

	want := []string{
		"clean: org.example:clean-plugin:clean (default)",
		"compile: org.example:compiler-plugin:compile (default)",
		"org.example:compiler-plugin:compile (default-cli)",
		"test: org.example:surefire-plugin:test (default)",
		"package: org.example:jar-plugin:jar (default)",
	}
	if diff := cmp.Diff(want, itemStrings(p)); diff != "" {
		t.Errorf("items (-want +got):\n%s", diff)
	}

	direct := p.Items()[2]
	if direct.Binding.Origin != lifecycle.OriginDirectInvocation || direct.Lifecycle != nil {
		t.Errorf("direct item = %+v", direct.Binding)
	}
	if got := direct.Binding.Configuration.String(); got != "configuration{source=17}" {
		t.Errorf("direct invocation configuration = %s", got)
	}
	if direct.Binding.Configuration == compile.Configuration {
		t.Error("direct invocation shares configuration with the model")
	}
	if !direct.ThreadSafe {
		t.Error("compiler:compile should be thread safe")
	}
	if got := p.FindLastInPhase("post-clean"); got == nil || got.Binding.ArtifactID != "clean-plugin" {
		t.Errorf("FindLastInPhase(post-clean) = %v", got)
	}
}

func TestBuildPlanForTasks_DoesNotRepeatPhases(t *testing.T) {
	b := plan.NewBuilder(nil, nil)
	p, err := b.BuildPlanForTasks(jarBindings(t), []string{"compile", "package", "compile"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Len() != 3 {
		t.Errorf("plan has %d items, want 3: %v", p.Len(), itemStrings(p))
	}
}

func TestBuildPlanForTasks_InvalidGoal(t *testing.T) {
	tests := []struct {
		name     string
		registry lifecycle.DescriptorRegistry
		task     string
	}{
		{"prefix without resolver", nil, "compiler:compile"},
		{"unknown prefix", registry(), "nope:compile"},
		{"empty goal", registry(), "compiler:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := plan.NewBuilder(tt.registry, nil).BuildPlanForTasks(jarBindings(t), []string{tt.task})
			var spec *lifecycle.SpecificationError
			if !errors.As(err, &spec) {
				t.Fatalf("error = %v, want SpecificationError", err)
			}
			if spec.Plugin != tt.task {
				t.Errorf("plugin = %q, want %q", spec.Plugin, tt.task)
			}
		})
	}
}

func TestBuilder_RegistryLookupFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	reg := mocks.NewMockDescriptorRegistry(ctrl)
	reg.EXPECT().Lookup("org.example", gomock.Any(), "").Return(nil, errors.New("offline")).AnyTimes()

	p, err := plan.NewBuilder(reg, nil).BuildPlan(jarBindings(t), "compile")
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	for _, item := range p.Items() {
		if item.ThreadSafe {
			t.Errorf("%s marked thread safe after a failed lookup", item)
		}
	}
}

func TestBuildPlan_NilBindings(t *testing.T) {
	p, err := plan.NewBuilder(nil, nil).BuildPlan(nil, "deploy")
	if err != nil {
		t.Fatal(err)
	}
	if p.Len() != 0 || p.FindLastInPhase("deploy") != nil {
		t.Errorf("empty model produced %v", itemStrings(p))
	}
	if n := len(p.Phases()); n != 23 {
		t.Errorf("phase order has %d phases", n)
	}
}

func TestPhaseOrder(t *testing.T) {
	order, err := plan.PhaseOrder(lifecycle.KindClean,
		plan.WithInsertedPhase("clean", "scrub"),
		plan.WithInsertedPhase("package", "BEER"))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"pre-clean", "clean", "scrub", "post-clean"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("clean order (-want +got):\n%s", diff)
	}

	if _, err := plan.PhaseOrder(lifecycle.KindBuild, plan.WithInsertedPhase("nowhere", "BEER")); !errors.Is(err, lifecycle.ErrNoSuchPhase) {
		t.Errorf("unknown anchor error = %v", err)
	}
}
