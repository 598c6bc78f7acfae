package lifecycle_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/realmforge/realmforge/pkg/lifecycle"
	"github.com/realmforge/realmforge/pkg/mocks"
	"github.com/realmforge/realmforge/pkg/realm"
)

const testTemplate = `
packagings:
  - packaging: jar
    clean:
      clean:
        - plugin: org.example:clean-plugin:1.0
          goal: clean
    build:
      compile:
        - plugin: org.example:compiler-plugin:1.0
          goal: compile
          configuration:
            source: "17"
      package:
        - plugin: org.example:jar-plugin
          goal: jar
          executionId: default-jar
  - packaging: pom
    build:
      install:
        - plugin: org.example:install-plugin:1.0
          goal: install
`

func templateRealm(t *testing.T, template string) *realm.Realm {
	t.Helper()
	fs := memfs.New()
	if template != "" {
		if err := util.WriteFile(fs, "/lib/"+lifecycle.DefaultTemplatePath, []byte(template), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	w := realm.NewWorld(realm.WithContentProvider(realm.NewSearchPathProvider(fs)))
	r, err := w.NewRealm("core", nil)
	if err != nil {
		t.Fatal(err)
	}
	r.AddSearchPathEntry("/lib")
	return r
}

func TestBindingLoader_GetBindings(t *testing.T) {
	loader := lifecycle.NewBindingLoader(templateRealm(t, testTemplate), "", nil)

	packagings, err := loader.Packagings()
	if err != nil {
		t.Fatalf("Packagings: %v", err)
	}
	if diff := cmp.Diff([]string{"jar", "pom"}, packagings); diff != "" {
		t.Errorf("packagings (-want +got):\n%s", diff)
	}

	jar, err := loader.GetBindings("jar")
	if err != nil {
		t.Fatalf("GetBindings: %v", err)
	}
	if jar.Packaging != "jar" || jar.Site != nil {
		t.Errorf("unexpected model: packaging=%q site=%v", jar.Packaging, jar.Site)
	}
	wantBuild := []string{"compile=org.example:compiler-plugin:compile", "package=org.example:jar-plugin:jar"}
	if diff := cmp.Diff(wantBuild, phaseKeys(jar.Build)); diff != "" {
		t.Errorf("build bindings (-want +got):\n%s", diff)
	}

	compile := jar.Build.Phase("compile").Bindings()[0]
	if compile.Version != "1.0" || compile.Origin != lifecycle.OriginLifecycleMapping {
		t.Errorf("compile binding = %+v", compile)
	}
	if v, _ := compile.Configuration.ChildValue("source"); v != "17" {
		t.Errorf("source = %q", v)
	}
	if id := jar.Build.Phase("package").Bindings()[0].ExecutionID; id != "default-jar" {
		t.Errorf("execution id = %q", id)
	}

	jar.Build.Phase("compile").Bindings()[0].Goal = "mutated"
	again, err := loader.GetBindings("jar")
	if err != nil {
		t.Fatal(err)
	}
	if again.Build.Phase("compile").Bindings()[0].Goal != "compile" {
		t.Error("GetBindings must return an independent copy")
	}
}

func TestBindingLoader_UnknownPackaging(t *testing.T) {
	loader := lifecycle.NewBindingLoader(templateRealm(t, testTemplate), "", nil)

	_, err := loader.GetBindings("war")
	var noSuch *lifecycle.NoSuchLifecycleError
	if !errors.As(err, &noSuch) || noSuch.Packaging != "war" {
		t.Fatalf("expected NoSuchLifecycleError for war, got %v", err)
	}
	if !errors.Is(err, lifecycle.ErrNoSuchLifecycle) {
		t.Error("error must wrap ErrNoSuchLifecycle")
	}
}

func TestBindingLoader_Errors(t *testing.T) {
	tests := []struct {
		name     string
		template string
		sentinel error
		check    func(t *testing.T, err error)
	}{
		{
			name:     "missing resource",
			template: "",
			sentinel: lifecycle.ErrLifecycleLoader,
		},
		{
			name:     "malformed yaml",
			template: "packagings: [",
			sentinel: lifecycle.ErrLifecycleSpecification,
		},
		{
			name:     "unknown lifecycle",
			template: "packagings:\n  - packaging: jar\n    deploy:\n      deploy: []\n",
			sentinel: lifecycle.ErrLifecycleSpecification,
		},
		{
			name:     "unknown phase",
			template: "packagings:\n  - packaging: jar\n    build:\n      compilez:\n        - plugin: g:a\n          goal: x\n",
			sentinel: lifecycle.ErrNoSuchPhase,
			check: func(t *testing.T, err error) {
				var noSuch *lifecycle.NoSuchPhaseError
				if !errors.As(err, &noSuch) || noSuch.Phase != "compilez" || noSuch.Lifecycle != "build" {
					t.Errorf("expected NoSuchPhaseError for compilez, got %v", err)
				}
			},
		},
		{
			name:     "bad plugin coordinate",
			template: "packagings:\n  - packaging: jar\n    build:\n      compile:\n        - plugin: justone\n          goal: x\n",
			sentinel: lifecycle.ErrLifecycleSpecification,
			check: func(t *testing.T, err error) {
				var spec *lifecycle.SpecificationError
				if !errors.As(err, &spec) || spec.Plugin != "justone" || spec.Phase != "compile" {
					t.Errorf("expected SpecificationError naming justone, got %v", err)
				}
			},
		},
		{
			name:     "duplicate packaging",
			template: "packagings:\n  - packaging: jar\n  - packaging: jar\n",
			sentinel: lifecycle.ErrLifecycleSpecification,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := lifecycle.NewBindingLoader(templateRealm(t, tt.template), "", nil)
			_, err := loader.GetBindings("jar")
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("expected %v, got %v", tt.sentinel, err)
			}
			if tt.check != nil {
				tt.check(t, err)
			}
		})
	}
}

func TestBindingLoader_ReadsTemplateOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	locator := mocks.NewMockResourceLocator(ctrl)

	res := realm.NewResource("lifecycles.yaml", "/lib", "/lib/lifecycles.yaml", func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(testTemplate)), nil
	})
	locator.EXPECT().GetResource("lifecycles.yaml").Return(res, true).Times(1)

	loader := lifecycle.NewBindingLoader(locator, "lifecycles.yaml", nil)
	for i := 0; i < 2; i++ {
		if _, err := loader.GetBindings("pom"); err != nil {
			t.Fatalf("GetBindings: %v", err)
		}
	}
}
