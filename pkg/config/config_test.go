package config_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/realmforge/realmforge/pkg/config"
	"github.com/realmforge/realmforge/pkg/lifecycle"
	"github.com/realmforge/realmforge/pkg/realm"
	"github.com/realmforge/realmforge/pkg/types"
	"gopkg.in/yaml.v3"
)

const yamlConfig = `
version: "1.0"
realms:
  - id: platform
    searchPath: [lib/platform]
  - id: core
    parent: platform
    strategy: parent-first
    searchPath: [lib/core, lib/core-api.zip]
    imports:
      - realm: platform
        pattern: org.platform.api
  - id: plugins
    parent: core
    filter: ["org/example/plugins/**"]
    parentImports: [org.example.api]
lifecycle:
  realm: core
  template: META-INF/realmforge/lifecycles.yaml
  defaultPackaging: pom
  customPhases:
    - name: BEER
      after: package
plugins:
  - groupId: org.example
    artifactId: compiler-plugin
    version: "1.0"
    goalPrefix: compiler
    mojos:
      - goal: compile
        phase: compile
        threadSafe: true
projects:
  - path: app/project.yaml
  - descriptor:
      groupId: org.example
      artifactId: inline
      packaging: jar
plan:
  parallelization: 4
  failFast: true
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func validConfig() *types.RealmforgeConfig {
	return &types.RealmforgeConfig{
		Version: "1.0",
		Realms: []types.RealmConfig{
			{ID: "platform"},
			{ID: "core", Parent: "platform"},
		},
		Lifecycle: types.LifecycleConfig{Realm: "core", Template: lifecycle.DefaultTemplatePath},
		Projects:  []types.ProjectConfig{{Path: "project.yaml"}},
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "realmforge.config.yaml", yamlConfig)

	cfg, err := config.NewManager().LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load YAML config: %v", err)
	}

	if len(cfg.Realms) != 3 {
		t.Fatalf("expected 3 realms, got %d", len(cfg.Realms))
	}
	core := cfg.Realms[1]
	if core.Parent != "platform" || core.Strategy != types.StrategyParentFirst {
		t.Errorf("core realm = %+v", core)
	}
	if len(core.Imports) != 1 || core.Imports[0].Pattern != "org.platform.api" {
		t.Errorf("core imports = %+v", core.Imports)
	}
	if got := cfg.Realms[2].Filter; len(got) != 1 || got[0] != "org/example/plugins/**" {
		t.Errorf("plugins filter = %v", got)
	}
	if cfg.Lifecycle.CustomPhases[0].After != "package" {
		t.Errorf("custom phases = %+v", cfg.Lifecycle.CustomPhases)
	}
	if !cfg.Plugins[0].Mojos[0].ThreadSafe {
		t.Error("compile mojo should be thread safe")
	}
	if d := cfg.Projects[1].Descriptor; d == nil || d.ArtifactID != "inline" {
		t.Errorf("inline descriptor = %+v", d)
	}
	if cfg.Plan.Parallelization != 4 || !cfg.Plan.FailFast {
		t.Errorf("plan = %+v", cfg.Plan)
	}
}

func TestLoadConfig_JSON(t *testing.T) {
	data, err := json.Marshal(validConfig())
	if err != nil {
		t.Fatal(err)
	}
	path := writeFile(t, t.TempDir(), "realmforge.config.json", string(data))

	cfg, err := config.NewManager().LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Version != "1.0" {
		t.Errorf("expected version 1.0, got %s", cfg.Version)
	}
	if cfg.Lifecycle.Realm != "core" {
		t.Errorf("lifecycle realm = %s", cfg.Lifecycle.Realm)
	}
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	manager := config.NewManager()

	if _, err := manager.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := writeFile(t, t.TempDir(), "broken.yaml", "version: [unclosed")
	if _, err := manager.LoadConfig(path); err == nil {
		t.Error("expected error for malformed file")
	}
}

func TestValidateConfig(t *testing.T) {
	manager := config.NewManager()

	tests := []struct {
		name    string
		mutate  func(*types.RealmforgeConfig)
		errMsg  string
		wantErr error
	}{
		{
			name:   "valid config",
			mutate: func(*types.RealmforgeConfig) {},
		},
		{
			name:   "invalid version",
			mutate: func(c *types.RealmforgeConfig) { c.Version = "2.0" },
			errMsg: "unsupported config version",
		},
		{
			name:   "no realms",
			mutate: func(c *types.RealmforgeConfig) { c.Realms = nil },
			errMsg: "no realms defined",
		},
		{
			name: "duplicate realm",
			mutate: func(c *types.RealmforgeConfig) {
				c.Realms = append(c.Realms, types.RealmConfig{ID: "core"})
			},
			errMsg: "duplicate realm id: core",
		},
		{
			name:    "unknown strategy",
			mutate:  func(c *types.RealmforgeConfig) { c.Realms[0].Strategy = "sideways" },
			wantErr: realm.ErrUnknownStrategy,
		},
		{
			name:   "unknown parent",
			mutate: func(c *types.RealmforgeConfig) { c.Realms[1].Parent = "ghost" },
			errMsg: "unknown parent realm ghost",
		},
		{
			name:   "parent cycle",
			mutate: func(c *types.RealmforgeConfig) { c.Realms[0].Parent = "core" },
			errMsg: "cycle",
		},
		{
			name: "realm imports from its child",
			mutate: func(c *types.RealmforgeConfig) {
				c.Realms[0].Imports = []types.ImportConfig{{Realm: "core", Pattern: "org.core"}}
			},
			errMsg: "cycle: platform -> core -> platform",
		},
		{
			name: "mutual imports",
			mutate: func(c *types.RealmforgeConfig) {
				c.Realms[1].Imports = []types.ImportConfig{{Realm: "tools", Pattern: "org.example"}}
				c.Realms = append(c.Realms, types.RealmConfig{
					ID:      "tools",
					Imports: []types.ImportConfig{{Realm: "core", Pattern: "org.example"}},
				})
			},
			errMsg: "parent and import edges form a cycle",
		},
		{
			name: "import from parent",
			mutate: func(c *types.RealmforgeConfig) {
				c.Realms[1].Imports = []types.ImportConfig{{Realm: "platform", Pattern: "org.platform"}}
			},
		},
		{
			name: "import from unknown realm",
			mutate: func(c *types.RealmforgeConfig) {
				c.Realms[1].Imports = []types.ImportConfig{{Realm: "ghost", Pattern: "org"}}
			},
			errMsg: "import from unknown realm ghost",
		},
		{
			name:   "template realm unknown",
			mutate: func(c *types.RealmforgeConfig) { c.Lifecycle.Realm = "ghost" },
			errMsg: "lifecycle: unknown realm ghost",
		},
		{
			name: "custom phase clashes with a standard phase",
			mutate: func(c *types.RealmforgeConfig) {
				c.Lifecycle.CustomPhases = []types.CustomPhaseConfig{{Name: "compile", After: "package"}}
			},
			errMsg: "must be new and unique",
		},
		{
			name: "custom phase with unknown anchor",
			mutate: func(c *types.RealmforgeConfig) {
				c.Lifecycle.CustomPhases = []types.CustomPhaseConfig{{Name: "BEER", After: "brew"}}
			},
			wantErr: lifecycle.ErrNoSuchPhase,
		},
		{
			name: "chained custom phases",
			mutate: func(c *types.RealmforgeConfig) {
				c.Lifecycle.CustomPhases = []types.CustomPhaseConfig{
					{Name: "WINE", After: "BEER"},
					{Name: "BEER", After: "package"},
				}
			},
		},
		{
			name: "mojo without goal",
			mutate: func(c *types.RealmforgeConfig) {
				c.Plugins = []types.PluginDescriptorConfig{{GroupID: "g", ArtifactID: "a", Mojos: []types.MojoDescriptorConfig{{}}}}
			},
			errMsg: "mojo without goal",
		},
		{
			name:   "project without source",
			mutate: func(c *types.RealmforgeConfig) { c.Projects = []types.ProjectConfig{{}} },
			errMsg: "needs a path or an inline descriptor",
		},
		{
			name:   "negative parallelism",
			mutate: func(c *types.RealmforgeConfig) { c.Plan = &types.PlanConfig{Parallelization: -1} },
			errMsg: "must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := manager.ValidateConfig(cfg)

			switch {
			case tt.errMsg == "" && tt.wantErr == nil:
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
			default:
				if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error = %v, want it to contain %q", err, tt.errMsg)
				}
			}
		})
	}
}

func TestGetDefaultConfig(t *testing.T) {
	manager := config.NewManager()
	cfg := manager.GetDefaultConfig()

	if err := manager.ValidateConfig(cfg); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
	if cfg.Notifications == nil || cfg.Notifications.Enabled == nil || !*cfg.Notifications.Enabled {
		t.Error("notifications should be enabled by default")
	}

	// init writes the default config as YAML; it must load back
	data, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	path := writeFile(t, t.TempDir(), config.DefaultConfigFile, string(data))
	if _, err := manager.LoadConfig(path); err != nil {
		t.Errorf("default config does not round trip: %v", err)
	}
}

func TestResolvePath(t *testing.T) {
	tests := []struct {
		configPath string
		path       string
		want       string
	}{
		{"/work/realmforge.config.yaml", "lib/core", "/work/lib/core"},
		{"/work/realmforge.config.yaml", "/opt/lib", "/opt/lib"},
		{"realmforge.config.yaml", "lib", "lib"},
		{"/work/realmforge.config.yaml", "", ""},
	}
	for _, tt := range tests {
		if got := config.ResolvePath(tt.configPath, tt.path); got != tt.want {
			t.Errorf("ResolvePath(%q, %q) = %q, want %q", tt.configPath, tt.path, got, tt.want)
		}
	}
}
