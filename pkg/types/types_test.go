package types_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/realmforge/realmforge/pkg/types"
	"gopkg.in/yaml.v3"
)

func TestParseProjectDescriptor(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
		check   func(t *testing.T, desc *types.ProjectDescriptor)
	}{
		{
			name: "yaml with parent and executions",
			data: `
groupId: org.example
artifactId: app
packaging: jar
parent:
  groupId: org.example
  artifactId: parent
plugins:
  - groupId: org.example
    artifactId: compiler-plugin
    executions:
      - id: default-compile
        phase: compile
        goals: [compile]
`,
			check: func(t *testing.T, desc *types.ProjectDescriptor) {
				if desc.Key() != "org.example:app" {
					t.Errorf("Key() = %s", desc.Key())
				}
				if desc.Parent == nil || desc.Parent.Key() != "org.example:parent" {
					t.Errorf("parent = %+v", desc.Parent)
				}
				if len(desc.Plugins) != 1 || desc.Plugins[0].Key() != "org.example:compiler-plugin" {
					t.Fatalf("plugins = %+v", desc.Plugins)
				}
				exec := desc.Plugins[0].Executions[0]
				if exec.ID != "default-compile" || exec.Phase != "compile" {
					t.Errorf("execution = %+v", exec)
				}
			},
		},
		{
			name: "json",
			data: `{"groupId": "org.example", "artifactId": "lib", "packaging": "pom"}`,
			check: func(t *testing.T, desc *types.ProjectDescriptor) {
				if desc.Packaging != "pom" {
					t.Errorf("packaging = %s", desc.Packaging)
				}
			},
		},
		{
			name:    "missing artifactId",
			data:    "groupId: org.example\n",
			wantErr: true,
		},
		{
			name:    "plugin without coordinates",
			data:    "groupId: g\nartifactId: a\nplugins:\n  - version: \"1.0\"\n",
			wantErr: true,
		},
		{
			name:    "malformed",
			data:    "groupId: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc, err := types.ParseProjectDescriptor([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("wantErr %v, got %v", tt.wantErr, err)
			}
			if tt.check != nil {
				tt.check(t, desc)
			}
		})
	}
}

func TestConfigTree_KeepsOrder(t *testing.T) {
	tests := []struct {
		name   string
		decode func(data []byte, v interface{}) error
		data   string
	}{
		{name: "yaml", decode: yaml.Unmarshal, data: "configuration:\n  zeta: \"1\"\n  alpha: \"2\"\n  mid: \"3\"\n"},
		{name: "json", decode: json.Unmarshal, data: `{"configuration": {"zeta": "1", "alpha": "2", "mid": "3"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var decl types.PluginDecl
			if err := tt.decode([]byte(tt.data), &decl); err != nil {
				t.Fatal(err)
			}
			if decl.Configuration.IsZero() {
				t.Fatal("configuration not decoded")
			}

			var keys []string
			content := decl.Configuration.Node.Content
			for i := 0; i+1 < len(content); i += 2 {
				keys = append(keys, content[i].Value)
			}
			if diff := cmp.Diff([]string{"zeta", "alpha", "mid"}, keys); diff != "" {
				t.Errorf("key order (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConfigTree_MarshalJSON(t *testing.T) {
	var decl types.PluginDecl
	if err := yaml.Unmarshal([]byte("configuration:\n  source: \"17\"\n"), &decl); err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(decl.Configuration)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"source":"17"}` {
		t.Errorf("MarshalJSON = %s", data)
	}

	data, err = json.Marshal(types.ConfigTree{})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "null" {
		t.Errorf("empty tree = %s", data)
	}
}
