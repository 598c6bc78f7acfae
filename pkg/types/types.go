// Package types provides core types and configurations for realmforge
package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// LogLevel represents logging verbosity levels
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// RunStatus represents the outcome of executing a project plan
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusSkipped   RunStatus = "skipped"
)

// Strategy identifiers understood by the realm package
const (
	StrategySelfFirst   = "self-first"
	StrategyParentFirst = "parent-first"
)

// RealmforgeConfig is the top level configuration file
type RealmforgeConfig struct {
	Version       string                   `json:"version" yaml:"version"`
	Platform      *PlatformConfig          `json:"platform,omitempty" yaml:"platform,omitempty"`
	Realms        []RealmConfig            `json:"realms" yaml:"realms"`
	Lifecycle     LifecycleConfig          `json:"lifecycle" yaml:"lifecycle"`
	Plugins       []PluginDescriptorConfig `json:"plugins,omitempty" yaml:"plugins,omitempty"`
	Projects      []ProjectConfig          `json:"projects" yaml:"projects"`
	Plan          *PlanConfig              `json:"plan,omitempty" yaml:"plan,omitempty"`
	Notifications *NotificationConfig      `json:"notifications,omitempty" yaml:"notifications,omitempty"`
	Logging       *LoggingConfig           `json:"logging,omitempty" yaml:"logging,omitempty"`
	Metrics       *MetricsConfig           `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// RealmConfig declares one realm in the realm world
type RealmConfig struct {
	ID            string         `json:"id" yaml:"id"`
	Parent        string         `json:"parent,omitempty" yaml:"parent,omitempty"`
	Strategy      string         `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	SearchPath    []string       `json:"searchPath,omitempty" yaml:"searchPath,omitempty"`
	Imports       []ImportConfig `json:"imports,omitempty" yaml:"imports,omitempty"`
	ParentImports []string       `json:"parentImports,omitempty" yaml:"parentImports,omitempty"`
	// Filter holds glob patterns over resource paths. A realm with a filter
	// only exposes matching names from its own search path.
	Filter []string `json:"filter,omitempty" yaml:"filter,omitempty"`
}

// PlatformConfig describes the base resolver shared by every realm. Names
// under Prefixes are served from SearchPath before any realm lookup.
type PlatformConfig struct {
	Prefixes   []string `json:"prefixes" yaml:"prefixes"`
	SearchPath []string `json:"searchPath" yaml:"searchPath"`
}

// ImportConfig imports names matching Pattern from another realm
type ImportConfig struct {
	Realm   string `json:"realm" yaml:"realm"`
	Pattern string `json:"pattern" yaml:"pattern"`
}

// LifecycleConfig locates the default lifecycle binding template
type LifecycleConfig struct {
	// Realm is the realm whose search path holds the template resource
	Realm string `json:"realm" yaml:"realm"`
	// Template is the logical resource path of the template
	Template string `json:"template" yaml:"template"`
	// DefaultPackaging supplies the default bindings merged under every project
	DefaultPackaging string `json:"defaultPackaging,omitempty" yaml:"defaultPackaging,omitempty"`
	// CustomPhases inserts extra phase names into the plan index
	CustomPhases []CustomPhaseConfig `json:"customPhases,omitempty" yaml:"customPhases,omitempty"`
}

// CustomPhaseConfig names a phase inserted after an existing one
type CustomPhaseConfig struct {
	Name  string `json:"name" yaml:"name"`
	After string `json:"after" yaml:"after"`
}

// PluginDescriptorConfig describes a plugin and the goals it provides
type PluginDescriptorConfig struct {
	GroupID    string                `json:"groupId" yaml:"groupId"`
	ArtifactID string                `json:"artifactId" yaml:"artifactId"`
	Version    string                `json:"version,omitempty" yaml:"version,omitempty"`
	GoalPrefix string                `json:"goalPrefix,omitempty" yaml:"goalPrefix,omitempty"`
	Mojos      []MojoDescriptorConfig `json:"mojos" yaml:"mojos"`
	// Lifecycles is an optional overlay keyed by lifecycle id then phase
	Lifecycles map[string]map[string]ConfigTree `json:"lifecycles,omitempty" yaml:"lifecycles,omitempty"`
}

// MojoDescriptorConfig describes a single goal of a plugin
type MojoDescriptorConfig struct {
	Goal       string `json:"goal" yaml:"goal"`
	Phase      string `json:"phase,omitempty" yaml:"phase,omitempty"`
	ThreadSafe bool   `json:"threadSafe,omitempty" yaml:"threadSafe,omitempty"`
	Command    string `json:"command,omitempty" yaml:"command,omitempty"`
}

// ProjectConfig points to a project descriptor, either inline or on disk
type ProjectConfig struct {
	Path       string             `json:"path,omitempty" yaml:"path,omitempty"`
	Descriptor *ProjectDescriptor `json:"descriptor,omitempty" yaml:"descriptor,omitempty"`
}

// ProjectDescriptor is the parsed description of one project
type ProjectDescriptor struct {
	GroupID    string       `json:"groupId" yaml:"groupId"`
	ArtifactID string       `json:"artifactId" yaml:"artifactId"`
	Version    string       `json:"version,omitempty" yaml:"version,omitempty"`
	Packaging  string       `json:"packaging,omitempty" yaml:"packaging,omitempty"`
	Parent     *ProjectRef  `json:"parent,omitempty" yaml:"parent,omitempty"`
	Plugins    []PluginDecl `json:"plugins,omitempty" yaml:"plugins,omitempty"`
}

// ProjectRef references another project by coordinates
type ProjectRef struct {
	GroupID    string `json:"groupId" yaml:"groupId"`
	ArtifactID string `json:"artifactId" yaml:"artifactId"`
	Version    string `json:"version,omitempty" yaml:"version,omitempty"`
}

// PluginDecl declares a plugin used by a project
type PluginDecl struct {
	GroupID       string          `json:"groupId" yaml:"groupId"`
	ArtifactID    string          `json:"artifactId" yaml:"artifactId"`
	Version       string          `json:"version,omitempty" yaml:"version,omitempty"`
	Configuration ConfigTree      `json:"configuration,omitempty" yaml:"configuration,omitempty"`
	Executions    []ExecutionDecl `json:"executions,omitempty" yaml:"executions,omitempty"`
}

// ExecutionDecl binds goals of a plugin, optionally at an explicit phase
type ExecutionDecl struct {
	ID            string     `json:"id,omitempty" yaml:"id,omitempty"`
	Phase         string     `json:"phase,omitempty" yaml:"phase,omitempty"`
	Goals         []string   `json:"goals" yaml:"goals"`
	Configuration ConfigTree `json:"configuration,omitempty" yaml:"configuration,omitempty"`
}

// PlanConfig controls plan execution
type PlanConfig struct {
	Parallelization int  `json:"parallelization" yaml:"parallelization"`
	FailFast        bool `json:"failFast,omitempty" yaml:"failFast,omitempty"`
}

// NotificationConfig represents notification settings
type NotificationConfig struct {
	Enabled      *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	SuccessSound string `json:"successSound,omitempty" yaml:"successSound,omitempty"`
	FailureSound string `json:"failureSound,omitempty" yaml:"failureSound,omitempty"`
}

// LoggingConfig represents logging settings
type LoggingConfig struct {
	File  string   `json:"file" yaml:"file"`
	Level LogLevel `json:"level" yaml:"level"`
}

// MetricsConfig controls the metrics textfile written after each run
type MetricsConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// File is relative to the configuration file. Empty means
	// .realmforge/metrics.prom.
	File string `json:"file,omitempty" yaml:"file,omitempty"`
}

// Key returns the groupId:artifactId coordinate of a project
func (p *ProjectDescriptor) Key() string {
	return p.GroupID + ":" + p.ArtifactID
}

// Key returns the groupId:artifactId coordinate of a reference
func (r *ProjectRef) Key() string {
	return r.GroupID + ":" + r.ArtifactID
}

// Key returns the groupId:artifactId coordinate of a plugin
func (p *PluginDecl) Key() string {
	return p.GroupID + ":" + p.ArtifactID
}

// Key returns the groupId:artifactId coordinate of a plugin descriptor
func (p *PluginDescriptorConfig) Key() string {
	return p.GroupID + ":" + p.ArtifactID
}

// ParseProjectDescriptor parses a project descriptor from JSON or YAML
func ParseProjectDescriptor(data []byte) (*ProjectDescriptor, error) {
	var desc ProjectDescriptor
	if err := json.Unmarshal(data, &desc); err == nil {
		return &desc, desc.validate()
	}
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("failed to parse project descriptor: %w", err)
	}
	return &desc, desc.validate()
}

func (p *ProjectDescriptor) validate() error {
	if p.GroupID == "" || p.ArtifactID == "" {
		return fmt.Errorf("project descriptor missing groupId or artifactId")
	}
	for _, plugin := range p.Plugins {
		if plugin.GroupID == "" || plugin.ArtifactID == "" {
			return fmt.Errorf("project %s: plugin missing groupId or artifactId", p.Key())
		}
	}
	return nil
}

// ConfigTree holds an ordered configuration document. It accepts both YAML
// and JSON input and keeps mapping order for either.
type ConfigTree struct {
	Node *yaml.Node
}

// IsZero reports whether the tree is empty
func (c ConfigTree) IsZero() bool {
	return c.Node == nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (c *ConfigTree) UnmarshalYAML(value *yaml.Node) error {
	node := *value
	c.Node = &node
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (c ConfigTree) MarshalYAML() (interface{}, error) {
	return c.Node, nil
}

// UnmarshalJSON parses the raw JSON with the YAML decoder, which keeps key order
func (c *ConfigTree) UnmarshalJSON(data []byte) error {
	if strings.TrimSpace(string(data)) == "null" {
		c.Node = nil
		return nil
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid configuration tree: %w", err)
	}
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		c.Node = doc.Content[0]
		return nil
	}
	c.Node = &doc
	return nil
}

// MarshalJSON implements json.Marshaler
func (c ConfigTree) MarshalJSON() ([]byte, error) {
	if c.Node == nil {
		return []byte("null"), nil
	}
	var v interface{}
	if err := c.Node.Decode(&v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
