// Package config handles configuration loading and management
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/realmforge/realmforge/pkg/lifecycle"
	"github.com/realmforge/realmforge/pkg/realm"
	"github.com/realmforge/realmforge/pkg/types"
	"gopkg.in/yaml.v3"
)

// SupportedVersion is the only configuration version understood
const SupportedVersion = "1.0"

// DefaultConfigFile is the configuration file name looked up in the project root
const DefaultConfigFile = "realmforge.config.yaml"

// Manager handles configuration operations
type Manager struct{}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	return &Manager{}
}

// LoadConfig loads configuration from a file
func (m *Manager) LoadConfig(path string) (*types.RealmforgeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return m.ParseConfig(data)
}

// ParseConfig parses and validates configuration data
func (m *Manager) ParseConfig(data []byte) (*types.RealmforgeConfig, error) {
	var cfg types.RealmforgeConfig

	// Try JSON first
	if err := json.Unmarshal(data, &cfg); err == nil {
		return m.validateConfig(&cfg)
	}

	cfg = types.RealmforgeConfig{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config as JSON or YAML: %w", err)
	}
	return m.validateConfig(&cfg)
}

// ValidateConfig validates a configuration
func (m *Manager) ValidateConfig(config *types.RealmforgeConfig) error {
	if config.Version != SupportedVersion {
		return fmt.Errorf("unsupported config version: %s", config.Version)
	}

	if len(config.Realms) == 0 {
		return fmt.Errorf("no realms defined")
	}

	strategies := realm.StrategyIDs()
	ids := make(map[string]bool, len(config.Realms))
	for i, r := range config.Realms {
		if r.ID == "" {
			return fmt.Errorf("realm %d: missing id", i)
		}
		if ids[r.ID] {
			return fmt.Errorf("duplicate realm id: %s", r.ID)
		}
		ids[r.ID] = true
		if r.Strategy != "" && !slices.Contains(strategies, r.Strategy) {
			return fmt.Errorf("realm '%s': %w", r.ID, &realm.UnknownStrategyError{ID: r.Strategy})
		}
		if _, err := realm.GlobFilter(r.Filter); err != nil {
			return fmt.Errorf("realm '%s': %w", r.ID, err)
		}
	}

	for _, r := range config.Realms {
		if r.Parent != "" && !ids[r.Parent] {
			return fmt.Errorf("realm '%s': unknown parent realm %s", r.ID, r.Parent)
		}
		for _, imp := range r.Imports {
			if !ids[imp.Realm] {
				return fmt.Errorf("realm '%s': import from unknown realm %s", r.ID, imp.Realm)
			}
			if imp.Pattern == "" {
				return fmt.Errorf("realm '%s': import from %s has no pattern", r.ID, imp.Realm)
			}
		}
	}
	if err := checkRealmCycles(config.Realms); err != nil {
		return err
	}

	if err := m.validateLifecycle(&config.Lifecycle, ids); err != nil {
		return fmt.Errorf("lifecycle: %w", err)
	}

	plugins := make(map[string]bool, len(config.Plugins))
	for i, p := range config.Plugins {
		if p.GroupID == "" || p.ArtifactID == "" {
			return fmt.Errorf("plugin %d: missing groupId or artifactId", i)
		}
		key := p.Key() + ":" + p.Version
		if plugins[key] {
			return fmt.Errorf("duplicate plugin descriptor: %s", p.Key())
		}
		plugins[key] = true
		for _, mojo := range p.Mojos {
			if mojo.Goal == "" {
				return fmt.Errorf("plugin '%s': mojo without goal", p.Key())
			}
		}
	}

	for i, p := range config.Projects {
		if p.Path == "" && p.Descriptor == nil {
			return fmt.Errorf("project %d: needs a path or an inline descriptor", i)
		}
	}

	if config.Plan != nil && config.Plan.Parallelization < 0 {
		return fmt.Errorf("plan parallelization must not be negative")
	}

	return nil
}

// GetDefaultConfig returns the configuration written by realmforge init
func (m *Manager) GetDefaultConfig() *types.RealmforgeConfig {
	enabled := true

	return &types.RealmforgeConfig{
		Version: SupportedVersion,
		Realms: []types.RealmConfig{
			{
				ID:         "core",
				Strategy:   types.StrategySelfFirst,
				SearchPath: []string{"lib"},
			},
		},
		Lifecycle: types.LifecycleConfig{
			Realm:            "core",
			Template:         lifecycle.DefaultTemplatePath,
			DefaultPackaging: "pom",
		},
		Projects: []types.ProjectConfig{
			{Path: "project.yaml"},
		},
		Plan: &types.PlanConfig{
			Parallelization: 2,
		},
		Notifications: &types.NotificationConfig{
			Enabled: &enabled,
		},
		Logging: &types.LoggingConfig{
			Level: types.LogLevelInfo,
		},
	}
}

// ResolvePath makes path absolute relative to the directory of configPath
func ResolvePath(configPath, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(filepath.Dir(configPath), path)
}

// Private methods

func (m *Manager) validateConfig(cfg *types.RealmforgeConfig) (*types.RealmforgeConfig, error) {
	if err := m.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (m *Manager) validateLifecycle(lc *types.LifecycleConfig, realms map[string]bool) error {
	if lc.Realm != "" && !realms[lc.Realm] {
		return fmt.Errorf("unknown realm %s", lc.Realm)
	}

	names := make(map[string]bool, len(lc.CustomPhases))
	for _, cp := range lc.CustomPhases {
		if cp.Name == "" || cp.After == "" {
			return fmt.Errorf("custom phase needs a name and an anchor phase")
		}
		if lifecycle.IsValidPhaseName(cp.Name) || names[cp.Name] {
			return fmt.Errorf("custom phase %s must be new and unique", cp.Name)
		}
		names[cp.Name] = true
	}
	for _, cp := range lc.CustomPhases {
		if !lifecycle.IsValidPhaseName(cp.After) && !names[cp.After] {
			return fmt.Errorf("custom phase %s: %w", cp.Name, &lifecycle.NoSuchPhaseError{Phase: cp.After})
		}
	}
	return nil
}

// checkRealmCycles rejects realms that can reach themselves by following
// parent and import edges
func checkRealmCycles(realms []types.RealmConfig) error {
	edges := make(map[string][]string, len(realms))
	for _, r := range realms {
		if r.Parent != "" {
			edges[r.ID] = append(edges[r.ID], r.Parent)
		}
		for _, imp := range r.Imports {
			edges[r.ID] = append(edges[r.ID], imp.Realm)
		}
	}

	const (
		unvisited = iota
		inProgress
		done
	)
	state := make(map[string]int, len(realms))
	var path []string

	var visit func(id string) error
	visit = func(id string) error {
		state[id] = inProgress
		path = append(path, id)
		for _, next := range edges[id] {
			switch state[next] {
			case inProgress:
				start := slices.Index(path, next)
				cycle := append(append([]string(nil), path[start:]...), next)
				return fmt.Errorf("realm '%s': parent and import edges form a cycle: %s",
					next, strings.Join(cycle, " -> "))
			case unvisited:
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		path = path[:len(path)-1]
		state[id] = done
		return nil
	}

	for _, r := range realms {
		if state[r.ID] == unvisited {
			if err := visit(r.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
