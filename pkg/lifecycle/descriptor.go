package lifecycle

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/realmforge/realmforge/pkg/types"
)

// ErrPluginNotFound is returned by registries for unknown plugins
var ErrPluginNotFound = errors.New("plugin descriptor not found")

// PluginNotFoundError names the plugin a registry could not find
type PluginNotFoundError struct {
	Plugin string
}

func (e *PluginNotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", ErrPluginNotFound, e.Plugin)
}

func (e *PluginNotFoundError) Unwrap() error { return ErrPluginNotFound }

// MojoDescriptor describes one goal of a plugin
type MojoDescriptor struct {
	Goal       string
	Phase      string
	ThreadSafe bool
	// Command is the shell command run for the goal, empty for goals that
	// only take part in planning
	Command string
}

// PluginDescriptor describes a plugin and its goals
type PluginDescriptor struct {
	GroupID    string
	ArtifactID string
	Version    string
	GoalPrefix string
	Mojos      map[string]MojoDescriptor
	// Lifecycles holds phase configuration keyed by lifecycle id and phase
	Lifecycles map[string]map[string]*Configuration
}

// Key returns groupId:artifactId
func (d *PluginDescriptor) Key() string {
	return d.GroupID + ":" + d.ArtifactID
}

// Mojo returns the descriptor of a goal
func (d *PluginDescriptor) Mojo(goal string) (MojoDescriptor, bool) {
	m, ok := d.Mojos[goal]
	return m, ok
}

// DescriptorRegistry supplies plugin metadata
type DescriptorRegistry interface {
	Lookup(groupID, artifactID, version string) (*PluginDescriptor, error)
}

// StaticRegistry is an in-memory DescriptorRegistry
type StaticRegistry struct {
	mu       sync.RWMutex
	byKey    map[string][]*PluginDescriptor
	byPrefix map[string]*PluginDescriptor
}

var _ DescriptorRegistry = (*StaticRegistry)(nil)

// NewStaticRegistry builds a registry from configured plugin descriptors
func NewStaticRegistry(configs []types.PluginDescriptorConfig) *StaticRegistry {
	r := &StaticRegistry{
		byKey:    make(map[string][]*PluginDescriptor),
		byPrefix: make(map[string]*PluginDescriptor),
	}
	for _, cfg := range configs {
		r.Register(DescriptorFromConfig(cfg))
	}
	return r
}

// DescriptorFromConfig converts a configured plugin descriptor
func DescriptorFromConfig(cfg types.PluginDescriptorConfig) *PluginDescriptor {
	d := &PluginDescriptor{
		GroupID:    cfg.GroupID,
		ArtifactID: cfg.ArtifactID,
		Version:    cfg.Version,
		GoalPrefix: cfg.GoalPrefix,
		Mojos:      make(map[string]MojoDescriptor, len(cfg.Mojos)),
	}
	for _, m := range cfg.Mojos {
		d.Mojos[m.Goal] = MojoDescriptor{Goal: m.Goal, Phase: m.Phase, ThreadSafe: m.ThreadSafe, Command: m.Command}
	}
	if len(cfg.Lifecycles) > 0 {
		d.Lifecycles = make(map[string]map[string]*Configuration, len(cfg.Lifecycles))
		for id, phases := range cfg.Lifecycles {
			d.Lifecycles[id] = make(map[string]*Configuration, len(phases))
			for phase, tree := range phases {
				d.Lifecycles[id][phase] = ConfigurationFromYAML("configuration", tree.Node)
			}
		}
	}
	return d
}

// Register adds a descriptor. Later versions of the same plugin are kept
// alongside earlier ones.
func (r *StaticRegistry) Register(d *PluginDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKey[d.Key()] = append(r.byKey[d.Key()], d)
	if d.GoalPrefix != "" {
		if _, taken := r.byPrefix[d.GoalPrefix]; !taken {
			r.byPrefix[d.GoalPrefix] = d
		}
	}
}

// Lookup returns the descriptor with the exact version, or the first one
// registered for the plugin when the version is empty or unknown
func (r *StaticRegistry) Lookup(groupID, artifactID, version string) (*PluginDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := groupID + ":" + artifactID
	candidates := r.byKey[key]
	if len(candidates) == 0 {
		return nil, &PluginNotFoundError{Plugin: key}
	}
	for _, d := range candidates {
		if version != "" && d.Version == version {
			return d, nil
		}
	}
	return candidates[0], nil
}

// LookupByPrefix returns the descriptor registered for a goal prefix
func (r *StaticRegistry) LookupByPrefix(prefix string) (*PluginDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byPrefix[prefix]
	if !ok {
		return nil, &PluginNotFoundError{Plugin: prefix}
	}
	return d, nil
}

// Descriptors returns every descriptor sorted by key then version
func (r *StaticRegistry) Descriptors() []*PluginDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*PluginDescriptor
	for _, ds := range r.byKey {
		out = append(out, ds...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key() != out[j].Key() {
			return out[i].Key() < out[j].Key()
		}
		return out[i].Version < out[j].Version
	})
	return out
}
