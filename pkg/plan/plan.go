// Package plan turns a resolved binding model into an ordered execution
// plan and runs plans for many projects concurrently.
package plan

import (
	"sort"

	"github.com/realmforge/realmforge/pkg/lifecycle"
)

// Item is one mojo execution in a plan
type Item struct {
	ID         string
	Binding    *lifecycle.MojoBinding
	Phase      string
	ThreadSafe bool
	// Lifecycle is nil for direct invocations
	Lifecycle *lifecycle.LifecycleBinding
}

// PluginKey returns groupId:artifactId of the item's plugin
func (i *Item) PluginKey() string {
	return i.Binding.PluginKey()
}

func (i *Item) String() string {
	if i.Phase == "" {
		return lifecycle.MojoBindingString(i.Binding) + " (" + i.Binding.ExecutionIDOrDefault() + ")"
	}
	return i.Phase + ": " + lifecycle.MojoBindingString(i.Binding) + " (" + i.Binding.ExecutionIDOrDefault() + ")"
}

// ExecutionPlan is an ordered, immutable list of items with a per-phase
// index
type ExecutionPlan struct {
	items       []*Item
	phases      []string
	lastInPhase map[string]*Item
}

// NewExecutionPlan builds the plan and its phase index. phaseOrder is the
// full phase order of the walked lifecycles, inserted phases included.
// Each phase maps to the last item seen up to and including that phase,
// so a phase without items maps to the closest populated phase before it.
func NewExecutionPlan(items []*Item, phaseOrder []string) *ExecutionPlan {
	p := &ExecutionPlan{
		items:       append([]*Item(nil), items...),
		phases:      append([]string(nil), phaseOrder...),
		lastInPhase: make(map[string]*Item, len(phaseOrder)),
	}

	lastInExisting := make(map[string]*Item)
	for _, item := range p.items {
		if item.Phase != "" {
			lastInExisting[item.Phase] = item
		}
	}

	var lastSeen *Item
	for _, phase := range p.phases {
		if item, ok := lastInExisting[phase]; ok {
			lastSeen = item
		}
		if _, done := p.lastInPhase[phase]; !done {
			p.lastInPhase[phase] = lastSeen
		}
	}
	return p
}

// Items returns the plan items in execution order
func (p *ExecutionPlan) Items() []*Item {
	return append([]*Item(nil), p.items...)
}

// Len returns the number of items
func (p *ExecutionPlan) Len() int { return len(p.items) }

// Phases returns the indexed phase order
func (p *ExecutionPlan) Phases() []string {
	return append([]string(nil), p.phases...)
}

// MojoBindings returns the bindings of all items in order
func (p *ExecutionPlan) MojoBindings() []*lifecycle.MojoBinding {
	out := make([]*lifecycle.MojoBinding, len(p.items))
	for i, item := range p.items {
		out[i] = item.Binding
	}
	return out
}

// FindLastInPhase returns the last item executed by the time phase has
// completed. It returns nil for unknown phases and for phases before the
// first populated one.
func (p *ExecutionPlan) FindLastInPhase(phase string) *Item {
	return p.lastInPhase[phase]
}

// NonThreadSafePlugins returns the sorted groupId:artifactId keys of
// plugins with at least one item that is not thread safe
func (p *ExecutionPlan) NonThreadSafePlugins() []string {
	seen := make(map[string]struct{})
	for _, item := range p.items {
		if !item.ThreadSafe {
			seen[item.PluginKey()] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for key := range seen {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
