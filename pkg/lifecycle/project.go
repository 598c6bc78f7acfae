package lifecycle

import (
	"errors"

	"github.com/realmforge/realmforge/pkg/logger"
	"github.com/realmforge/realmforge/pkg/types"
)

// ProjectBindingSet is the result of reading a project's plugin executions
type ProjectBindingSet struct {
	// Bindings holds executions bound to standard phases
	Bindings *LifecycleBindings
	// Custom holds executions bound to inserted phases, by phase name
	Custom map[string][]*MojoBinding
	// Unbindable holds goals with no phase in the execution or descriptor
	Unbindable []*MojoBinding
}

// ProjectBindings builds the custom bindings declared by a project's plugin
// executions. The phase of each goal is the execution's phase, or else the
// default phase from the plugin descriptor. Plugin configuration is merged
// under execution configuration. customPhases names phases that are
// accepted in addition to the standard ones.
func ProjectBindings(project *types.ProjectDescriptor, registry DescriptorRegistry, customPhases []string, log logger.Logger) (*ProjectBindingSet, error) {
	log = logger.OrNop(log).WithComponent("lifecycle")
	custom := make(map[string]bool, len(customPhases))
	for _, p := range customPhases {
		custom[p] = true
	}

	set := &ProjectBindingSet{
		Bindings: NewLifecycleBindings(),
		Custom:   make(map[string][]*MojoBinding),
	}
	set.Bindings.Packaging = project.Packaging

	for _, plugin := range project.Plugins {
		pluginConfig := ConfigurationFromYAML("configuration", plugin.Configuration.Node)
		for _, exec := range plugin.Executions {
			execConfig := ConfigurationFromYAML("configuration", exec.Configuration.Node)
			for _, goal := range exec.Goals {
				b := &MojoBinding{
					GroupID:           plugin.GroupID,
					ArtifactID:        plugin.ArtifactID,
					Version:           plugin.Version,
					Goal:              goal,
					ExecutionID:       exec.ID,
					Configuration:     MergeConfiguration(execConfig, pluginConfig),
					Origin:            OriginPOM,
					OriginDescription: project.Key(),
				}

				phase, err := bindingPhase(exec.Phase, b, registry)
				if err != nil {
					return nil, err
				}
				if phase == "" {
					log.Warn("Mojo cannot be bound to a phase, skipping",
						logger.WithField("project", project.Key()),
						logger.WithField("binding", MojoBindingString(b)))
					set.Unbindable = append(set.Unbindable, b)
					continue
				}

				if custom[phase] {
					set.Custom[phase] = append(set.Custom[phase], b)
					continue
				}
				if err := AddMojoBindingToBindings(phase, b, set.Bindings); err != nil {
					return nil, &SpecificationError{
						Phase:  phase,
						Plugin: MojoBindingString(b),
						Reason: "execution bound to an unknown phase in project " + project.Key(),
						Err:    err,
					}
				}
			}
		}
	}
	return set, nil
}

// bindingPhase returns the explicit phase, or the descriptor's default.
// An empty phase with a nil error means the goal cannot be bound.
func bindingPhase(explicit string, b *MojoBinding, registry DescriptorRegistry) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if registry == nil {
		return "", nil
	}
	desc, err := registry.Lookup(b.GroupID, b.ArtifactID, b.Version)
	if err != nil {
		if errors.Is(err, ErrPluginNotFound) {
			return "", nil
		}
		return "", err
	}
	mojo, ok := desc.Mojo(b.Goal)
	if !ok {
		return "", nil
	}
	if mojo.Phase == "" {
		return "", &SpecificationError{
			Plugin: MojoBindingString(b),
			Reason: "goal " + b.Goal + " has no default phase, the execution must name one",
		}
	}
	return mojo.Phase, nil
}

// InheritBindings layers a child project's bindings over its parent's.
// Matching executions merge with the child's configuration dominant.
func InheritBindings(parent, child *LifecycleBindings) (*LifecycleBindings, error) {
	if parent == nil {
		return CloneBindings(child), nil
	}
	return MergeBindings(parent, child, nil, MergeOptions{MergeConfigOnExecutionIDMatch: true})
}

// ResolveProjectBindings produces the resolved model of a project from the
// default bindings, the packaging bindings and the project's own bindings,
// which already include anything inherited. A nil packaging model falls
// back to defaults.
func ResolveProjectBindings(defaults, packaging, project *LifecycleBindings) (*LifecycleBindings, error) {
	base := packaging
	if base == nil {
		base = defaults
	}
	return MergeBindings(base, project, defaults, MergeOptions{MergeConfigOnExecutionIDMatch: true})
}

// ApplyLifecycleOverlay merges phase configuration supplied by plugin
// descriptors under the configuration of each matching binding. Bindings
// whose plugin is unknown are left alone.
func ApplyLifecycleOverlay(lbs *LifecycleBindings, registry DescriptorRegistry) error {
	if registry == nil {
		return nil
	}
	for _, lb := range lbs.BindingList() {
		for _, p := range lb.phases {
			for _, b := range p.bindings {
				desc, err := registry.Lookup(b.GroupID, b.ArtifactID, b.Version)
				if err != nil {
					if errors.Is(err, ErrPluginNotFound) {
						continue
					}
					return err
				}
				overlay := desc.Lifecycles[lb.ID()][p.name]
				if overlay == nil {
					continue
				}
				b.Configuration = MergeConfiguration(b.Configuration, overlay)
			}
		}
	}
	return nil
}
