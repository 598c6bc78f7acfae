package lifecycle

// MergeOptions controls how MergeBindings treats bindings present in both
// layers
type MergeOptions struct {
	// MergeConfigOnExecutionIDMatch merges an incoming binding with the
	// existing binding of the same groupId:artifactId:goal:executionId and
	// drops the existing one
	MergeConfigOnExecutionIDMatch bool
	// ReverseConfigMergeDirection makes the existing configuration dominant
	ReverseConfigMergeDirection bool
}

// MergeBindings layers incoming on top of existing and returns a new model.
// Neither input is modified.
//
// The packaging comes from incoming. Each lifecycle starts as a copy of the
// existing one. If that is nil or empty, a copy of defaults is used, and
// otherwise an empty skeleton. Incoming bindings are then appended in phase
// order. A binding that matches an existing one is merged with it first and
// replaces it.
func MergeBindings(existing, incoming, defaults *LifecycleBindings, opts MergeOptions) (*LifecycleBindings, error) {
	if existing == nil {
		existing = &LifecycleBindings{}
	}
	if incoming == nil {
		incoming = &LifecycleBindings{}
	}

	result := &LifecycleBindings{Packaging: incoming.Packaging}
	for _, kind := range Kinds {
		lb := CloneBinding(existing.Binding(kind))
		if defaults != nil && isNullOrEmpty(lb) {
			lb = CloneBinding(defaults.Binding(kind))
		}
		if lb == nil {
			lb = NewLifecycleBinding(kind)
		}
		result.SetBinding(lb)
	}

	for _, lb := range incoming.BindingList() {
		for _, p := range lb.phases {
			for _, b := range p.bindings {
				if err := mergeOne(p.name, b, existing, result, opts); err != nil {
					return nil, err
				}
			}
		}
	}

	result.SetupTrackingInfo()
	return result, nil
}

func mergeOne(phase string, b *MojoBinding, existing, result *LifecycleBindings, opts MergeOptions) error {
	clone := CloneMojoBinding(b)

	if opts.MergeConfigOnExecutionIDMatch {
		if match := FindMatchingMojoBinding(clone, existing, true); match != nil {
			if opts.ReverseConfigMergeDirection {
				clone.Configuration = MergeConfiguration(match.Configuration, clone.Configuration)
			} else {
				clone.Configuration = MergeConfiguration(clone.Configuration, match.Configuration)
			}
			if clone.Origin == "" {
				clone.Origin = match.Origin
			}
			if err := consume(match, result); err != nil {
				return &MergeInconsistencyError{Phase: phase, Binding: MojoBindingKey(clone, true), Err: err}
			}
		}
	}

	if err := AddMojoBindingToBindings(phase, clone, result); err != nil {
		return &SpecificationError{
			Phase:  phase,
			Plugin: clone.PluginKey(),
			Reason: "project bindings are invalid",
			Err:    err,
		}
	}
	return nil
}

// consume removes the copy of match from the phase of result that holds it
func consume(match *MojoBinding, result *LifecycleBindings) error {
	p := match.Phase()
	if p == nil || p.Lifecycle() == nil {
		return &NoSuchPhaseError{Phase: "<detached>"}
	}
	lb := result.Binding(p.Lifecycle().Kind())
	if lb == nil {
		return &NoSuchPhaseError{Phase: p.Name(), Lifecycle: p.Lifecycle().ID()}
	}
	return RemoveMojoBinding(p.Name(), match, lb, true)
}
