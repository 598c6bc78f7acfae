package lifecycle

// FindLifecycleBindingForPhase returns the lifecycle in lbs that declares
// the phase, or nil
func FindLifecycleBindingForPhase(phase string, lbs *LifecycleBindings) *LifecycleBinding {
	for _, lb := range lbs.BindingList() {
		if lb.HasPhase(phase) {
			return lb
		}
	}
	return nil
}

// AddMojoBinding appends b to the named phase of lb
func AddMojoBinding(phase string, b *MojoBinding, lb *LifecycleBinding) error {
	p := lb.Phase(phase)
	if p == nil {
		return &NoSuchPhaseError{Phase: phase, Lifecycle: lb.ID()}
	}
	p.add(b)
	return nil
}

// AddMojoBindingToBindings appends b to the named phase of whichever
// lifecycle declares it
func AddMojoBindingToBindings(phase string, b *MojoBinding, lbs *LifecycleBindings) error {
	lb := FindLifecycleBindingForPhase(phase, lbs)
	if lb == nil {
		return &NoSuchPhaseError{Phase: phase}
	}
	return AddMojoBinding(phase, b, lb)
}

// RemoveMojoBinding removes every binding in the named phase whose key
// equals the key of b
func RemoveMojoBinding(phase string, b *MojoBinding, lb *LifecycleBinding, considerExecutionID bool) error {
	p := lb.Phase(phase)
	if p == nil {
		return &NoSuchPhaseError{Phase: phase, Lifecycle: lb.ID()}
	}
	target := MojoBindingKey(b, considerExecutionID)
	p.removeWhere(func(candidate *MojoBinding) bool {
		return MojoBindingKey(candidate, considerExecutionID) == target
	})
	return nil
}

// RemoveMojoBindings removes bindings matching any key in toRemove from
// every phase of every lifecycle in lbs
func RemoveMojoBindings(toRemove []*MojoBinding, lbs *LifecycleBindings, considerExecutionID bool) {
	for _, lb := range lbs.BindingList() {
		RemoveMojoBindingsFromLifecycle(toRemove, lb, considerExecutionID)
	}
}

// RemoveMojoBindingsFromLifecycle removes bindings matching any key in
// toRemove from every phase of lb
func RemoveMojoBindingsFromLifecycle(toRemove []*MojoBinding, lb *LifecycleBinding, considerExecutionID bool) {
	targets := make(map[string]struct{}, len(toRemove))
	for _, b := range toRemove {
		targets[MojoBindingKey(b, considerExecutionID)] = struct{}{}
	}
	for _, p := range lb.phases {
		p.removeWhere(func(candidate *MojoBinding) bool {
			_, ok := targets[MojoBindingKey(candidate, considerExecutionID)]
			return ok
		})
	}
}

// FindMatchingMojoBinding returns the binding in lbs with the same key as
// b. When several bindings share the key the last one in lifecycle and
// phase order is returned.
func FindMatchingMojoBinding(b *MojoBinding, lbs *LifecycleBindings, considerExecutionID bool) *MojoBinding {
	key := MojoBindingKey(b, considerExecutionID)
	var match *MojoBinding
	for _, lb := range lbs.BindingList() {
		for _, p := range lb.phases {
			for _, candidate := range p.bindings {
				if MojoBindingKey(candidate, considerExecutionID) == key {
					match = candidate
				}
			}
		}
	}
	return match
}

// FindPhaseForMojoBinding returns the first phase holding a binding with
// the same key as b, or nil
func FindPhaseForMojoBinding(b *MojoBinding, lbs *LifecycleBindings, considerExecutionID bool) *Phase {
	key := MojoBindingKey(b, considerExecutionID)
	for _, lb := range lbs.BindingList() {
		for _, p := range lb.phases {
			for _, candidate := range p.bindings {
				if MojoBindingKey(candidate, considerExecutionID) == key {
					return p
				}
			}
		}
	}
	return nil
}

// IsMojoBindingPresent reports whether candidates holds a binding with the
// same key as b
func IsMojoBindingPresent(b *MojoBinding, candidates []*MojoBinding, considerExecutionID bool) bool {
	key := MojoBindingKey(b, considerExecutionID)
	for _, candidate := range candidates {
		if MojoBindingKey(candidate, considerExecutionID) == key {
			return true
		}
	}
	return false
}

// CloneBindings deep copies a binding model. Nil lifecycles stay nil.
func CloneBindings(lbs *LifecycleBindings) *LifecycleBindings {
	if lbs == nil {
		return nil
	}
	return &LifecycleBindings{
		Packaging: lbs.Packaging,
		Clean:     CloneBinding(lbs.Clean),
		Build:     CloneBinding(lbs.Build),
		Site:      CloneBinding(lbs.Site),
	}
}

// CloneBinding deep copies one lifecycle binding
func CloneBinding(lb *LifecycleBinding) *LifecycleBinding {
	if lb == nil {
		return nil
	}
	out := NewLifecycleBinding(lb.kind)
	for i, p := range lb.phases {
		for _, b := range p.bindings {
			out.phases[i].add(CloneMojoBinding(b))
		}
	}
	return out
}

// CloneMojoBinding copies a binding, including its configuration tree. The
// copy is not attached to any phase.
func CloneMojoBinding(b *MojoBinding) *MojoBinding {
	return &MojoBinding{
		GroupID:           b.GroupID,
		ArtifactID:        b.ArtifactID,
		Version:           b.Version,
		Goal:              b.Goal,
		ExecutionID:       b.ExecutionID,
		Configuration:     b.Configuration.Copy(),
		Origin:            b.Origin,
		OriginDescription: b.OriginDescription,
		Optional:          b.Optional,
	}
}

// SetOrigin sets the origin of every binding in lbs
func SetOrigin(lbs *LifecycleBindings, origin string) {
	for _, lb := range lbs.BindingList() {
		for _, p := range lb.phases {
			for _, b := range p.bindings {
				b.Origin = origin
			}
		}
	}
}

// GetMojoBindingListForLifecycle returns the bindings of every phase up to
// and including stopPhase, in order, from the lifecycle declaring it
func GetMojoBindingListForLifecycle(stopPhase string, lbs *LifecycleBindings) ([]*MojoBinding, error) {
	lb := FindLifecycleBindingForPhase(stopPhase, lbs)
	if lb == nil {
		return nil, &NoSuchPhaseError{Phase: stopPhase}
	}
	return GetMojoBindingListForLifecycleBinding(stopPhase, lb)
}

// GetMojoBindingListForLifecycleBinding returns the bindings of every phase
// of lb up to and including stopPhase
func GetMojoBindingListForLifecycleBinding(stopPhase string, lb *LifecycleBinding) ([]*MojoBinding, error) {
	idx := lb.PhaseIndex(stopPhase)
	if idx < 0 {
		return nil, &NoSuchPhaseError{Phase: stopPhase, Lifecycle: lb.ID()}
	}
	var out []*MojoBinding
	for _, p := range lb.phases[:idx+1] {
		out = append(out, p.bindings...)
	}
	return out, nil
}

// IsValidPhaseName reports whether any lifecycle declares the phase
func IsValidPhaseName(phase string) bool {
	for _, k := range Kinds {
		for _, name := range phaseNames[k] {
			if name == phase {
				return true
			}
		}
	}
	return false
}

// ValidPhaseNames returns all phase names, clean then build then site
func ValidPhaseNames() []string {
	var out []string
	for _, k := range Kinds {
		out = append(out, phaseNames[k]...)
	}
	return out
}

// ValidCleanPhaseNames returns the clean lifecycle phases
func ValidCleanPhaseNames() []string { return KindClean.PhaseNames() }

// ValidBuildPhaseNames returns the build lifecycle phases
func ValidBuildPhaseNames() []string { return KindBuild.PhaseNames() }

// ValidSitePhaseNames returns the site lifecycle phases
func ValidSitePhaseNames() []string { return KindSite.PhaseNames() }
