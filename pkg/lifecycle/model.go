// Package lifecycle models the clean, build and site lifecycles, the mojo
// bindings attached to their phases and the rules for merging binding
// layers into one resolved model.
package lifecycle

import "strings"

// Kind identifies one of the fixed lifecycles
type Kind string

const (
	KindClean Kind = "clean"
	KindBuild Kind = "build"
	KindSite  Kind = "site"
)

// Kinds lists the lifecycles in binding order
var Kinds = []Kind{KindClean, KindBuild, KindSite}

var phaseNames = map[Kind][]string{
	KindClean: {"pre-clean", "clean", "post-clean"},
	KindBuild: {
		"validate",
		"initialize",
		"generate-sources",
		"process-sources",
		"generate-resources",
		"process-resources",
		"compile",
		"process-classes",
		"generate-test-sources",
		"process-test-sources",
		"generate-test-resources",
		"process-test-resources",
		"test-compile",
		"process-test-classes",
		"test",
		"prepare-package",
		"package",
		"pre-integration-test",
		"integration-test",
		"post-integration-test",
		"verify",
		"install",
		"deploy",
	},
	KindSite: {"pre-site", "site", "post-site", "site-deploy"},
}

// PhaseNames returns the fixed phase order of the lifecycle. Unknown kinds
// have no phases.
func (k Kind) PhaseNames() []string {
	return append([]string(nil), phaseNames[k]...)
}

// ParseKind converts a lifecycle id to a Kind
func ParseKind(id string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(id)))
	_, ok := phaseNames[k]
	return k, ok
}

// Binding origins
const (
	OriginPOM              = "POM"
	OriginLifecycleMapping = "lifecycle-mapping"
	OriginDirectInvocation = "direct-invocation"
	OriginDefault          = "default"
)

// DefaultExecutionID is used for bindings that name no execution
const DefaultExecutionID = "default"

// MojoBinding binds one plugin goal to a phase
type MojoBinding struct {
	GroupID           string
	ArtifactID        string
	Version           string
	Goal              string
	ExecutionID       string
	Configuration     *Configuration
	Origin            string
	OriginDescription string
	Optional          bool

	phase *Phase
}

// Phase returns the phase the binding is attached to, or nil
func (b *MojoBinding) Phase() *Phase { return b.phase }

// PluginKey returns groupId:artifactId
func (b *MojoBinding) PluginKey() string {
	return b.GroupID + ":" + b.ArtifactID
}

// ExecutionIDOrDefault returns the execution id, or DefaultExecutionID
func (b *MojoBinding) ExecutionIDOrDefault() string {
	if b.ExecutionID == "" {
		return DefaultExecutionID
	}
	return b.ExecutionID
}

func (b *MojoBinding) String() string {
	return MojoBindingString(b)
}

// Phase is a named step of a lifecycle holding ordered bindings
type Phase struct {
	name      string
	bindings  []*MojoBinding
	lifecycle *LifecycleBinding
}

// Name returns the phase name
func (p *Phase) Name() string { return p.name }

// Bindings returns a copy of the phase's bindings in order
func (p *Phase) Bindings() []*MojoBinding {
	return append([]*MojoBinding(nil), p.bindings...)
}

// Len returns the number of bindings in the phase
func (p *Phase) Len() int { return len(p.bindings) }

// Lifecycle returns the owning lifecycle binding
func (p *Phase) Lifecycle() *LifecycleBinding { return p.lifecycle }

func (p *Phase) add(b *MojoBinding) {
	b.phase = p
	p.bindings = append(p.bindings, b)
}

// removeWhere drops every binding for which match returns true
func (p *Phase) removeWhere(match func(*MojoBinding) bool) int {
	kept := p.bindings[:0]
	removed := 0
	for _, b := range p.bindings {
		if match(b) {
			b.phase = nil
			removed++
			continue
		}
		kept = append(kept, b)
	}
	for i := len(kept); i < len(p.bindings); i++ {
		p.bindings[i] = nil
	}
	p.bindings = kept
	return removed
}

// LifecycleBinding holds the phases of one lifecycle in fixed order
type LifecycleBinding struct {
	kind   Kind
	phases []*Phase
	index  map[string]int
}

// NewLifecycleBinding creates an empty binding with the full phase skeleton
// of kind
func NewLifecycleBinding(kind Kind) *LifecycleBinding {
	names := phaseNames[kind]
	lb := &LifecycleBinding{
		kind:   kind,
		phases: make([]*Phase, len(names)),
		index:  make(map[string]int, len(names)),
	}
	for i, name := range names {
		lb.phases[i] = &Phase{name: name}
		lb.index[name] = i
	}
	lb.SetupTrackingInfo()
	return lb
}

// ID returns the lifecycle id
func (lb *LifecycleBinding) ID() string { return string(lb.kind) }

// Kind returns the lifecycle kind
func (lb *LifecycleBinding) Kind() Kind { return lb.kind }

// PhaseNames returns the phase names in order
func (lb *LifecycleBinding) PhaseNames() []string {
	return lb.kind.PhaseNames()
}

// Phases returns the phases in order
func (lb *LifecycleBinding) Phases() []*Phase {
	return append([]*Phase(nil), lb.phases...)
}

// Phase returns the named phase, or nil
func (lb *LifecycleBinding) Phase(name string) *Phase {
	i, ok := lb.index[name]
	if !ok {
		return nil
	}
	return lb.phases[i]
}

// PhaseIndex returns the position of the named phase, or -1
func (lb *LifecycleBinding) PhaseIndex(name string) int {
	if i, ok := lb.index[name]; ok {
		return i
	}
	return -1
}

// HasPhase reports whether name is a phase of this lifecycle
func (lb *LifecycleBinding) HasPhase(name string) bool {
	_, ok := lb.index[name]
	return ok
}

// IsEmpty reports whether no phase has bindings
func (lb *LifecycleBinding) IsEmpty() bool {
	for _, p := range lb.phases {
		if len(p.bindings) > 0 {
			return false
		}
	}
	return true
}

// MojoBindings returns all bindings in phase order
func (lb *LifecycleBinding) MojoBindings() []*MojoBinding {
	var out []*MojoBinding
	for _, p := range lb.phases {
		out = append(out, p.bindings...)
	}
	return out
}

// SetupTrackingInfo wires the phase and binding back-references
func (lb *LifecycleBinding) SetupTrackingInfo() {
	for _, p := range lb.phases {
		p.lifecycle = lb
		for _, b := range p.bindings {
			b.phase = p
		}
	}
}

func isNullOrEmpty(lb *LifecycleBinding) bool {
	return lb == nil || lb.IsEmpty()
}

// LifecycleBindings is the binding model of one project. A nil lifecycle
// means it was not customized.
type LifecycleBindings struct {
	Packaging string
	Clean     *LifecycleBinding
	Build     *LifecycleBinding
	Site      *LifecycleBinding
}

// NewLifecycleBindings returns a model with all three lifecycles present
// and empty
func NewLifecycleBindings() *LifecycleBindings {
	return &LifecycleBindings{
		Clean: NewLifecycleBinding(KindClean),
		Build: NewLifecycleBinding(KindBuild),
		Site:  NewLifecycleBinding(KindSite),
	}
}

// BindingList returns the non-nil lifecycles in clean, build, site order
func (lbs *LifecycleBindings) BindingList() []*LifecycleBinding {
	out := make([]*LifecycleBinding, 0, 3)
	for _, lb := range []*LifecycleBinding{lbs.Clean, lbs.Build, lbs.Site} {
		if lb != nil {
			out = append(out, lb)
		}
	}
	return out
}

// Binding returns the lifecycle of the given kind, which may be nil
func (lbs *LifecycleBindings) Binding(kind Kind) *LifecycleBinding {
	switch kind {
	case KindClean:
		return lbs.Clean
	case KindBuild:
		return lbs.Build
	case KindSite:
		return lbs.Site
	}
	return nil
}

// SetBinding replaces the lifecycle of the binding's kind
func (lbs *LifecycleBindings) SetBinding(lb *LifecycleBinding) {
	switch lb.kind {
	case KindClean:
		lbs.Clean = lb
	case KindBuild:
		lbs.Build = lb
	case KindSite:
		lbs.Site = lb
	}
}

// IsEmpty reports whether no lifecycle holds any binding
func (lbs *LifecycleBindings) IsEmpty() bool {
	for _, lb := range lbs.BindingList() {
		if !lb.IsEmpty() {
			return false
		}
	}
	return true
}

// SetupTrackingInfo wires back-references in every lifecycle
func (lbs *LifecycleBindings) SetupTrackingInfo() {
	for _, lb := range lbs.BindingList() {
		lb.SetupTrackingInfo()
	}
}
