package plan

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/realmforge/realmforge/pkg/lifecycle"
	"github.com/realmforge/realmforge/pkg/logger"
	"github.com/realmforge/realmforge/pkg/metrics"
)

// DirectInvocationExecutionID is the execution id of goals named on the
// command line
const DirectInvocationExecutionID = "default-cli"

// PrefixResolver is implemented by registries that can resolve goal
// prefixes such as "compiler" in "compiler:compile"
type PrefixResolver interface {
	LookupByPrefix(prefix string) (*lifecycle.PluginDescriptor, error)
}

// Builder creates execution plans from resolved binding models
type Builder struct {
	registry lifecycle.DescriptorRegistry
	log      logger.Logger
}

// NewBuilder creates a plan builder. registry supplies thread-safety
// metadata and may be nil, in which case every item is treated as not
// thread safe.
func NewBuilder(registry lifecycle.DescriptorRegistry, log logger.Logger) *Builder {
	return &Builder{
		registry: registry,
		log:      logger.OrNop(log).WithComponent("plan"),
	}
}

type insertedPhase struct {
	after    string
	name     string
	bindings []*lifecycle.MojoBinding
}

type buildOptions struct {
	inserted []insertedPhase
}

// BuildOption customizes plan construction
type BuildOption func(*buildOptions)

// WithInsertedPhase adds a phase called name right after the phase after.
// The bindings run in that phase. after may itself be an inserted phase.
func WithInsertedPhase(after, name string, bindings ...*lifecycle.MojoBinding) BuildOption {
	return func(o *buildOptions) {
		o.inserted = append(o.inserted, insertedPhase{after: after, name: name, bindings: bindings})
	}
}

// BuildPlan walks the lifecycle containing targetPhase from its first phase
// through targetPhase and returns one item per binding
func (b *Builder) BuildPlan(bindings *lifecycle.LifecycleBindings, targetPhase string, opts ...BuildOption) (*ExecutionPlan, error) {
	if strings.Contains(targetPhase, ":") {
		return nil, &lifecycle.NoSuchPhaseError{Phase: targetPhase}
	}
	return b.BuildPlanForTasks(bindings, []string{targetPhase}, opts...)
}

// BuildPlanForTasks builds one plan for a sequence of tasks. A task is a
// phase name or a direct goal invocation of the form
// groupId:artifactId[:version]:goal or prefix:goal. Phases already walked by
// an earlier task are not repeated.
func (b *Builder) BuildPlanForTasks(bindings *lifecycle.LifecycleBindings, tasks []string, opts ...BuildOption) (*ExecutionPlan, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}
	if err := validateInserted(o.inserted); err != nil {
		return nil, err
	}
	if bindings == nil {
		bindings = lifecycle.NewLifecycleBindings()
	}

	var (
		items      []*Item
		phaseOrder []string
		walked     = make(map[lifecycle.Kind]int)
	)
	for _, task := range tasks {
		if strings.Contains(task, ":") {
			item, err := b.directItem(task, bindings)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
			continue
		}

		kind, ok := kindForPhase(task, o.inserted)
		if !ok {
			return nil, &lifecycle.NoSuchPhaseError{Phase: task}
		}
		lb := bindings.Binding(kind)
		if lb == nil {
			lb = lifecycle.NewLifecycleBinding(kind)
		}
		order := phaseOrderFor(kind, o.inserted)
		if _, seen := walked[kind]; !seen {
			phaseOrder = append(phaseOrder, order...)
		}

		start := walked[kind]
		stop := indexOf(order, task)
		for i := start; i <= stop; i++ {
			items = append(items, b.phaseItems(lb, order[i], o.inserted)...)
		}
		if stop+1 > start {
			walked[kind] = stop + 1
		}
	}

	plan := NewExecutionPlan(items, phaseOrder)
	b.log.Debug("Built execution plan",
		logger.WithField("tasks", strings.Join(tasks, " ")),
		logger.WithField("items", plan.Len()))
	return plan, nil
}

func (b *Builder) phaseItems(lb *lifecycle.LifecycleBinding, phase string, inserted []insertedPhase) []*Item {
	var bindings []*lifecycle.MojoBinding
	if p := lb.Phase(phase); p != nil {
		bindings = p.Bindings()
	} else {
		for _, ins := range inserted {
			if ins.name == phase {
				bindings = append(bindings, ins.bindings...)
			}
		}
	}

	items := make([]*Item, 0, len(bindings))
	for _, mb := range bindings {
		items = append(items, &Item{
			ID:         uuid.NewString(),
			Binding:    mb,
			Phase:      phase,
			ThreadSafe: b.threadSafe(mb),
			Lifecycle:  lb,
		})
		metrics.PlanItemsBuilt.WithLabelValues(lb.ID()).Inc()
	}
	return items
}

func (b *Builder) directItem(task string, bindings *lifecycle.LifecycleBindings) (*Item, error) {
	mb, err := b.parseDirectInvocation(task)
	if err != nil {
		return nil, err
	}
	mb.ExecutionID = DirectInvocationExecutionID
	mb.Origin = lifecycle.OriginDirectInvocation
	if match := lifecycle.FindMatchingMojoBinding(mb, bindings, false); match != nil {
		mb.Configuration = match.Configuration.Copy()
		if mb.Version == "" {
			mb.Version = match.Version
		}
	}
	metrics.PlanItemsBuilt.WithLabelValues("direct").Inc()
	return &Item{
		ID:         uuid.NewString(),
		Binding:    mb,
		ThreadSafe: b.threadSafe(mb),
	}, nil
}

func (b *Builder) parseDirectInvocation(task string) (*lifecycle.MojoBinding, error) {
	if mb, ok := lifecycle.ParseMojoBinding(task); ok {
		return mb, nil
	}
	parts := strings.Split(task, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, &lifecycle.SpecificationError{Plugin: task, Reason: "invalid goal invocation"}
	}
	resolver, ok := b.registry.(PrefixResolver)
	if !ok {
		return nil, &lifecycle.SpecificationError{Plugin: task, Reason: "goal prefixes need a registry that resolves them"}
	}
	desc, err := resolver.LookupByPrefix(parts[0])
	if err != nil {
		return nil, &lifecycle.SpecificationError{Plugin: task, Reason: "unknown goal prefix", Err: err}
	}
	return &lifecycle.MojoBinding{
		GroupID:    desc.GroupID,
		ArtifactID: desc.ArtifactID,
		Version:    desc.Version,
		Goal:       parts[1],
	}, nil
}

func (b *Builder) threadSafe(mb *lifecycle.MojoBinding) bool {
	if b.registry == nil {
		return false
	}
	desc, err := b.registry.Lookup(mb.GroupID, mb.ArtifactID, mb.Version)
	if err != nil {
		if !errors.Is(err, lifecycle.ErrPluginNotFound) {
			b.log.Warn("Plugin descriptor lookup failed",
				logger.WithField("plugin", mb.PluginKey()),
				logger.WithError(err))
		}
		return false
	}
	mojo, ok := desc.Mojo(mb.Goal)
	return ok && mojo.ThreadSafe
}

// PhaseOrder returns the phases of kind with the inserted phases of opts
// in place
func PhaseOrder(kind lifecycle.Kind, opts ...BuildOption) ([]string, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}
	if err := validateInserted(o.inserted); err != nil {
		return nil, err
	}
	return phaseOrderFor(kind, o.inserted), nil
}

func validateInserted(inserted []insertedPhase) error {
	names := make(map[string]bool, len(inserted))
	for _, ins := range inserted {
		if ins.name == "" || lifecycle.IsValidPhaseName(ins.name) || names[ins.name] {
			return &lifecycle.SpecificationError{
				Phase:  ins.name,
				Reason: fmt.Sprintf("inserted phase %q must be new and unique", ins.name),
			}
		}
		names[ins.name] = true
	}
	for _, ins := range inserted {
		if _, ok := kindForPhase(ins.after, inserted); !ok {
			return &lifecycle.NoSuchPhaseError{Phase: ins.after}
		}
	}
	return nil
}

// kindForPhase finds the lifecycle declaring phase, following inserted
// phases back to the standard phase they hang off
func kindForPhase(phase string, inserted []insertedPhase) (lifecycle.Kind, bool) {
	for depth := 0; depth <= len(inserted); depth++ {
		for _, k := range lifecycle.Kinds {
			if indexOf(k.PhaseNames(), phase) >= 0 {
				return k, true
			}
		}
		next := ""
		for _, ins := range inserted {
			if ins.name == phase {
				next = ins.after
				break
			}
		}
		if next == "" {
			return "", false
		}
		phase = next
	}
	return "", false
}

// phaseOrderFor returns the phases of kind with inserted phases placed
// right after their anchor, in insertion order
func phaseOrderFor(kind lifecycle.Kind, inserted []insertedPhase) []string {
	var order []string
	var place func(phase string)
	place = func(phase string) {
		order = append(order, phase)
		for _, ins := range inserted {
			if ins.after == phase {
				place(ins.name)
			}
		}
	}
	for _, phase := range kind.PhaseNames() {
		place(phase)
	}
	return order
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
