// Package engine loads a realmforge configuration into a realm world and a
// binding model, builds execution plans for its projects and runs them.
package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5/util"
	"github.com/realmforge/realmforge/internal/state"
	"github.com/realmforge/realmforge/pkg/config"
	rfcontext "github.com/realmforge/realmforge/pkg/context"
	"github.com/realmforge/realmforge/pkg/lifecycle"
	"github.com/realmforge/realmforge/pkg/logger"
	"github.com/realmforge/realmforge/pkg/plan"
	"github.com/realmforge/realmforge/pkg/realm"
	"github.com/realmforge/realmforge/pkg/types"
)

var (
	ErrNotLoaded      = errors.New("engine not loaded")
	ErrUnknownProject = errors.New("unknown project")
	ErrProjectLocked  = errors.New("project is being run by another process")
)

const heartbeatInterval = 10 * time.Second

// Engine ties realms, lifecycle bindings and plan execution together
type Engine struct {
	config     *types.RealmforgeConfig
	configPath string
	logger     logger.Logger
	deps       Dependencies

	mu       sync.RWMutex
	loaded   bool
	loader   *lifecycle.BindingLoader
	projects map[string]*types.ProjectDescriptor
	dirs     map[string]string
	order    []string
}

// Resolution is the fully merged binding model of one project
type Resolution struct {
	Project    *types.ProjectDescriptor
	Bindings   *lifecycle.LifecycleBindings
	Custom     map[string][]*lifecycle.MojoBinding
	Unbindable []*lifecycle.MojoBinding
}

// New creates an engine. configPath anchors relative search path entries.
func New(cfg *types.RealmforgeConfig, configPath string, log logger.Logger, deps Dependencies) *Engine {
	if deps.FS == nil {
		panic("FS dependency is required")
	}
	if deps.World == nil {
		panic("World dependency is required")
	}
	if deps.Registry == nil {
		panic("Registry dependency is required")
	}
	if deps.Builder == nil {
		panic("Builder dependency is required")
	}

	return &Engine{
		config:     cfg,
		configPath: configPath,
		logger:     logger.OrNop(log).WithComponent("engine"),
		deps:       deps,
		projects:   make(map[string]*types.ProjectDescriptor),
		dirs:       make(map[string]string),
	}
}

// Load creates the configured realms, wires parents and imports once every
// realm exists, and reads the project descriptors. It is idempotent.
func (e *Engine) Load() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loaded {
		return nil
	}
	if err := e.loadRealms(); err != nil {
		return fmt.Errorf("failed to load realms: %w", err)
	}

	locator := e.deps.Locator
	if locator == nil && e.config.Lifecycle.Realm != "" {
		r, err := e.deps.World.GetRealm(e.config.Lifecycle.Realm)
		if err != nil {
			return fmt.Errorf("lifecycle template realm: %w", err)
		}
		locator = r
	}
	if locator != nil {
		template := e.config.Lifecycle.Template
		if template == "" {
			template = lifecycle.DefaultTemplatePath
		}
		e.loader = lifecycle.NewBindingLoader(locator, template, e.logger)
	}

	if err := e.loadProjects(); err != nil {
		return fmt.Errorf("failed to load projects: %w", err)
	}

	e.loaded = true
	e.logger.Info("Workspace loaded",
		logger.WithField("realms", len(e.config.Realms)),
		logger.WithField("projects", len(e.order)))
	return nil
}

func (e *Engine) loadRealms() error {
	world := e.deps.World

	var base realm.BaseResolver
	if p := e.config.Platform; p != nil {
		entries := make([]string, 0, len(p.SearchPath))
		for _, entry := range p.SearchPath {
			entries = append(entries, config.ResolvePath(e.configPath, entry))
		}
		base = realm.NewPlatformResolver(e.deps.Provider, p.Prefixes, entries...)
	}

	created := make(map[string]*realm.Realm, len(e.config.Realms))
	for _, rc := range e.config.Realms {
		var opts []realm.RealmOption
		if rc.Strategy != "" {
			opts = append(opts, realm.WithStrategy(rc.Strategy))
		}
		if len(rc.Filter) > 0 {
			filter, err := realm.GlobFilter(rc.Filter)
			if err != nil {
				return fmt.Errorf("realm %s: %w", rc.ID, err)
			}
			opts = append(opts, realm.WithFilter(filter))
		}

		r, err := world.NewRealm(rc.ID, base, opts...)
		if err != nil {
			return err
		}
		for _, entry := range rc.SearchPath {
			r.AddSearchPathEntry(config.ResolvePath(e.configPath, entry))
		}
		created[rc.ID] = r
	}

	// parents and imports may name realms declared later in the file
	for _, rc := range e.config.Realms {
		r := created[rc.ID]
		if rc.Parent != "" {
			parent, err := world.GetRealm(rc.Parent)
			if err != nil {
				return fmt.Errorf("realm %s: %w", rc.ID, err)
			}
			r.SetParent(parent)
		}
		for _, imp := range rc.Imports {
			if err := r.ImportFrom(imp.Realm, imp.Pattern); err != nil {
				return fmt.Errorf("realm %s: %w", rc.ID, err)
			}
		}
		for _, pattern := range rc.ParentImports {
			r.ImportFromParent(pattern)
		}
	}
	return nil
}

func (e *Engine) loadProjects() error {
	for i, pc := range e.config.Projects {
		desc := pc.Descriptor
		if desc == nil {
			data, err := util.ReadFile(e.deps.FS, pc.Path)
			if err != nil {
				return fmt.Errorf("project %s: %w", pc.Path, err)
			}
			desc, err = types.ParseProjectDescriptor(data)
			if err != nil {
				return fmt.Errorf("project %s: %w", pc.Path, err)
			}
		} else if desc.GroupID == "" || desc.ArtifactID == "" {
			return fmt.Errorf("project %d: inline descriptor missing groupId or artifactId", i)
		}

		key := desc.Key()
		if _, dup := e.projects[key]; dup {
			return fmt.Errorf("duplicate project %s", key)
		}
		e.projects[key] = desc
		e.order = append(e.order, key)
		if pc.Path != "" {
			e.dirs[key] = filepath.Dir(pc.Path)
		}
	}
	return nil
}

// World returns the realm world
func (e *Engine) World() *realm.World { return e.deps.World }

// Registry returns the plugin descriptor registry
func (e *Engine) Registry() *lifecycle.StaticRegistry { return e.deps.Registry }

// Loader returns the lifecycle template loader, nil when no template is
// configured
func (e *Engine) Loader() *lifecycle.BindingLoader {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loader
}

// Projects returns the project keys in configuration order
func (e *Engine) Projects() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.order...)
}

// Project returns the descriptor of project
func (e *Engine) Project(project string) (*types.ProjectDescriptor, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.loaded {
		return nil, ErrNotLoaded
	}
	desc, ok := e.projects[project]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProject, project)
	}
	return desc, nil
}

// ProjectDir returns the directory of a project's descriptor relative to
// the project root, "." for inline descriptors
func (e *Engine) ProjectDir(project string) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if dir, ok := e.dirs[project]; ok {
		return dir
	}
	return "."
}

// Resolve merges the bindings of project in order: the default packaging,
// the project's packaging, its parent chain, then the project itself.
// Plugin lifecycle overlays are applied last.
func (e *Engine) Resolve(project string) (*Resolution, error) {
	desc, err := e.Project(project)
	if err != nil {
		return nil, err
	}
	chain, err := e.ancestry(desc)
	if err != nil {
		return nil, err
	}

	customNames := make([]string, 0, len(e.config.Lifecycle.CustomPhases))
	for _, cp := range e.config.Lifecycle.CustomPhases {
		customNames = append(customNames, cp.Name)
	}

	res := &Resolution{Project: desc, Custom: make(map[string][]*lifecycle.MojoBinding)}
	var inherited *lifecycle.LifecycleBindings
	for _, d := range chain {
		set, err := lifecycle.ProjectBindings(d, e.deps.Registry, customNames, e.logger)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", d.Key(), err)
		}
		if inherited, err = lifecycle.InheritBindings(inherited, set.Bindings); err != nil {
			return nil, fmt.Errorf("project %s: %w", d.Key(), err)
		}
		for phase, bindings := range set.Custom {
			res.Custom[phase] = inheritCustom(res.Custom[phase], bindings)
		}
		if d == desc {
			res.Unbindable = set.Unbindable
		}
	}

	defaults, err := e.packagingBindings(e.config.Lifecycle.DefaultPackaging)
	if err != nil {
		return nil, err
	}
	packaging, err := e.packagingBindings(desc.Packaging)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", project, err)
	}

	res.Bindings, err = lifecycle.ResolveProjectBindings(defaults, packaging, inherited)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", project, err)
	}
	if err := lifecycle.ApplyLifecycleOverlay(res.Bindings, e.deps.Registry); err != nil {
		return nil, fmt.Errorf("project %s: %w", project, err)
	}
	return res, nil
}

// Plan resolves project and builds the plan for tasks. Configured custom
// phases are inserted with the project's bindings for them.
func (e *Engine) Plan(project string, tasks []string) (*plan.ExecutionPlan, error) {
	res, err := e.Resolve(project)
	if err != nil {
		return nil, err
	}

	opts := make([]plan.BuildOption, 0, len(e.config.Lifecycle.CustomPhases))
	for _, cp := range e.config.Lifecycle.CustomPhases {
		opts = append(opts, plan.WithInsertedPhase(cp.After, cp.Name, res.Custom[cp.Name]...))
	}
	return e.deps.Builder.BuildPlanForTasks(res.Bindings, tasks, opts...)
}

// Run plans tasks for the given projects, or for every project when none
// are named, and executes the plans concurrently through mojos
func (e *Engine) Run(ctx context.Context, tasks []string, mojos plan.MojoExecutor, projects ...string) ([]plan.Result, error) {
	if len(projects) == 0 {
		projects = e.Projects()
	}
	ctx = rfcontext.EnrichContext(ctx)
	log := logger.WithContext(ctx, e.logger)

	plans := make([]plan.ProjectPlan, 0, len(projects))
	for _, p := range projects {
		if e.deps.State != nil {
			locked, err := e.deps.State.IsLocked(p)
			if err != nil {
				log.Warn("Failed to read run state", logger.WithField("project", p), logger.WithError(err))
			}
			if locked {
				return nil, fmt.Errorf("%w: %s", ErrProjectLocked, p)
			}
		}
		pl, err := e.Plan(p, tasks)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan.ProjectPlan{Project: p, Plan: pl})
	}

	for _, p := range projects {
		if e.deps.State != nil {
			if _, err := e.deps.State.MarkRunning(p, tasks); err != nil {
				log.Warn("Failed to record run start", logger.WithField("project", p), logger.WithError(err))
			}
		}
		if e.deps.Notifier != nil {
			e.deps.Notifier.NotifyRunStart(p)
		}
	}
	if hb, ok := e.deps.State.(heartbeater); ok {
		hb.StartHeartbeat(ctx, heartbeatInterval)
		defer hb.StopHeartbeat()
	}

	parallelism, failFast := 0, false
	if pc := e.config.Plan; pc != nil {
		parallelism, failFast = pc.Parallelization, pc.FailFast
	}
	executor := plan.NewExecutor(mojos,
		plan.WithParallelism(parallelism),
		plan.WithFailFast(failFast),
		plan.WithLogger(e.logger))

	log.Info("Running projects",
		logger.WithField("projects", len(plans)),
		logger.WithField("parallelism", parallelism))
	results, runErr := executor.Run(ctx, plans)

	var succeeded, failed, skipped int
	for _, r := range results {
		outcome := state.Outcome{
			Status:   r.Status,
			Executed: r.Executed,
			Err:      r.Err,
			Duration: r.Duration,
		}
		if r.Failed != nil {
			outcome.FailedBinding = lifecycle.MojoBindingString(r.Failed.Binding)
		}
		if outcome.Status == types.RunStatusPending || outcome.Status == types.RunStatusRunning {
			// the project goroutine never reported back
			outcome.Status = types.RunStatusFailed
			outcome.Err = runErr
		}

		switch outcome.Status {
		case types.RunStatusSucceeded:
			succeeded++
			if e.deps.Notifier != nil {
				e.deps.Notifier.NotifyRunSuccess(r.Project, r.Duration)
			}
		case types.RunStatusFailed:
			failed++
			if e.deps.Notifier != nil {
				e.deps.Notifier.NotifyRunFailure(r.Project, outcome.Err)
			}
		default:
			skipped++
		}

		if e.deps.State != nil {
			if err := e.deps.State.RecordResult(r.Project, outcome); err != nil {
				log.Warn("Failed to record run result", logger.WithField("project", r.Project), logger.WithError(err))
			}
		}
	}
	if sn, ok := e.deps.Notifier.(SummaryNotifier); ok {
		sn.NotifySummary(succeeded, failed, skipped)
	}

	duration, _ := rfcontext.GetDuration(ctx)
	log.Info("Run finished",
		logger.WithField("succeeded", succeeded),
		logger.WithField("failed", failed),
		logger.WithField("skipped", skipped),
		logger.WithField("duration", duration.String()))
	return results, runErr
}

type heartbeater interface {
	StartHeartbeat(ctx context.Context, interval time.Duration)
	StopHeartbeat()
}

// ancestry returns the parent chain of desc, root first and desc last.
// Parents outside the workspace end the chain.
func (e *Engine) ancestry(desc *types.ProjectDescriptor) ([]*types.ProjectDescriptor, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	chain := []*types.ProjectDescriptor{desc}
	seen := map[string]bool{desc.Key(): true}
	for cur := desc; cur.Parent != nil; {
		key := cur.Parent.Key()
		if seen[key] {
			return nil, fmt.Errorf("project %s: parent chain forms a cycle at %s", desc.Key(), key)
		}
		parent, ok := e.projects[key]
		if !ok {
			e.logger.Debug("Parent project outside the workspace",
				logger.WithField("project", cur.Key()),
				logger.WithField("parent", key))
			break
		}
		seen[key] = true
		chain = append([]*types.ProjectDescriptor{parent}, chain...)
		cur = parent
	}
	return chain, nil
}

func (e *Engine) packagingBindings(packaging string) (*lifecycle.LifecycleBindings, error) {
	if packaging == "" {
		return nil, nil
	}
	loader := e.Loader()
	if loader == nil {
		return nil, &lifecycle.NoSuchLifecycleError{Packaging: packaging}
	}
	return loader.GetBindings(packaging)
}

// inheritCustom appends child bindings to the parent's, replacing parent
// bindings with the same execution
func inheritCustom(parent, child []*lifecycle.MojoBinding) []*lifecycle.MojoBinding {
	out := make([]*lifecycle.MojoBinding, 0, len(parent)+len(child))
	overridden := make(map[string]bool, len(child))
	for _, b := range child {
		overridden[lifecycle.MojoBindingKey(b, true)] = true
	}
	for _, b := range parent {
		if !overridden[lifecycle.MojoBindingKey(b, true)] {
			out = append(out, b)
		}
	}
	return append(out, child...)
}
