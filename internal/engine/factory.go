package engine

import (
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/realmforge/realmforge/internal/state"
	"github.com/realmforge/realmforge/pkg/lifecycle"
	"github.com/realmforge/realmforge/pkg/logger"
	"github.com/realmforge/realmforge/pkg/notifier"
	"github.com/realmforge/realmforge/pkg/plan"
	"github.com/realmforge/realmforge/pkg/realm"
	"github.com/realmforge/realmforge/pkg/types"
)

// Dependencies are the collaborators of an Engine
type Dependencies struct {
	// FS is rooted at the project root. Project descriptors and run state
	// are read and written through it.
	FS       billy.Filesystem
	Provider realm.ContentProvider
	World    *realm.World
	Registry *lifecycle.StaticRegistry
	Builder  *plan.Builder
	// Locator serves the lifecycle template. When nil the engine uses the
	// realm named in the lifecycle configuration.
	Locator  lifecycle.ResourceLocator
	Notifier notifier.Notifier
	State    StateStore
}

// DependencyFactory creates default implementations of dependencies.
// This follows the dependency injection pattern and removes hidden
// concrete fallbacks from constructors.
type DependencyFactory struct {
	projectRoot string
	logger      logger.Logger
	config      *types.RealmforgeConfig
}

// NewDependencyFactory creates a new dependency factory
func NewDependencyFactory(projectRoot string, log logger.Logger, config *types.RealmforgeConfig) *DependencyFactory {
	return &DependencyFactory{
		projectRoot: projectRoot,
		logger:      logger.OrNop(log),
		config:      config,
	}
}

// CreateDefaults creates all default dependencies
func (f *DependencyFactory) CreateDefaults() Dependencies {
	return f.create(Dependencies{})
}

// CreateWithOverrides creates dependencies with specific overrides.
// Non-nil overrides replace defaults, and defaults that depend on an
// overridden value are built from the override.
func (f *DependencyFactory) CreateWithOverrides(overrides Dependencies) Dependencies {
	return f.create(overrides)
}

func (f *DependencyFactory) create(deps Dependencies) Dependencies {
	if deps.FS == nil {
		deps.FS = osfs.New(f.projectRoot)
	}
	if deps.Provider == nil {
		deps.Provider = realm.NewOSSearchPathProvider()
	}
	if deps.World == nil {
		deps.World = f.createWorld(deps.Provider)
	}
	if deps.Registry == nil {
		deps.Registry = lifecycle.NewStaticRegistry(f.config.Plugins)
	}
	if deps.Builder == nil {
		deps.Builder = plan.NewBuilder(deps.Registry, f.logger)
	}
	if deps.Notifier == nil {
		deps.Notifier = f.createNotifier()
	}
	if deps.State == nil {
		deps.State = state.NewManager(deps.FS, f.logger)
	}
	return deps
}

// Individual factory methods for each dependency

func (f *DependencyFactory) createWorld(provider realm.ContentProvider) *realm.World {
	return realm.NewWorld(
		realm.WithContentProvider(provider),
		realm.WithLogger(f.logger),
	)
}

func (f *DependencyFactory) createNotifier() notifier.Notifier {
	cfg := notifier.Config{}
	if n := f.config.Notifications; n != nil {
		cfg.Enabled = n.Enabled != nil && *n.Enabled
		cfg.SuccessSound = n.SuccessSound
		cfg.FailureSound = n.FailureSound
	}
	return notifier.New(cfg, f.logger)
}
