package lifecycle

import (
	"fmt"
	"sort"
	"sync"

	"github.com/realmforge/realmforge/pkg/logger"
	"github.com/realmforge/realmforge/pkg/realm"
	"gopkg.in/yaml.v3"
)

// DefaultTemplatePath is the resource path of the bundled lifecycle template
const DefaultTemplatePath = "META-INF/realmforge/lifecycles.yaml"

// ResourceLocator finds a named resource. *realm.Realm satisfies it.
type ResourceLocator interface {
	GetResource(name string) (*realm.Resource, bool)
}

type templateFile struct {
	Packagings []templatePackaging `yaml:"packagings"`
}

type templatePackaging struct {
	Packaging  string                                  `yaml:"packaging"`
	Lifecycles map[string]map[string][]templateBinding `yaml:",inline"`
}

type templateBinding struct {
	Plugin        string    `yaml:"plugin"`
	Goal          string    `yaml:"goal"`
	ExecutionID   string    `yaml:"executionId"`
	Optional      bool      `yaml:"optional"`
	Configuration yaml.Node `yaml:"configuration"`
}

// BindingLoader reads packaging bindings from a YAML template found
// through a ResourceLocator. The template is read once.
type BindingLoader struct {
	locator ResourceLocator
	path    string
	log     logger.Logger

	mu       sync.Mutex
	template map[string]*LifecycleBindings
	order    []string
}

// NewBindingLoader creates a loader for the template at path. An empty
// path means DefaultTemplatePath.
func NewBindingLoader(locator ResourceLocator, path string, log logger.Logger) *BindingLoader {
	if path == "" {
		path = DefaultTemplatePath
	}
	return &BindingLoader{
		locator: locator,
		path:    path,
		log:     logger.OrNop(log).WithComponent("lifecycle-loader"),
	}
}

// Path returns the template resource path
func (l *BindingLoader) Path() string { return l.path }

// Packagings returns the packagings declared by the template in order
func (l *BindingLoader) Packagings() ([]string, error) {
	if err := l.load(); err != nil {
		return nil, err
	}
	return append([]string(nil), l.order...), nil
}

// GetBindings returns a fresh copy of the bindings for packaging
func (l *BindingLoader) GetBindings(packaging string) (*LifecycleBindings, error) {
	if err := l.load(); err != nil {
		return nil, err
	}
	lbs, ok := l.template[packaging]
	if !ok {
		return nil, &NoSuchLifecycleError{Packaging: packaging, Template: l.path}
	}
	return CloneBindings(lbs), nil
}

func (l *BindingLoader) load() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.template != nil {
		return nil
	}

	if l.locator == nil {
		return &LoaderError{Path: l.path, Err: fmt.Errorf("no resource locator")}
	}
	res, ok := l.locator.GetResource(l.path)
	if !ok {
		return &LoaderError{Path: l.path, Err: fmt.Errorf("resource not found")}
	}
	data, err := res.ReadAll()
	if err != nil {
		return &LoaderError{Path: res.Location, Err: err}
	}

	template, order, err := parseTemplate(data)
	if err != nil {
		return err
	}
	l.template = template
	l.order = order
	l.log.Debug("Loaded lifecycle template",
		logger.WithField("location", res.Location),
		logger.WithField("packagings", len(order)))
	return nil
}

// ParseTemplate parses a lifecycle template document
func ParseTemplate(data []byte) (map[string]*LifecycleBindings, error) {
	template, _, err := parseTemplate(data)
	return template, err
}

func parseTemplate(data []byte) (map[string]*LifecycleBindings, []string, error) {
	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, &SpecificationError{Reason: "malformed lifecycle template", Err: err}
	}

	template := make(map[string]*LifecycleBindings, len(file.Packagings))
	order := make([]string, 0, len(file.Packagings))
	for _, pkg := range file.Packagings {
		if pkg.Packaging == "" {
			return nil, nil, &SpecificationError{Reason: "packaging entry without a name"}
		}
		if _, dup := template[pkg.Packaging]; dup {
			return nil, nil, &SpecificationError{Reason: fmt.Sprintf("packaging %q declared twice", pkg.Packaging)}
		}
		lbs, err := buildPackaging(pkg)
		if err != nil {
			return nil, nil, err
		}
		template[pkg.Packaging] = lbs
		order = append(order, pkg.Packaging)
	}
	return template, order, nil
}

func buildPackaging(pkg templatePackaging) (*LifecycleBindings, error) {
	lbs := &LifecycleBindings{Packaging: pkg.Packaging}

	ids := make([]string, 0, len(pkg.Lifecycles))
	for id := range pkg.Lifecycles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		kind, ok := ParseKind(id)
		if !ok {
			return nil, &SpecificationError{Lifecycle: id, Reason: "unknown lifecycle in packaging " + pkg.Packaging}
		}
		lb := NewLifecycleBinding(kind)
		for _, phase := range lb.PhaseNames() {
			for _, tb := range pkg.Lifecycles[id][phase] {
				b, err := tb.toMojoBinding(pkg.Packaging)
				if err != nil {
					return nil, &SpecificationError{Lifecycle: id, Phase: phase, Plugin: tb.Plugin, Reason: err.Error()}
				}
				if err := AddMojoBinding(phase, b, lb); err != nil {
					return nil, &SpecificationError{Lifecycle: id, Phase: phase, Reason: "invalid binding", Err: err}
				}
			}
		}
		for phase := range pkg.Lifecycles[id] {
			if !lb.HasPhase(phase) {
				return nil, &SpecificationError{
					Lifecycle: id,
					Phase:     phase,
					Reason:    "unknown phase in packaging " + pkg.Packaging,
					Err:       &NoSuchPhaseError{Phase: phase, Lifecycle: id},
				}
			}
		}
		lbs.SetBinding(lb)
	}
	return lbs, nil
}

func (tb templateBinding) toMojoBinding(packaging string) (*MojoBinding, error) {
	groupID, artifactID, version, ok := ParsePluginCoordinate(tb.Plugin)
	if !ok {
		return nil, fmt.Errorf("invalid plugin coordinate %q", tb.Plugin)
	}
	if tb.Goal == "" {
		return nil, fmt.Errorf("binding for %s has no goal", tb.Plugin)
	}
	b := &MojoBinding{
		GroupID:           groupID,
		ArtifactID:        artifactID,
		Version:           version,
		Goal:              tb.Goal,
		ExecutionID:       tb.ExecutionID,
		Optional:          tb.Optional,
		Origin:            OriginLifecycleMapping,
		OriginDescription: "packaging: " + packaging,
	}
	if tb.Configuration.Kind != 0 {
		b.Configuration = ConfigurationFromYAML("configuration", &tb.Configuration)
	}
	return b, nil
}
