package stage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ategus/bridginghub/config"
	"github.com/ategus/bridginghub/errors"
)

// Factory creates a stage instance for a named segment. Factories perform
// no I/O; everything that can fail against the outside world happens in
// Configure or in the stage operations.
type Factory func(segment string, deps Dependencies) (Stage, error)

// Registration holds the factory and metadata for one stage implementation.
// Implementations are addressed by (Location, Class), mirroring how
// configurations reference them via module_path and module_class_name.
type Registration struct {
	Class       string            // implementation name (e.g. "FileCache")
	Location    string            // import path (e.g. "github.com/ategus/bridginghub/storage/filecache")
	Type        config.ModuleType // pipeline capability the implementation provides
	Description string            // human-readable description
	Version     string            // implementation version
	Factory     Factory           // constructor
}

type factoryKey struct {
	location string
	class    string
}

// binding is one realized segment: the descriptor it was realized under and
// the memoized instance.
type binding struct {
	class    string
	location string
	stage    Stage
}

// Registry resolves segment names to stage instances. It memoizes: the
// first Register call for a segment constructs the instance, later calls
// return it. The registry is an explicit object owned by the orchestrator;
// there is no package-level instance.
type Registry struct {
	mu        sync.RWMutex
	deps      Dependencies
	factories map[factoryKey]Registration
	instances map[string]*binding
}

// NewRegistry creates an empty registry. The dependencies are handed to
// every factory invoked through Register.
func NewRegistry(deps Dependencies) *Registry {
	return &Registry{
		deps:      deps,
		factories: make(map[factoryKey]Registration),
		instances: make(map[string]*binding),
	}
}

// RegisterFactory registers a stage implementation. Registering the same
// (location, class) twice is a module-loader error.
func (r *Registry) RegisterFactory(reg Registration) error {
	if reg.Class == "" || reg.Location == "" {
		err := fmt.Errorf("%w: registration needs class and location", errors.ErrInvalidConfig)
		return errors.WrapModuleLoader(err, "Registry", "RegisterFactory", "validate registration")
	}
	if reg.Factory == nil {
		err := fmt.Errorf("%w: registration %s/%s has no factory", errors.ErrInvalidConfig, reg.Location, reg.Class)
		return errors.WrapModuleLoader(err, "Registry", "RegisterFactory", "validate registration")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := factoryKey{location: reg.Location, class: reg.Class}
	if _, exists := r.factories[key]; exists {
		err := fmt.Errorf("%w: %s/%s already registered", errors.ErrDuplicateModule, reg.Location, reg.Class)
		return errors.WrapModuleLoader(err, "Registry", "RegisterFactory", "duplicate factory check")
	}
	r.factories[key] = reg
	return nil
}

// Register resolves a segment to its stage instance. The first call
// constructs the instance via the registered factory and memoizes it;
// subsequent calls for the same segment return the cached instance.
// Re-registering a segment under a different implementation or location is
// a module-loader error, as is an unknown (implementation, location).
func (r *Registry) Register(segment, implementation, location string) (Stage, error) {
	if segment == "" {
		err := fmt.Errorf("%w: empty segment name", errors.ErrInvalidConfig)
		return nil, errors.WrapModuleLoader(err, "Registry", "Register", "validate segment")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if bound, exists := r.instances[segment]; exists {
		if bound.class != implementation || bound.location != location {
			err := fmt.Errorf("%w: segment %q is bound to %s/%s, requested %s/%s",
				errors.ErrDuplicateModule, segment, bound.location, bound.class, location, implementation)
			return nil, errors.WrapModuleLoader(err, "Registry", "Register", "rebind check")
		}
		return bound.stage, nil
	}

	reg, exists := r.factories[factoryKey{location: location, class: implementation}]
	if !exists {
		err := fmt.Errorf("%w: segment %q references %s/%s", errors.ErrNoSuchModule, segment, location, implementation)
		return nil, errors.WrapModuleLoader(err, "Registry", "Register", "factory lookup")
	}

	st, err := reg.Factory(segment, r.deps)
	if err != nil {
		return nil, errors.WrapModuleLoader(err, "Registry", "Register", fmt.Sprintf("construct segment %q", segment))
	}
	r.instances[segment] = &binding{class: implementation, location: location, stage: st}
	return st, nil
}

// Lookup returns the memoized instance for a segment, if any.
func (r *Registry) Lookup(segment string) (Stage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bound, exists := r.instances[segment]
	if !exists {
		return nil, false
	}
	return bound.stage, true
}

// Segments returns the realized segment names in sorted order.
func (r *Registry) Segments() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.instances))
	for name := range r.instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Classes returns the registered implementations as "location/class" keys
// in sorted order.
func (r *Registry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for key := range r.factories {
		names = append(names, key.location+"/"+key.class)
	}
	sort.Strings(names)
	return names
}

// Reset drops all memoized instances. Registered factories persist, so
// independent pipeline runs and tests start from a clean slate without
// re-registering implementations.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.instances = make(map[string]*binding)
}
