package service

import (
	"fmt"
	"sort"

	"github.com/dermesser/svcframe"
	"github.com/dermesser/svcframe/schema"

	"github.com/puzpuzpuz/xsync/v3"
)

// Models are the declared channels of one table, by direction and name.
type Models struct {
	In  map[string]schema.Model
	Out map[string]schema.Model
}

func (m Models) clone() Models {
	out := Models{In: make(map[string]schema.Model, len(m.In)), Out: make(map[string]schema.Model, len(m.Out))}
	for k, v := range m.In {
		out.In[k] = v
	}
	for k, v := range m.Out {
		out.Out[k] = v
	}
	return out
}

// Descriptor is everything a service declares. Every field is optional; a service without
// Main runs the event loop.
type Descriptor struct {
	ConfigModel      schema.Contract
	ConnectionModels Models
	StateModels      Models

	// Setup hooks may rewrite what was supplied, e.g. to fill in addresses from config.
	SetupConfig           func(config svcframe.Config) (svcframe.Config, error)
	SetupAddresses        func(addresses Addresses, config svcframe.Config) (Addresses, error)
	SetupConnectionModels func(models Models, config svcframe.Config) (Models, error)
	SetupStateModels      func(models Models, config svcframe.Config) (Models, error)

	// Init runs once all channels are set up, before the loop or Main.
	Init svcframe.HookFunc
	// OnShutdown runs first among the shutdown handlers.
	OnShutdown svcframe.HookFunc
	Main       svcframe.MainFunc
}

// MainMode reports whether the service runs Main instead of the event loop.
func (d *Descriptor) MainMode() bool {
	return d.Main != nil
}

// ValidateConfig checks config against the declared config model.
func (d *Descriptor) ValidateConfig(config svcframe.Config) error {
	if err := d.ConfigModel.Validate(config); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

var registry = xsync.NewMapOf[string, Descriptor]()

// Register adds a service to the table consulted by Lookup. Typically called from init().
func Register(name string, d Descriptor) error {
	if _, loaded := registry.LoadOrStore(name, d); loaded {
		return fmt.Errorf("%w: %s", ErrDuplicateService, name)
	}
	return nil
}

// MustRegister is Register for init functions.
func MustRegister(name string, d Descriptor) {
	if err := Register(name, d); err != nil {
		panic(err)
	}
}

func Lookup(name string) (Descriptor, bool) {
	return registry.Load(name)
}

// Registered returns the sorted names of all registered services.
func Registered() []string {
	var names []string
	registry.Range(func(name string, _ Descriptor) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}
