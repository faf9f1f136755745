package plugin

import (
	"maps"
	"runtime/debug"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/smykla-skalski/launchkit/pkg/config"
	"github.com/smykla-skalski/launchkit/pkg/function"
)

// Result is the outcome of one Execute call on an Instance.
type Result struct {
	// Completed is the plugin's own verdict. False means the plugin refused
	// the request (wrong context variant or not ready).
	Completed bool

	// Diagnostics are the messages the plugin sent during the call.
	Diagnostics []Diagnostic
}

// Instance is a loaded plugin as seen by the host. It serializes Execute
// calls, checks lifecycle state before reaching into plugin code, and turns
// plugin panics into a FatalError.
type Instance struct {
	id       uuid.UUID
	fn       function.Function
	cfg      *config.PluginInstanceConfig
	settings map[string]any
	router   *DiagnosticRouter

	mu      sync.Mutex
	faulted error
}

func newInstance(
	fn function.Function,
	cfg *config.PluginInstanceConfig,
	settings map[string]any,
	router *DiagnosticRouter,
) *Instance {
	return &Instance{
		id:       uuid.New(),
		fn:       fn,
		cfg:      cfg,
		settings: settings,
		router:   router,
	}
}

// ID returns the instance identifier used to attribute diagnostics.
func (i *Instance) ID() uuid.UUID { return i.id }

// Name returns the plugin's unique name.
func (i *Instance) Name() string { return i.fn.Descriptor().UniqueName() }

// Descriptor returns the plugin descriptor.
func (i *Instance) Descriptor() function.Descriptor { return i.fn.Descriptor() }

// Config returns the configuration the plugin was loaded with.
func (i *Instance) Config() *config.PluginInstanceConfig { return i.cfg }

// Function returns the wrapped plugin.
//
//nolint:ireturn // plugins are used through their interface
func (i *Instance) Function() function.Function { return i.fn }

// State returns the lifecycle state of the plugin.
func (i *Instance) State() function.State { return i.fn.State() }

// Active reports whether the plugin accepts invocations from the host.
func (i *Instance) Active() bool {
	return i.Faulted() == nil && i.fn.Active()
}

// SetActive toggles the host-controlled activation flag.
func (i *Instance) SetActive(active bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.fn.SetActive(active)
}

// Settings returns a copy of the resolved plugin settings.
func (i *Instance) Settings() map[string]any {
	return maps.Clone(i.settings)
}

// Faulted returns the FatalError that disabled the instance, if any.
func (i *Instance) Faulted() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.faulted
}

// Execute invokes the plugin with ctx and collects the messages it sent.
// At most one call per instance is in flight at any time.
func (i *Instance) Execute(ctx function.Context) (Result, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.faulted != nil {
		return Result{}, errors.Wrapf(ErrFaulted, "%s", i.Name())
	}

	switch i.fn.State() {
	case function.StateUninitialized:
		return Result{}, errors.Wrapf(ErrNotInitialized, "%s", i.cfg.Name)
	case function.StateDestroyed:
		return Result{}, errors.Wrapf(ErrDestroyed, "%s", i.Name())
	}

	var completed bool

	if err := i.guard("execute", func() { completed = i.fn.Execute(ctx) }); err != nil {
		i.faulted = err

		return Result{Diagnostics: i.drain()}, err
	}

	return Result{Completed: completed, Diagnostics: i.drain()}, nil
}

// Destroy destroys the plugin. Destroying twice is a no-op.
func (i *Instance) Destroy() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	var ok bool

	if err := i.guard("destroy", func() { ok = i.fn.Destroy() }); err != nil {
		i.faulted = err

		return err
	}

	i.drain()

	if !ok {
		return errors.Newf("plugin %s refused to be destroyed", i.Name())
	}

	return nil
}

func (i *Instance) drain() []Diagnostic {
	return i.router.Route(i.Name(), i.id, i.fn.Bus())
}

// guard runs fn and converts a panic into a FatalError.
func (i *Instance) guard(op string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &FatalError{
				Plugin:     i.Name(),
				InstanceID: i.id,
				Op:         op,
				Value:      r,
				Stack:      debug.Stack(),
			}
		}
	}()

	fn()

	return nil
}
