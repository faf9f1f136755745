package plugin

import (
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/smykla-skalski/launchkit/internal/exec"
	"github.com/smykla-skalski/launchkit/internal/functions"
	"github.com/smykla-skalski/launchkit/pkg/config"
	"github.com/smykla-skalski/launchkit/pkg/function"
	"github.com/smykla-skalski/launchkit/pkg/logger"
)

const (
	// defaultRegistryTimeout is the default timeout for plugin processes.
	defaultRegistryTimeout = 10 * time.Second
)

// Registry loads plugins, initializes them and hands them out by name.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	loaders   map[config.PluginType]Loader
	instances map[string]*Instance
	logger    logger.Logger
	router    *DiagnosticRouter

	deps        functions.Dependencies
	runner      exec.CommandRunner
	allowedDirs []string
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLoader replaces the loader for a plugin type.
func WithLoader(t config.PluginType, l Loader) RegistryOption {
	return func(r *Registry) {
		r.loaders[t] = l
	}
}

// WithDependencies sets the services built-in and Lua plugins launch through.
func WithDependencies(deps functions.Dependencies) RegistryOption {
	return func(r *Registry) {
		r.deps = deps
	}
}

// WithCommandRunner sets the runner used by exec plugins.
func WithCommandRunner(runner exec.CommandRunner) RegistryOption {
	return func(r *Registry) {
		r.runner = runner
	}
}

// WithAllowedDirs restricts Go, exec and Lua plugin paths to dirs.
func WithAllowedDirs(dirs ...string) RegistryOption {
	return func(r *Registry) {
		r.allowedDirs = dirs
	}
}

// WithRouter sets the router receiving plugin diagnostics.
func WithRouter(router *DiagnosticRouter) RegistryOption {
	return func(r *Registry) {
		r.router = router
	}
}

// NewRegistry creates a new plugin registry.
func NewRegistry(log logger.Logger, opts ...RegistryOption) *Registry {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	r := &Registry{
		loaders:   make(map[config.PluginType]Loader),
		instances: make(map[string]*Instance),
		logger:    log,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.deps.Launcher == nil {
		r.deps.Launcher = exec.NewOpenerLauncher()
	}

	if r.deps.DirectLauncher == nil {
		r.deps.DirectLauncher = exec.NewDirectLauncher()
	}

	if r.runner == nil {
		r.runner = exec.NewCommandRunner(defaultRegistryTimeout)
	}

	if r.router == nil {
		r.router = NewDiagnosticRouter(log)
	}

	defaults := map[config.PluginType]Loader{
		config.PluginTypeBuiltin: NewBuiltinLoader(r.deps),
		config.PluginTypeGo:      NewGoLoader(r.allowedDirs),
		config.PluginTypeExec:    NewExecLoader(r.runner, r.allowedDirs),
		config.PluginTypeLua:     NewLuaLoader(r.deps.Launcher, r.allowedDirs),
	}

	for t, l := range defaults {
		if _, ok := r.loaders[t]; !ok {
			r.loaders[t] = l
		}
	}

	return r
}

// LoadPlugins loads the built-in plugins, the configured plugins and the
// plugins discovered in dir. A plugin that fails to load is logged and
// skipped; all failures are returned joined once every plugin was tried.
func (r *Registry) LoadPlugins(cfg *config.PluginConfig, dir string) error {
	var (
		errs       []error
		configured = make(map[string]bool)
	)

	load := func(instCfg *config.PluginInstanceConfig) {
		if !instCfg.IsInstanceEnabled() {
			r.logger.Debug("skipping disabled plugin", "name", instCfg.Name)

			return
		}

		if _, err := r.LoadPlugin(instCfg); err != nil {
			r.logger.Error("failed to load plugin",
				"name", instCfg.Name,
				"type", string(instCfg.Type),
				"error", err,
			)

			errs = append(errs, errors.Wrapf(err, "plugin %s", instCfg.Name))
		}
	}

	if cfg != nil {
		for _, instCfg := range cfg.Plugins {
			if instCfg.Type == config.PluginTypeBuiltin {
				configured[strings.ToLower(instCfg.Name)] = true
			}
		}
	}

	if cfg.IsBuiltinsEnabled() {
		for _, name := range functions.Names() {
			if !configured[name] {
				load(&config.PluginInstanceConfig{Name: name, Type: config.PluginTypeBuiltin})
			}
		}
	}

	if cfg != nil {
		for _, instCfg := range cfg.Plugins {
			load(applyDefaults(instCfg, cfg))
		}
	}

	if cfg.IsDiscoveryEnabled() {
		discovered, err := Discover(dir)
		if err != nil {
			r.logger.Error("plugin discovery incomplete", "dir", dir, "error", err)
			errs = append(errs, err)
		}

		for _, instCfg := range discovered {
			load(applyDefaults(instCfg, cfg))
		}
	}

	return errors.Join(errs...)
}

func applyDefaults(instCfg *config.PluginInstanceConfig, cfg *config.PluginConfig) *config.PluginInstanceConfig {
	if instCfg.Timeout == 0 && cfg != nil && cfg.DefaultTimeout != 0 {
		clone := *instCfg
		clone.Timeout = cfg.DefaultTimeout

		return &clone
	}

	return instCfg
}

// LoadPlugin loads, initializes and registers a single plugin. On any failure
// after construction the plugin is destroyed again.
func (r *Registry) LoadPlugin(cfg *config.PluginInstanceConfig) (*Instance, error) {
	loader, ok := r.loaders[cfg.Type]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedType, "%q", cfg.Type)
	}

	fn, err := loader.Load(cfg)
	if err != nil {
		return nil, err
	}

	if err := initialize(fn, cfg.Name); err != nil {
		r.logger.Error("plugin unusable", "name", cfg.Name, "error", err)
		destroyQuietly(fn)

		return nil, err
	}

	settings, err := r.validate(fn, cfg)
	if err != nil {
		destroyQuietly(fn)

		return nil, err
	}

	inst := newInstance(fn, cfg, settings, r.router)
	inst.SetActive(cfg.IsActive())

	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(inst.Name())
	if existing, dup := r.instances[key]; dup {
		destroyQuietly(fn)

		return nil, errors.Wrapf(ErrDuplicateName, "%s already loaded from %s", inst.Name(), describe(existing.Config()))
	}

	r.instances[key] = inst

	r.logger.Info("loaded plugin",
		"name", inst.Name(),
		"type", string(cfg.Type),
		"version", inst.Descriptor().Version().String(),
		"instance", inst.ID().String(),
	)

	return inst, nil
}

func (*Registry) validate(fn function.Function, cfg *config.PluginInstanceConfig) (map[string]any, error) {
	d := fn.Descriptor()

	if cfg.Requires != "" {
		ok, err := d.Version().Satisfies(cfg.Requires)
		if err != nil {
			return nil, errors.Wrapf(err, "plugin %s", d.UniqueName())
		}

		if !ok {
			return nil, errors.Wrapf(ErrVersionMismatch, "%s %s does not satisfy %q", d.UniqueName(), d.Version(), cfg.Requires)
		}
	}

	settings, err := d.Settings().Resolve(cfg.Settings)
	if err != nil {
		return nil, errors.Wrapf(err, "plugin %s settings", d.UniqueName())
	}

	return settings, nil
}

// initialize calls Initialize, turning a false result or a panic into an error.
func initialize(fn function.Function, name string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &FatalError{Plugin: name, Op: "initialize", Value: rec, Stack: debug.Stack()}
		}
	}()

	if !fn.Initialize() {
		return errors.Wrapf(ErrInitializeFailed, "%s", name)
	}

	if fn.Descriptor().IsZero() {
		return errors.Wrapf(ErrInitializeFailed, "%s: no descriptor", name)
	}

	return nil
}

func destroyQuietly(fn function.Function) {
	defer func() { _ = recover() }()

	fn.Destroy()
}

func describe(cfg *config.PluginInstanceConfig) string {
	if cfg.Path != "" {
		return cfg.Path
	}

	return string(cfg.Type) + ":" + cfg.Name
}

// Get returns the plugin with the given unique name, falling back to the
// configured instance name. Names compare case-insensitively.
func (r *Registry) Get(name string) (*Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := strings.ToLower(strings.TrimSpace(name))
	if inst, ok := r.instances[key]; ok {
		return inst, true
	}

	for _, inst := range r.instances {
		if strings.EqualFold(inst.Config().Name, key) {
			return inst, true
		}
	}

	return nil, false
}

// List returns all loaded plugins ordered by unique name.
func (r *Registry) List() []*Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		out = append(out, inst)
	}

	slices.SortFunc(out, func(a, b *Instance) int {
		return strings.Compare(strings.ToLower(a.Name()), strings.ToLower(b.Name()))
	})

	return out
}

// Eligible returns the active plugins whose descriptor matches path.
func (r *Registry) Eligible(path string) []*Instance {
	var out []*Instance

	for _, inst := range r.List() {
		if inst.Active() && function.Matches(inst.Descriptor(), path) {
			out = append(out, inst)
		}
	}

	return out
}

// Unload destroys the plugin and removes it from the registry.
func (r *Registry) Unload(name string) error {
	inst, ok := r.Get(name)
	if !ok {
		return errors.Wrapf(ErrPluginNotFound, "%q", name)
	}

	r.mu.Lock()
	delete(r.instances, strings.ToLower(inst.Name()))
	r.mu.Unlock()

	return inst.Destroy()
}

// Close destroys all plugins concurrently and releases loader resources.
func (r *Registry) Close() error {
	r.mu.Lock()
	instances := r.instances
	r.instances = make(map[string]*Instance)
	r.mu.Unlock()

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)

	for _, inst := range instances {
		g.Go(func() error {
			if err := inst.Destroy(); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}

			return nil
		})
	}

	_ = g.Wait()

	for _, loader := range r.loaders {
		if err := loader.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
