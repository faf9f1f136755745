// Package dispatcher runs user functions against loaded plugins.
package dispatcher

import (
	"context"
	"io/fs"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/launchkit/internal/plugin"
	"github.com/smykla-skalski/launchkit/pkg/function"
	"github.com/smykla-skalski/launchkit/pkg/logger"
)

const (
	// MinDisplayNameLength is the shortest accepted display name.
	MinDisplayNameLength = 5

	// MaxDisplayNameLength is the longest accepted display name.
	MaxDisplayNameLength = 25
)

var (
	// ErrInvalidDisplayName is returned when the trimmed display name is too
	// short or too long.
	ErrInvalidDisplayName = errors.New("invalid display name")

	// ErrUnknownPlugin is returned when no loaded plugin has the requested name.
	ErrUnknownPlugin = errors.New("unknown plugin")

	// ErrPluginInactive is returned when the plugin exists but does not accept
	// invocations.
	ErrPluginInactive = errors.New("plugin inactive")

	// ErrFileNotFound is returned when the target is missing or not a file.
	ErrFileNotFound = errors.New("file not found")

	// ErrIneligible is returned when the plugin does not support the file type.
	ErrIneligible = errors.New("file type not supported by plugin")

	// ErrNotCompleted is returned when the plugin refused the invocation.
	ErrNotCompleted = errors.New("plugin did not complete the invocation")
)

// Definition is a user function: a named binding of a plugin to a file.
type Definition struct {
	DisplayName string `json:"display_name"`
	Plugin      string `json:"plugin"`
	Path        string `json:"path"`
	Parameters  string `json:"parameters,omitempty"`
}

// trimmed returns def with surrounding whitespace removed from the display
// name and the path, the form both are checked and run in.
func (def Definition) trimmed() Definition {
	def.DisplayName = strings.TrimSpace(def.DisplayName)
	def.Path = strings.TrimSpace(def.Path)

	return def
}

// Outcome is the result of a dispatched definition.
type Outcome struct {
	Definition Definition

	// Plugin is the unique name of the plugin that ran.
	Plugin string

	// Completed is the plugin's verdict.
	Completed bool

	// Diagnostics are the messages the plugin sent during the call.
	Diagnostics []plugin.Diagnostic

	// Elapsed is the time spent inside the plugin.
	Elapsed time.Duration
}

// Resolver looks up loaded plugins by name.
type Resolver interface {
	Get(name string) (*plugin.Instance, bool)
}

// Dispatcher validates definitions and runs them on their plugin.
type Dispatcher struct {
	resolver Resolver
	logger   logger.Logger
	executor Executor
	force    bool
	stat     func(string) (fs.FileInfo, error)
	now      func() time.Time
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithExecutor sets the executor used by DispatchAll.
func WithExecutor(executor Executor) DispatcherOption {
	return func(d *Dispatcher) {
		if executor != nil {
			d.executor = executor
		}
	}
}

// WithForce skips definition validation. The plugin still applies its own
// checks.
func WithForce(force bool) DispatcherOption {
	return func(d *Dispatcher) {
		d.force = force
	}
}

// WithClock sets the time source used to measure Elapsed.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDispatcher creates a new Dispatcher with sequential execution.
func NewDispatcher(resolver Resolver, log logger.Logger, opts ...DispatcherOption) *Dispatcher {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	d := &Dispatcher{
		resolver: resolver,
		logger:   log,
		stat:     os.Stat,
		now:      time.Now,
	}

	d.executor = NewSequentialExecutor(log)

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Validate checks def against the loaded plugins and the filesystem. All
// problems are reported together.
func (d *Dispatcher) Validate(def Definition) error {
	var errs []error

	def = def.trimmed()

	name := def.DisplayName
	if n := utf8.RuneCountInString(name); n < MinDisplayNameLength || n > MaxDisplayNameLength {
		errs = append(errs, errors.Wrapf(ErrInvalidDisplayName,
			"%q must be %d to %d characters", name, MinDisplayNameLength, MaxDisplayNameLength))
	}

	inst, found := d.resolver.Get(def.Plugin)

	switch {
	case !found:
		errs = append(errs, errors.Wrapf(ErrUnknownPlugin, "%q", def.Plugin))
	case !inst.Active():
		errs = append(errs, errors.Wrapf(ErrPluginInactive, "%s", inst.Name()))
	}

	info, err := d.stat(def.Path)

	switch {
	case err != nil:
		errs = append(errs, errors.Wrapf(ErrFileNotFound, "%s", def.Path))
	case info.IsDir():
		errs = append(errs, errors.Wrapf(ErrFileNotFound, "%s is a directory", def.Path))
	case found && !function.Matches(inst.Descriptor(), def.Path):
		errs = append(errs, errors.Wrapf(ErrIneligible, "%s for %s", def.Path, inst.Name()))
	}

	return errors.Join(errs...)
}

// Dispatch validates def and runs it on its plugin. A plugin that refuses
// the invocation yields an Outcome with Completed false and ErrNotCompleted.
func (d *Dispatcher) Dispatch(ctx context.Context, def Definition) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "dispatch cancelled")
	}

	def = def.trimmed()

	if !d.force {
		if err := d.Validate(def); err != nil {
			return nil, err
		}
	}

	inst, ok := d.resolver.Get(def.Plugin)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownPlugin, "%q", def.Plugin)
	}

	fileCtx := &function.FileContext{
		FilePath:   def.Path,
		Parameters: def.Parameters,
		Settings:   inst.Settings(),
	}

	d.logger.Debug("dispatching",
		"function", def.DisplayName,
		"plugin", inst.Name(),
		"path", def.Path,
		"force", d.force,
	)

	start := d.now()
	result, err := inst.Execute(fileCtx)
	elapsed := d.now().Sub(start)

	outcome := &Outcome{
		Definition:  def,
		Plugin:      inst.Name(),
		Completed:   result.Completed,
		Diagnostics: result.Diagnostics,
		Elapsed:     elapsed,
	}

	if err != nil {
		d.logger.Error("plugin failed",
			"function", def.DisplayName,
			"plugin", inst.Name(),
			"error", err,
		)

		return outcome, err
	}

	d.logger.Info("dispatched",
		"function", def.DisplayName,
		"plugin", inst.Name(),
		"completed", result.Completed,
		"diagnostics", len(result.Diagnostics),
		"elapsed", elapsed,
	)

	if !result.Completed {
		return outcome, errors.Wrapf(ErrNotCompleted, "%s", inst.Name())
	}

	return outcome, nil
}

// DispatchAll runs defs with the configured executor. Results keep the
// order of defs.
func (d *Dispatcher) DispatchAll(ctx context.Context, defs []Definition) []Result {
	return d.executor.Execute(ctx, d, defs)
}
