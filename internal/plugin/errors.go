package plugin

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

var (
	// ErrUnsupportedType is returned when no loader handles a plugin type.
	ErrUnsupportedType = errors.New("unsupported plugin type")

	// ErrPathRequired is returned when a path-based plugin has no path.
	ErrPathRequired = errors.New("path is required")

	// ErrInitializeFailed is returned when a plugin reports a failed Initialize.
	ErrInitializeFailed = errors.New("plugin unusable: initialize failed")

	// ErrDuplicateName is returned when a second plugin claims a loaded unique name.
	ErrDuplicateName = errors.New("duplicate plugin name")

	// ErrVersionMismatch is returned when a plugin version violates its requires constraint.
	ErrVersionMismatch = errors.New("plugin version does not satisfy constraint")

	// ErrPluginNotFound is returned when no loaded plugin has the requested name.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrNotInitialized is returned when executing a plugin that was never initialized.
	ErrNotInitialized = errors.New("plugin not initialized")

	// ErrDestroyed is returned when executing a destroyed plugin.
	ErrDestroyed = errors.New("plugin destroyed")

	// ErrFaulted is returned when executing a plugin that previously panicked.
	ErrFaulted = errors.New("plugin faulted")
)

// FatalError reports a panic raised by plugin code. The instance that raised
// it is marked faulted and refuses further calls.
type FatalError struct {
	Plugin     string
	InstanceID uuid.UUID
	Op         string
	Value      any
	Stack      []byte
}

func (e *FatalError) Error() string {
	return fmt.Sprintf(
		"plugin %s (%s) panicked during %s: %s",
		e.Plugin,
		e.InstanceID,
		e.Op,
		SanitizePanicMessage(fmt.Sprint(e.Value)),
	)
}

// Unwrap returns the panic value when it is an error.
func (e *FatalError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}

	return nil
}

// LoadFailures splits the error of LoadPlugins into one error per failed
// plugin. Wrappers around the joined error are looked through.
func LoadFailures(err error) []error {
	if err == nil {
		return nil
	}

	for e := err; e != nil; e = errors.UnwrapOnce(e) {
		joined, ok := e.(interface{ Unwrap() []error }) //nolint:errorlint // looking for the join itself
		if !ok {
			continue
		}

		var leaves []error
		for _, inner := range joined.Unwrap() {
			leaves = append(leaves, LoadFailures(inner)...)
		}

		return leaves
	}

	return []error{err}
}
