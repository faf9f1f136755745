// Package fixers provides auto-fix implementations for health check issues.
// Interactive confirmation happens in the doctor runner before Fix is called.
package fixers

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/launchkit/internal/doctor"
	"github.com/smykla-skalski/launchkit/internal/xdg"
	"github.com/smykla-skalski/launchkit/pkg/logger"
)

// DirFixer creates missing directories and tightens their permissions.
type DirFixer struct {
	dirs []string
	log  logger.Logger
}

// NewDirFixer creates a new DirFixer for dirs.
func NewDirFixer(log logger.Logger, dirs ...string) *DirFixer {
	return &DirFixer{dirs: dirs, log: log}
}

// ID returns the fixer identifier.
func (*DirFixer) ID() string {
	return doctor.FixCreateDirs
}

// Description returns a human-readable description.
func (*DirFixer) Description() string {
	return "Create missing directories with 0700 permissions"
}

// Fix creates every directory.
func (f *DirFixer) Fix(_ context.Context, _ bool) error {
	for _, dir := range f.dirs {
		if err := xdg.EnsureDir(dir); err != nil {
			return errors.Wrapf(err, "creating %s", dir)
		}

		f.log.Debug("directory ensured", "path", dir)
	}

	return nil
}
