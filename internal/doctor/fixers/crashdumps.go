package fixers

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/launchkit/internal/crashdump"
	"github.com/smykla-skalski/launchkit/internal/doctor"
	"github.com/smykla-skalski/launchkit/pkg/logger"
)

// CrashDumpFixer prunes crash dumps beyond the retention limits.
type CrashDumpFixer struct {
	storage  crashdump.Storage
	maxDumps int
	maxAge   time.Duration
	log      logger.Logger
}

// NewCrashDumpFixer creates a new CrashDumpFixer.
func NewCrashDumpFixer(
	storage crashdump.Storage,
	maxDumps int,
	maxAge time.Duration,
	log logger.Logger,
) *CrashDumpFixer {
	return &CrashDumpFixer{storage: storage, maxDumps: maxDumps, maxAge: maxAge, log: log}
}

// ID returns the fixer identifier.
func (*CrashDumpFixer) ID() string {
	return doctor.FixPruneCrashDumps
}

// Description returns a human-readable description.
func (*CrashDumpFixer) Description() string {
	return "Remove crash dumps beyond the retention limits"
}

// Fix prunes the dump directory.
func (f *CrashDumpFixer) Fix(_ context.Context, _ bool) error {
	removed, err := f.storage.Prune(f.maxDumps, f.maxAge)
	if err != nil {
		return errors.Wrap(err, "failed to prune crash dumps")
	}

	f.log.Info("crash dumps pruned", "removed", removed)

	return nil
}
