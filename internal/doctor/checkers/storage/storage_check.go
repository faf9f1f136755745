// Package storage provides checkers for launchkit's directories and crash dumps.
package storage

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/smykla-skalski/launchkit/internal/crashdump"
	"github.com/smykla-skalski/launchkit/internal/doctor"
	"github.com/smykla-skalski/launchkit/internal/xdg"
)

const (
	dirCheckName   = "Directories"
	crashCheckName = "Crash dumps"

	dirPerm = 0o700
)

// Dir is a directory launchkit expects to own.
type Dir struct {
	Name string
	Path string
}

// DefaultDirs returns the XDG directories plus pluginDir.
func DefaultDirs(pluginDir string) []Dir {
	return []Dir{
		{"config", xdg.ConfigDir()},
		{"data", xdg.DataDir()},
		{"state", xdg.StateDir()},
		{"plugins", pluginDir},
	}
}

// DirChecker verifies directories exist with correct permissions.
type DirChecker struct {
	dirs []Dir
}

// NewDirChecker creates a new directory checker.
func NewDirChecker(dirs ...Dir) *DirChecker {
	return &DirChecker{dirs: dirs}
}

// Name returns the name of the check.
func (*DirChecker) Name() string {
	return dirCheckName
}

// Category returns the category of the check.
func (*DirChecker) Category() doctor.Category {
	return doctor.CategoryStorage
}

// Check verifies directories exist and have 0700 permissions.
func (c *DirChecker) Check(_ context.Context) doctor.CheckResult {
	var (
		missing  []string
		badPerms []string
	)

	for _, d := range c.dirs {
		if d.Path == "" {
			continue
		}

		info, err := os.Stat(d.Path)
		if err != nil {
			if os.IsNotExist(err) {
				missing = append(missing, d.Name+": "+d.Path)

				continue
			}

			return doctor.FailError(dirCheckName,
				fmt.Sprintf("Failed to stat %s: %v", d.Path, err))
		}

		if !info.IsDir() {
			return doctor.FailError(dirCheckName, d.Path+" exists but is not a directory")
		}

		if perm := info.Mode().Perm(); perm != dirPerm {
			badPerms = append(badPerms,
				fmt.Sprintf("%s: %04o (expected %04o)", d.Path, perm, dirPerm))
		}
	}

	if len(missing) == 0 && len(badPerms) == 0 {
		return doctor.Pass(dirCheckName, "All directories present with secure permissions")
	}

	var details []string

	if len(missing) > 0 {
		details = append(details, "Missing directories:")
		details = append(details, missing...)
	}

	if len(badPerms) > 0 {
		details = append(details, "Permission issues:")
		details = append(details, badPerms...)
	}

	msg := "Some directories missing"
	if len(missing) == 0 {
		msg = "Directory permissions not secure"
	} else if len(badPerms) > 0 {
		msg = "Directory issues found"
	}

	return doctor.FailWarning(dirCheckName, msg).
		WithDetails(details...).
		WithFixID(doctor.FixCreateDirs)
}

// Paths returns the checked directory paths.
func (c *DirChecker) Paths() []string {
	paths := make([]string, 0, len(c.dirs))
	for _, d := range c.dirs {
		if d.Path != "" {
			paths = append(paths, d.Path)
		}
	}

	return paths
}

// CrashDumpChecker reports recorded crash dumps.
type CrashDumpChecker struct {
	storage  crashdump.Storage
	maxDumps int
	maxAge   time.Duration
	now      func() time.Time
}

// NewCrashDumpChecker creates a new crash dump checker. Dumps beyond maxDumps
// or older than maxAge are reported as prunable.
func NewCrashDumpChecker(storage crashdump.Storage, maxDumps int, maxAge time.Duration) *CrashDumpChecker {
	return &CrashDumpChecker{
		storage:  storage,
		maxDumps: maxDumps,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// Name returns the name of the check.
func (*CrashDumpChecker) Name() string {
	return crashCheckName
}

// Category returns the category of the check.
func (*CrashDumpChecker) Category() doctor.Category {
	return doctor.CategoryStorage
}

// Check lists crash dumps. Any dump is a warning; stale dumps add a fix.
func (c *CrashDumpChecker) Check(_ context.Context) doctor.CheckResult {
	if !c.storage.Exists() {
		return doctor.Pass(crashCheckName, "No crash dumps")
	}

	dumps, err := c.storage.List()
	if err != nil {
		return doctor.FailError(crashCheckName, fmt.Sprintf("Failed to list crash dumps: %v", err))
	}

	if len(dumps) == 0 {
		return doctor.Pass(crashCheckName, "No crash dumps")
	}

	latest := dumps[0]

	details := []string{
		fmt.Sprintf("Latest: %s (%s)", latest.ID, latest.Timestamp.Format(time.RFC3339)),
		"Panic: " + latest.PanicValue,
	}

	if latest.Plugin != "" {
		details = append(details, "Plugin: "+latest.Plugin)
	}

	details = append(details, "Inspect with: launchkit crash view "+latest.ID)

	result := doctor.FailWarning(crashCheckName, fmt.Sprintf("%d crash dump(s) recorded", len(dumps))).
		WithDetails(details...)

	if stale := c.stale(dumps); stale > 0 {
		result = result.
			WithDetails(fmt.Sprintf("%d dump(s) exceed retention", stale)).
			WithFixID(doctor.FixPruneCrashDumps)
	}

	return result
}

// stale counts the dumps the prune fix would remove.
func (c *CrashDumpChecker) stale(dumps []crashdump.DumpSummary) int {
	return len(crashdump.Expired(dumps, c.maxDumps, c.maxAge, c.now()))
}
