// Package xdg locates the files launchkit keeps in the user's home following
// the XDG base directory layout. Project-local paths (.launchkit/...) belong
// to internal/config.
package xdg

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	appName = "launchkit"

	// LogFileEnv overrides LogFile.
	LogFileEnv = "LAUNCHKIT_LOG_FILE"

	dirMode os.FileMode = 0o700
)

// kind is one of the four XDG base directories.
type kind int

const (
	configKind kind = iota
	dataKind
	stateKind
	cacheKind
)

var kinds = [...]struct {
	env      string
	fallback []string
}{
	configKind: {"XDG_CONFIG_HOME", []string{".config"}},
	dataKind:   {"XDG_DATA_HOME", []string{".local", "share"}},
	stateKind:  {"XDG_STATE_HOME", []string{".local", "state"}},
	cacheKind:  {"XDG_CACHE_HOME", []string{".cache"}},
}

func userHome() (string, error) {
	return os.UserHomeDir()
}

// under returns the default location of k below home.
func (k kind) under(home string) string {
	return filepath.Join(append([]string{home}, kinds[k].fallback...)...)
}

// resolve honors the environment variable of k. Relative values are invalid
// per the XDG spec and ignored.
func (k kind) resolve() string {
	if v := os.Getenv(kinds[k].env); v != "" && filepath.IsAbs(v) {
		return v
	}

	home, err := userHome()
	if err != nil {
		home = "~"
	}

	return k.under(home)
}

// ConfigHome returns $XDG_CONFIG_HOME or ~/.config.
func ConfigHome() string { return configKind.resolve() }

// DataHome returns $XDG_DATA_HOME or ~/.local/share.
func DataHome() string { return dataKind.resolve() }

// StateHome returns $XDG_STATE_HOME or ~/.local/state.
func StateHome() string { return stateKind.resolve() }

// CacheHome returns $XDG_CACHE_HOME or ~/.cache.
func CacheHome() string { return cacheKind.resolve() }

func ConfigDir() string { return filepath.Join(ConfigHome(), appName) }
func DataDir() string   { return filepath.Join(DataHome(), appName) }
func StateDir() string  { return filepath.Join(StateHome(), appName) }

// GlobalConfigFile is config.toml in ConfigDir.
func GlobalConfigFile() string { return filepath.Join(ConfigDir(), "config.toml") }

// PluginDir holds plugin files and function manifests.
func PluginDir() string { return filepath.Join(DataDir(), "plugins") }

// CrashDumpDir holds one JSON file per plugin panic.
func CrashDumpDir() string { return filepath.Join(StateDir(), "crash_dumps") }

// LogFile returns $LAUNCHKIT_LOG_FILE or launchkit.log in StateDir.
func LogFile() string {
	if v := os.Getenv(LogFileEnv); v != "" {
		return v
	}

	return filepath.Join(StateDir(), appName+".log")
}

// ExpandPath replaces a leading "~" or "~/" with the home directory. Other
// paths are returned unchanged; "~user" forms are an error.
func ExpandPath(path string) (string, error) {
	rest, ok := strings.CutPrefix(path, "~")
	if !ok {
		return path, nil
	}

	if rest != "" && !strings.HasPrefix(rest, "/") {
		return "", errors.Newf("paths starting with ~ must be either ~ or ~/subdir, got %q", path)
	}

	home, err := userHome()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}

	return filepath.Join(home, rest), nil
}

// ExpandPathSilent is ExpandPath returning path itself on error.
func ExpandPathSilent(path string) string {
	if expanded, err := ExpandPath(path); err == nil {
		return expanded
	}

	return path
}

// EnsureDir creates path with mode 0700, tightening the mode of an existing
// directory.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, dirMode); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(err, "failed to stat directory %s", path)
	}

	if info.Mode().Perm() == dirMode {
		return nil
	}

	return errors.Wrapf(os.Chmod(path, dirMode), "failed to set permissions on %s", path)
}
