package plugin

import (
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/mattn/go-runewidth"

	"github.com/smykla-skalski/launchkit/internal/xdg"
)

// panicMessageWidth bounds panic values embedded in FatalError messages.
const panicMessageWidth = 200

var (
	// ErrPathTraversal is returned for plugin paths with a ".." segment.
	ErrPathTraversal = errors.New("path traversal detected")

	// ErrPathNotAllowed is returned for plugin files outside the allowed directories.
	ErrPathNotAllowed = errors.New("plugin path not in allowed directory")

	// ErrInvalidExtension is returned when a plugin file has the wrong extension.
	ErrInvalidExtension = errors.New("invalid plugin file extension")

	// ErrDangerousChars is returned for executable paths with shell metacharacters.
	ErrDangerousChars = errors.New("dangerous characters in path")
)

// shellMetachars are refused in executable plugin paths.
const shellMetachars = ";|&$`\"'<>()"

var sourcePathPattern = regexp.MustCompile(`(?:/[\w.-]+)+`)

// ValidatePath checks that path has no ".." segment and, once "~" and
// symlinks are resolved, lies inside one of allowedDirs. An empty allowedDirs
// only applies the traversal check.
func ValidatePath(path string, allowedDirs []string) error {
	if path == "" {
		return errors.New("plugin path is required")
	}

	if slices.Contains(strings.Split(filepath.ToSlash(path), "/"), "..") {
		return errors.Wrapf(ErrPathTraversal, "path contains traversal pattern: %s", path)
	}

	resolved, err := canonical(path)
	if err != nil {
		return err
	}

	if len(allowedDirs) == 0 {
		return nil
	}

	for _, dir := range allowedDirs {
		root, err := canonical(dir)
		if err != nil {
			continue
		}

		if within(root, resolved) {
			return nil
		}
	}

	return errors.Wrapf(ErrPathNotAllowed, "path %s not in allowed directories", path)
}

// canonical expands "~", makes p absolute and resolves symlinks. For a path
// that does not exist yet only the parent directory is resolved.
func canonical(p string) (string, error) {
	expanded, err := xdg.ExpandPath(p)
	if err != nil {
		return "", errors.Wrap(err, "failed to expand path")
	}

	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve absolute path")
	}

	if _, statErr := os.Lstat(abs); statErr == nil {
		resolved, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return "", errors.Wrap(err, "failed to evaluate symlinks")
		}

		return resolved, nil
	}

	if parent, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		return filepath.Join(parent, filepath.Base(abs)), nil
	}

	return abs, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ValidateExtension checks the extension of path against allowed, ignoring
// case. An empty allowed list accepts anything.
func ValidateExtension(path string, allowed []string) error {
	if len(allowed) == 0 {
		return nil
	}

	ext := filepath.Ext(path)
	if ext == "" {
		return errors.Wrap(ErrInvalidExtension, "file has no extension")
	}

	if slices.ContainsFunc(allowed, func(a string) bool { return strings.EqualFold(a, ext) }) {
		return nil
	}

	return errors.Wrapf(ErrInvalidExtension, "extension %q not in allowed list %v", ext, allowed)
}

// ValidateMetachars rejects executable paths containing shell metacharacters.
func ValidateMetachars(path string) error {
	if i := strings.IndexAny(path, shellMetachars); i >= 0 {
		return errors.Wrapf(ErrDangerousChars, "path contains forbidden character: %c", path[i])
	}

	return nil
}

// SanitizePanicMessage replaces source paths in msg with "[path]" and bounds
// its display width.
func SanitizePanicMessage(msg string) string {
	if msg == "" {
		return msg
	}

	return runewidth.Truncate(sourcePathPattern.ReplaceAllString(msg, "[path]"), panicMessageWidth, "...")
}
