package exec

//go:generate mockgen -source=tool.go -destination=tool_mock.go -package=exec

import (
	"os/exec"

	"github.com/cockroachdb/errors"
)

// ErrToolNotFound is returned when a command cannot be found in PATH.
var ErrToolNotFound = errors.New("tool not found in PATH")

// ToolChecker looks up openers and interpreters in PATH.
type ToolChecker interface {
	// IsAvailable reports whether tool resolves in PATH.
	IsAvailable(tool string) bool

	// Resolve returns the absolute path of tool.
	Resolve(tool string) (string, error)

	// FindTool returns the first of alternatives found in PATH, or "".
	FindTool(alternatives ...string) string
}

// PathToolChecker implements ToolChecker with exec.LookPath.
type PathToolChecker struct {
	lookPath func(string) (string, error)
}

// NewToolChecker creates a PathToolChecker.
func NewToolChecker() *PathToolChecker {
	return &PathToolChecker{lookPath: exec.LookPath}
}

// IsAvailable implements ToolChecker.
func (t *PathToolChecker) IsAvailable(tool string) bool {
	_, err := t.Resolve(tool)

	return err == nil
}

// Resolve implements ToolChecker.
func (t *PathToolChecker) Resolve(tool string) (string, error) {
	if tool == "" {
		return "", errors.Wrap(ErrToolNotFound, "empty command")
	}

	path, err := t.lookPath(tool)
	if err != nil {
		return "", errors.Wrapf(ErrToolNotFound, "%s: %v", tool, err)
	}

	return path, nil
}

// FindTool implements ToolChecker.
func (t *PathToolChecker) FindTool(alternatives ...string) string {
	for _, tool := range alternatives {
		if t.IsAvailable(tool) {
			return tool
		}
	}

	return ""
}
