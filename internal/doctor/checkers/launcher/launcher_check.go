// Package launcher provides checkers for the platform opener.
package launcher

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/launchkit/internal/doctor"
	"github.com/smykla-skalski/launchkit/internal/exec"
)

const openerCheckName = "Opener available"

// OpenerChecker verifies that the command used to open files can be found.
type OpenerChecker struct {
	launcher *exec.OpenerLauncher
	tools    exec.ToolChecker
}

// NewOpenerChecker creates a new opener checker.
func NewOpenerChecker(launcher *exec.OpenerLauncher, tools exec.ToolChecker) *OpenerChecker {
	if tools == nil {
		tools = exec.NewToolChecker()
	}

	return &OpenerChecker{launcher: launcher, tools: tools}
}

// Name returns the name of the check
func (*OpenerChecker) Name() string {
	return openerCheckName
}

// Category returns the category of the check
func (*OpenerChecker) Category() doctor.Category {
	return doctor.CategoryLauncher
}

// Check resolves the opener command and looks it up in PATH.
func (c *OpenerChecker) Check(_ context.Context) doctor.CheckResult {
	argv, err := c.launcher.Opener()
	if err != nil {
		if errors.Is(err, exec.ErrNoOpener) {
			return doctor.FailWarning(openerCheckName, "No platform opener found").
				WithDetails(
					"Install xdg-utils (xdg-open) or glib (gio)",
					"Or set [launcher] opener in the config",
					"Executables can still be run directly",
				)
		}

		return doctor.FailError(openerCheckName, err.Error())
	}

	command := strings.Join(argv, " ")

	path, err := c.tools.Resolve(argv[0])
	if err != nil {
		return doctor.FailError(openerCheckName, "Opener not found in PATH").
			WithDetails(
				"Command: "+command,
				"Check [launcher] opener or LAUNCHKIT_LAUNCHER_OPENER",
			)
	}

	return doctor.Pass(openerCheckName, "Using "+command).WithDetails("Resolved: " + path)
}
