// Package shortcut implements the built-in function that opens shortcut files.
package shortcut

import (
	"context"
	"path/filepath"

	"github.com/smykla-skalski/launchkit/internal/exec"
	"github.com/smykla-skalski/launchkit/pkg/function"
)

// Name is the unique name of the plugin.
const Name = "Shortcut"

var descriptor = function.DescriptorSpec{
	UniqueName:  Name,
	DisplayName: "Windows shortcut",
	Description: "Open a windows shortcut",
	Author:      "Simon Aberle",
	Version:     "1.0.0.0",
	Extensions:  map[string]string{"Linkfile": ".lnk"},
}

// Shortcut hands .lnk files to the platform opener. The opener runs with the
// shortcut's directory as its working directory.
type Shortcut struct {
	function.Base

	launcher exec.Launcher
}

// New creates a Shortcut that opens files through launcher.
func New(launcher exec.Launcher) *Shortcut {
	return &Shortcut{launcher: launcher}
}

// Initialize implements function.Function.
func (s *Shortcut) Initialize() bool {
	return s.Setup(descriptor)
}

// Execute implements function.Function.
func (s *Shortcut) Execute(ctx function.Context) bool {
	if !s.Ready() {
		return false
	}

	fc, ok := function.AsFileContext(ctx)
	if !ok {
		return false
	}

	abs, err := filepath.Abs(fc.FilePath)
	if err != nil {
		s.Log("cannot resolve " + fc.FilePath + ": " + err.Error())

		return true
	}

	target := exec.Target{
		Path: fc.FilePath,
		Dir:  filepath.Dir(abs),
	}

	if err := s.launcher.Launch(context.Background(), target); err != nil {
		s.Log("launch failed: " + err.Error())
	}

	return true
}
