// Package script implements the built-in function that runs script files.
package script

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"mvdan.cc/sh/v3/shell"

	"github.com/smykla-skalski/launchkit/internal/exec"
	"github.com/smykla-skalski/launchkit/pkg/function"
)

// Name is the unique name of the plugin.
const Name = "Script"

const defaultMaxArgs = 32

func ptr(f float64) *float64 { return &f }

var descriptor = function.DescriptorSpec{
	UniqueName:  Name,
	DisplayName: "Script file",
	Description: "Run a script file with its interpreter",
	Author:      "launchkit",
	Version:     "1.1.0.0",
	Extensions: map[string]string{
		"Shell script":      ".sh",
		"Python script":     ".py",
		"PowerShell script": ".ps1",
		"Batch file":        ".bat",
		"Command script":    ".cmd",
	},
	Settings: []function.Setting{
		{
			Name:        "interpreter",
			Type:        function.SettingString,
			Default:     "",
			Description: "Command line used instead of the interpreter picked by extension",
		},
		{
			Name:        "working_dir",
			Type:        function.SettingString,
			Default:     "",
			Description: "Working directory; defaults to the directory of the script",
		},
		{
			Name:        "max_args",
			Type:        function.SettingInteger,
			Default:     defaultMaxArgs,
			Description: "Maximum number of arguments accepted from parameters",
			Minimum:     ptr(0),
			Maximum:     ptr(256),
		},
	},
}

var interpreters = map[string][]string{
	".sh":  {"sh"},
	".py":  {"python3"},
	".ps1": {"pwsh", "-NoProfile", "-File"},
	".bat": {"cmd", "/c"},
	".cmd": {"cmd", "/c"},
}

// Settings are the typed settings of the plugin.
type Settings struct {
	Interpreter string `setting:"interpreter"`
	WorkingDir  string `setting:"working_dir"`
	MaxArgs     int    `setting:"max_args"`
}

// Script runs a script with the interpreter matching its extension. The
// parameters of the call are split with shell quoting rules and passed as
// arguments.
type Script struct {
	function.Base

	launcher exec.Launcher
	getenv   func(string) string
}

// New creates a Script that starts processes through launcher.
func New(launcher exec.Launcher) *Script {
	return &Script{launcher: launcher, getenv: os.Getenv}
}

// Initialize implements function.Function.
func (s *Script) Initialize() bool {
	return s.Setup(descriptor)
}

// Execute implements function.Function.
func (s *Script) Execute(ctx function.Context) bool {
	if !s.Ready() {
		return false
	}

	fc, ok := function.AsFileContext(ctx)
	if !ok {
		return false
	}

	settings, err := s.settings(fc.Settings)
	if err != nil {
		s.Log("invalid settings: " + err.Error())

		return true
	}

	target, err := s.target(fc, settings)
	if err != nil {
		s.Log(err.Error())

		return true
	}

	if err := s.launcher.Launch(context.Background(), target); err != nil {
		s.Log("launch failed: " + err.Error())
	}

	return true
}

func (s *Script) settings(values map[string]any) (Settings, error) {
	resolved, err := s.Descriptor().Settings().Resolve(values)
	if err != nil {
		return Settings{}, err
	}

	var out Settings
	if err := function.DecodeSettings(resolved, &out); err != nil {
		return Settings{}, err
	}

	return out, nil
}

func (s *Script) target(fc *function.FileContext, settings Settings) (exec.Target, error) {
	args, err := shell.Fields(fc.Parameters, s.getenv)
	if err != nil {
		return exec.Target{}, &ParameterError{Parameters: fc.Parameters, Err: err}
	}

	if len(args) > settings.MaxArgs {
		return exec.Target{}, &ParameterError{
			Parameters: fc.Parameters,
			Reason:     strconv.Itoa(len(args)) + " arguments exceed the limit of " + strconv.Itoa(settings.MaxArgs),
		}
	}

	interpreter := interpreters[function.ExtensionOf(fc.FilePath)]

	if settings.Interpreter != "" {
		interpreter, err = shell.Fields(settings.Interpreter, s.getenv)
		if err != nil {
			return exec.Target{}, &ParameterError{Parameters: settings.Interpreter, Err: err}
		}
	}

	dir := settings.WorkingDir
	if dir == "" {
		abs, err := filepath.Abs(fc.FilePath)
		if err != nil {
			return exec.Target{}, err
		}

		dir = filepath.Dir(abs)
	}

	return exec.Target{
		Path:        fc.FilePath,
		Args:        args,
		Dir:         dir,
		Interpreter: interpreter,
	}, nil
}
