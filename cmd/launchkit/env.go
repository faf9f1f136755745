package main

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	internalcolor "github.com/smykla-skalski/launchkit/internal/color"
	internalconfig "github.com/smykla-skalski/launchkit/internal/config"
	"github.com/smykla-skalski/launchkit/internal/crashdump"
	"github.com/smykla-skalski/launchkit/internal/exec"
	"github.com/smykla-skalski/launchkit/internal/functions"
	"github.com/smykla-skalski/launchkit/internal/plugin"
	"github.com/smykla-skalski/launchkit/internal/xdg"
	"github.com/smykla-skalski/launchkit/pkg/config"
	"github.com/smykla-skalski/launchkit/pkg/logger"
)

// environment holds what most commands need: the merged configuration, the
// log file and the crash recorder.
type environment struct {
	loader *internalconfig.KoanfLoader
	cfg    *config.Config
	log    logger.Logger
	closer func() error
}

// setupEnvironment loads the configuration, opens the log file and arms the
// crash recorder for command.
func setupEnvironment(command string) (*environment, error) {
	return newEnvironment(command, false)
}

// setupLenientEnvironment is setupEnvironment for commands that diagnose
// broken setups: an unreadable or invalid configuration falls back to the
// defaults.
func setupLenientEnvironment(command string) (*environment, error) {
	return newEnvironment(command, true)
}

func newEnvironment(command string, lenient bool) (*environment, error) {
	loader, err := internalconfig.NewKoanfLoader()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create config loader")
	}

	var (
		cfg     *config.Config
		loadErr error
	)

	if lenient {
		cfg, loadErr = loader.LoadWithoutValidation(buildFlagsMap())
		if loadErr != nil {
			cfg = internalconfig.DefaultConfig()
		}
	} else {
		cfg, err = loader.Load(buildFlagsMap())
		if err != nil {
			return nil, errors.Wrap(err, "failed to load configuration")
		}
	}

	log, closer, err := openLogger(cfg.GetGlobal())
	if err != nil {
		return nil, err
	}

	log = log.With("command", command)

	if loadErr != nil {
		log.Error("configuration unusable, using defaults", "error", loadErr)
	}

	log.Debug("configuration loaded",
		"global", loader.HasGlobalConfig(),
		"project", loader.FindProjectConfigPath(),
	)

	crashRecorder = crashdump.NewRecorder(version, cfg, log)

	return &environment{loader: loader, cfg: cfg, log: log, closer: closer}, nil
}

//nolint:ireturn // returns the adapter behind the Logger interface
func openLogger(global *config.GlobalConfig) (logger.Logger, func() error, error) {
	level, err := logger.ParseLevel(global.LogLevel)
	if err != nil {
		level = logger.LevelError
	}

	path := global.LogFile
	if path == "" {
		path = xdg.LogFile()
	}

	path = xdg.ExpandPathSilent(path)

	if err := xdg.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, nil, errors.Wrap(err, "failed to create log directory")
	}

	handler, err := logger.NewFileHandler(path, level)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create logger")
	}

	return logger.NewSlogAdapter(handler), handler.Close, nil
}

// Close releases the log file.
func (e *environment) Close() {
	if e.closer != nil {
		_ = e.closer()
	}
}

// pluginDir returns the directory scanned for plugin manifests.
func (e *environment) pluginDir() string {
	return xdg.ExpandPathSilent(e.cfg.GetPlugins().GetDirectory(e.loader.DefaultPluginDir()))
}

// allowedDirs returns the directories plugin files may live in: the plugin
// directory, the global config directory and the project config directory.
func (e *environment) allowedDirs() []string {
	dirs := []string{e.pluginDir(), xdg.ConfigDir()}

	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, filepath.Join(wd, internalconfig.ProjectConfigDir))
	}

	return dirs
}

// newRegistry returns an empty registry wired to the configured launcher.
func (e *environment) newRegistry() *plugin.Registry {
	return plugin.NewRegistry(e.log,
		plugin.WithDependencies(functions.DefaultDependencies(e.cfg.GetLauncher().Opener)),
		plugin.WithCommandRunner(exec.NewCommandRunner(e.cfg.GetPlugins().GetDefaultTimeout())),
		plugin.WithAllowedDirs(e.allowedDirs()...),
	)
}

// loadRegistry returns a registry holding every plugin that loaded. Load
// failures are returned joined next to the usable registry.
func (e *environment) loadRegistry() (*plugin.Registry, error) {
	registry := e.newRegistry()

	err := registry.LoadPlugins(e.cfg.GetPlugins(), e.pluginDir())

	return registry, err
}

// theme returns the output theme for out.
func (e *environment) theme(out *os.File) internalcolor.Theme {
	return internalcolor.NewTheme(e.colorEnabled(out))
}

func (e *environment) colorEnabled(out *os.File) bool {
	return internalcolor.Enabled(e.cfg.GetGlobal().IsNoColor(), out)
}
