// Package config provides internal configuration loading and processing.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	tomlparser "github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/smykla-skalski/launchkit/internal/xdg"
	"github.com/smykla-skalski/launchkit/pkg/config"
)

var (
	// ErrConfigNotFound is returned when no configuration file is found.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidTOML is returned when the TOML file cannot be parsed.
	ErrInvalidTOML = errors.New("invalid TOML")

	// ErrInvalidPermissions is returned when config file has insecure permissions.
	ErrInvalidPermissions = errors.New("config file has insecure permissions")
)

const (
	// EnvPrefix prefixes every environment variable read by the loader.
	EnvPrefix = "LAUNCHKIT_"

	// ProjectConfigDir is the directory name for project configuration.
	ProjectConfigDir = ".launchkit"

	// ProjectConfigFile is the primary project configuration file name.
	ProjectConfigFile = "config.toml"

	// ProjectConfigFileAlt is the alternative project configuration file name.
	ProjectConfigFileAlt = "launchkit.toml"
)

// envSections are the top-level config sections reachable from environment
// variables, longest first so that CRASH_DUMP wins over shorter prefixes.
var envSections = []string{"crash_dump", "launcher", "plugins", "global"}

// KoanfLoader handles configuration loading from multiple sources using koanf.
// Precedence order (highest to lowest):
// 1. CLI Flags
// 2. Environment Variables (LAUNCHKIT_*)
// 3. Project Config (.launchkit/config.toml or launchkit.toml)
// 4. Global Config ($XDG_CONFIG_HOME/launchkit/config.toml)
// 5. Defaults
type KoanfLoader struct {
	k        *koanf.Koanf
	paths    xdg.PathResolver
	workDir  string
	tomlOpts koanf.UnmarshalConf
}

// NewKoanfLoader creates a new KoanfLoader using the XDG paths and the
// current working directory.
func NewKoanfLoader() (*KoanfLoader, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get working directory")
	}

	return newKoanfLoader(xdg.DefaultResolver(), workDir), nil
}

// NewKoanfLoaderWithDirs creates a new KoanfLoader rooted at homeDir and
// workDir (for testing).
func NewKoanfLoaderWithDirs(homeDir, workDir string) (*KoanfLoader, error) {
	return newKoanfLoader(xdg.ResolverFor(homeDir), workDir), nil
}

func newKoanfLoader(paths xdg.PathResolver, workDir string) *KoanfLoader {
	return &KoanfLoader{
		k:       koanf.New("."),
		paths:   paths,
		workDir: workDir,
		tomlOpts: koanf.UnmarshalConf{
			Tag:           "koanf",
			FlatPaths:     false,
			DecoderConfig: CustomDecoderConfig(),
		},
	}
}

// Load loads configuration from all sources with precedence and validates it.
// Defaults → Global TOML → Project TOML → Env Vars → CLI Flags
func (l *KoanfLoader) Load(flags map[string]any) (*config.Config, error) {
	cfg, err := l.LoadWithoutValidation(flags)
	if err != nil {
		return nil, err
	}

	if err := NewValidator().Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return cfg, nil
}

// LoadWithoutValidation loads configuration without running validation.
func (l *KoanfLoader) LoadWithoutValidation(flags map[string]any) (*config.Config, error) {
	l.k = koanf.New(".")

	if err := l.k.Load(confmap.Provider(defaultsToMap(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load defaults")
	}

	var globalPlugins, projectPlugins []*config.PluginInstanceConfig

	globalPath := l.GlobalConfigPath()
	if err := l.loadTOMLFile(globalPath); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to load global config")
	} else if err == nil {
		if globalPlugins, err = l.extractPlugins(l.k, filepath.Dir(globalPath), ""); err != nil {
			return nil, errors.Wrap(err, "failed to read global plugins")
		}
	}

	if projectPath := l.findProjectConfig(); projectPath != "" {
		if err := l.loadTOMLFile(projectPath); err != nil {
			return nil, errors.Wrap(err, "failed to load project config")
		}

		pk := koanf.New(".")
		if err := pk.Load(file.Provider(projectPath), tomlparser.Parser()); err != nil {
			return nil, errors.Wrapf(ErrInvalidTOML, "%s: %v", projectPath, err)
		}

		var err error
		if projectPlugins, err = l.extractPlugins(pk, l.workDir, l.workDir); err != nil {
			return nil, errors.Wrap(err, "failed to read project plugins")
		}
	}

	envOpt := env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envTransform,
	}

	if err := l.k.Load(env.Provider(".", envOpt), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load env vars")
	}

	if len(flags) > 0 {
		if err := l.k.Load(confmap.Provider(flagsToConfig(flags), "."), nil); err != nil {
			return nil, errors.Wrap(err, "failed to load flags")
		}
	}

	var cfg config.Config
	if err := l.k.UnmarshalWithConf("", &cfg, l.tomlOpts); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if cfg.Plugins == nil {
		cfg.Plugins = &config.PluginConfig{}
	}

	cfg.Plugins.Plugins = mergePlugins(globalPlugins, projectPlugins)

	return &cfg, nil
}

// LoadFile loads a single configuration file on top of the defaults, without
// environment variables or flags. It reports ErrConfigNotFound when path does
// not exist.
func (l *KoanfLoader) LoadFile(path string) (*config.Config, error) {
	saved := l.k
	defer func() { l.k = saved }()

	l.k = koanf.New(".")

	if err := l.k.Load(confmap.Provider(defaultsToMap(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load defaults")
	}

	if err := l.loadTOMLFile(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(ErrConfigNotFound, path)
		}

		return nil, err
	}

	baseDir, root := filepath.Dir(path), ""
	if path != l.GlobalConfigPath() {
		baseDir, root = l.workDir, l.workDir
	}

	plugins, err := l.extractPlugins(l.k, baseDir, root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read plugins of %s", path)
	}

	var cfg config.Config
	if err := l.k.UnmarshalWithConf("", &cfg, l.tomlOpts); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if cfg.Plugins == nil {
		cfg.Plugins = &config.PluginConfig{}
	}

	cfg.Plugins.Plugins = plugins

	return &cfg, nil
}

// extractPlugins reads the plugin list of k. Relative plugin paths are
// resolved against baseDir: the config dir for global plugins, the project
// root for project plugins.
func (l *KoanfLoader) extractPlugins(
	k *koanf.Koanf,
	baseDir string,
	projectRoot string,
) ([]*config.PluginInstanceConfig, error) {
	if !k.Exists("plugins.plugins") {
		return nil, nil
	}

	var plugins []*config.PluginInstanceConfig
	if err := k.UnmarshalWithConf("plugins.plugins", &plugins, l.tomlOpts); err != nil {
		return nil, err
	}

	for _, p := range plugins {
		if p == nil {
			continue
		}

		p.ProjectRoot = projectRoot

		if p.Path != "" && !strings.HasPrefix(p.Path, "~") && !filepath.IsAbs(p.Path) {
			p.Path = filepath.Join(baseDir, p.Path)
		}
	}

	return plugins, nil
}

// mergePlugins merges global and project plugin lists.
// Plugins with the same name: project overrides global.
// Plugins with different names: combined (both included).
func mergePlugins(globalPlugins, projectPlugins []*config.PluginInstanceConfig) []*config.PluginInstanceConfig {
	projectByName := make(map[string]*config.PluginInstanceConfig, len(projectPlugins))

	for _, p := range projectPlugins {
		if p != nil && p.Name != "" {
			projectByName[strings.ToLower(p.Name)] = p
		}
	}

	merged := make([]*config.PluginInstanceConfig, 0, len(globalPlugins)+len(projectPlugins))
	seen := make(map[string]bool)

	for _, p := range globalPlugins {
		if p == nil {
			continue
		}

		key := strings.ToLower(p.Name)
		if override, ok := projectByName[key]; ok && key != "" {
			merged = append(merged, override)
			seen[key] = true

			continue
		}

		merged = append(merged, p)
	}

	for _, p := range projectPlugins {
		if p == nil || (p.Name != "" && seen[strings.ToLower(p.Name)]) {
			continue
		}

		merged = append(merged, p)
	}

	return merged
}

// loadTOMLFile loads a TOML configuration file with security checks.
func (l *KoanfLoader) loadTOMLFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	// Reject world-writable files.
	if info.Mode().Perm()&0o002 != 0 {
		return errors.Wrapf(
			ErrInvalidPermissions,
			"%s is world-writable (mode: %s)",
			path,
			info.Mode().Perm(),
		)
	}

	if err := l.k.Load(file.Provider(path), tomlparser.Parser()); err != nil {
		return errors.Wrapf(ErrInvalidTOML, "%s: %v", path, err)
	}

	return nil
}

// envTransform transforms environment variable names to config paths.
// LAUNCHKIT_CRASH_DUMP_MAX_DUMPS → crash_dump.max_dumps
// Variables outside the known sections are ignored.
func envTransform(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))

	for _, section := range envSections {
		rest, ok := strings.CutPrefix(key, section+"_")
		if !ok || rest == "" {
			continue
		}

		path := section + "." + rest
		if path == "launcher.opener" {
			return path, strings.Fields(value)
		}

		return path, value
	}

	return "", nil
}

// GlobalConfigPath returns the path to the global configuration file.
func (l *KoanfLoader) GlobalConfigPath() string {
	return l.paths.GlobalConfigFile()
}

// DefaultPluginDir returns the plugin directory used when none is configured.
func (l *KoanfLoader) DefaultPluginDir() string {
	return l.paths.PluginDir()
}

// ProjectConfigPaths returns the paths to check for project configuration.
func (l *KoanfLoader) ProjectConfigPaths() []string {
	return []string{
		filepath.Join(l.workDir, ProjectConfigDir, ProjectConfigFile),
		filepath.Join(l.workDir, ProjectConfigFileAlt),
	}
}

// findProjectConfig checks for project config files and returns the first found.
func (l *KoanfLoader) findProjectConfig() string {
	for _, path := range l.ProjectConfigPaths() {
		if fileExists(path) {
			return path
		}
	}

	return ""
}

// HasGlobalConfig checks if a global configuration file exists.
func (l *KoanfLoader) HasGlobalConfig() bool {
	return fileExists(l.GlobalConfigPath())
}

// HasProjectConfig checks if a project configuration file exists.
func (l *KoanfLoader) HasProjectConfig() bool {
	return l.findProjectConfig() != ""
}

// FindProjectConfigPath returns the path to the project config file if one exists.
// Returns empty string if no project config file is found.
func (l *KoanfLoader) FindProjectConfigPath() string {
	return l.findProjectConfig()
}

// flagsToConfig converts CLI flags to a configuration map.
func flagsToConfig(flags map[string]any) map[string]any {
	result := make(map[string]any)

	for key, value := range flags {
		switch key {
		case "log-level":
			if s, ok := value.(string); ok && s != "" {
				ensureMapKey(result, "global")["log_level"] = s
			}

		case "debug":
			if b, ok := value.(bool); ok && b {
				ensureMapKey(result, "global")["log_level"] = "debug"
			}

		case "timeout":
			if s, ok := value.(string); ok && s != "" {
				ensureMapKey(result, "global")["default_timeout"] = s
			}

		case "no-color":
			if b, ok := value.(bool); ok && b {
				ensureMapKey(result, "global")["no_color"] = true
			}

		case "plugin-dir":
			if s, ok := value.(string); ok && s != "" {
				ensureMapKey(result, "plugins")["directory"] = s
			}

		case "no-builtins":
			if b, ok := value.(bool); ok && b {
				ensureMapKey(result, "plugins")["builtins"] = false
			}

		case "no-discover":
			if b, ok := value.(bool); ok && b {
				ensureMapKey(result, "plugins")["discover"] = false
			}

		case "opener":
			if s, ok := value.([]string); ok && len(s) > 0 {
				ensureMapKey(result, "launcher")["opener"] = s
			}
		}
	}

	return result
}

// ensureMapKey ensures a key exists as a map and returns it.
func ensureMapKey(cfg map[string]any, key string) map[string]any {
	if _, ok := cfg[key]; !ok {
		cfg[key] = make(map[string]any)
	}

	result, _ := cfg[key].(map[string]any)

	return result
}

// defaultsToMap converts DefaultConfig to a map for koanf loading.
func defaultsToMap() map[string]any {
	return map[string]any{
		"version": config.CurrentConfigVersion,
		"global": map[string]any{
			"default_timeout": DefaultTimeout.String(),
			"log_level":       DefaultLogLevel,
			"no_color":        false,
		},
		"plugins": map[string]any{
			"discover":        true,
			"builtins":        true,
			"default_timeout": DefaultPluginTimeout.String(),
		},
		"crash_dump": map[string]any{
			"enabled":        true,
			"max_dumps":      config.DefaultMaxDumps,
			"max_age":        (config.DefaultMaxAgeDays * 24 * time.Hour).String(),
			"include_config": true,
		},
	}
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return !info.IsDir()
}
