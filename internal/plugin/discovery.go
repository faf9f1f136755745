package plugin

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/smykla-skalski/launchkit/pkg/config"
)

// ManifestPattern matches function manifests below a plugin directory.
const ManifestPattern = "**/function.{yaml,yml}"

// ErrInvalidManifest is returned when a manifest cannot be turned into a
// plugin configuration.
var ErrInvalidManifest = errors.New("invalid function manifest")

// Manifest describes a plugin shipped in a plugin directory:
//
//	name: notes
//	type: exec
//	path: notes.sh
//	args: ["--profile", "work"]
//	requires: ">= 1.0"
//	timeout: 2s
//	settings:
//	  editor: vim
//
// Relative paths resolve against the manifest's directory. The type defaults
// from the file extension (.so is go, .lua is lua, anything else exec).
type Manifest struct {
	Name     string            `yaml:"name"`
	Type     config.PluginType `yaml:"type,omitempty"`
	Path     string            `yaml:"path"`
	Args     []string          `yaml:"args,omitempty"`
	Enabled  *bool             `yaml:"enabled,omitempty"`
	Active   *bool             `yaml:"active,omitempty"`
	Requires string            `yaml:"requires,omitempty"`
	Timeout  string            `yaml:"timeout,omitempty"`
	Settings map[string]any    `yaml:"settings,omitempty"`
}

// Discover finds manifests below dir and converts them into plugin
// configurations, ordered by manifest path. A missing dir yields nothing.
// Manifests that fail to parse are skipped and reported in the joined error.
func Discover(dir string) ([]*config.PluginInstanceConfig, error) {
	if dir == "" {
		return nil, nil
	}

	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, errors.Wrapf(err, "reading plugin directory %s", dir)
	}

	if !info.IsDir() {
		return nil, errors.Newf("plugin directory %s is not a directory", dir)
	}

	matches, err := doublestar.Glob(os.DirFS(dir), ManifestPattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.Wrap(err, "scanning plugin directory")
	}

	slices.Sort(matches)

	var (
		configs []*config.PluginInstanceConfig
		errs    []error
	)

	for _, match := range matches {
		cfg, err := LoadManifest(filepath.Join(dir, filepath.FromSlash(match)))
		if err != nil {
			errs = append(errs, err)

			continue
		}

		configs = append(configs, cfg)
	}

	return configs, errors.Join(errs...)
}

// LoadManifest reads one manifest file.
func LoadManifest(file string) (*config.PluginInstanceConfig, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "reading manifest %s", file)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(ErrInvalidManifest, "%s: %v", file, err)
	}

	return m.config(filepath.Dir(file))
}

func (m *Manifest) config(base string) (*config.PluginInstanceConfig, error) {
	if m.Path == "" {
		return nil, errors.Wrapf(ErrInvalidManifest, "%s: path is required", base)
	}

	p := config.ExpandHome(m.Path)
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}

	pluginType := m.Type
	if pluginType == "" {
		pluginType = typeFromPath(p)
	}

	if !pluginType.Valid() || pluginType == config.PluginTypeBuiltin {
		return nil, errors.Wrapf(ErrInvalidManifest, "%s: unsupported type %q", base, pluginType)
	}

	name := m.Name
	if name == "" {
		name = filepath.Base(base)
	}

	cfg := &config.PluginInstanceConfig{
		Name:     name,
		Type:     pluginType,
		Enabled:  m.Enabled,
		Active:   m.Active,
		Path:     p,
		Args:     m.Args,
		Requires: m.Requires,
		Settings: m.Settings,
	}

	if m.Timeout != "" {
		d, err := config.ParseDuration(m.Timeout)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidManifest, "%s: invalid timeout %q", base, m.Timeout)
		}

		cfg.Timeout = d
	}

	return cfg, nil
}

func typeFromPath(p string) config.PluginType {
	switch strings.ToLower(path.Ext(filepath.ToSlash(p))) {
	case ".so":
		return config.PluginTypeGo
	case ".lua":
		return config.PluginTypeLua
	default:
		return config.PluginTypeExec
	}
}
