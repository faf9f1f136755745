package config

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"

	"github.com/smykla-skalski/launchkit/internal/schema"
	"github.com/smykla-skalski/launchkit/internal/xdg"
	"github.com/smykla-skalski/launchkit/pkg/config"
)

// Modes of written config files and the directories created for them.
const (
	ConfigFileMode = 0o600
	ConfigDirMode  = 0o700
)

// Writer writes TOML config files to the global and project locations.
type Writer struct {
	paths   xdg.PathResolver
	workDir string
}

// NewWriter resolves the global file through XDG and the project file below
// the working directory.
func NewWriter() (*Writer, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get working directory")
	}

	return &Writer{paths: xdg.DefaultResolver(), workDir: workDir}, nil
}

// NewWriterWithDirs roots the global file in homeDir instead.
func NewWriterWithDirs(homeDir, workDir string) *Writer {
	return &Writer{
		paths:   xdg.ResolverFor(homeDir),
		workDir: workDir,
	}
}

func (w *Writer) WriteGlobal(cfg *config.Config) error {
	return w.WriteFile(w.GlobalConfigPath(), cfg)
}

// WriteProject writes .launchkit/config.toml below the working directory.
func (w *Writer) WriteProject(cfg *config.Config) error {
	return w.WriteFile(w.ProjectConfigPath(), cfg)
}

// WriteFile encodes cfg to path through a temp file in the same directory,
// so a reader never sees half a config.
func (*Writer) WriteFile(path string, cfg *config.Config) error {
	if cfg == nil {
		return errors.Wrap(ErrInvalidConfig, "config is nil")
	}

	data, err := Encode(cfg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, ConfigDirMode); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.toml")
	if err != nil {
		return errors.Wrapf(err, "failed to write config file %s", path)
	}

	_, err = tmp.Write(data)
	err = errors.Join(err, tmp.Chmod(ConfigFileMode), tmp.Close())

	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}

	if err != nil {
		_ = os.Remove(tmp.Name())

		return errors.Wrapf(err, "failed to write config file %s", path)
	}

	return nil
}

// Encode renders cfg as TOML, prefixed with the Taplo schema directive.
func Encode(cfg *config.Config) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(schema.SchemaDirective())
	buf.WriteByte('\n')

	encoder := toml.NewEncoder(&buf)
	encoder.SetIndentTables(true)

	if err := encoder.Encode(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to encode config to TOML")
	}

	return buf.Bytes(), nil
}

func (w *Writer) GlobalConfigPath() string {
	return w.paths.GlobalConfigFile()
}

func (w *Writer) ProjectConfigPath() string {
	return filepath.Join(w.workDir, ProjectConfigDir, ProjectConfigFile)
}

func (w *Writer) IsGlobalConfigExists() bool {
	return fileExists(w.GlobalConfigPath())
}

func (w *Writer) IsProjectConfigExists() bool {
	return fileExists(w.ProjectConfigPath())
}
