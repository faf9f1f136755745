package function

import (
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrInvalidDescriptor is returned when a descriptor cannot be built.
var ErrInvalidDescriptor = errors.New("invalid descriptor")

// FileExtension pairs a human label with the file extension it describes,
// for example "Linkfile" and ".lnk".
type FileExtension struct {
	Label     string `json:"label" yaml:"label"`
	Extension string `json:"extension" yaml:"extension"`
}

// DescriptorSpec is the mutable input used to build a Descriptor. It is also the
// wire form exchanged with out-of-process plugins.
type DescriptorSpec struct {
	UniqueName  string `json:"unique_name" yaml:"unique_name"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Author      string `json:"author,omitempty" yaml:"author,omitempty"`
	Version     string `json:"version" yaml:"version"`

	// Extensions maps a label to an extension, e.g. {"Linkfile": ".lnk"}.
	Extensions map[string]string `json:"extensions" yaml:"extensions"`

	Settings []Setting `json:"settings,omitempty" yaml:"settings,omitempty"`
}

// Descriptor is the static capability metadata of a plugin. It is built once
// during Initialize and is immutable afterwards; accessors return copies.
type Descriptor struct {
	uniqueName  string
	displayName string
	description string
	author      string
	version     Version
	extensions  []FileExtension
	settings    Settings
}

// NewDescriptor validates spec and builds a Descriptor. Extensions are
// normalized to carry a leading dot and are ordered by label.
func NewDescriptor(spec DescriptorSpec) (Descriptor, error) {
	name := strings.TrimSpace(spec.UniqueName)
	if name == "" {
		return Descriptor{}, errors.Wrap(ErrInvalidDescriptor, "unique name is required")
	}

	var version Version

	if spec.Version != "" {
		v, err := ParseVersion(spec.Version)
		if err != nil {
			return Descriptor{}, errors.Wrapf(err, "descriptor %s", name)
		}

		version = v
	}

	extensions := make([]FileExtension, 0, len(spec.Extensions))

	for label, ext := range spec.Extensions {
		normalized := NormalizeExtension(ext)
		if normalized == "" {
			return Descriptor{}, errors.Wrapf(ErrInvalidDescriptor, "descriptor %s: extension for %q is empty", name, label)
		}

		extensions = append(extensions, FileExtension{Label: label, Extension: normalized})
	}

	slices.SortFunc(extensions, func(a, b FileExtension) int {
		if c := strings.Compare(a.Label, b.Label); c != 0 {
			return c
		}

		return strings.Compare(a.Extension, b.Extension)
	})

	settings, err := NewSettings(spec.Settings...)
	if err != nil {
		return Descriptor{}, errors.Wrapf(err, "descriptor %s", name)
	}

	displayName := spec.DisplayName
	if displayName == "" {
		displayName = name
	}

	return Descriptor{
		uniqueName:  name,
		displayName: displayName,
		description: spec.Description,
		author:      spec.Author,
		version:     version,
		extensions:  extensions,
		settings:    settings,
	}, nil
}

// MustDescriptor is like NewDescriptor but panics on error. Intended for
// plugins whose descriptor is a compile-time constant.
func MustDescriptor(spec DescriptorSpec) Descriptor {
	d, err := NewDescriptor(spec)
	if err != nil {
		panic(err)
	}

	return d
}

// UniqueName returns the stable plugin identifier.
func (d Descriptor) UniqueName() string { return d.uniqueName }

// DisplayName returns the presentation name.
func (d Descriptor) DisplayName() string { return d.displayName }

// Description returns the plugin description.
func (d Descriptor) Description() string { return d.description }

// Author returns the plugin author.
func (d Descriptor) Author() string { return d.author }

// Version returns the plugin version.
func (d Descriptor) Version() Version { return d.version }

// SupportedExtensions returns a copy of the supported extensions.
func (d Descriptor) SupportedExtensions() []FileExtension {
	return slices.Clone(d.extensions)
}

// Settings returns the declared settings.
func (d Descriptor) Settings() Settings { return d.settings }

// IsZero reports whether d is the zero Descriptor (never built).
func (d Descriptor) IsZero() bool {
	return d.uniqueName == ""
}

// Spec converts the descriptor back into its wire form.
func (d Descriptor) Spec() DescriptorSpec {
	extensions := make(map[string]string, len(d.extensions))
	for _, ext := range d.extensions {
		extensions[ext.Label] = ext.Extension
	}

	return DescriptorSpec{
		UniqueName:  d.uniqueName,
		DisplayName: d.displayName,
		Description: d.description,
		Author:      d.author,
		Version:     d.version.String(),
		Extensions:  extensions,
		Settings:    d.settings.All(),
	}
}
