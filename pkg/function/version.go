package function

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
)

const versionComponents = 4

// ErrInvalidVersion is returned when a version string cannot be parsed.
var ErrInvalidVersion = errors.New("invalid version")

// Version is a four component plugin version (major.minor.build.revision).
// It is informational: the runtime only uses it for display and for optional
// compatibility constraints configured by the host.
type Version struct {
	Major    uint64
	Minor    uint64
	Build    uint64
	Revision uint64
}

// NewVersion returns a Version with the given components.
func NewVersion(major, minor, build, revision uint64) Version {
	return Version{Major: major, Minor: minor, Build: build, Revision: revision}
}

// ParseVersion parses "1", "1.2", "1.2.3" or "1.2.3.4". Missing trailing
// components default to zero. A leading "v" is accepted.
func ParseVersion(s string) (Version, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "v")
	if trimmed == "" {
		return Version{}, errors.Wrap(ErrInvalidVersion, "empty version")
	}

	parts := strings.Split(trimmed, ".")
	if len(parts) > versionComponents {
		return Version{}, errors.Wrapf(ErrInvalidVersion, "%q has more than %d components", s, versionComponents)
	}

	var nums [versionComponents]uint64

	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return Version{}, errors.Wrapf(ErrInvalidVersion, "%q: component %d is not a number", s, i+1)
		}

		nums[i] = n
	}

	return Version{Major: nums[0], Minor: nums[1], Build: nums[2], Revision: nums[3]}, nil
}

// MustParseVersion is like ParseVersion but panics on error.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}

	return v
}

// String returns the dotted form, always with four components.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
}

// IsZero reports whether all components are zero.
func (v Version) IsZero() bool {
	return v == Version{}
}

// Compare returns -1, 0 or 1 comparing v to other component by component.
func (v Version) Compare(other Version) int {
	a := [versionComponents]uint64{v.Major, v.Minor, v.Build, v.Revision}
	b := [versionComponents]uint64{other.Major, other.Minor, other.Build, other.Revision}

	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}

	return 0
}

// Semver maps the version onto semantic versioning: major.minor.build with the
// revision carried as build metadata. Metadata is ignored by constraints, so
// revisions never affect compatibility.
func (v Version) Semver() *semver.Version {
	var metadata string
	if v.Revision != 0 {
		metadata = "r" + strconv.FormatUint(v.Revision, 10)
	}

	return semver.New(v.Major, v.Minor, v.Build, "", metadata)
}

// Satisfies reports whether the version satisfies a semver constraint such as
// ">= 1.0, < 2". An empty constraint is always satisfied.
func (v Version) Satisfies(constraint string) (bool, error) {
	if strings.TrimSpace(constraint) == "" {
		return true, nil
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, errors.Wrapf(err, "invalid version constraint %q", constraint)
	}

	return c.Check(v.Semver()), nil
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}

	*v = parsed

	return nil
}
