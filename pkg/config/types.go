package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
)

// Day is the unit behind the "d" suffix accepted in durations.
const Day = 24 * time.Hour

// durationPattern matches what ParseDuration accepts: an optional whole
// number of days followed by a Go duration.
const durationPattern = `^([0-9]+d)?(([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+)?$`

var (
	// ErrNegativeDuration is returned for durations below zero.
	ErrNegativeDuration = errors.New("duration must be non-negative")

	// ErrInvalidDuration is returned for text ParseDuration cannot read.
	ErrInvalidDuration = errors.New("invalid duration")
)

// Duration is a non-negative time.Duration written in config files as text,
// for example "10s", "1h30m" or "30d".
type Duration time.Duration

// ParseDuration reads s as a Go duration with an optional leading day count,
// so "30d" and "1d12h" are accepted next to "720h".
func ParseDuration(s string) (Duration, error) {
	if s == "" {
		return 0, errors.Wrap(ErrInvalidDuration, "empty string")
	}

	if strings.HasPrefix(s, "-") {
		return 0, errors.Wrapf(ErrNegativeDuration, "got %s", s)
	}

	var days time.Duration

	if n, rest, ok := strings.Cut(s, "d"); ok {
		count, err := strconv.ParseUint(n, 10, 32)
		if err != nil {
			return 0, errors.Wrapf(ErrInvalidDuration, "%q: bad day count", s)
		}

		days = time.Duration(count) * Day
		s = rest
	}

	if s == "" {
		return Duration(days), nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrap(ErrInvalidDuration, err.Error())
	}

	if d < 0 {
		return 0, errors.Wrapf(ErrNegativeDuration, "got %s", d)
	}

	return Duration(days + d), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := ParseDuration(string(text))
	if err != nil {
		return err
	}

	*d = parsed

	return nil
}

// MarshalText writes whole days as "Nd" and anything else in Go notation.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d Duration) String() string {
	td := time.Duration(d)
	if td >= Day && td%Day == 0 {
		return strconv.FormatInt(int64(td/Day), 10) + "d"
	}

	return td.String()
}

// ToDuration converts d to a time.Duration.
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}

// JSONSchema implements jsonschema.JSONSchemer.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Pattern:     durationPattern,
		Description: `Duration such as "5s", "1m30s" or "30d"`,
	}
}
