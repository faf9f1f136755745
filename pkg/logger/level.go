package logger

import (
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"
)

//go:generate enumer -type=Level -trimprefix=Level -transform=upper -json -text
//go:generate go run github.com/smykla-skalski/launchkit/tools/enumerfix level_enumer.go

// Level is the minimum severity written to the log file, set by the
// global.log_level config key or the --debug flag.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
)

var slogLevels = [...]slog.Level{
	LevelDebug: slog.LevelDebug,
	LevelInfo:  slog.LevelInfo,
	LevelError: slog.LevelError,
}

// ToSlogLevel maps l onto slog. Unknown levels log at info.
func (l Level) ToSlogLevel() slog.Level {
	if !l.IsALevel() {
		return slog.LevelInfo
	}

	return slogLevels[l]
}

// ParseLevel reads a level name in any case, surrounding spaces allowed.
func ParseLevel(s string) (Level, error) {
	l, err := LevelString(strings.TrimSpace(s))
	if err != nil {
		return LevelInfo, errors.Wrapf(err, "valid levels are %s", strings.ToLower(strings.Join(LevelStrings(), ", ")))
	}

	return l, nil
}
