package crashdump

import (
	"crypto/sha256"
	"fmt"
	"os"
	"os/user"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/launchkit/pkg/config"
)

const (
	idTimeLayout = "20060102T150405"
	idHashBytes  = 4

	nilPanic = "panic(nil)"
)

// Collector turns a recovered panic into a CrashInfo.
type Collector interface {
	Collect(recovered any, ctx *ContextInfo, cfg *config.Config) *CrashInfo
}

// DefaultCollector fills in runtime and host details and sanitizes the
// context parameters and configuration snapshot.
type DefaultCollector struct {
	Version string

	sanitizer *Sanitizer
	now       func() time.Time
}

func NewCollector(version string) *DefaultCollector {
	return &DefaultCollector{
		Version:   version,
		sanitizer: NewSanitizer(),
		now:       time.Now,
	}
}

// Collect implements Collector with the stack of the calling goroutine.
func (c *DefaultCollector) Collect(recovered any, ctx *ContextInfo, cfg *config.Config) *CrashInfo {
	return c.CollectWithStack(recovered, debug.Stack(), ctx, cfg)
}

// CollectWithStack is Collect with a stack captured at the recover site. An
// empty stack falls back to the calling goroutine.
func (c *DefaultCollector) CollectWithStack(
	recovered any,
	stack []byte,
	ctx *ContextInfo,
	cfg *config.Config,
) *CrashInfo {
	if len(stack) == 0 {
		stack = debug.Stack()
	}

	now := c.now()
	value := formatPanicValue(recovered)

	info := &CrashInfo{
		ID:         generateCrashID(now, value),
		Timestamp:  now,
		PanicValue: value,
		StackTrace: string(stack),
		Runtime: RuntimeInfo{
			GOOS:         runtime.GOOS,
			GOARCH:       runtime.GOARCH,
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			NumCPU:       runtime.NumCPU(),
		},
		Metadata: hostMetadata(c.Version),
	}

	if ctx != nil {
		snapshot := *ctx
		snapshot.Parameters = c.sanitizer.SanitizeParameters(ctx.Parameters)
		info.Context = &snapshot
	}

	if cfg != nil {
		info.Config = c.sanitizer.SanitizeConfig(cfg)
	}

	return info
}

// formatPanicValue renders a recovered value. panic(nil) arrives as a
// *runtime.PanicNilError since Go 1.21 and is reported like a literal nil.
func formatPanicValue(v any) string {
	err, isErr := v.(error)

	var pne *runtime.PanicNilError

	switch {
	case v == nil, isErr && errors.As(err, &pne):
		return nilPanic
	case isErr:
		return err.Error()
	default:
		return fmt.Sprint(v)
	}
}

// hostMetadata records who crashed where. Lookups that fail stay empty.
func hostMetadata(version string) DumpMetadata {
	meta := DumpMetadata{Version: version}

	if u, err := user.Current(); err == nil {
		meta.User = u.Username
	}

	meta.Hostname, _ = os.Hostname()
	meta.WorkingDir, _ = os.Getwd()

	return meta
}

// generateCrashID returns crash-<timestamp>-<hash>, where hash is derived from
// the timestamp and panic value.
func generateCrashID(ts time.Time, panicValue string) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%d-%s", ts.UnixNano(), panicValue))

	return fmt.Sprintf("crash-%s-%x", ts.Format(idTimeLayout), sum[:idHashBytes])
}
