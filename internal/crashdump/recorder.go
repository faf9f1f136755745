package crashdump

import (
	"os"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/launchkit/internal/xdg"
	"github.com/smykla-skalski/launchkit/pkg/config"
	"github.com/smykla-skalski/launchkit/pkg/logger"
)

// ErrDisabled is returned by Record when crash dumps are turned off or the
// retention settings would not keep the new dump.
var ErrDisabled = errors.New("crash dumps are disabled")

// Recorder collects, writes and prunes crash dumps according to the
// crash_dump configuration section.
type Recorder struct {
	collector *DefaultCollector
	cfg       *config.Config
	dumpDir   string
	log       logger.Logger
}

// NewRecorder returns a Recorder for cfg. A nil cfg uses the defaults.
func NewRecorder(version string, cfg *config.Config, log logger.Logger) *Recorder {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	var crashCfg *config.CrashDumpConfig
	if cfg != nil {
		crashCfg = cfg.CrashDump
	}

	return &Recorder{
		collector: NewCollector(version),
		cfg:       cfg,
		dumpDir:   crashCfg.GetDumpDir(xdg.CrashDumpDir()),
		log:       log,
	}
}

// DumpDir returns the directory dumps are written to.
func (r *Recorder) DumpDir() string {
	return r.dumpDir
}

// Enabled reports whether Record writes anything. A max_dumps of 0 keeps no
// dump, so nothing is written.
func (r *Recorder) Enabled() bool {
	crashCfg := r.crashConfig()

	return crashCfg.IsEnabled() && crashCfg.GetMaxDumps() > 0
}

// Record writes a dump for a panic recovered on the current goroutine.
func (r *Recorder) Record(recovered any, ctx *ContextInfo) (string, error) {
	return r.RecordWithStack(recovered, nil, ctx)
}

// RecordWithStack writes a dump using a stack captured at the recover site
// and returns the file path. Old dumps are pruned afterwards; a pruning
// failure is logged and does not fail the call. A dump removed by its own
// pruning is reported as ErrDisabled.
func (r *Recorder) RecordWithStack(recovered any, stack []byte, ctx *ContextInfo) (string, error) {
	if !r.Enabled() {
		return "", ErrDisabled
	}

	crashCfg := r.crashConfig()

	var snapshot *config.Config
	if crashCfg.IsIncludeConfig() {
		snapshot = r.cfg
	}

	info := r.collector.CollectWithStack(recovered, stack, ctx, snapshot)

	storage, err := NewFilesystemStorage(r.dumpDir)
	if err != nil {
		return "", err
	}

	path, err := storage.Write(info)
	if err != nil {
		return "", err
	}

	r.log.Info("crash dump written", "id", info.ID, "path", path)

	removed, err := storage.Prune(crashCfg.Retention())
	if err != nil {
		r.log.Error("pruning crash dumps failed", "error", err)
	} else if removed > 0 {
		r.log.Debug("pruned crash dumps", "removed", removed)
	}

	if _, err := os.Stat(path); err != nil {
		return "", errors.Wrapf(ErrDisabled, "dump %s outlived by retention", info.ID)
	}

	return path, nil
}

func (r *Recorder) crashConfig() *config.CrashDumpConfig {
	if r.cfg == nil {
		return nil
	}

	return r.cfg.CrashDump
}
