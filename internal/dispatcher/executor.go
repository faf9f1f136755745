package dispatcher

import (
	"context"
	"runtime"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/semaphore"

	"github.com/smykla-skalski/launchkit/pkg/logger"
)

// Runner dispatches a single definition.
type Runner interface {
	Dispatch(ctx context.Context, def Definition) (*Outcome, error)
}

// Result pairs a definition with its outcome. Outcome is nil when the
// definition never reached its plugin.
type Result struct {
	Definition Definition
	Outcome    *Outcome
	Err        error
}

// Executor runs definitions and collects their results.
type Executor interface {
	// Execute runs defs through runner and returns one Result per definition,
	// in the order of defs.
	Execute(ctx context.Context, runner Runner, defs []Definition) []Result
}

// SequentialExecutor runs definitions one at a time in order.
type SequentialExecutor struct {
	logger logger.Logger
}

// NewSequentialExecutor creates a new SequentialExecutor.
func NewSequentialExecutor(log logger.Logger) *SequentialExecutor {
	return &SequentialExecutor{logger: log}
}

// Execute runs definitions sequentially. Definitions left when ctx is done
// are reported with the context error.
func (*SequentialExecutor) Execute(ctx context.Context, runner Runner, defs []Definition) []Result {
	results := make([]Result, len(defs))

	for i, def := range defs {
		results[i].Definition = def

		if err := ctx.Err(); err != nil {
			results[i].Err = errors.Wrap(err, "dispatch cancelled")

			continue
		}

		results[i].Outcome, results[i].Err = runner.Dispatch(ctx, def)
	}

	return results
}

// ParallelExecutor runs definitions concurrently on a bounded worker pool.
// Calls on the same plugin instance are still serialized by the instance.
type ParallelExecutor struct {
	logger logger.Logger
	pool   *semaphore.Weighted
}

// NewParallelExecutor creates a ParallelExecutor running at most maxWorkers
// definitions at a time. A non-positive maxWorkers means runtime.NumCPU().
func NewParallelExecutor(log logger.Logger, maxWorkers int) *ParallelExecutor {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}

	return &ParallelExecutor{
		logger: log,
		pool:   semaphore.NewWeighted(int64(maxWorkers)),
	}
}

// Execute runs definitions concurrently.
func (e *ParallelExecutor) Execute(ctx context.Context, runner Runner, defs []Definition) []Result {
	results := make([]Result, len(defs))

	if len(defs) == 1 {
		results[0].Definition = defs[0]
		results[0].Outcome, results[0].Err = runner.Dispatch(ctx, defs[0])

		return results
	}

	var wg sync.WaitGroup

	for i, def := range defs {
		results[i].Definition = def

		if err := e.pool.Acquire(ctx, 1); err != nil {
			results[i].Err = errors.Wrap(err, "dispatch cancelled")

			continue
		}

		wg.Add(1)

		go func(i int, def Definition) {
			defer wg.Done()
			defer e.pool.Release(1)

			e.logger.Debug("running function", "function", def.DisplayName, "plugin", def.Plugin)

			results[i].Outcome, results[i].Err = runner.Dispatch(ctx, def)
		}(i, def)
	}

	wg.Wait()

	return results
}
