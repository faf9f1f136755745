// Package exec runs external programs: exec plugins, interpreters and the
// platform opener.
package exec

//go:generate mockgen -source=command.go -destination=command_mock.go -package=exec

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"time"

	"github.com/cockroachdb/errors"
)

const (
	// MaxOutputBytes caps what is kept of each output stream.
	MaxOutputBytes = 4 << 20

	// waitDelay bounds the wait for output pipes after the process was
	// killed, in case a child process inherited them.
	waitDelay = time.Second
)

// ErrTimedOut is returned when a command outlives its deadline.
var ErrTimedOut = errors.New("command timed out")

// CommandResult is the outcome of one command. ExitCode is -1 when the
// process did not exit on its own.
type CommandResult struct {
	Stdout    string
	Stderr    string
	ExitCode  int
	Err       error
	Truncated bool
}

// Success reports whether the command ran and exited with status zero.
func (r *CommandResult) Success() bool {
	return r.Err == nil && r.ExitCode == 0
}

// Failed is the negation of Success.
func (r *CommandResult) Failed() bool {
	return !r.Success()
}

// CommandRunner runs a command to completion and captures its output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) *CommandResult
	RunWithStdin(ctx context.Context, stdin io.Reader, name string, args ...string) *CommandResult
}

type commandRunner struct {
	defaultTimeout time.Duration
}

// NewCommandRunner returns a CommandRunner applying defaultTimeout to
// contexts without a deadline. Zero disables it.
func NewCommandRunner(defaultTimeout time.Duration) CommandRunner {
	return &commandRunner{defaultTimeout: defaultTimeout}
}

func (r *commandRunner) Run(ctx context.Context, name string, args ...string) *CommandResult {
	return r.run(ctx, nil, name, args)
}

func (r *commandRunner) RunWithStdin(
	ctx context.Context,
	stdin io.Reader,
	name string,
	args ...string,
) *CommandResult {
	return r.run(ctx, stdin, name, args)
}

func (r *commandRunner) run(ctx context.Context, stdin io.Reader, name string, args []string) *CommandResult {
	if _, ok := ctx.Deadline(); !ok && r.defaultTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.defaultTimeout)
		defer cancel()
	}

	stdout := &cappedBuffer{limit: MaxOutputBytes}
	stderr := &cappedBuffer{limit: MaxOutputBytes}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay

	err := cmd.Run()

	result := &CommandResult{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Truncated: stdout.dropped || stderr.dropped,
	}

	var exitErr *exec.ExitError

	switch {
	case err == nil:
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		result.ExitCode = -1
		result.Err = errors.Wrapf(ErrTimedOut, "%s", name)
	case errors.As(err, &exitErr) && exitErr.Exited():
		result.ExitCode = exitErr.ExitCode()
		result.Err = errors.Wrapf(err, "%s exited with code %d", name, result.ExitCode)
	default:
		result.ExitCode = -1
		result.Err = errors.Wrapf(err, "executing %s", name)
	}

	return result
}

// cappedBuffer keeps the first limit bytes written and discards the rest
// while still reporting full writes, so the process never blocks on a pipe.
// buf must stay unexported: io.Copy prefers a ReadFrom method over Write.
type cappedBuffer struct {
	buf     bytes.Buffer
	limit   int
	dropped bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	room := b.limit - b.buf.Len()
	if room < len(p) {
		b.dropped = true

		if room > 0 {
			b.buf.Write(p[:room])
		}

		return len(p), nil
	}

	return b.buf.Write(p)
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}
