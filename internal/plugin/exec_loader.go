package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/launchkit/internal/exec"
	"github.com/smykla-skalski/launchkit/pkg/config"
	"github.com/smykla-skalski/launchkit/pkg/function"
)

const (
	// defaultExecPluginTimeout is the default timeout for exec plugin operations.
	defaultExecPluginTimeout = 5 * time.Second

	// InfoFlag asks an exec plugin to print its descriptor.
	InfoFlag = "--info"
)

// ErrPluginInfoFailed is returned when plugin --info execution fails.
var ErrPluginInfoFailed = errors.New("plugin --info exited with non-zero code")

// ExecRequest is written to the plugin's stdin for each invocation.
type ExecRequest struct {
	Context function.Envelope `json:"context"`
}

// ExecResponse is read from the plugin's stdout after each invocation.
type ExecResponse struct {
	Completed bool          `json:"completed"`
	Messages  []ExecMessage `json:"messages,omitempty"`
}

// ExecMessage is one bus message reported by an exec plugin.
type ExecMessage struct {
	Channel string `json:"channel"`
	Payload string `json:"payload"`
}

// ExecLoader loads plugins as external executables that communicate via JSON.
//
// Protocol:
//   - Info: executed with --info, prints a function.DescriptorSpec
//   - Request: ExecRequest on stdin
//   - Response: ExecResponse on stdout
//
// A process that cannot start, exits non-zero or prints garbage is reported
// as a single "log" message; the call itself still succeeds.
type ExecLoader struct {
	runner         exec.CommandRunner
	allowedDirs    []string
	defaultTimeout time.Duration
}

// NewExecLoader creates a new exec plugin loader.
func NewExecLoader(runner exec.CommandRunner, allowedDirs []string) *ExecLoader {
	return &ExecLoader{
		runner:         runner,
		allowedDirs:    allowedDirs,
		defaultTimeout: defaultExecPluginTimeout,
	}
}

// Load loads an exec plugin from the specified path.
//
//nolint:ireturn // interface return is required by Loader interface
func (l *ExecLoader) Load(cfg *config.PluginInstanceConfig) (function.Function, error) {
	if cfg.Path == "" {
		return nil, errors.Wrap(ErrPathRequired, "exec plugin")
	}

	// Defense-in-depth: exec.Command does not use a shell, but suspicious
	// paths are still rejected
	if metaErr := ValidateMetachars(cfg.Path); metaErr != nil {
		return nil, errors.Wrap(metaErr, "invalid characters in plugin path")
	}

	if pathErr := ValidatePath(cfg.Path, l.allowedDirs); pathErr != nil {
		return nil, errors.Wrapf(pathErr, "plugin path validation failed: %s", cfg.Path)
	}

	path := config.ExpandHome(cfg.Path)
	timeout := cfg.GetTimeout(l.defaultTimeout)

	spec, err := l.fetchInfo(path, cfg.Args, timeout)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch plugin info")
	}

	return &ExecFunction{
		path:    path,
		args:    cfg.Args,
		timeout: timeout,
		spec:    spec,
		runner:  l.runner,
	}, nil
}

// Close releases any resources held by the loader.
func (*ExecLoader) Close() error {
	return nil
}

// fetchInfo fetches the plugin descriptor by executing with --info.
func (l *ExecLoader) fetchInfo(
	path string,
	extra []string,
	timeout time.Duration,
) (function.DescriptorSpec, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	args := append([]string{InfoFlag}, extra...)

	result := l.runner.Run(ctx, path, args...)
	if result.Err != nil && result.ExitCode <= 0 {
		return function.DescriptorSpec{}, errors.Wrap(result.Err, "failed to execute plugin --info")
	}

	if result.ExitCode != 0 {
		return function.DescriptorSpec{}, errors.Wrapf(
			ErrPluginInfoFailed,
			"exit code %d: %s",
			result.ExitCode,
			strings.TrimSpace(result.Stderr),
		)
	}

	var spec function.DescriptorSpec
	if err := json.Unmarshal([]byte(result.Stdout), &spec); err != nil {
		return function.DescriptorSpec{}, errors.Wrap(err, "failed to parse plugin info JSON")
	}

	return spec, nil
}

// ExecFunction runs an external executable for every invocation.
type ExecFunction struct {
	function.Base

	path    string
	args    []string
	timeout time.Duration
	spec    function.DescriptorSpec
	runner  exec.CommandRunner
}

// Initialize implements function.Function.
func (f *ExecFunction) Initialize() bool {
	return f.Setup(f.spec)
}

// Execute implements function.Function.
func (f *ExecFunction) Execute(ctx function.Context) bool {
	if !f.Ready() {
		return false
	}

	fc, ok := function.AsFileContext(ctx)
	if !ok {
		return false
	}

	req, err := json.Marshal(ExecRequest{
		Context: function.Envelope{Kind: function.KindFile, File: fc},
	})
	if err != nil {
		f.Log("encoding request: " + err.Error())

		return true
	}

	runCtx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	result := f.runner.RunWithStdin(runCtx, bytes.NewReader(req), f.path, f.args...)

	switch {
	case errors.Is(result.Err, exec.ErrTimedOut):
		f.Log("plugin process timed out after " + f.timeout.String())

		return true
	case result.Err != nil && result.ExitCode <= 0:
		f.Log("plugin process failed: " + result.Err.Error())

		return true
	case result.ExitCode != 0:
		f.Log(fmt.Sprintf(
			"plugin process exited with code %d: %s",
			result.ExitCode,
			strings.TrimSpace(result.Stderr),
		))

		return true
	}

	var resp ExecResponse
	if err := json.Unmarshal([]byte(result.Stdout), &resp); err != nil {
		f.Log("invalid plugin response: " + err.Error())

		return true
	}

	for _, msg := range resp.Messages {
		channel := msg.Channel
		if channel == "" {
			channel = function.ChannelLog
		}

		f.Send(channel, msg.Payload)
	}

	return resp.Completed
}
