package plugin_test

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/smykla-skalski/launchkit/internal/exec"
	"github.com/smykla-skalski/launchkit/internal/plugin"
	"github.com/smykla-skalski/launchkit/pkg/config"
	"github.com/smykla-skalski/launchkit/pkg/function"
)

const notesInfo = `{
  "unique_name": "Notes",
  "display_name": "Notes opener",
  "version": "2.1",
  "extensions": {"Text file": ".txt", "Markdown": "md"}
}`

var _ = Describe("ExecLoader", func() {
	var (
		ctrl       *gomock.Controller
		runner     *exec.MockCommandRunner
		loader     *plugin.ExecLoader
		pluginDir  string
		pluginPath string
	)

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		runner = exec.NewMockCommandRunner(ctrl)

		var err error

		pluginDir, err = filepath.EvalSymlinks(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		pluginPath = filepath.Join(pluginDir, "notes")
		Expect(os.WriteFile(pluginPath, []byte("#!/bin/sh\n"), 0o700)).To(Succeed())

		loader = plugin.NewExecLoader(runner, []string{pluginDir})
	})

	load := func() *plugin.ExecFunction {
		runner.EXPECT().
			Run(gomock.Any(), pluginPath, plugin.InfoFlag).
			Return(&exec.CommandResult{Stdout: notesInfo})

		fn, err := loader.Load(&config.PluginInstanceConfig{
			Name: "notes",
			Type: config.PluginTypeExec,
			Path: pluginPath,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(fn.Initialize()).To(BeTrue())

		execFn, ok := fn.(*plugin.ExecFunction)
		Expect(ok).To(BeTrue())

		return execFn
	}

	Describe("Load", func() {
		It("should return error when path is empty", func() {
			_, err := loader.Load(&config.PluginInstanceConfig{Name: "test", Type: config.PluginTypeExec})

			Expect(err).To(MatchError(plugin.ErrPathRequired))
		})

		It("should reject shell metacharacters", func() {
			_, err := loader.Load(&config.PluginInstanceConfig{
				Name: "test",
				Type: config.PluginTypeExec,
				Path: filepath.Join(pluginDir, "plugin;rm -rf"),
			})

			Expect(err).To(MatchError(plugin.ErrDangerousChars))
		})

		It("should reject paths outside the allowed directories", func() {
			_, err := loader.Load(&config.PluginInstanceConfig{
				Name: "test",
				Type: config.PluginTypeExec,
				Path: "/usr/bin/env",
			})

			Expect(err).To(MatchError(plugin.ErrPathNotAllowed))
		})

		It("should fail when --info exits non-zero", func() {
			runner.EXPECT().
				Run(gomock.Any(), pluginPath, plugin.InfoFlag).
				Return(&exec.CommandResult{ExitCode: 2, Stderr: "boom\n", Err: io.ErrUnexpectedEOF})

			_, err := loader.Load(&config.PluginInstanceConfig{Name: "notes", Type: config.PluginTypeExec, Path: pluginPath})

			Expect(err).To(MatchError(plugin.ErrPluginInfoFailed))
			Expect(err.Error()).To(ContainSubstring("boom"))
		})

		It("should fail on malformed info", func() {
			runner.EXPECT().
				Run(gomock.Any(), pluginPath, plugin.InfoFlag).
				Return(&exec.CommandResult{Stdout: "{"})

			_, err := loader.Load(&config.PluginInstanceConfig{Name: "notes", Type: config.PluginTypeExec, Path: pluginPath})

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("parse plugin info"))
		})

		It("should pass extra args after --info", func() {
			runner.EXPECT().
				Run(gomock.Any(), pluginPath, plugin.InfoFlag, "--profile", "work").
				Return(&exec.CommandResult{Stdout: notesInfo})

			_, err := loader.Load(&config.PluginInstanceConfig{
				Name: "notes",
				Type: config.PluginTypeExec,
				Path: pluginPath,
				Args: []string{"--profile", "work"},
			})

			Expect(err).NotTo(HaveOccurred())
		})

		It("should build the descriptor from --info", func() {
			fn := load()

			d := fn.Descriptor()
			Expect(d.UniqueName()).To(Equal("Notes"))
			Expect(d.Version()).To(Equal(function.NewVersion(2, 1, 0, 0)))
			Expect(d.Supports("/tmp/README.MD")).To(BeTrue())
			Expect(d.Supports("/tmp/a.txt")).To(BeTrue())
		})
	})

	Describe("Execute", func() {
		It("should send the context envelope and forward messages", func() {
			fn := load()

			runner.EXPECT().
				RunWithStdin(gomock.Any(), gomock.Any(), pluginPath).
				DoAndReturn(func(ctx context.Context, stdin io.Reader, _ string, _ ...string) *exec.CommandResult {
					_, hasDeadline := ctx.Deadline()
					Expect(hasDeadline).To(BeTrue())

					var req plugin.ExecRequest
					Expect(json.NewDecoder(stdin).Decode(&req)).To(Succeed())
					Expect(req.Context.Kind).To(Equal(function.KindFile))
					Expect(req.Context.File.FilePath).To(Equal("/tmp/todo.txt"))
					Expect(req.Context.File.Parameters).To(Equal("--today"))

					return &exec.CommandResult{
						Stdout: `{"completed": true, "messages": [{"channel": "log", "payload": "opened"}, {"channel": "status", "payload": "ok"}]}`,
					}
				})

			Expect(fn.Execute(&function.FileContext{FilePath: "/tmp/todo.txt", Parameters: "--today"})).To(BeTrue())

			msgs := fn.Bus().Drain()
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0].Channel).To(Equal(function.ChannelLog))
			Expect(msgs[0].Payload).To(Equal("opened"))
			Expect(msgs[1].Channel).To(Equal("status"))
		})

		It("should report process failures as a single log message", func() {
			fn := load()

			runner.EXPECT().
				RunWithStdin(gomock.Any(), gomock.Any(), pluginPath).
				Return(&exec.CommandResult{ExitCode: 1, Stderr: "no such file", Err: io.EOF})

			Expect(fn.Execute(&function.FileContext{FilePath: "/tmp/missing.txt"})).To(BeTrue())

			msgs := fn.Bus().Drain()
			Expect(msgs).To(HaveLen(1))
			Expect(msgs[0].Payload).To(ContainSubstring("exited with code 1"))
			Expect(msgs[0].Payload).To(ContainSubstring("no such file"))
		})

		It("should report start failures", func() {
			fn := load()

			runner.EXPECT().
				RunWithStdin(gomock.Any(), gomock.Any(), pluginPath).
				Return(&exec.CommandResult{ExitCode: -1, Err: os.ErrPermission})

			Expect(fn.Execute(&function.FileContext{FilePath: "/tmp/a.txt"})).To(BeTrue())
			Expect(fn.Bus().Drain()).To(HaveLen(1))
		})

		It("should report invalid responses", func() {
			fn := load()

			runner.EXPECT().
				RunWithStdin(gomock.Any(), gomock.Any(), pluginPath).
				Return(&exec.CommandResult{Stdout: "not json"})

			Expect(fn.Execute(&function.FileContext{FilePath: "/tmp/a.txt"})).To(BeTrue())

			msgs := fn.Bus().Drain()
			Expect(msgs).To(HaveLen(1))
			Expect(msgs[0].Payload).To(ContainSubstring("invalid plugin response"))
		})

		It("should pass through a refusal", func() {
			fn := load()

			runner.EXPECT().
				RunWithStdin(gomock.Any(), gomock.Any(), pluginPath).
				Return(&exec.CommandResult{Stdout: `{"completed": false}`})

			Expect(fn.Execute(&function.FileContext{FilePath: "/tmp/a.txt"})).To(BeFalse())
		})

		It("should refuse foreign contexts without running the process", func() {
			fn := load()

			Expect(fn.Execute(urlContext{})).To(BeFalse())
			Expect(fn.Bus().Drain()).To(BeEmpty())
		})
	})

	Describe("with a real executable", func() {
		It("should speak the protocol end to end", func() {
			script := filepath.Join(pluginDir, "echo-plugin")
			Expect(os.WriteFile(script, []byte(`#!/bin/sh
if [ "$1" = "--info" ]; then
  echo '{"unique_name": "Echo", "version": "1.0", "extensions": {"Log": ".log"}}'
  exit 0
fi
input=$(cat)
case "$input" in
  *'"kind":"file"'*) echo '{"completed": true, "messages": [{"channel": "log", "payload": "got file"}]}' ;;
  *) echo '{"completed": false}' ;;
esac
`), 0o700)).To(Succeed())

			realLoader := plugin.NewExecLoader(exec.NewCommandRunner(5*time.Second), []string{pluginDir})

			fn, err := realLoader.Load(&config.PluginInstanceConfig{Name: "echo", Type: config.PluginTypeExec, Path: script})
			Expect(err).NotTo(HaveOccurred())
			Expect(fn.Initialize()).To(BeTrue())
			Expect(fn.Descriptor().UniqueName()).To(Equal("Echo"))

			Expect(fn.Execute(&function.FileContext{FilePath: "/var/log/app.log"})).To(BeTrue())

			msgs := fn.Bus().Drain()
			Expect(msgs).To(HaveLen(1))
			Expect(msgs[0].Payload).To(Equal("got file"))
		})
	})
})

type urlContext struct{}

func (urlContext) Kind() function.ContextKind { return "url" }
