package dispatcher_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/smykla-skalski/launchkit/internal/dispatcher"
	"github.com/smykla-skalski/launchkit/internal/exec"
	"github.com/smykla-skalski/launchkit/internal/functions"
	"github.com/smykla-skalski/launchkit/internal/plugin"
	"github.com/smykla-skalski/launchkit/pkg/config"
	"github.com/smykla-skalski/launchkit/pkg/function"
	"github.com/smykla-skalski/launchkit/pkg/logger"
)

func boolPtr(b bool) *bool { return &b }

var _ = Describe("Dispatcher", func() {
	var (
		ctrl     *gomock.Controller
		launcher *exec.MockLauncher
		registry *plugin.Registry
		tmpDir   string
		lnk      string
	)

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		launcher = exec.NewMockLauncher(ctrl)

		registry = plugin.NewRegistry(logger.NewNoOpLogger(),
			plugin.WithDependencies(functions.Dependencies{
				Launcher:       launcher,
				DirectLauncher: launcher,
			}),
		)
		Expect(registry.LoadPlugins(&config.PluginConfig{Discover: boolPtr(false)}, "")).To(Succeed())

		tmpDir = GinkgoT().TempDir()
		lnk = filepath.Join(tmpDir, "Editor.LNK")
		Expect(os.WriteFile(lnk, []byte("shortcut"), 0o600)).To(Succeed())

		DeferCleanup(func() {
			Expect(registry.Close()).To(Succeed())
		})
	})

	Describe("Validate", func() {
		var d *dispatcher.Dispatcher

		BeforeEach(func() {
			d = dispatcher.NewDispatcher(registry, nil)
		})

		DescribeTable("display name length",
			func(name string, valid bool) {
				err := d.Validate(dispatcher.Definition{DisplayName: name, Plugin: "shortcut", Path: lnk})
				if valid {
					Expect(err).NotTo(HaveOccurred())
				} else {
					Expect(err).To(MatchError(dispatcher.ErrInvalidDisplayName))
				}
			},
			Entry("four characters", "abcd", false),
			Entry("padded four characters", "   abcd   ", false),
			Entry("five characters", "abcde", true),
			Entry("twenty five characters", "abcdefghijklmnopqrstuvwxy", true),
			Entry("twenty six characters", "abcdefghijklmnopqrstuvwxyz", false),
			Entry("multibyte counted by rune", "ääääö", true),
		)

		It("rejects unknown plugins", func() {
			err := d.Validate(dispatcher.Definition{DisplayName: "Editor", Plugin: "nope", Path: lnk})
			Expect(err).To(MatchError(dispatcher.ErrUnknownPlugin))
		})

		It("rejects inactive plugins", func() {
			inst, ok := registry.Get("shortcut")
			Expect(ok).To(BeTrue())
			inst.SetActive(false)

			err := d.Validate(dispatcher.Definition{DisplayName: "Editor", Plugin: "shortcut", Path: lnk})
			Expect(err).To(MatchError(dispatcher.ErrPluginInactive))
		})

		It("rejects missing files and directories", func() {
			err := d.Validate(dispatcher.Definition{
				DisplayName: "Editor",
				Plugin:      "shortcut",
				Path:        filepath.Join(tmpDir, "missing.lnk"),
			})
			Expect(err).To(MatchError(dispatcher.ErrFileNotFound))

			dir := filepath.Join(tmpDir, "folder.lnk")
			Expect(os.Mkdir(dir, 0o755)).To(Succeed())

			err = d.Validate(dispatcher.Definition{DisplayName: "Editor", Plugin: "shortcut", Path: dir})
			Expect(err).To(MatchError(dispatcher.ErrFileNotFound))
		})

		It("rejects files the plugin does not support", func() {
			txt := filepath.Join(tmpDir, "notes.txt")
			Expect(os.WriteFile(txt, nil, 0o600)).To(Succeed())

			err := d.Validate(dispatcher.Definition{DisplayName: "Editor", Plugin: "shortcut", Path: txt})
			Expect(err).To(MatchError(dispatcher.ErrIneligible))
		})

		It("reports every problem at once", func() {
			err := d.Validate(dispatcher.Definition{DisplayName: "x", Plugin: "nope", Path: "/does/not/exist"})
			Expect(errors.Is(err, dispatcher.ErrInvalidDisplayName)).To(BeTrue())
			Expect(errors.Is(err, dispatcher.ErrUnknownPlugin)).To(BeTrue())
			Expect(errors.Is(err, dispatcher.ErrFileNotFound)).To(BeTrue())
		})

		It("resolves plugins case-insensitively", func() {
			err := d.Validate(dispatcher.Definition{DisplayName: "Editor", Plugin: "SHORTCUT", Path: lnk})
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Dispatch", func() {
		It("launches the target and measures the call", func() {
			clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			d := dispatcher.NewDispatcher(registry, nil, dispatcher.WithClock(func() time.Time {
				clock = clock.Add(time.Second)

				return clock
			}))

			launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, target exec.Target) error {
					Expect(target.Path).To(Equal(lnk))
					Expect(target.Dir).To(Equal(tmpDir))

					return nil
				})

			outcome, err := d.Dispatch(context.Background(), dispatcher.Definition{
				DisplayName: "Editor",
				Plugin:      "shortcut",
				Path:        lnk,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Completed).To(BeTrue())
			Expect(outcome.Plugin).To(Equal("Shortcut"))
			Expect(outcome.Diagnostics).To(BeEmpty())
			Expect(outcome.Elapsed).To(Equal(time.Second))
		})

		It("trims the path before checking and launching it", func() {
			d := dispatcher.NewDispatcher(registry, nil)

			launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, target exec.Target) error {
					Expect(target.Path).To(Equal(lnk))

					return nil
				})

			padded := dispatcher.Definition{DisplayName: " Editor ", Plugin: "shortcut", Path: "  " + lnk + "\t"}
			Expect(d.Validate(padded)).To(Succeed())

			outcome, err := d.Dispatch(context.Background(), padded)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Definition.Path).To(Equal(lnk))
			Expect(outcome.Diagnostics).To(BeEmpty())
		})

		It("does not reach the plugin when validation fails", func() {
			d := dispatcher.NewDispatcher(registry, nil)

			outcome, err := d.Dispatch(context.Background(), dispatcher.Definition{
				DisplayName: "Editor",
				Plugin:      "shortcut",
				Path:        filepath.Join(tmpDir, "gone.lnk"),
			})
			Expect(err).To(MatchError(dispatcher.ErrFileNotFound))
			Expect(outcome).To(BeNil())
		})

		It("hands unchecked definitions to the plugin when forced", func() {
			d := dispatcher.NewDispatcher(registry, nil, dispatcher.WithForce(true))
			missing := filepath.Join(tmpDir, "gone.lnk")

			launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).
				Return(errors.Wrap(exec.ErrTargetNotFound, missing))

			outcome, err := d.Dispatch(context.Background(), dispatcher.Definition{
				DisplayName: "x",
				Plugin:      "shortcut",
				Path:        missing,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Completed).To(BeTrue())
			Expect(outcome.Diagnostics).To(HaveLen(1))
			Expect(outcome.Diagnostics[0].Channel).To(Equal(function.ChannelLog))
			Expect(outcome.Diagnostics[0].Payload).To(ContainSubstring("launch failed"))
		})

		It("still requires a known plugin when forced", func() {
			d := dispatcher.NewDispatcher(registry, nil, dispatcher.WithForce(true))

			_, err := d.Dispatch(context.Background(), dispatcher.Definition{Plugin: "nope", Path: lnk})
			Expect(err).To(MatchError(dispatcher.ErrUnknownPlugin))
		})

		It("passes parameters and resolved settings to the plugin", func() {
			script := filepath.Join(tmpDir, "build.sh")
			Expect(os.WriteFile(script, []byte("#!/bin/sh\n"), 0o600)).To(Succeed())

			launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, target exec.Target) error {
					Expect(target.Args).To(ContainElements("--target", "release build"))

					return nil
				})

			d := dispatcher.NewDispatcher(registry, nil)

			outcome, err := d.Dispatch(context.Background(), dispatcher.Definition{
				DisplayName: "Build it",
				Plugin:      "script",
				Path:        script,
				Parameters:  `--target "release build"`,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Completed).To(BeTrue())
		})

		It("fails fast on a cancelled context", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := dispatcher.NewDispatcher(registry, nil).Dispatch(ctx, dispatcher.Definition{
				DisplayName: "Editor",
				Plugin:      "shortcut",
				Path:        lnk,
			})
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	Context("with in-process plugins", func() {
		var (
			refuser *probeFunction
			crasher *probeFunction
			d       *dispatcher.Dispatcher
			txt     string
		)

		BeforeEach(func() {
			refuser = newProbe("Refuser", map[string]string{"Text": ".txt"})
			refuser.execute = func(*probeFunction, *function.FileContext) bool { return false }

			crasher = newProbe("Crasher", map[string]string{"Text": ".txt"})
			crasher.execute = func(*probeFunction, *function.FileContext) bool { panic("boom") }

			loader := &probeLoader{probes: map[string]*probeFunction{"refuser": refuser, "crasher": crasher}}
			reg := plugin.NewRegistry(nil, plugin.WithLoader(config.PluginTypeGo, loader))
			DeferCleanup(reg.Close)

			for _, name := range []string{"refuser", "crasher"} {
				_, err := reg.LoadPlugin(&config.PluginInstanceConfig{Name: name, Type: config.PluginTypeGo})
				Expect(err).NotTo(HaveOccurred())
			}

			txt = filepath.Join(tmpDir, "notes.txt")
			Expect(os.WriteFile(txt, nil, 0o600)).To(Succeed())

			d = dispatcher.NewDispatcher(reg, nil)
		})

		It("reports a refusal", func() {
			outcome, err := d.Dispatch(context.Background(), dispatcher.Definition{
				DisplayName: "Notes", Plugin: "refuser", Path: txt,
			})
			Expect(err).To(MatchError(dispatcher.ErrNotCompleted))
			Expect(outcome.Completed).To(BeFalse())
		})

		It("surfaces plugin crashes as fatal errors", func() {
			outcome, err := d.Dispatch(context.Background(), dispatcher.Definition{
				DisplayName: "Notes", Plugin: "crasher", Path: txt,
			})

			var fatal *plugin.FatalError
			Expect(errors.As(err, &fatal)).To(BeTrue())
			Expect(fatal.Plugin).To(Equal("Crasher"))
			Expect(outcome).NotTo(BeNil())
			Expect(outcome.Completed).To(BeFalse())

			err = d.Validate(dispatcher.Definition{DisplayName: "Notes", Plugin: "crasher", Path: txt})
			Expect(err).To(MatchError(dispatcher.ErrPluginInactive))
		})
	})
})
