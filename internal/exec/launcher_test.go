package exec_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/smykla-skalski/launchkit/internal/exec"
)

var _ = Describe("Launcher", func() {
	var (
		dir    string
		target string
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		target = filepath.Join(dir, "notes.txt")
		Expect(os.WriteFile(target, []byte("hello"), 0o600)).To(Succeed())
	})

	readMarker := func(path string) func() string {
		return func() string {
			data, err := os.ReadFile(path)
			if err != nil {
				return ""
			}

			return strings.TrimSpace(string(data))
		}
	}

	Describe("ResolveTarget", func() {
		It("returns the absolute path of existing targets", func() {
			abs, err := exec.ResolveTarget(target)

			Expect(err).NotTo(HaveOccurred())
			Expect(filepath.IsAbs(abs)).To(BeTrue())
		})

		It("reports missing targets", func() {
			_, err := exec.ResolveTarget(filepath.Join(dir, "missing.lnk"))

			Expect(err).To(MatchError(exec.ErrTargetNotFound))
			Expect(err.Error()).To(ContainSubstring("missing.lnk"))
		})

		It("reports windows paths that do not exist here", func() {
			_, err := exec.ResolveTarget(`C:\nonexistent.lnk`)

			Expect(err).To(MatchError(exec.ErrTargetNotFound))
			Expect(err.Error()).To(ContainSubstring(`C:\nonexistent.lnk`))
		})

		It("rejects empty paths", func() {
			_, err := exec.ResolveTarget("")

			Expect(err).To(MatchError(exec.ErrTargetNotFound))
		})
	})

	Describe("OpenerLauncher", func() {
		var ctrl *gomock.Controller

		BeforeEach(func() {
			ctrl = gomock.NewController(GinkgoT())
		})

		Describe("Opener", func() {
			It("prefers xdg-open on linux", func() {
				tools := exec.NewMockToolChecker(ctrl)
				tools.EXPECT().FindTool("xdg-open", "gio").Return("xdg-open")

				opener, err := exec.NewOpenerLauncher(exec.WithGOOS("linux"), exec.WithToolChecker(tools)).Opener()

				Expect(err).NotTo(HaveOccurred())
				Expect(opener).To(Equal([]string{"xdg-open"}))
			})

			It("falls back to gio open", func() {
				tools := exec.NewMockToolChecker(ctrl)
				tools.EXPECT().FindTool("xdg-open", "gio").Return("gio")

				opener, err := exec.NewOpenerLauncher(exec.WithGOOS("freebsd"), exec.WithToolChecker(tools)).Opener()

				Expect(err).NotTo(HaveOccurred())
				Expect(opener).To(Equal([]string{"gio", "open"}))
			})

			It("fails when no opener is installed", func() {
				tools := exec.NewMockToolChecker(ctrl)
				tools.EXPECT().FindTool("xdg-open", "gio").Return("")

				_, err := exec.NewOpenerLauncher(exec.WithGOOS("linux"), exec.WithToolChecker(tools)).Opener()

				Expect(err).To(MatchError(exec.ErrNoOpener))
			})

			It("uses open on macOS", func() {
				opener, err := exec.NewOpenerLauncher(exec.WithGOOS("darwin")).Opener()

				Expect(err).NotTo(HaveOccurred())
				Expect(opener).To(Equal([]string{"open"}))
			})

			It("uses the protocol handler on windows", func() {
				opener, err := exec.NewOpenerLauncher(exec.WithGOOS("windows")).Opener()

				Expect(err).NotTo(HaveOccurred())
				Expect(opener).To(Equal([]string{"rundll32", "url.dll,FileProtocolHandler"}))
			})

			It("prefers a configured opener", func() {
				opener, err := exec.NewOpenerLauncher(exec.WithGOOS("darwin"), exec.WithOpener("mimeopen", "-n")).Opener()

				Expect(err).NotTo(HaveOccurred())
				Expect(opener).To(Equal([]string{"mimeopen", "-n"}))
			})
		})

		It("starts the opener in the target directory", func() {
			marker := filepath.Join(dir, "cwd.out")
			launcher := exec.NewOpenerLauncher(exec.WithOpener("sh", "-c", `pwd > cwd.out; echo "$0" >> cwd.out`))

			Expect(launcher.Launch(context.Background(), exec.Target{Path: target})).To(Succeed())

			resolvedDir, err := filepath.EvalSymlinks(dir)
			Expect(err).NotTo(HaveOccurred())

			Eventually(readMarker(marker)).Should(SatisfyAny(
				Equal(dir+"\n"+target),
				Equal(resolvedDir+"\n"+target),
			))
		})

		It("honors an explicit working directory", func() {
			work := GinkgoT().TempDir()
			launcher := exec.NewOpenerLauncher(exec.WithOpener("sh", "-c", "pwd > cwd.out"))

			Expect(launcher.Launch(context.Background(), exec.Target{Path: target, Dir: work})).To(Succeed())

			Eventually(func() bool {
				_, err := os.Stat(filepath.Join(work, "cwd.out"))
				return err == nil
			}).Should(BeTrue())
		})

		It("does not start anything for missing targets", func() {
			launcher := exec.NewOpenerLauncher(exec.WithOpener("sh", "-c", "exit 0"))

			err := launcher.Launch(context.Background(), exec.Target{Path: filepath.Join(dir, "gone.lnk")})

			Expect(err).To(MatchError(exec.ErrTargetNotFound))
		})

		It("reports openers that cannot be started", func() {
			launcher := exec.NewOpenerLauncher(exec.WithOpener("nonexistent-opener-xyz"))

			err := launcher.Launch(context.Background(), exec.Target{Path: target})

			Expect(err).To(MatchError(exec.ErrNotLaunchable))
		})

		It("refuses to launch with a cancelled context", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			launcher := exec.NewOpenerLauncher(exec.WithOpener("sh", "-c", "exit 0"))

			Expect(launcher.Launch(ctx, exec.Target{Path: target})).To(MatchError(context.Canceled))
		})
	})

	Describe("DirectLauncher", func() {
		var launcher *exec.DirectLauncher

		BeforeEach(func() {
			launcher = exec.NewDirectLauncher()
		})

		It("runs executables with their arguments", func() {
			script := filepath.Join(dir, "run.sh")
			Expect(os.WriteFile(script, []byte("#!/bin/sh\necho \"$@\" > args.out\n"), 0o700)).To(Succeed())

			Expect(launcher.Launch(context.Background(), exec.Target{
				Path: script,
				Args: []string{"one", "two"},
			})).To(Succeed())

			Eventually(readMarker(filepath.Join(dir, "args.out"))).Should(Equal("one two"))
		})

		It("refuses files without the executable bit", func() {
			err := launcher.Launch(context.Background(), exec.Target{Path: target})

			Expect(err).To(MatchError(exec.ErrNotLaunchable))
		})

		It("refuses directories", func() {
			err := launcher.Launch(context.Background(), exec.Target{Path: dir})

			Expect(err).To(MatchError(exec.ErrNotLaunchable))
		})

		It("runs plain files through an interpreter", func() {
			script := filepath.Join(dir, "plain.sh")
			Expect(os.WriteFile(script, []byte("echo ran > plain.out\n"), 0o600)).To(Succeed())

			Expect(launcher.Launch(context.Background(), exec.Target{
				Path:        script,
				Interpreter: []string{"sh"},
			})).To(Succeed())

			Eventually(readMarker(filepath.Join(dir, "plain.out"))).Should(Equal("ran"))
		})

		It("reports missing targets", func() {
			err := launcher.Launch(context.Background(), exec.Target{Path: filepath.Join(dir, "none.sh")})

			Expect(err).To(MatchError(exec.ErrTargetNotFound))
		})
	})
})
