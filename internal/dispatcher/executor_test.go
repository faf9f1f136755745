package dispatcher_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/launchkit/internal/dispatcher"
	"github.com/smykla-skalski/launchkit/internal/plugin"
	"github.com/smykla-skalski/launchkit/pkg/config"
	"github.com/smykla-skalski/launchkit/pkg/function"
	"github.com/smykla-skalski/launchkit/pkg/logger"
)

var _ = Describe("Executor", func() {
	var (
		log     logger.Logger
		alpha   *probeFunction
		beta    *probeFunction
		reg     *plugin.Registry
		txtPath string
	)

	BeforeEach(func() {
		log = logger.NewNoOpLogger()

		alpha = newProbe("Alpha", map[string]string{"Text": ".txt"})
		alpha.execute = sleepy(50 * time.Millisecond)
		beta = newProbe("Beta", map[string]string{"Text": ".txt"})
		beta.execute = sleepy(50 * time.Millisecond)

		loader := &probeLoader{probes: map[string]*probeFunction{"alpha": alpha, "beta": beta}}
		reg = plugin.NewRegistry(log, plugin.WithLoader(config.PluginTypeGo, loader))
		DeferCleanup(reg.Close)

		for _, name := range []string{"alpha", "beta"} {
			_, err := reg.LoadPlugin(&config.PluginInstanceConfig{Name: name, Type: config.PluginTypeGo})
			Expect(err).NotTo(HaveOccurred())
		}

		txtPath = filepath.Join(GinkgoT().TempDir(), "notes.txt")
		Expect(os.WriteFile(txtPath, nil, 0o600)).To(Succeed())
	})

	def := func(name string) dispatcher.Definition {
		return dispatcher.Definition{DisplayName: "Notes " + name, Plugin: name, Path: txtPath}
	}

	Describe("SequentialExecutor", func() {
		It("runs definitions in order", func() {
			d := dispatcher.NewDispatcher(reg, log)

			results := d.DispatchAll(context.Background(), []dispatcher.Definition{def("alpha"), def("beta"), def("alpha")})
			Expect(results).To(HaveLen(3))

			for i, r := range results {
				Expect(r.Err).NotTo(HaveOccurred(), "result %d", i)
				Expect(r.Outcome.Completed).To(BeTrue())
			}

			Expect(results[1].Outcome.Plugin).To(Equal("Beta"))
			Expect(alpha.calls.Load()).To(Equal(int32(2)))
			Expect(alpha.peak.Load()).To(Equal(int32(1)))
		})

		It("skips the rest once the context is done", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			results := dispatcher.NewSequentialExecutor(log).Execute(ctx,
				dispatcher.NewDispatcher(reg, log),
				[]dispatcher.Definition{def("alpha"), def("beta")},
			)

			Expect(results).To(HaveLen(2))
			Expect(results[0].Err).To(MatchError(context.Canceled))
			Expect(results[1].Definition.Plugin).To(Equal("beta"))
			Expect(alpha.calls.Load()).To(BeZero())
		})

		It("keeps going after a failing definition", func() {
			d := dispatcher.NewDispatcher(reg, log)

			results := d.DispatchAll(context.Background(), []dispatcher.Definition{def("missing"), def("beta")})
			Expect(results[0].Err).To(MatchError(dispatcher.ErrUnknownPlugin))
			Expect(results[0].Outcome).To(BeNil())
			Expect(results[1].Err).NotTo(HaveOccurred())
		})
	})

	Describe("ParallelExecutor", func() {
		It("runs different plugins concurrently", func() {
			var started sync.WaitGroup
			started.Add(2)

			both := make(chan struct{})
			go func() {
				started.Wait()
				close(both)
			}()

			rendezvous := func(*probeFunction, *function.FileContext) bool {
				started.Done()

				select {
				case <-both:
					return true
				case <-time.After(time.Second):
					return false
				}
			}

			alpha.execute = rendezvous
			beta.execute = rendezvous

			d := dispatcher.NewDispatcher(reg, log,
				dispatcher.WithExecutor(dispatcher.NewParallelExecutor(log, 2)))

			results := d.DispatchAll(context.Background(), []dispatcher.Definition{def("alpha"), def("beta")})

			Expect(results[0].Err).NotTo(HaveOccurred())
			Expect(results[1].Err).NotTo(HaveOccurred())
			Expect(results[0].Outcome.Plugin).To(Equal("Alpha"))
			Expect(results[1].Outcome.Plugin).To(Equal("Beta"))
		})

		It("serializes calls on the same plugin", func() {
			d := dispatcher.NewDispatcher(reg, log,
				dispatcher.WithExecutor(dispatcher.NewParallelExecutor(log, 4)))

			defs := []dispatcher.Definition{def("alpha"), def("alpha"), def("alpha"), def("alpha")}
			results := d.DispatchAll(context.Background(), defs)

			for _, r := range results {
				Expect(r.Err).NotTo(HaveOccurred())
			}

			Expect(alpha.calls.Load()).To(Equal(int32(4)))
			Expect(alpha.peak.Load()).To(Equal(int32(1)))
		})

		It("defaults to one worker per CPU", func() {
			e := dispatcher.NewParallelExecutor(log, 0)
			results := e.Execute(context.Background(), dispatcher.NewDispatcher(reg, log),
				[]dispatcher.Definition{def("beta")})

			Expect(results).To(HaveLen(1))
			Expect(results[0].Outcome.Completed).To(BeTrue())
		})

		It("reports definitions it could not start", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			e := dispatcher.NewParallelExecutor(log, 1)
			results := e.Execute(ctx, dispatcher.NewDispatcher(reg, log),
				[]dispatcher.Definition{def("alpha"), def("beta")})

			for _, r := range results {
				Expect(r.Err).To(HaveOccurred())
			}
		})
	})
})
