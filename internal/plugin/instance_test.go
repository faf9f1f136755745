package plugin_test

import (
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/launchkit/internal/plugin"
	"github.com/smykla-skalski/launchkit/pkg/config"
	"github.com/smykla-skalski/launchkit/pkg/function"
)

var _ = Describe("Instance", func() {
	var (
		registry *plugin.Registry
		fn       *testFunction
	)

	register := func() *plugin.Instance {
		inst, err := registry.LoadPlugin(&config.PluginInstanceConfig{Name: "probe", Type: "test"})
		Expect(err).NotTo(HaveOccurred())

		return inst
	}

	BeforeEach(func() {
		fn = newTestFunction("Probe", map[string]string{"Text": ".txt"})
		registry = plugin.NewRegistry(nil, plugin.WithLoader("test", staticLoader{fn: fn}))
	})

	It("collects the diagnostics of one call", func() {
		fn.execute = func(f *testFunction, _ function.Context) bool {
			f.Log("could not open")

			return true
		}

		inst := register()

		res, err := inst.Execute(&function.FileContext{FilePath: "/tmp/a.txt"})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Completed).To(BeTrue())
		Expect(res.Diagnostics).To(HaveLen(1))
		Expect(res.Diagnostics[0].Plugin).To(Equal("Probe"))
		Expect(res.Diagnostics[0].InstanceID).To(Equal(inst.ID()))
		Expect(res.Diagnostics[0].Payload).To(Equal("could not open"))
	})

	It("reports refusals as not completed", func() {
		inst := register()

		res, err := inst.Execute(urlContext{})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Completed).To(BeFalse())
		Expect(res.Diagnostics).To(BeEmpty())
	})

	It("turns panics into a FatalError and stays faulted", func() {
		fn.execute = func(*testFunction, function.Context) bool {
			panic("nil map in /home/dev/plugin.go")
		}

		inst := register()

		_, err := inst.Execute(&function.FileContext{FilePath: "/tmp/a.txt"})

		var fatal *plugin.FatalError
		Expect(err).To(BeAssignableToTypeOf(fatal))
		fatal = err.(*plugin.FatalError)
		Expect(fatal.Plugin).To(Equal("Probe"))
		Expect(fatal.Op).To(Equal("execute"))
		Expect(fatal.Stack).NotTo(BeEmpty())
		Expect(fatal.Error()).NotTo(ContainSubstring("/home/dev"))

		Expect(inst.Faulted()).To(HaveOccurred())
		Expect(inst.Active()).To(BeFalse())

		_, err = inst.Execute(&function.FileContext{FilePath: "/tmp/a.txt"})
		Expect(err).To(MatchError(plugin.ErrFaulted))
	})

	It("refuses destroyed plugins", func() {
		inst := register()

		Expect(inst.Destroy()).To(Succeed())
		Expect(inst.Destroy()).To(Succeed())

		_, err := inst.Execute(&function.FileContext{FilePath: "/tmp/a.txt"})
		Expect(err).To(MatchError(plugin.ErrDestroyed))
	})

	It("serializes concurrent calls", func() {
		var inFlight, peak atomic.Int32

		fn.execute = func(*testFunction, function.Context) bool {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}

			time.Sleep(2 * time.Millisecond)
			inFlight.Add(-1)

			return true
		}

		inst := register()

		var wg sync.WaitGroup

		for range 10 {
			wg.Add(1)

			go func() {
				defer GinkgoRecover()
				defer wg.Done()

				_, err := inst.Execute(&function.FileContext{FilePath: "/tmp/a.txt"})
				Expect(err).NotTo(HaveOccurred())
			}()
		}

		wg.Wait()

		Expect(peak.Load()).To(Equal(int32(1)))
	})

	It("exposes settings as a copy", func() {
		inst := register()

		s := inst.Settings()
		s["x"] = 1

		Expect(inst.Settings()).NotTo(HaveKey("x"))
	})
})

// staticLoader hands out a fixed plugin.
type staticLoader struct {
	fn  function.Function
	err error
}

//nolint:ireturn // Loader
func (l staticLoader) Load(*config.PluginInstanceConfig) (function.Function, error) {
	return l.fn, l.err
}

func (staticLoader) Close() error { return nil }
