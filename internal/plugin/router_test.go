package plugin_test

import (
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/launchkit/internal/plugin"
	"github.com/smykla-skalski/launchkit/pkg/function"
)

var _ = Describe("DiagnosticRouter", func() {
	var (
		log *recordingLogger
		bus *function.Bus
		id  uuid.UUID
	)

	BeforeEach(func() {
		log = &recordingLogger{}
		bus = function.NewBus()
		id = uuid.New()
	})

	It("attributes messages and keeps their order", func() {
		bus.Log("first")
		bus.Send("progress", "50%")
		bus.Log("second")

		got := plugin.NewDiagnosticRouter(log).Route("Shortcut", id, bus)

		Expect(got).To(HaveLen(3))
		Expect(got[0].Payload).To(Equal("first"))
		Expect(got[1].Channel).To(Equal("progress"))
		Expect(got[2].Payload).To(Equal("second"))

		for _, d := range got {
			Expect(d.Plugin).To(Equal("Shortcut"))
			Expect(d.InstanceID).To(Equal(id))
		}

		Expect(bus.Len()).To(BeZero())
	})

	It("logs the log channel and hands others to the handler", func() {
		var handled []plugin.Diagnostic

		router := plugin.NewDiagnosticRouter(log, plugin.WithChannelHandler(func(d plugin.Diagnostic) {
			handled = append(handled, d)
		}))

		bus.Log("cannot open")
		bus.Send("progress", "done")

		router.Route("Shortcut", id, bus)

		Expect(log.Messages("info")).To(Equal([]string{"plugin diagnostic"}))
		Expect(handled).To(HaveLen(1))
		Expect(handled[0].Payload).To(Equal("done"))
	})

	It("logs unhandled channels at debug level", func() {
		bus.Send("progress", "done")

		plugin.NewDiagnosticRouter(log).Route("Shortcut", id, bus)

		Expect(log.Messages("debug")).To(Equal([]string{"unhandled plugin message"}))
	})

	It("tolerates a nil bus and a nil logger", func() {
		Expect(plugin.NewDiagnosticRouter(nil).Route("x", id, nil)).To(BeNil())
	})
})
