package function_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/launchkit/pkg/function"
)

var _ = Describe("Bus", func() {
	var bus *function.Bus

	BeforeEach(func() {
		bus = function.NewBus()
	})

	It("delivers messages in send order", func() {
		bus.Send("progress", "one")
		bus.Log("two")
		bus.Send("progress", "three")

		msgs := bus.Drain()

		Expect(msgs).To(HaveLen(3))
		Expect(msgs[0].Channel).To(Equal("progress"))
		Expect(msgs[0].Payload).To(Equal("one"))
		Expect(msgs[1].Channel).To(Equal(function.ChannelLog))
		Expect(msgs[1].Payload).To(Equal("two"))
		Expect(msgs[2].Payload).To(Equal("three"))
		Expect(msgs[0].Time).NotTo(BeZero())
	})

	It("empties the queue on drain", func() {
		bus.Log("once")

		Expect(bus.Len()).To(Equal(1))
		Expect(bus.Drain()).To(HaveLen(1))
		Expect(bus.Len()).To(BeZero())
		Expect(bus.Drain()).To(BeEmpty())
	})

	It("notifies after a send", func() {
		Expect(bus.Notify()).NotTo(Receive())

		bus.Log("ping")
		bus.Log("pong")

		Eventually(bus.Notify()).Should(Receive())
		Expect(bus.Drain()).To(HaveLen(2))
	})

	It("ignores sends after close but keeps queued messages", func() {
		bus.Log("before")
		bus.Close()
		bus.Log("after")

		Expect(bus.Closed()).To(BeTrue())

		msgs := bus.Drain()
		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].Payload).To(Equal("before"))
	})

	It("never blocks concurrent senders", func() {
		const senders = 16
		const perSender = 100

		var wg sync.WaitGroup

		for range senders {
			wg.Add(1)

			go func() {
				defer wg.Done()

				for range perSender {
					bus.Send("progress", "tick")
				}
			}()
		}

		wg.Wait()

		Expect(bus.Drain()).To(HaveLen(senders * perSender))
	})
})
