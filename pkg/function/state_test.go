package function_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/launchkit/pkg/function"
)

var _ = Describe("State", func() {
	It("renders lower-case names", func() {
		Expect(function.StateUninitialized.String()).To(Equal("uninitialized"))
		Expect(function.StateActive.String()).To(Equal("active"))
	})

	It("parses names case-insensitively", func() {
		s, err := function.StateString("Destroyed")

		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(Equal(function.StateDestroyed))

		_, err = function.StateString("running")
		Expect(err).To(HaveOccurred())
	})

	It("marshals as JSON strings", func() {
		data, err := json.Marshal(function.StateInitialized)

		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(`"initialized"`))
	})

	It("is executable only when initialized or active", func() {
		Expect(function.StateUninitialized.Executable()).To(BeFalse())
		Expect(function.StateInitialized.Executable()).To(BeTrue())
		Expect(function.StateActive.Executable()).To(BeTrue())
		Expect(function.StateDestroyed.Executable()).To(BeFalse())
	})
})
