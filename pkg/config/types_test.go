package config_test

import (
	"time"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/launchkit/pkg/config"
)

var _ = Describe("Duration", func() {
	DescribeTable("ParseDuration accepts Go notation and day counts",
		func(text string, want time.Duration) {
			d, err := config.ParseDuration(text)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.ToDuration()).To(Equal(want))
		},
		Entry("seconds", "10s", 10*time.Second),
		Entry("mixed units", "1h30m", 90*time.Minute),
		Entry("zero", "0s", time.Duration(0)),
		Entry("days", "30d", 30*config.Day),
		Entry("days and hours", "1d12h", 36*time.Hour),
		Entry("long hours", "720h0m0s", 30*config.Day),
	)

	DescribeTable("ParseDuration rejects",
		func(text string, sentinel error) {
			_, err := config.ParseDuration(text)
			Expect(errors.Is(err, sentinel)).To(BeTrue(), "got %v", err)
		},
		Entry("words", "soon", config.ErrInvalidDuration),
		Entry("empty", "", config.ErrInvalidDuration),
		Entry("fractional days", "1.5d", config.ErrInvalidDuration),
		Entry("trailing garbage", "2dx", config.ErrInvalidDuration),
		Entry("negative", "-5s", config.ErrNegativeDuration),
		Entry("negative days", "-1d", config.ErrNegativeDuration),
	)

	It("writes whole days with the day suffix", func() {
		text, err := config.Duration(30 * config.Day).MarshalText()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(text)).To(Equal("30d"))
	})

	It("writes other values in Go notation", func() {
		Expect(config.Duration(90 * time.Minute).String()).To(Equal("1h30m0s"))
		Expect(config.Duration(36 * time.Hour).String()).To(Equal("36h0m0s"))
		Expect(config.Duration(0).String()).To(Equal("0s"))
	})

	It("round-trips through text", func() {
		for _, v := range []time.Duration{5 * time.Second, 36 * time.Hour, 7 * config.Day} {
			text, err := config.Duration(v).MarshalText()
			Expect(err).NotTo(HaveOccurred())

			var d config.Duration
			Expect(d.UnmarshalText(text)).To(Succeed())
			Expect(d.ToDuration()).To(Equal(v))
		}
	})
})

var _ = Describe("JSON Schema hooks", func() {
	It("describes Duration as a pattern-checked string", func() {
		s := config.Duration(0).JSONSchema()
		Expect(s.Type).To(Equal("string"))
		Expect(s.Pattern).To(ContainSubstring("d)?"))
	})

	It("enumerates plugin types", func() {
		s := config.PluginType("").JSONSchema()
		Expect(s.Enum).To(ConsistOf("builtin", "go", "exec", "lua"))
	})
})
