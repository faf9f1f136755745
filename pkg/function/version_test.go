package function_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smykla-skalski/launchkit/pkg/function"
)

var _ = Describe("Version", func() {
	DescribeTable("ParseVersion",
		func(in string, expected function.Version) {
			v, err := function.ParseVersion(in)

			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(expected))
		},
		Entry("four components", "1.0.0.0", function.NewVersion(1, 0, 0, 0)),
		Entry("three components", "1.2.3", function.NewVersion(1, 2, 3, 0)),
		Entry("single component", "7", function.NewVersion(7, 0, 0, 0)),
		Entry("leading v", "v2.1", function.NewVersion(2, 1, 0, 0)),
		Entry("padded", " 1.2.3.4 ", function.NewVersion(1, 2, 3, 4)),
	)

	DescribeTable("rejects malformed versions",
		func(in string) {
			_, err := function.ParseVersion(in)

			Expect(err).To(MatchError(function.ErrInvalidVersion))
		},
		Entry("empty", ""),
		Entry("too many components", "1.2.3.4.5"),
		Entry("not a number", "1.x"),
		Entry("negative", "1.-2"),
		Entry("empty component", "1..2"),
	)

	It("always prints four components", func() {
		Expect(function.NewVersion(1, 2, 0, 0).String()).To(Equal("1.2.0.0"))
	})

	It("compares component by component", func() {
		Expect(function.NewVersion(1, 2, 3, 4).Compare(function.NewVersion(1, 2, 3, 4))).To(Equal(0))
		Expect(function.NewVersion(1, 2, 3, 4).Compare(function.NewVersion(1, 2, 3, 5))).To(Equal(-1))
		Expect(function.NewVersion(2, 0, 0, 0).Compare(function.NewVersion(1, 9, 9, 9))).To(Equal(1))
	})

	It("maps the revision to semver build metadata", func() {
		sv := function.NewVersion(1, 2, 3, 4).Semver()

		Expect(sv.String()).To(Equal("1.2.3+r4"))
	})

	DescribeTable("Satisfies",
		func(version, constraint string, expected bool) {
			ok, err := function.MustParseVersion(version).Satisfies(constraint)

			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(Equal(expected))
		},
		Entry("empty constraint", "0.0.0.1", "", true),
		Entry("lower bound met", "1.0.0.0", ">= 1.0", true),
		Entry("lower bound missed", "0.9.0.0", ">= 1.0", false),
		Entry("range", "1.5.0.9", ">= 1.0, < 2", true),
		Entry("revision ignored", "2.0.0.7", "< 2", false),
	)

	It("reports invalid constraints", func() {
		_, err := function.NewVersion(1, 0, 0, 0).Satisfies(">>> nope")

		Expect(err).To(HaveOccurred())
	})

	It("round trips through text", func() {
		var v function.Version

		Expect(v.UnmarshalText([]byte("3.1.4.1"))).To(Succeed())

		text, err := v.MarshalText()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(text)).To(Equal("3.1.4.1"))
	})
})
