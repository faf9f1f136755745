package doctor_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/smykla-skalski/launchkit/internal/doctor"
)

// staticChecker returns a fixed result after an optional delay.
type staticChecker struct {
	name     string
	category doctor.Category
	result   doctor.CheckResult
	delay    time.Duration
}

func (c *staticChecker) Name() string              { return c.name }
func (c *staticChecker) Category() doctor.Category { return c.category }

func (c *staticChecker) Check(ctx context.Context) doctor.CheckResult {
	select {
	case <-time.After(c.delay):
	case <-ctx.Done():
	}

	return c.result
}

var _ = Describe("Registry", func() {
	var (
		ctrl     *gomock.Controller
		registry *doctor.Registry
	)

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		registry = doctor.NewRegistry()
	})

	It("starts empty", func() {
		Expect(registry.Checkers()).To(BeEmpty())
		Expect(registry.RunAll(context.Background())).To(BeEmpty())
	})

	It("keeps registration order regardless of completion order", func() {
		registry.RegisterChecker(&staticChecker{
			name: "slow", category: doctor.CategoryConfig,
			result: doctor.Pass("slow", "ok"), delay: 20 * time.Millisecond,
		})
		registry.RegisterChecker(&staticChecker{
			name: "fast", category: doctor.CategoryStorage,
			result: doctor.FailWarning("fast", "meh"),
		})

		results := registry.RunAll(context.Background())
		Expect(results).To(HaveLen(2))
		Expect(results[0].Name).To(Equal("slow"))
		Expect(results[0].Category).To(Equal(doctor.CategoryConfig))
		Expect(results[1].Name).To(Equal("fast"))
		Expect(results[1].Category).To(Equal(doctor.CategoryStorage))
	})

	It("fills in a missing result name", func() {
		registry.RegisterChecker(&staticChecker{name: "named", category: doctor.CategoryLauncher, result: doctor.CheckResult{Status: doctor.StatusPass}})

		Expect(registry.RunAll(context.Background())[0].Name).To(Equal("named"))
	})

	It("filters by category", func() {
		registry.RegisterChecker(&staticChecker{name: "a", category: doctor.CategoryConfig, result: doctor.Pass("a", "")})
		registry.RegisterChecker(&staticChecker{name: "b", category: doctor.CategoryPlugins, result: doctor.Pass("b", "")})
		registry.RegisterChecker(&staticChecker{name: "c", category: doctor.CategoryStorage, result: doctor.Pass("c", "")})

		Expect(registry.CheckersForCategories(nil)).To(HaveLen(3))

		results := registry.RunCategories(context.Background(), []doctor.Category{doctor.CategoryPlugins, doctor.CategoryStorage})
		Expect(results).To(HaveLen(2))
		Expect(results[0].Name).To(Equal("b"))
		Expect(results[1].Name).To(Equal("c"))
	})

	It("looks up fixers by ID", func() {
		fixer := doctor.NewMockFixer(ctrl)
		fixer.EXPECT().ID().Return(doctor.FixCreateDirs).AnyTimes()

		registry.RegisterFixer(fixer)

		got, ok := registry.GetFixer(doctor.FixCreateDirs)
		Expect(ok).To(BeTrue())
		Expect(got).To(BeIdenticalTo(fixer))

		_, ok = registry.GetFixer("missing")
		Expect(ok).To(BeFalse())
	})

	It("works with mocked checkers", func() {
		checker := doctor.NewMockHealthChecker(ctrl)
		checker.EXPECT().Category().Return(doctor.CategoryConfig).AnyTimes()
		checker.EXPECT().Check(gomock.Any()).Return(doctor.FailError("mocked", "broken"))

		registry.RegisterChecker(checker)

		results := registry.RunAll(context.Background())
		Expect(results).To(HaveLen(1))
		Expect(results[0].IsError()).To(BeTrue())
	})
})

var _ = Describe("CheckResult", func() {
	It("classifies results", func() {
		Expect(doctor.Pass("a", "").IsPassed()).To(BeTrue())
		Expect(doctor.FailError("a", "").IsError()).To(BeTrue())
		Expect(doctor.FailWarning("a", "").IsWarning()).To(BeTrue())
		Expect(doctor.Skip("a", "").IsSkipped()).To(BeTrue())
		Expect(doctor.Pass("a", "").HasFix()).To(BeFalse())
		Expect(doctor.FailError("a", "").WithFixID("x").HasFix()).To(BeTrue())
	})

	It("appends details without sharing the backing array", func() {
		base := doctor.Pass("a", "").WithDetails("one")
		left := base.WithDetails("two")
		right := base.WithDetails("three")

		Expect(left.Details).To(Equal([]string{"one", "two"}))
		Expect(right.Details).To(Equal([]string{"one", "three"}))
	})

	It("lists categories in display order", func() {
		Expect(doctor.Categories()).To(Equal([]doctor.Category{
			doctor.CategoryConfig, doctor.CategoryPlugins, doctor.CategoryLauncher, doctor.CategoryStorage,
		}))
	})
})

var _ = Describe("Count", func() {
	It("tallies outcomes and ignores info failures", func() {
		tally := doctor.Count([]doctor.CheckResult{
			doctor.FailError("a", ""),
			doctor.FailWarning("b", ""),
			doctor.FailWarning("c", ""),
			doctor.Pass("d", ""),
			doctor.Skip("e", ""),
			doctor.NewCheckResult("f", doctor.SeverityInfo, doctor.StatusFail, ""),
		})

		Expect(tally).To(Equal(doctor.Tally{Errors: 1, Warnings: 2, Passed: 1, Skipped: 1}))
	})

	It("ranks errors first and skipped checks last", func() {
		ranks := []int{
			doctor.FailError("a", "").Rank(),
			doctor.FailWarning("a", "").Rank(),
			doctor.NewCheckResult("a", doctor.SeverityInfo, doctor.StatusFail, "").Rank(),
			doctor.Pass("a", "").Rank(),
			doctor.Skip("a", "").Rank(),
		}

		Expect(ranks).To(BeEquivalentTo([]int{0, 1, 2, 3, 4}))
	})
})
