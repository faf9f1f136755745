package doctor_test

import (
	"bytes"
	"context"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/smykla-skalski/launchkit/internal/doctor"
	"github.com/smykla-skalski/launchkit/internal/prompt"
)

// fixableChecker fails until fixed is set.
type fixableChecker struct {
	fixed    *atomic.Bool
	severity doctor.Severity
}

func (*fixableChecker) Name() string              { return "Directories" }
func (*fixableChecker) Category() doctor.Category { return doctor.CategoryStorage }

func (c *fixableChecker) Check(context.Context) doctor.CheckResult {
	if c.fixed.Load() {
		return doctor.Pass("Directories", "ok")
	}

	return doctor.NewCheckResult("Directories", c.severity, doctor.StatusFail, "missing").WithFixID(doctor.FixCreateDirs)
}

var _ = Describe("Runner", func() {
	var (
		ctx      context.Context
		ctrl     *gomock.Controller
		registry *doctor.Registry
		reporter *doctor.MockReporter
		prompter *prompt.MockPrompter
		fixer    *doctor.MockFixer
		fixed    *atomic.Bool
		out      *bytes.Buffer
		runner   *doctor.Runner
	)

	BeforeEach(func() {
		ctx = context.Background()
		ctrl = gomock.NewController(GinkgoT())
		registry = doctor.NewRegistry()
		reporter = doctor.NewMockReporter(ctrl)
		prompter = prompt.NewMockPrompter(ctrl)
		fixed = &atomic.Bool{}
		out = &bytes.Buffer{}

		fixer = doctor.NewMockFixer(ctrl)
		fixer.EXPECT().ID().Return(doctor.FixCreateDirs).AnyTimes()
		fixer.EXPECT().Description().Return("Create missing directories").AnyTimes()
		registry.RegisterFixer(fixer)

		runner = doctor.NewRunner(registry, reporter, prompter, nil)
		runner.SetOutput(out)
	})

	It("succeeds when everything passes", func() {
		registry.RegisterChecker(&staticChecker{name: "ok", category: doctor.CategoryConfig, result: doctor.Pass("ok", "")})
		reporter.EXPECT().Report(gomock.Len(1), true)

		Expect(runner.Run(ctx, doctor.RunOptions{Verbose: true})).To(Succeed())
		Expect(out.String()).To(BeEmpty())
	})

	It("fails on errors without a fix", func() {
		registry.RegisterChecker(&staticChecker{name: "bad", category: doctor.CategoryConfig, result: doctor.FailError("bad", "")})
		reporter.EXPECT().Report(gomock.Any(), false)

		err := runner.Run(ctx, doctor.RunOptions{})
		Expect(errors.Is(err, doctor.ErrChecksFailed)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("1 error(s)"))
	})

	It("does not fail on warnings", func() {
		registry.RegisterChecker(&staticChecker{name: "meh", category: doctor.CategoryConfig, result: doctor.FailWarning("meh", "")})
		reporter.EXPECT().Report(gomock.Any(), false)

		Expect(runner.Run(ctx, doctor.RunOptions{})).To(Succeed())
	})

	It("suggests fixes by default", func() {
		registry.RegisterChecker(&fixableChecker{fixed: fixed, severity: doctor.SeverityError})
		reporter.EXPECT().Report(gomock.Any(), false)

		err := runner.Run(ctx, doctor.RunOptions{})
		Expect(errors.Is(err, doctor.ErrChecksFailed)).To(BeTrue())
		Expect(out.String()).To(ContainSubstring("Directories: Create missing directories"))
		Expect(out.String()).To(ContainSubstring("launchkit doctor --fix"))
	})

	It("applies fixes and re-runs the fixed checks", func() {
		registry.RegisterChecker(&fixableChecker{fixed: fixed, severity: doctor.SeverityError})
		registry.RegisterChecker(&staticChecker{name: "other", category: doctor.CategoryConfig, result: doctor.Pass("other", "")})

		gomock.InOrder(
			reporter.EXPECT().Report(gomock.Len(2), false),
			fixer.EXPECT().Fix(gomock.Any(), false).DoAndReturn(func(context.Context, bool) error {
				fixed.Store(true)

				return nil
			}),
			reporter.EXPECT().Report(gomock.Len(1), false),
		)

		Expect(runner.Run(ctx, doctor.RunOptions{AutoFix: true})).To(Succeed())
	})

	It("confirms fixes interactively", func() {
		registry.RegisterChecker(&fixableChecker{fixed: fixed, severity: doctor.SeverityWarning})

		reporter.EXPECT().Report(gomock.Any(), false).Times(2)
		prompter.EXPECT().Confirm("Directories: Create missing directories?", true).Return(false, nil)

		Expect(runner.Run(ctx, doctor.RunOptions{Interactive: true})).To(Succeed())
		Expect(fixed.Load()).To(BeFalse())
	})

	It("reports fixer failures", func() {
		registry.RegisterChecker(&fixableChecker{fixed: fixed, severity: doctor.SeverityError})

		reporter.EXPECT().Report(gomock.Any(), false)
		fixer.EXPECT().Fix(gomock.Any(), false).Return(errors.New("disk full"))

		err := runner.Run(ctx, doctor.RunOptions{AutoFix: true})
		Expect(err).To(MatchError(ContainSubstring("disk full")))
	})

	It("runs a shared fixer once", func() {
		registry.RegisterChecker(&staticChecker{
			name: "a", category: doctor.CategoryStorage,
			result: doctor.FailWarning("a", "").WithFixID(doctor.FixCreateDirs),
		})
		registry.RegisterChecker(&staticChecker{
			name: "b", category: doctor.CategoryStorage,
			result: doctor.FailWarning("b", "").WithFixID(doctor.FixCreateDirs),
		})

		gomock.InOrder(
			reporter.EXPECT().Report(gomock.Len(2), false),
			fixer.EXPECT().Fix(gomock.Any(), false).Return(nil).Times(1),
			reporter.EXPECT().Report(gomock.Len(2), false),
		)

		Expect(runner.Run(ctx, doctor.RunOptions{AutoFix: true})).To(Succeed())
	})
})
