package sim

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/desim/sim/hooking"
)

var _ = Describe("Pacer", func() {
	var (
		sleeps []time.Duration
		sleep  func(time.Duration)
	)

	BeforeEach(func() {
		sleeps = nil
		sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	})

	stepCtx := func(now, dueAt time.Duration) hooking.HookCtx {
		return hooking.HookCtx{
			Pos:  HookPosBeforeStep,
			Item: StepInfo{Now: now, DueAt: dueAt},
		}
	}

	It("should reject a negative factor", func() {
		_, err := NewPacer(-1)
		Expect(err).To(MatchError(ErrInvalidArgument))
	})

	It("should sleep for the scaled gap", func() {
		p, err := NewPacer(0.5)
		Expect(err).NotTo(HaveOccurred())
		p.WithSleeper(sleep)

		p.Func(stepCtx(time.Second, 3*time.Second))

		Expect(sleeps).To(Equal([]time.Duration{time.Second}))
		Expect(p.Slept()).To(Equal(time.Second))
	})

	It("should not sleep for steps at the current time", func() {
		p, _ := NewPacer(1)
		p.WithSleeper(sleep)

		p.Func(stepCtx(time.Second, time.Second))

		Expect(sleeps).To(BeEmpty())
	})

	It("should not sleep with a zero factor", func() {
		p, _ := NewPacer(0)
		p.WithSleeper(sleep)

		p.Func(stepCtx(0, time.Hour))

		Expect(sleeps).To(BeEmpty())
	})

	It("should ignore other hook positions", func() {
		p, _ := NewPacer(1)
		p.WithSleeper(sleep)

		p.Func(hooking.HookCtx{
			Pos:  HookPosAfterStep,
			Item: StepInfo{Now: 0, DueAt: time.Second},
		})

		Expect(sleeps).To(BeEmpty())
	})

	It("should pace a whole run", func() {
		p, _ := NewPacer(2)
		p.WithSleeper(sleep)

		r, err := NewRunner(NewEnvironment())
		Expect(err).NotTo(HaveOccurred())
		r.AcceptHook(p)
		Expect(r.Activate(0, clock(time.Second))).To(Succeed())

		_, err = r.Run(3 * time.Second)

		Expect(err).NotTo(HaveOccurred())
		Expect(p.Slept()).To(Equal(6 * time.Second))
		Expect(sleeps).To(HaveLen(3))
	})
})
