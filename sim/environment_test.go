package sim

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Environment", func() {
	var env *Environment

	BeforeEach(func() {
		env = NewEnvironment()
	})

	It("should start at zero", func() {
		Expect(env.Now()).To(BeZero())
	})

	It("should stamp timeouts with the current time", func() {
		env.advanceTo(3 * time.Second)

		e := env.Timeout(time.Second)

		Expect(e).To(Equal(mustTimeout(3*time.Second, time.Second)))
	})

	It("should panic on a negative timeout", func() {
		Expect(func() { env.Timeout(-time.Nanosecond) }).To(PanicWith(
			MatchError(ErrInvalidArgument)))
	})

	It("should build composites", func() {
		env.advanceTo(time.Second)

		e := env.Composite(env.Timeout(1), env.Timeout(2))

		Expect(e.GeneratedAt()).To(Equal(time.Second))
		Expect(e.InnerEvents()).To(HaveLen(2))
	})

	It("should build an empty composite", func() {
		e := env.Composite()
		Expect(e.InnerEvents()).To(BeEmpty())
	})

	It("should panic on a nil inner event", func() {
		Expect(func() { env.Composite(nil) }).To(Panic())
	})

	It("should not move backwards", func() {
		env.advanceTo(2 * time.Second)
		Expect(func() { env.advanceTo(time.Second) }).To(Panic())
	})
})
