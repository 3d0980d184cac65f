package simulation

import (
	"context"
	"iter"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/desim/datarecording"
	"github.com/sarchlab/desim/sim"
	"github.com/sarchlab/desim/sim/hooking"
)

func clockFactory(period time.Duration) ProcessFactory {
	return func() sim.Process {
		return sim.ProcessFunc(func(env *sim.Environment) iter.Seq[sim.Event] {
			return func(yield func(sim.Event) bool) {
				for yield(env.Timeout(period)) {
				}
			}
		})
	}
}

type collectors struct {
	lock  sync.Mutex
	byRun map[string]*sim.EventCollector
}

func (c *collectors) factory(runID string) sim.Observer {
	c.lock.Lock()
	defer c.lock.Unlock()

	collector := &sim.EventCollector{}
	c.byRun[runID] = collector

	return collector
}

var _ = Describe("Builder", func() {
	It("should reject a nil factory", func() {
		_, err := MakeBuilder().Activate(nil, 0).Build()
		Expect(err).To(MatchError(ErrInvalidArgument))
	})

	It("should reject a negative activation time", func() {
		_, err := MakeBuilder().Activate(clockFactory(time.Second), -1).Build()
		Expect(err).To(MatchError(ErrInvalidArgument))
	})

	It("should reject a nil observer factory", func() {
		_, err := MakeBuilder().Subscribe(nil).Build()
		Expect(err).To(MatchError(ErrInvalidArgument))
	})

	It("should reject a nil hook factory", func() {
		_, err := MakeBuilder().AcceptHook(nil).Build()
		Expect(err).To(MatchError(ErrInvalidArgument))
	})

	It("should reject a negative pacing factor", func() {
		_, err := MakeBuilder().WithPacing(-0.5).Build()
		Expect(err).To(MatchError(ErrInvalidArgument))
	})

	It("should reject a negative calendar capacity", func() {
		_, err := MakeBuilder().WithCalendarCapacity(-1).Build()
		Expect(err).To(MatchError(ErrInvalidArgument))
	})

	It("should reject a browser without a monitor", func() {
		_, err := MakeBuilder().WithBrowser().Build()
		Expect(err).To(MatchError(ErrInvalidArgument))
	})

	It("should not share activations between derived builders", func() {
		base := MakeBuilder().Activate(clockFactory(time.Second), 0)
		a := base.Activate(clockFactory(time.Second), 0)
		b := base.Activate(clockFactory(2*time.Second), 0)

		Expect(a.activations).To(HaveLen(2))
		Expect(b.activations).To(HaveLen(2))
		Expect(a.activations[1].factory).NotTo(BeNil())
		Expect(base.activations).To(HaveLen(1))
	})
})

var _ = Describe("Simulation", func() {
	var s *Simulation

	AfterEach(func() {
		if s != nil {
			s.Terminate()
			s = nil
		}
	})

	It("should run the activated processes", func() {
		c := &collectors{byRun: map[string]*sim.EventCollector{}}

		var err error
		s, err = MakeBuilder().
			ActivateRange([]ProcessFactory{
				clockFactory(5 * time.Second),
				clockFactory(10 * time.Second),
			}, 0).
			Subscribe(c.factory).
			Build()
		Expect(err).NotTo(HaveOccurred())
		Expect(s.ID()).NotTo(BeEmpty())
		Expect(s.DataRecorder()).To(BeNil())
		Expect(s.Monitor()).To(BeNil())

		result, err := s.Run(context.Background(), 20*time.Second)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Now).To(Equal(20 * time.Second))
		Expect(c.byRun[s.ID()].Events).To(HaveLen(8))
	})

	It("should give every run its own hooks", func() {
		counters := map[string]*hooking.EventCounter{}
		b := MakeBuilder().
			Activate(clockFactory(time.Second), 0).
			AcceptHook(func(runID string) hooking.Hook {
				c := hooking.NewEventCounter(sim.HookPosEventPublished)
				counters[runID] = c
				return c
			})

		var err error
		s, err = b.Build()
		Expect(err).NotTo(HaveOccurred())

		_, err = s.Run(context.Background(), 2*time.Second)

		Expect(err).NotTo(HaveOccurred())
		Expect(counters).To(HaveLen(1))
		Expect(counters[s.ID()].Count("timeout")).To(Equal(uint64(3)))
	})

	It("should honour an exclusive horizon", func() {
		var err error
		s, err = MakeBuilder().
			Activate(clockFactory(time.Second), 0).
			WithExclusiveHorizon().
			Build()
		Expect(err).NotTo(HaveOccurred())

		result, err := s.Run(context.Background(), 5*time.Second)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Published).To(Equal(uint64(5)))
		Expect(result.Now).To(Equal(5 * time.Second))
	})

	It("should record events", func() {
		path := filepath.Join(GinkgoT().TempDir(), "run.sqlite3")

		var err error
		s, err = MakeBuilder().
			Activate(clockFactory(time.Second), 0).
			WithDataRecorder(path).
			Build()
		Expect(err).NotTo(HaveOccurred())

		_, err = s.Run(context.Background(), 3*time.Second)
		Expect(err).NotTo(HaveOccurred())

		rows, err := datarecording.ReadEvents(s.DataRecorder().DB(), s.ID())
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(4))
		Expect(rows[3].Now).To(Equal(int64(3 * time.Second)))

		info, err := datarecording.ReadRunInfo(s.DataRecorder().DB(), s.ID())
		Expect(err).NotTo(HaveOccurred())
		Expect(info).To(HaveKeyWithValue("Until", "3s"))
		Expect(info).To(HaveKeyWithValue("Steps", "4"))
	})

	It("should reject an unknown recording backend", func() {
		_, err := MakeBuilder().
			Activate(clockFactory(time.Second), 0).
			WithRecorderConfig(datarecording.RecorderConfig{Type: "csv"}).
			Build()
		Expect(err).To(HaveOccurred())
	})

	It("should pace runs", func() {
		var err error
		s, err = MakeBuilder().
			Activate(clockFactory(time.Millisecond), 0).
			WithPacing(1).
			Build()
		Expect(err).NotTo(HaveOccurred())

		start := time.Now()
		_, err = s.Run(context.Background(), 20*time.Millisecond)

		Expect(err).NotTo(HaveOccurred())
		Expect(time.Since(start)).To(BeNumerically(">=", 20*time.Millisecond))
	})

	It("should attach a monitor", func() {
		var err error
		s, err = MakeBuilder().
			Activate(clockFactory(time.Second), 0).
			WithMonitor(0).
			Build()
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Monitor()).NotTo(BeNil())
		Expect(s.Monitor().Port()).To(BeNumerically(">", 0))

		_, err = s.Run(context.Background(), 2*time.Second)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should stop on cancellation", func() {
		var err error
		s, err = MakeBuilder().Activate(clockFactory(time.Second), 0).Build()
		Expect(err).NotTo(HaveOccurred())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = s.Run(ctx, time.Minute)

		Expect(err).To(MatchError(context.Canceled))
	})
})

var _ = Describe("RunBatch", func() {
	It("should reject an empty batch", func() {
		_, err := RunBatch(context.Background(), MakeBuilder(), time.Second, 0)
		Expect(err).To(MatchError(ErrInvalidArgument))
	})

	It("should reject monitoring", func() {
		_, err := RunBatch(context.Background(),
			MakeBuilder().WithMonitor(0), time.Second, 2)
		Expect(err).To(MatchError(ErrInvalidArgument))
	})

	It("should run independent simulations", func() {
		c := &collectors{byRun: map[string]*sim.EventCollector{}}
		b := MakeBuilder().
			Activate(clockFactory(time.Second), 0).
			Activate(clockFactory(3*time.Second), time.Second).
			Subscribe(c.factory)

		results, err := RunBatch(context.Background(), b, 10*time.Second, 8)

		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(8))

		ids := map[string]bool{}
		for _, r := range results {
			Expect(r.Err).NotTo(HaveOccurred())
			Expect(r.Result.Now).To(Equal(10 * time.Second))
			Expect(r.Result.Published).To(Equal(results[0].Result.Published))
			ids[r.ID] = true

			events := c.byRun[r.ID].Events
			reference := c.byRun[results[0].ID].Events
			Expect(events).To(HaveLen(len(reference)))
			for i := range events {
				Expect(sim.EventsEqual(events[i], reference[i])).To(BeTrue())
			}
		}
		Expect(ids).To(HaveLen(8))
	})

	It("should record all runs into one database", func() {
		path := filepath.Join(GinkgoT().TempDir(), "batch.sqlite3")
		b := MakeBuilder().
			Activate(clockFactory(time.Second), 0).
			WithDataRecorder(path)

		results, err := RunBatch(context.Background(), b, 2*time.Second, 3)
		Expect(err).NotTo(HaveOccurred())

		reader, err := datarecording.NewReader(path)
		Expect(err).NotTo(HaveOccurred())
		defer reader.Close()
		Expect(reader.MapTable(datarecording.EventTable, datarecording.EventEntry{})).To(Succeed())

		_, total, err := reader.Query(context.Background(),
			datarecording.EventTable, datarecording.QueryParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(9))

		for _, r := range results {
			_, count, err := reader.Query(context.Background(),
				datarecording.EventTable, datarecording.QueryParams{
					Where: "RunID = ?",
					Args:  []any{r.ID},
				})
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(3))
		}
	})

	It("should report failed runs", func() {
		b := MakeBuilder().Activate(clockFactory(time.Second), 0)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		results, err := RunBatch(ctx, b, time.Minute, 2)

		Expect(err).To(MatchError(context.Canceled))
		Expect(results).To(HaveLen(2))
		Expect(results[0].Err).To(HaveOccurred())
	})
})
