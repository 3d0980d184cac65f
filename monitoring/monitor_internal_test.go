package monitoring

import (
	"encoding/json"
	"iter"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/desim/sim"
)

type countingProcess struct {
	Period time.Duration
	Ticks  int
}

func (p *countingProcess) Execute(env *sim.Environment) sim.Continuation {
	return sim.ProcessFunc(func(env *sim.Environment) iter.Seq[sim.Event] {
		return func(yield func(sim.Event) bool) {
			for yield(env.Timeout(p.Period)) {
				p.Ticks++
			}
		}
	}).Execute(env)
}

var _ = Describe("Monitor", func() {
	var (
		m       *Monitor
		runner  *sim.Runner
		handler http.Handler
	)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		return rec
	}

	decode := func(rec *httptest.ResponseRecorder, v any) {
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(json.Unmarshal(rec.Body.Bytes(), v)).To(Succeed())
	}

	BeforeEach(func() {
		var err error
		runner, err = sim.NewRunner(sim.NewEnvironment())
		Expect(err).NotTo(HaveOccurred())

		m = NewMonitor()
		m.snapshotInterval = 0
		m.RegisterRunner(runner)
		handler = m.Handler()
	})

	AfterEach(func() {
		Expect(m.Close()).To(Succeed())
		runner.Close()
	})

	It("should replace reserved ports with a random port", func() {
		Expect(NewMonitor().WithPortNumber(80).portNumber).To(Equal(0))
		Expect(NewMonitor().WithPortNumber(8080).portNumber).To(Equal(8080))
	})

	It("should report the time and steps after a run", func() {
		Expect(runner.Activate(0, &countingProcess{Period: time.Second})).
			To(Succeed())
		_, err := runner.Run(3 * time.Second)
		Expect(err).NotTo(HaveOccurred())

		rsp := nowRsp{}
		decode(get("/api/now"), &rsp)

		Expect(rsp.Now).To(Equal(int64(3 * time.Second)))
		Expect(rsp.Steps).To(Equal(uint64(4)))
		Expect(rsp.Published).To(Equal(uint64(4)))
		Expect(rsp.Paused).To(BeFalse())
		Expect(rsp.Running).To(BeFalse())
	})

	It("should list the calendar after a run", func() {
		Expect(runner.Activate(0, &countingProcess{Period: time.Second})).
			To(Succeed())
		Expect(runner.Activate(5*time.Second, &countingProcess{Period: time.Second})).
			To(Succeed())
		_, err := runner.Run(2 * time.Second)
		Expect(err).NotTo(HaveOccurred())

		rsp := []pendingRsp{}
		decode(get("/api/calendar"), &rsp)

		Expect(rsp).To(Equal([]pendingRsp{
			{DueAt: int64(3 * time.Second), TaskID: "1"},
			{DueAt: int64(5 * time.Second), TaskID: "2"},
		}))
	})

	It("should track the horizon with a progress bar", func() {
		var seen []ProgressBarStatus
		bar := m.TrackHorizon("run", 10*time.Second)
		Expect(runner.Activate(0, &countingProcess{Period: 4 * time.Second})).
			To(Succeed())
		hook := &barProbe{bar: bar, seen: &seen}
		runner.AcceptHook(hook)

		_, err := runner.Run(10 * time.Second)
		Expect(err).NotTo(HaveOccurred())

		Expect(seen).NotTo(BeEmpty())
		Expect(seen[len(seen)-1].Finished).To(Equal(uint64(8 * time.Second)))
		Expect(seen[len(seen)-1].Total).To(Equal(uint64(10 * time.Second)))

		bars := []ProgressBarStatus{}
		decode(get("/api/progress"), &bars)
		Expect(bars).To(BeEmpty())
	})

	It("should list progress bars", func() {
		bar := m.CreateProgressBar("work", 10)
		bar.IncrementInProgress(4)
		bar.MoveInProgressToFinished(3)

		bars := []ProgressBarStatus{}
		decode(get("/api/progress"), &bars)

		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Name).To(Equal("work"))
		Expect(bars[0].Finished).To(Equal(uint64(3)))
		Expect(bars[0].InProgress).To(Equal(uint64(1)))

		m.CompleteProgressBar(bar)
		decode(get("/api/progress"), &bars)
		Expect(bars).To(BeEmpty())
	})

	It("should refuse to dump a process while running", func() {
		Expect(runner.Activate(0, &countingProcess{Period: time.Second})).
			To(Succeed())

		Expect(get("/api/process/1").Code).To(Equal(http.StatusConflict))
	})

	It("should hold the runner while paused", func() {
		p := &countingProcess{Period: time.Second}
		Expect(runner.Activate(0, p)).To(Succeed())
		Expect(runner.Activate(10*time.Second, &countingProcess{Period: time.Second})).
			To(Succeed())
		Expect(get("/api/pause").Code).To(Equal(http.StatusOK))

		done := make(chan error)
		go func() {
			_, err := runner.Run(5 * time.Second)
			done <- err
		}()

		Eventually(m.Blocked).Should(BeTrue())
		Consistently(done, 50*time.Millisecond).ShouldNot(Receive())

		now := nowRsp{}
		decode(get("/api/now"), &now)
		Expect(now.Paused).To(BeTrue())

		calendar := []pendingRsp{}
		decode(get("/api/calendar"), &calendar)
		Expect(calendar).To(Equal([]pendingRsp{
			{DueAt: 0, TaskID: "1"},
			{DueAt: int64(10 * time.Second), TaskID: "2"},
		}))

		dump := get("/api/process/1")
		Expect(dump.Code).To(Equal(http.StatusOK))
		Expect(dump.Body.String()).To(ContainSubstring("Period"))

		field := get("/api/field/" + url.PathEscape(
			`{"task_id":"1","field_name":"Ticks"}`))
		Expect(field.Code).To(Equal(http.StatusOK))

		Expect(get("/api/process/42").Code).To(Equal(http.StatusNotFound))

		Expect(get("/api/continue").Code).To(Equal(http.StatusOK))
		Eventually(done).Should(Receive(BeNil()))
		Expect(p.Ticks).To(Equal(5))
	})

	It("should list the held step in the calendar while paused", func() {
		Expect(runner.Activate(0, &countingProcess{Period: time.Second})).
			To(Succeed())
		m.Pause()

		done := make(chan error)
		go func() {
			_, err := runner.Run(time.Second)
			done <- err
		}()

		Eventually(m.Blocked).Should(BeTrue())

		calendar := []pendingRsp{}
		decode(get("/api/calendar"), &calendar)
		Expect(calendar).To(Equal([]pendingRsp{{DueAt: 0, TaskID: "1"}}))

		m.Continue()
		Eventually(done).Should(Receive(BeNil()))

		decode(get("/api/calendar"), &calendar)
		Expect(calendar).To(Equal([]pendingRsp{
			{DueAt: int64(2 * time.Second), TaskID: "1"},
		}))
	})

	It("should reject malformed field requests", func() {
		Expect(get("/api/field/notjson").Code).To(Equal(http.StatusBadRequest))
	})

	It("should report resources", func() {
		rsp := resourceRsp{}
		decode(get("/api/resource"), &rsp)

		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should collect a profile", func() {
		m.profileDuration = 10 * time.Millisecond

		rec := get("/api/profile")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))
	})

	It("should serve the page", func() {
		rec := get("/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(HavePrefix("<!DOCTYPE html>"))
	})

	It("should serve on a random port", func() {
		Expect(m.StartServer()).To(Succeed())
		Expect(m.Port()).To(BeNumerically(">", 0))

		rsp, err := http.Get("http://localhost:" + strconv.Itoa(m.Port()) + "/api/now")
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()
		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
	})
})
