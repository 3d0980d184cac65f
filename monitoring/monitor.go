// Package monitoring turns a running simulation into a web server that can
// report its progress and pause it.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	// Enable profiling
	_ "net/http/pprof"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	log "github.com/sirupsen/logrus"
	"github.com/syifan/goseth"

	"github.com/sarchlab/desim/monitoring/web"
	"github.com/sarchlab/desim/sim"
	"github.com/sarchlab/desim/sim/hooking"
	"github.com/sarchlab/desim/sim/id"
)

const (
	defaultSnapshotInterval = 200 * time.Millisecond
	defaultProfileDuration  = time.Second
)

// Monitor can turn a simulation into a server and allows external monitoring
// controlling of the simulation.
//
// The Monitor observes the runner only through hooks, which run on the
// runner's goroutine. HTTP handlers read the state the hooks copied out, so
// the runner itself is never touched concurrently.
type Monitor struct {
	runner      *sim.Runner
	portNumber  int
	openBrowser bool
	idGen       id.Generator

	snapshotInterval time.Duration
	profileDuration  time.Duration

	server   *http.Server
	listener net.Listener

	lock         sync.Mutex
	resumed      *sync.Cond
	paused       bool
	blocked      bool
	running      bool
	now          time.Duration
	steps        uint64
	published    uint64
	calendar     []sim.PendingEntry
	lastSnapshot time.Time
	horizon      *ProgressBar

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	m := &Monitor{
		idGen:            id.NewXID(),
		snapshotInterval: defaultSnapshotInterval,
		profileDuration:  defaultProfileDuration,
	}
	m.resumed = sync.NewCond(&m.lock)

	return m
}

// WithPortNumber sets the port number of the monitor. Ports below 1000 are
// not allowed and are replaced by a random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		log.Warnf("Port number %d is not allowed for the monitoring server, "+
			"using a random port instead", portNumber)

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser makes StartServer open the monitoring page in a browser.
func (m *Monitor) WithBrowser() *Monitor {
	m.openBrowser = true
	return m
}

// RegisterRunner attaches the monitor to the runner it watches.
func (m *Monitor) RegisterRunner(r *sim.Runner) {
	m.runner = r
	r.AcceptHook(m)
}

// TrackHorizon creates a progress bar that follows the simulated time up to
// until. The bar is removed when the run ends.
func (m *Monitor) TrackHorizon(name string, until time.Duration) *ProgressBar {
	bar := m.CreateProgressBar(name, uint64(until))

	m.lock.Lock()
	m.horizon = bar
	m.running = true
	m.lock.Unlock()

	return bar
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        m.idGen.Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Pause makes the runner stop before its next step until Continue is called.
func (m *Monitor) Pause() {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.paused = true
}

// Continue releases a paused runner.
func (m *Monitor) Continue() {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.paused = false
	m.resumed.Broadcast()
}

// Blocked tells if the runner is currently held by a pause.
func (m *Monitor) Blocked() bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.blocked
}

// Func implements hooking.Hook.
func (m *Monitor) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case sim.HookPosBeforeStep:
		m.waitIfPaused(ctx.Item.(sim.StepInfo))
	case sim.HookPosAfterStep:
		m.afterStep(ctx.Item.(sim.StepInfo))
	case sim.HookPosEventPublished:
		m.lock.Lock()
		m.published++
		m.lock.Unlock()
	case sim.HookPosRunEnd:
		m.runEnd()
	}
}

// waitIfPaused blocks the runner while paused. The step it holds has already
// left the calendar, so the snapshot lists it first.
func (m *Monitor) waitIfPaused(inFlight sim.StepInfo) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if !m.paused {
		return
	}

	m.takeSnapshot()
	if m.runner != nil {
		m.calendar = append([]sim.PendingEntry{{
			DueAt:  inFlight.DueAt,
			TaskID: inFlight.TaskID,
			Join:   inFlight.Join,
		}}, m.calendar...)
	}
	m.blocked = true

	for m.paused {
		m.resumed.Wait()
	}

	m.blocked = false
}

func (m *Monitor) afterStep(info sim.StepInfo) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.now = info.DueAt
	m.steps++

	if m.horizon != nil {
		m.horizon.SetFinished(uint64(info.DueAt))
	}

	if time.Since(m.lastSnapshot) >= m.snapshotInterval {
		m.takeSnapshot()
	}
}

func (m *Monitor) runEnd() {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.takeSnapshot()
	m.running = false

	if m.horizon != nil {
		m.CompleteProgressBar(m.horizon)
		m.horizon = nil
	}
}

// takeSnapshot copies the runner state. It must be called on the runner's
// goroutine with m.lock held.
func (m *Monitor) takeSnapshot() {
	if m.runner == nil {
		return
	}

	m.now = m.runner.Now()
	m.calendar = m.runner.Snapshot()
	m.lastSnapshot = time.Now()
}

// Handler returns the HTTP handler that serves the monitoring API and page.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseRunner)
	r.HandleFunc("/api/continue", m.continueRunner)
	r.HandleFunc("/api/now", m.reportNow)
	r.HandleFunc("/api/calendar", m.listCalendar)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/process/{id}", m.dumpProcess)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server in the background.
func (m *Monitor) StartServer() error {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return fmt.Errorf("monitoring: listen: %w", err)
	}

	m.listener = listener
	m.server = &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	url := fmt.Sprintf("http://localhost:%d", m.Port())
	log.Infof("Monitoring simulation with %s", url)

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Monitoring server stopped")
		}
	}()

	if m.openBrowser {
		if err := browser.OpenURL(url); err != nil {
			log.WithError(err).Warn("Failed to open browser")
		}
	}

	return nil
}

// Port returns the port the server listens on, or zero before StartServer.
func (m *Monitor) Port() int {
	if m.listener == nil {
		return 0
	}

	return m.listener.Addr().(*net.TCPAddr).Port
}

// Close releases a paused runner and stops the server.
func (m *Monitor) Close() error {
	m.Continue()

	if m.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	return m.server.Shutdown(ctx)
}

func (m *Monitor) pauseRunner(w http.ResponseWriter, _ *http.Request) {
	m.Pause()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) continueRunner(w http.ResponseWriter, _ *http.Request) {
	m.Continue()
	w.WriteHeader(http.StatusOK)
}

type nowRsp struct {
	Now       int64  `json:"now"`
	NowString string `json:"now_str"`
	Steps     uint64 `json:"steps"`
	Published uint64 `json:"published"`
	Paused    bool   `json:"paused"`
	Running   bool   `json:"running"`
}

func (m *Monitor) reportNow(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	rsp := nowRsp{
		Now:       int64(m.now),
		NowString: m.now.String(),
		Steps:     m.steps,
		Published: m.published,
		Paused:    m.blocked,
		Running:   m.running,
	}
	m.lock.Unlock()

	writeJSON(w, rsp)
}

type pendingRsp struct {
	DueAt  int64  `json:"due_at"`
	TaskID string `json:"task_id"`
	Join   bool   `json:"join"`
}

func (m *Monitor) listCalendar(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	rsp := make([]pendingRsp, 0, len(m.calendar))
	for _, e := range m.calendar {
		rsp = append(rsp, pendingRsp{
			DueAt:  int64(e.DueAt),
			TaskID: e.TaskID,
			Join:   e.Join,
		})
	}
	m.lock.Unlock()

	writeJSON(w, rsp)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]ProgressBarStatus, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.Status())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
}

// withPausedProcess calls f with the process while the runner is held by a
// pause. Processes belong to the runner goroutine, so they are only inspected
// while that goroutine is blocked.
func (m *Monitor) withPausedProcess(
	w http.ResponseWriter,
	taskID string,
	f func(p sim.Process),
) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.runner == nil || !m.blocked {
		http.Error(w, "pause the simulation first", http.StatusConflict)
		return
	}

	p, ok := m.runner.LookupProcess(taskID)
	if !ok {
		http.Error(w, "process not found", http.StatusNotFound)
		return
	}

	f(p)
}

func (m *Monitor) dumpProcess(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["id"]

	m.withPausedProcess(w, taskID, func(p sim.Process) {
		serializer := goseth.NewSerializer()
		serializer.SetRoot(p)
		serializer.SetMaxDepth(1)

		if err := serializer.Serialize(w); err != nil {
			log.WithError(err).Error("Failed to serialize process")
		}
	})
}

type fieldReq struct {
	TaskID    string `json:"task_id,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m.withPausedProcess(w, req.TaskID, func(p sim.Process) {
		serializer := goseth.NewSerializer()
		serializer.SetRoot(p)
		serializer.SetMaxDepth(1)

		err := serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := serializer.Serialize(w); err != nil {
			log.WithError(err).Error("Failed to serialize field")
		}
	})
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memory, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memory.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		log.WithError(err).Error("Failed to write response")
	}
}
