package sim

import (
	"sync"
	"time"

	"github.com/sarchlab/desim/sim/hooking"
)

// WaitTimeTracer measures the simulated time processes spend between yielding
// an event and being resumed. Waits still open when asked are not counted.
//
// Attach it to a Runner with AcceptHook.
type WaitTimeTracer struct {
	lock    sync.Mutex
	waiting map[string]time.Duration
	total   time.Duration
	longest time.Duration
	count   uint64
}

// NewWaitTimeTracer creates a new WaitTimeTracer.
func NewWaitTimeTracer() *WaitTimeTracer {
	return &WaitTimeTracer{
		waiting: make(map[string]time.Duration),
	}
}

// Func implements hooking.Hook.
func (t *WaitTimeTracer) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case HookPosEventPublished:
		r, ok := ctx.Domain.(*Runner)
		if !ok {
			return
		}

		t.startWait(ctx.Detail.(string), r.Now())
	case HookPosBeforeStep:
		info := ctx.Item.(StepInfo)
		if info.Join {
			return
		}

		t.endWait(info.TaskID, info.DueAt)
	}
}

func (t *WaitTimeTracer) startWait(taskID string, now time.Duration) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.waiting[taskID] = now
}

func (t *WaitTimeTracer) endWait(taskID string, now time.Duration) {
	t.lock.Lock()
	defer t.lock.Unlock()

	start, ok := t.waiting[taskID]
	if !ok {
		return
	}

	delete(t.waiting, taskID)

	wait := now - start
	t.total += wait
	t.longest = max(t.longest, wait)
	t.count++
}

// Count returns the number of completed waits.
func (t *WaitTimeTracer) Count() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.count
}

// TotalWait returns the sum of all completed waits.
func (t *WaitTimeTracer) TotalWait() time.Duration {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.total
}

// AverageWait returns the mean of the completed waits, or zero when there is
// none.
func (t *WaitTimeTracer) AverageWait() time.Duration {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.count == 0 {
		return 0
	}

	return t.total / time.Duration(t.count)
}

// LongestWait returns the longest completed wait.
func (t *WaitTimeTracer) LongestWait() time.Duration {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.longest
}

// Open returns the number of processes still waiting.
func (t *WaitTimeTracer) Open() int {
	t.lock.Lock()
	defer t.lock.Unlock()

	return len(t.waiting)
}
