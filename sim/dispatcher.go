package sim

import (
	"fmt"
	"math"
	"time"
)

// A waiter is whatever a calendar entry resumes when it comes due: a process
// task, or a join counting the legs of a composite event.
type waiter interface {
	wake(r *Runner) error
	taskID() string
	collectTasks(tasks map[*task]struct{})
}

type entry struct {
	dueAt  time.Duration
	waiter waiter
}

func compareEntries(a, b entry) int {
	switch {
	case a.dueAt < b.dueAt:
		return -1
	case a.dueAt > b.dueAt:
		return 1
	default:
		return 0
	}
}

// A task owns the continuation of one activated process.
type task struct {
	id      string
	process Process
	cont    Continuation
}

func (t *task) wake(r *Runner) error {
	evt, ok := t.cont.Next()
	if !ok {
		r.finish(t)
		return nil
	}

	if evt == nil {
		r.finish(t)
		return fmt.Errorf("sim: process %s yielded a nil event: %w",
			t.id, ErrInvalidArgument)
	}

	r.publish(evt, t)

	return r.dispatch(evt, t)
}

func (t *task) taskID() string {
	return t.id
}

func (t *task) collectTasks(tasks map[*task]struct{}) {
	tasks[t] = struct{}{}
}

// A join resumes its parent once all of its legs have resolved. Legs resolve
// in calendar order, so the last one to resolve carries the latest time.
type join struct {
	parent    waiter
	remaining int
}

func (j *join) wake(r *Runner) error {
	if j.remaining <= 0 {
		return fmt.Errorf("sim: composite of %s resolved twice: %w",
			j.taskID(), ErrInvalidState)
	}

	j.remaining--
	if j.remaining > 0 {
		return nil
	}

	r.schedule(r.env.now, j.parent)

	return nil
}

func (j *join) taskID() string {
	return j.parent.taskID()
}

func (j *join) collectTasks(tasks map[*task]struct{}) {
	j.parent.collectTasks(tasks)
}

// A dispatcher turns the event a waiter waits on into calendar entries.
type dispatcher struct {
	runner *Runner
	waiter waiter
}

func (r *Runner) dispatch(evt Event, w waiter) error {
	return evt.Accept(&dispatcher{runner: r, waiter: w})
}

func (d *dispatcher) VisitTimeout(e *TimeoutEvent) error {
	d.runner.schedule(dueAfter(d.runner.env.now, e.Delay()), d.waiter)
	return nil
}

// dueAfter returns now+delay, saturated at the largest representable time so
// that huge delays stay beyond every horizon.
func dueAfter(now, delay time.Duration) time.Duration {
	if delay > math.MaxInt64-now {
		return math.MaxInt64
	}

	return now + delay
}

func (d *dispatcher) VisitComposite(e *CompositeEvent) error {
	if len(e.innerEvents) == 0 {
		d.runner.schedule(d.runner.env.now, d.waiter)
		return nil
	}

	j := &join{parent: d.waiter, remaining: len(e.innerEvents)}
	for _, inner := range e.innerEvents {
		err := d.runner.dispatch(inner, j)
		if err != nil {
			return err
		}
	}

	return nil
}
