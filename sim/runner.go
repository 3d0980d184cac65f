package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/sarchlab/desim/sim/hooking"
	"github.com/sarchlab/desim/sim/id"
	"github.com/sarchlab/desim/sim/queueing"
)

// HookPosBeforeStep is invoked after a calendar entry is extracted and before
// the clock advances to it. The item is a StepInfo.
var HookPosBeforeStep = &hooking.HookPos{Name: "BeforeStep"}

// HookPosAfterStep is invoked after a calendar entry has been handled. The
// item is a StepInfo.
var HookPosAfterStep = &hooking.HookPos{Name: "AfterStep"}

// HookPosEventPublished is invoked after observers receive an event. The item
// is the Event and the detail is the ID of the process that produced it.
var HookPosEventPublished = &hooking.HookPos{Name: "EventPublished"}

// HookPosRunEnd is invoked once at the end of every run. The item is the
// *Result, or nil when the run failed, and the detail is the run error.
var HookPosRunEnd = &hooking.HookPos{Name: "RunEnd"}

// StepInfo describes one step of a run.
type StepInfo struct {
	// Now is the clock reading before the step.
	Now time.Duration

	// DueAt is the time the step runs at.
	DueAt time.Duration

	// TaskID identifies the process the step belongs to.
	TaskID string

	// Join is true when the step resolves one leg of a composite event.
	Join bool
}

// PendingEntry describes an entry waiting in the calendar.
type PendingEntry struct {
	DueAt  time.Duration
	TaskID string

	// Join is true for an entry that resolves one leg of a composite event
	// rather than resuming the process directly.
	Join bool
}

// A Runner owns the event calendar and the simulated clock. It resumes
// processes one at a time in the order of their due times; entries due at the
// same time run in the order they were scheduled.
//
// A Runner is not safe for concurrent use. Independent Runners share nothing
// and may run on different goroutines.
type Runner struct {
	*hooking.HookableBase

	env       *Environment
	calendar  *queueing.PriorityQueue[entry]
	observers []Observer
	tasks     map[string]*task
	idGen     id.Generator

	exclusiveHorizon bool

	steps     uint64
	published uint64
}

// NewRunner creates a Runner around env with default settings.
func NewRunner(env *Environment) (*Runner, error) {
	if env == nil {
		return nil, fmt.Errorf("sim: environment is nil: %w", ErrInvalidArgument)
	}

	return MakeRunnerBuilder().WithEnvironment(env).Build()
}

// Environment returns the environment the Runner drives.
func (r *Runner) Environment() *Environment {
	return r.env
}

// Now returns the current simulated time.
func (r *Runner) Now() time.Duration {
	return r.env.now
}

// Pending returns the number of entries in the calendar.
func (r *Runner) Pending() int {
	return r.calendar.Count()
}

// Subscribe registers an observer for all following runs.
func (r *Runner) Subscribe(o Observer) error {
	if o == nil {
		return fmt.Errorf("sim: observer is nil: %w", ErrInvalidArgument)
	}

	r.observers = append(r.observers, o)

	return nil
}

// Activate schedules process to start at the given time.
func (r *Runner) Activate(at time.Duration, process Process) error {
	if at < 0 {
		return fmt.Errorf("sim: activation at negative time %v: %w",
			at, ErrInvalidArgument)
	}

	if at < r.env.now {
		return fmt.Errorf("sim: activation at %v is before now %v: %w",
			at, r.env.now, ErrInvalidArgument)
	}

	if process == nil {
		return fmt.Errorf("sim: process is nil: %w", ErrInvalidArgument)
	}

	cont := process.Execute(r.env)
	if cont == nil {
		return fmt.Errorf("sim: process %T returned a nil continuation: %w",
			process, ErrInvalidArgument)
	}

	t := &task{
		id:      r.idGen.Generate(),
		process: process,
		cont:    cont,
	}
	r.tasks[t.id] = t
	r.schedule(at, t)

	return nil
}

// LookupProcess returns the live process with the given task ID.
func (r *Runner) LookupProcess(taskID string) (Process, bool) {
	t, ok := r.tasks[taskID]
	if !ok {
		return nil, false
	}

	return t.process, true
}

// Run is RunContext with a background context.
func (r *Runner) Run(until time.Duration) (*Result, error) {
	return r.RunContext(context.Background(), until)
}

// RunContext resumes processes until the calendar is empty or the next entry
// lies beyond the horizon until. By default entries due exactly at until still
// run; WithExclusiveHorizon stops before them. When the run stops at the
// horizon, the clock is set to until and the remaining entries stay in the
// calendar, so a later run with a larger horizon continues where this one
// stopped.
//
// Observers receive one OnCompleted call at the end of every run, including
// failed ones.
func (r *Runner) RunContext(
	ctx context.Context,
	until time.Duration,
) (*Result, error) {
	if until < 0 {
		return nil, fmt.Errorf("sim: run until negative time %v: %w",
			until, ErrInvalidArgument)
	}

	startSteps, startPublished := r.steps, r.published

	err := r.runUntil(ctx, until)

	var result *Result
	if err == nil {
		result = &Result{
			Now:         r.env.now,
			Steps:       r.steps - startSteps,
			Published:   r.published - startPublished,
			Pending:     r.calendar.Count(),
			Environment: r.env,
		}
	}

	r.complete(result, err)

	return result, err
}

func (r *Runner) runUntil(ctx context.Context, until time.Duration) error {
	for r.calendar.Count() > 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("sim: run interrupted at %v: %w", r.env.now, err)
		}

		next, err := r.calendar.PeekMin()
		if err != nil {
			return err
		}

		if r.beyondHorizon(next.dueAt, until) {
			if until > r.env.now {
				r.env.advanceTo(until)
			}

			return nil
		}

		if err := r.step(); err != nil {
			return err
		}
	}

	return nil
}

func (r *Runner) beyondHorizon(dueAt, until time.Duration) bool {
	if r.exclusiveHorizon {
		return dueAt >= until
	}

	return dueAt > until
}

func (r *Runner) step() error {
	e, err := r.calendar.ExtractMin()
	if err != nil {
		return err
	}

	_, isJoin := e.waiter.(*join)
	info := StepInfo{
		Now:    r.env.now,
		DueAt:  e.dueAt,
		TaskID: e.waiter.taskID(),
		Join:   isJoin,
	}

	r.InvokeHook(hooking.HookCtx{
		Domain: r,
		Pos:    HookPosBeforeStep,
		Item:   info,
	})

	r.env.advanceTo(e.dueAt)
	r.steps++

	err = e.waiter.wake(r)

	r.InvokeHook(hooking.HookCtx{
		Domain: r,
		Pos:    HookPosAfterStep,
		Item:   info,
	})

	return err
}

func (r *Runner) schedule(at time.Duration, w waiter) {
	if at < r.env.now {
		panic(fmt.Sprintf(
			"sim: cannot schedule at %v, before now %v", at, r.env.now))
	}

	r.calendar.Insert(entry{dueAt: at, waiter: w})
}

func (r *Runner) publish(evt Event, t *task) {
	r.published++

	for _, o := range r.observers {
		o.OnEvent(evt)
	}

	r.InvokeHook(hooking.HookCtx{
		Domain: r,
		Pos:    HookPosEventPublished,
		Item:   evt,
		Detail: t.id,
	})
}

func (r *Runner) finish(t *task) {
	t.cont.Stop()
	delete(r.tasks, t.id)
}

func (r *Runner) complete(result *Result, err error) {
	for _, o := range r.observers {
		o.OnCompleted(r.env.now)
	}

	r.InvokeHook(hooking.HookCtx{
		Domain: r,
		Pos:    HookPosRunEnd,
		Item:   result,
		Detail: err,
	})
}

// Snapshot lists the calendar entries in the order they will run.
func (r *Runner) Snapshot() []PendingEntry {
	entries := make([]PendingEntry, 0, r.calendar.Count())

	it := r.calendar.Iterator()
	for it.Next() {
		e := it.Item()
		_, isJoin := e.waiter.(*join)
		entries = append(entries, PendingEntry{
			DueAt:  e.dueAt,
			TaskID: e.waiter.taskID(),
			Join:   isJoin,
		})
	}

	return entries
}

// Close stops every process that is still waiting and empties the calendar.
// Processes written with ProcessFunc release their resources on Stop.
func (r *Runner) Close() {
	pending := make(map[*task]struct{})
	for r.calendar.Count() > 0 {
		e, err := r.calendar.ExtractMin()
		if err != nil {
			break
		}

		e.waiter.collectTasks(pending)
	}

	for t := range pending {
		r.finish(t)
	}

	r.calendar.TrimToFit()
}
