package sim

import "iter"

// A Process is a unit of simulated behaviour. Execute is called once, when
// the process is activated, and returns the continuation the Runner drives.
// Execute should not do any work itself; the work belongs to the first
// resumption of the continuation.
type Process interface {
	Execute(env *Environment) Continuation
}

// A Continuation is the suspended state of a running process.
type Continuation interface {
	// Next resumes the process until it waits on an event. It returns false
	// when the process has finished.
	Next() (Event, bool)

	// Stop releases the continuation. The Runner calls Stop once the process
	// has finished or when the Runner is closed with the process still
	// pending. Next is never called after Stop.
	Stop()
}

// ProcessFunc turns a generator into a Process. The generator yields the
// events the process waits on; the code after each yield runs when the
// Runner resumes the process, with env.Now() already advanced.
//
//	clock := sim.ProcessFunc(func(env *sim.Environment) iter.Seq[sim.Event] {
//	    return func(yield func(sim.Event) bool) {
//	        for yield(env.Timeout(time.Second)) {
//	        }
//	    }
//	})
type ProcessFunc func(env *Environment) iter.Seq[Event]

// Execute implements Process.
func (f ProcessFunc) Execute(env *Environment) Continuation {
	next, stop := iter.Pull(f(env))

	return &pullContinuation{next: next, stop: stop}
}

type pullContinuation struct {
	next func() (Event, bool)
	stop func()
}

func (c *pullContinuation) Next() (Event, bool) {
	return c.next()
}

func (c *pullContinuation) Stop() {
	c.stop()
}

// ContinuationFunc turns a step function into a Continuation, for processes
// written as explicit state machines. Stop does nothing.
type ContinuationFunc func() (Event, bool)

// Next calls f.
func (f ContinuationFunc) Next() (Event, bool) {
	return f()
}

// Stop does nothing.
func (f ContinuationFunc) Stop() {}
