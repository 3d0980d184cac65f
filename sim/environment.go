package sim

import (
	"fmt"
	"time"
)

// An Environment is what a process sees of the simulation: the current
// simulated time and helpers to create events at that time.
//
// Only the Runner advances the clock.
type Environment struct {
	now time.Duration
}

// NewEnvironment creates an Environment whose clock reads zero.
func NewEnvironment() *Environment {
	return &Environment{}
}

// Now returns the current simulated time.
func (e *Environment) Now() time.Duration {
	return e.now
}

// Timeout creates a TimeoutEvent generated now. It panics if delay is
// negative; use NewTimeoutEvent to get an error instead.
func (e *Environment) Timeout(delay time.Duration) *TimeoutEvent {
	evt, err := NewTimeoutEvent(e.now, delay)
	if err != nil {
		panic(err)
	}

	return evt
}

// Composite creates a CompositeEvent generated now. It panics if any inner
// event is nil; use NewCompositeEvent to get an error instead.
func (e *Environment) Composite(innerEvents ...Event) *CompositeEvent {
	if innerEvents == nil {
		innerEvents = []Event{}
	}

	evt, err := NewCompositeEvent(e.now, innerEvents)
	if err != nil {
		panic(err)
	}

	return evt
}

func (e *Environment) advanceTo(t time.Duration) {
	if t < e.now {
		panic(fmt.Sprintf(
			"sim: clock cannot move backwards, now %v, target %v", e.now, t))
	}

	e.now = t
}
