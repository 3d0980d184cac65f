package sim

import (
	"fmt"
	"strings"
	"time"
)

// An Event describes why a process wants to be resumed.
//
// The set of events is closed: only this package can add a kind, and every
// kind has a matching method on EventVisitor.
type Event interface {
	// GeneratedAt returns the simulated time at which the event was created.
	GeneratedAt() time.Duration

	// Kind returns a short name of the event kind, such as "timeout".
	Kind() string

	// Accept calls the visitor method that matches the event kind.
	Accept(v EventVisitor) error

	sealed()
}

// An EventVisitor has one method per event kind.
type EventVisitor interface {
	VisitTimeout(e *TimeoutEvent) error
	VisitComposite(e *CompositeEvent) error
}

// eventBase holds the fields shared by all events. It is unexported so that
// no type outside this package can satisfy Event.
type eventBase struct {
	generatedAt time.Duration
}

// GeneratedAt returns the simulated time at which the event was created.
func (e eventBase) GeneratedAt() time.Duration {
	return e.generatedAt
}

func (eventBase) sealed() {}

// TimeoutEvent asks for the process to be resumed after Delay elapses.
type TimeoutEvent struct {
	eventBase
	delay time.Duration
}

// NewTimeoutEvent creates a TimeoutEvent. A negative delay is rejected.
func NewTimeoutEvent(
	generatedAt, delay time.Duration,
) (*TimeoutEvent, error) {
	if generatedAt < 0 {
		return nil, fmt.Errorf(
			"sim: event generated at negative time %v: %w",
			generatedAt, ErrInvalidArgument)
	}

	if delay < 0 {
		return nil, fmt.Errorf(
			"sim: timeout with negative delay %v: %w",
			delay, ErrInvalidArgument)
	}

	e := &TimeoutEvent{
		eventBase: eventBase{generatedAt: generatedAt},
		delay:     delay,
	}

	return e, nil
}

// Delay returns how long the process waits.
func (e *TimeoutEvent) Delay() time.Duration {
	return e.delay
}

// Kind returns "timeout".
func (e *TimeoutEvent) Kind() string {
	return "timeout"
}

// Accept calls v.VisitTimeout.
func (e *TimeoutEvent) Accept(v EventVisitor) error {
	if v == nil {
		return fmt.Errorf("sim: nil visitor: %w", ErrInvalidArgument)
	}

	return v.VisitTimeout(e)
}

// Equal tells if two timeouts were generated at the same time with the same
// delay.
func (e *TimeoutEvent) Equal(other *TimeoutEvent) bool {
	if e == nil || other == nil {
		return e == other
	}

	return e.generatedAt == other.generatedAt && e.delay == other.delay
}

func (e *TimeoutEvent) String() string {
	return fmt.Sprintf("Timeout(at=%v, delay=%v)", e.generatedAt, e.delay)
}

// CompositeEvent asks for the process to be resumed once all of its inner
// events have resolved.
type CompositeEvent struct {
	eventBase
	innerEvents []Event
}

// NewCompositeEvent creates a CompositeEvent over the given events. The slice
// is copied. A nil slice or a nil member is rejected; an empty slice resolves
// immediately.
func NewCompositeEvent(
	generatedAt time.Duration,
	innerEvents []Event,
) (*CompositeEvent, error) {
	if generatedAt < 0 {
		return nil, fmt.Errorf(
			"sim: event generated at negative time %v: %w",
			generatedAt, ErrInvalidArgument)
	}

	if innerEvents == nil {
		return nil, fmt.Errorf(
			"sim: composite with nil inner events: %w", ErrInvalidArgument)
	}

	for i, inner := range innerEvents {
		if inner == nil {
			return nil, fmt.Errorf(
				"sim: composite inner event %d is nil: %w",
				i, ErrInvalidArgument)
		}
	}

	e := &CompositeEvent{
		eventBase:   eventBase{generatedAt: generatedAt},
		innerEvents: append([]Event{}, innerEvents...),
	}

	return e, nil
}

// InnerEvents returns a copy of the events the composite waits on.
func (e *CompositeEvent) InnerEvents() []Event {
	return append([]Event{}, e.innerEvents...)
}

// Kind returns "composite".
func (e *CompositeEvent) Kind() string {
	return "composite"
}

// Accept calls v.VisitComposite.
func (e *CompositeEvent) Accept(v EventVisitor) error {
	if v == nil {
		return fmt.Errorf("sim: nil visitor: %w", ErrInvalidArgument)
	}

	return v.VisitComposite(e)
}

// Equal tells if two composites were generated at the same time over equal
// inner events.
func (e *CompositeEvent) Equal(other *CompositeEvent) bool {
	if e == nil || other == nil {
		return e == other
	}

	if e.generatedAt != other.generatedAt ||
		len(e.innerEvents) != len(other.innerEvents) {
		return false
	}

	for i := range e.innerEvents {
		if !EventsEqual(e.innerEvents[i], other.innerEvents[i]) {
			return false
		}
	}

	return true
}

func (e *CompositeEvent) String() string {
	inner := make([]string, len(e.innerEvents))
	for i, evt := range e.innerEvents {
		inner[i] = fmt.Sprint(evt)
	}

	return fmt.Sprintf("Composite(at=%v, [%s])",
		e.generatedAt, strings.Join(inner, ", "))
}

// EventsEqual compares two events of any kind.
func EventsEqual(a, b Event) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch ea := a.(type) {
	case *TimeoutEvent:
		eb, ok := b.(*TimeoutEvent)
		return ok && ea.Equal(eb)
	case *CompositeEvent:
		eb, ok := b.(*CompositeEvent)
		return ok && ea.Equal(eb)
	default:
		panic(fmt.Sprintf("sim: unknown event type %T", a))
	}
}
