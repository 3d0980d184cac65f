package sim

import "time"

// An Observer receives every event produced during a run, in execution order,
// followed by one completion signal when the run ends.
type Observer interface {
	OnEvent(e Event)
	OnCompleted(now time.Duration)
}

// EventCollector is an Observer that keeps every event it receives.
type EventCollector struct {
	Events    []Event
	Completed int
	EndedAt   time.Duration
}

// OnEvent appends e to Events.
func (c *EventCollector) OnEvent(e Event) {
	c.Events = append(c.Events, e)
}

// OnCompleted counts the completion and records the final time.
func (c *EventCollector) OnCompleted(now time.Duration) {
	c.Completed++
	c.EndedAt = now
}
