package datarecording

import (
	"context"
	"database/sql"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sarchlab/desim/sim"
)

// EventTable is the table EventRecorder writes into.
const EventTable = "events"

// EventEntry is one row of the events table. Times are in nanoseconds.
type EventEntry struct {
	RunID       string
	Seq         uint64
	Now         int64
	Kind        string
	GeneratedAt int64

	// Delay is the delay of a timeout, or zero for other kinds.
	Delay int64

	// Inner is the number of inner events of a composite, or zero for other
	// kinds.
	Inner int
}

// A Clock tells the current simulated time. *sim.Environment is a Clock.
type Clock interface {
	Now() time.Duration
}

// EventRecorder is a sim.Observer that writes every event into the events
// table. It flushes the recorder whenever a run completes.
type EventRecorder struct {
	recorder DataRecorder
	runID    string
	clock    Clock

	lock sync.Mutex
	seq  uint64
}

// NewEventRecorder creates an EventRecorder that labels its rows with runID.
// When clock is nil, the Now column holds the generation time of the event.
func NewEventRecorder(
	recorder DataRecorder,
	runID string,
	clock Clock,
) (*EventRecorder, error) {
	err := recorder.CreateTable(EventTable, EventEntry{})
	if err != nil {
		return nil, err
	}

	r := &EventRecorder{
		recorder: recorder,
		runID:    runID,
		clock:    clock,
	}

	return r, nil
}

// OnEvent implements sim.Observer.
func (r *EventRecorder) OnEvent(e sim.Event) {
	r.lock.Lock()
	r.seq++
	seq := r.seq
	r.lock.Unlock()

	now := e.GeneratedAt()
	if r.clock != nil {
		now = r.clock.Now()
	}

	entry := EventEntry{
		RunID:       r.runID,
		Seq:         seq,
		Now:         int64(now),
		Kind:        e.Kind(),
		GeneratedAt: int64(e.GeneratedAt()),
	}

	switch e := e.(type) {
	case *sim.TimeoutEvent:
		entry.Delay = int64(e.Delay())
	case *sim.CompositeEvent:
		entry.Inner = len(e.InnerEvents())
	}

	err := r.recorder.InsertData(EventTable, entry)
	if err != nil {
		log.WithError(err).WithField("run", r.runID).
			Error("Failed to record event")
	}
}

// OnCompleted implements sim.Observer.
func (r *EventRecorder) OnCompleted(now time.Duration) {
	err := r.recorder.Flush()
	if err != nil {
		log.WithError(err).WithField("run", r.runID).
			Error("Failed to flush events")
		return
	}

	log.WithFields(log.Fields{
		"run":    r.runID,
		"now":    now,
		"events": r.Recorded(),
	}).Debug("Events recorded")
}

// Recorded returns the number of events recorded so far.
func (r *EventRecorder) Recorded() uint64 {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.seq
}

// ReadEvents returns the events recorded for runID, in the order they were
// produced.
func ReadEvents(db *sql.DB, runID string) ([]EventEntry, error) {
	reader := NewReaderWithDB(db)
	if err := reader.MapTable(EventTable, EventEntry{}); err != nil {
		return nil, err
	}

	rows, _, err := reader.Query(context.Background(), EventTable, QueryParams{
		Where:   "RunID = ?",
		Args:    []any{runID},
		OrderBy: "Seq",
	})
	if err != nil {
		return nil, err
	}

	entries := make([]EventEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, *row.(*EventEntry))
	}

	return entries, nil
}
