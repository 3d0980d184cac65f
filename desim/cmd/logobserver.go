package cmd

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sarchlab/desim/sim"
)

// LogObserver logs every event of a run at debug level.
type LogObserver struct {
	runID string
}

// NewLogObserver creates a LogObserver for the run with the given ID.
func NewLogObserver(runID string) *LogObserver {
	return &LogObserver{runID: runID}
}

// OnEvent implements sim.Observer.
func (o *LogObserver) OnEvent(e sim.Event) {
	if !log.IsLevelEnabled(log.DebugLevel) {
		return
	}

	log.WithFields(log.Fields{
		"run":          o.runID,
		"kind":         e.Kind(),
		"generated_at": e.GeneratedAt(),
	}).Debug(e)
}

// OnCompleted implements sim.Observer.
func (o *LogObserver) OnCompleted(now time.Duration) {
	log.WithFields(log.Fields{"run": o.runID, "now": now}).Debug("Run completed")
}
