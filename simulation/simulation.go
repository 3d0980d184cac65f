// Package simulation assembles runners, recorders and monitors into
// simulations that can be run once or in batches.
package simulation

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sarchlab/desim/datarecording"
	"github.com/sarchlab/desim/monitoring"
	"github.com/sarchlab/desim/sim"
)

// A Simulation is one runner together with the services attached to it.
type Simulation struct {
	id     string
	runner *sim.Runner

	dataRecorder  datarecording.DataRecorder
	eventRecorder *datarecording.EventRecorder
	runInfo       *datarecording.RunInfoRecorder
	ownsRecorder  bool
	monitor       *monitoring.Monitor
}

// ID returns the unique ID of the simulation. Recorded events are labelled
// with it.
func (s *Simulation) ID() string {
	return s.id
}

// Runner returns the runner of the simulation.
func (s *Simulation) Runner() *sim.Runner {
	return s.runner
}

// DataRecorder returns the data recorder, or nil when recording is off.
func (s *Simulation) DataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// Monitor returns the monitor, or nil when monitoring is off.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

func (s *Simulation) startMonitor(b Builder) error {
	s.monitor = monitoring.NewMonitor().WithPortNumber(b.monitorPort)
	if b.browser {
		s.monitor.WithBrowser()
	}

	s.monitor.RegisterRunner(s.runner)

	return s.monitor.StartServer()
}

// Run runs the simulation up to the horizon until.
func (s *Simulation) Run(ctx context.Context, until time.Duration) (*sim.Result, error) {
	if s.monitor != nil {
		s.monitor.TrackHorizon(s.id, until)
	}

	if s.runInfo != nil {
		s.runInfo.Start(until)
	}

	result, err := s.runner.RunContext(ctx, until)

	fields := log.Fields{"simulation": s.id}

	if s.runInfo != nil {
		if infoErr := s.runInfo.End(result, err); infoErr != nil {
			log.WithFields(fields).WithError(infoErr).
				Error("Failed to record run info")
		}
	}
	if err != nil {
		log.WithFields(fields).WithError(err).Warn("Run failed")
		return nil, err
	}

	fields["now"] = result.Now
	fields["steps"] = result.Steps
	fields["events"] = result.Published
	log.WithFields(fields).Debug("Run finished")

	return result, nil
}

// Terminate stops the pending processes and releases the services.
func (s *Simulation) Terminate() {
	var errs []error

	if s.monitor != nil {
		errs = append(errs, s.monitor.Close())
	}

	s.runner.Close()

	if s.dataRecorder != nil && s.ownsRecorder {
		errs = append(errs, s.dataRecorder.Close())
	}

	if err := errors.Join(errs...); err != nil {
		log.WithError(err).WithField("simulation", s.id).
			Error("Failed to terminate")
	}
}
