package simulation

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sarchlab/desim/datarecording"
	"github.com/sarchlab/desim/sim"
	"github.com/sarchlab/desim/sim/hooking"
)

// ErrInvalidArgument is returned by Build for an invalid configuration.
var ErrInvalidArgument = sim.ErrInvalidArgument

// A ProcessFactory creates a fresh process. Each simulation built from a
// Builder gets its own processes, so batch runs share no state.
type ProcessFactory func() sim.Process

// An ObserverFactory creates the observer of the run with the given ID.
type ObserverFactory func(runID string) sim.Observer

// A HookFactory creates a hook for the runner of the run with the given ID.
type HookFactory func(runID string) hooking.Hook

type activation struct {
	at      time.Duration
	factory ProcessFactory
}

// Builder can be used to build a simulation.
type Builder struct {
	activations []activation
	observers   []ObserverFactory
	hooks       []HookFactory
	errs        []error

	recordOn     bool
	recordConfig datarecording.RecorderConfig

	monitorOn   bool
	monitorPort int
	browser     bool

	pacingOn bool
	pacing   float64

	exclusiveHorizon bool
	capacity         int
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{}
}

// Activate adds a process created by factory, starting at the given time.
func (b Builder) Activate(factory ProcessFactory, at time.Duration) Builder {
	if factory == nil {
		b.errs = appendErr(b.errs,
			fmt.Errorf("simulation: nil process factory: %w", ErrInvalidArgument))
		return b
	}

	if at < 0 {
		b.errs = appendErr(b.errs,
			fmt.Errorf("simulation: activation at negative time %v: %w",
				at, ErrInvalidArgument))
		return b
	}

	b.activations = append(cloneActivations(b.activations),
		activation{at: at, factory: factory})

	return b
}

// ActivateRange adds one process per factory, all starting at the given time.
func (b Builder) ActivateRange(factories []ProcessFactory, at time.Duration) Builder {
	for _, f := range factories {
		b = b.Activate(f, at)
	}

	return b
}

// Subscribe adds an observer, created once per run.
func (b Builder) Subscribe(factory ObserverFactory) Builder {
	if factory == nil {
		b.errs = appendErr(b.errs,
			fmt.Errorf("simulation: nil observer factory: %w", ErrInvalidArgument))
		return b
	}

	b.observers = append(append([]ObserverFactory{}, b.observers...), factory)

	return b
}

// AcceptHook adds a hook, created once per run.
func (b Builder) AcceptHook(factory HookFactory) Builder {
	if factory == nil {
		b.errs = appendErr(b.errs,
			fmt.Errorf("simulation: nil hook factory: %w", ErrInvalidArgument))
		return b
	}

	b.hooks = append(append([]HookFactory{}, b.hooks...), factory)

	return b
}

// WithDataRecorder records every event into a SQLite file at path. An empty
// path picks a unique file name.
func (b Builder) WithDataRecorder(path string) Builder {
	return b.WithRecorderConfig(datarecording.RecorderConfig{
		Type: datarecording.BackendSQLite,
		Path: path,
	})
}

// WithRecorderConfig records every event into the configured backend.
func (b Builder) WithRecorderConfig(c datarecording.RecorderConfig) Builder {
	b.recordOn = true
	b.recordConfig = c

	return b
}

// WithMonitor serves the monitoring page on the given port. Zero picks a
// random port.
func (b Builder) WithMonitor(port int) Builder {
	b.monitorOn = true
	b.monitorPort = port

	return b
}

// WithBrowser opens the monitoring page in a browser.
func (b Builder) WithBrowser() Builder {
	b.browser = true
	return b
}

// WithPacing slows the run down so that one simulated second takes factor
// wall-clock seconds.
func (b Builder) WithPacing(factor float64) Builder {
	b.pacingOn = true
	b.pacing = factor

	return b
}

// WithExclusiveHorizon makes runs stop before entries due exactly at the
// horizon.
func (b Builder) WithExclusiveHorizon() Builder {
	b.exclusiveHorizon = true
	return b
}

// WithCalendarCapacity sets the initial capacity of the event calendar.
func (b Builder) WithCalendarCapacity(capacity int) Builder {
	b.capacity = capacity
	return b
}

func (b Builder) validate() error {
	errs := append([]error{}, b.errs...)

	if b.pacingOn && b.pacing < 0 {
		errs = append(errs, fmt.Errorf(
			"simulation: pacing factor %v is negative: %w",
			b.pacing, ErrInvalidArgument))
	}

	if b.monitorPort < 0 {
		errs = append(errs, fmt.Errorf(
			"simulation: monitor port %d is negative: %w",
			b.monitorPort, ErrInvalidArgument))
	}

	if b.browser && !b.monitorOn {
		errs = append(errs, fmt.Errorf(
			"simulation: browser requested without monitoring: %w",
			ErrInvalidArgument))
	}

	if b.capacity < 0 {
		errs = append(errs, fmt.Errorf(
			"simulation: calendar capacity %d is negative: %w",
			b.capacity, ErrInvalidArgument))
	}

	return errors.Join(errs...)
}

// Build builds the simulation.
func (b Builder) Build() (*Simulation, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	var recorder datarecording.DataRecorder
	if b.recordOn {
		var err error

		recorder, err = datarecording.NewDataRecorderWithConfig(b.recordConfig)
		if err != nil {
			return nil, err
		}
	}

	s, err := b.build(xid.New().String(), recorder)
	if err != nil {
		if recorder != nil {
			_ = recorder.Close()
		}

		return nil, err
	}

	s.ownsRecorder = true

	if b.monitorOn {
		if err := s.startMonitor(b); err != nil {
			s.Terminate()
			return nil, err
		}
	}

	return s, nil
}

// build assembles a simulation around an optional shared recorder.
func (b Builder) build(
	runID string,
	recorder datarecording.DataRecorder,
) (*Simulation, error) {
	rb := sim.MakeRunnerBuilder().WithCalendarCapacity(b.capacity)
	if b.exclusiveHorizon {
		rb = rb.WithExclusiveHorizon()
	}

	runner, err := rb.Build()
	if err != nil {
		return nil, err
	}

	s := &Simulation{
		id:           runID,
		runner:       runner,
		dataRecorder: recorder,
	}

	if recorder != nil {
		s.eventRecorder, err = datarecording.NewEventRecorder(
			recorder, runID, runner.Environment())
		if err != nil {
			runner.Close()
			return nil, err
		}

		_ = runner.Subscribe(s.eventRecorder)

		s.runInfo, err = datarecording.NewRunInfoRecorder(recorder, runID)
		if err != nil {
			runner.Close()
			return nil, err
		}
	}

	for _, f := range b.observers {
		if err := runner.Subscribe(f(runID)); err != nil {
			runner.Close()
			return nil, err
		}
	}

	for _, f := range b.hooks {
		runner.AcceptHook(f(runID))
	}

	if b.pacingOn && b.pacing > 0 {
		pacer, err := sim.NewPacer(b.pacing)
		if err != nil {
			runner.Close()
			return nil, err
		}

		runner.AcceptHook(pacer)
	}

	for _, a := range b.activations {
		if err := runner.Activate(a.at, a.factory()); err != nil {
			runner.Close()
			return nil, err
		}
	}

	return s, nil
}

func appendErr(errs []error, err error) []error {
	return append(append([]error{}, errs...), err)
}

func cloneActivations(a []activation) []activation {
	return append([]activation{}, a...)
}
