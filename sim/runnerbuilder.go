package sim

import (
	"github.com/sarchlab/desim/sim/hooking"
	"github.com/sarchlab/desim/sim/id"
	"github.com/sarchlab/desim/sim/queueing"
)

// RunnerBuilder builds Runners.
type RunnerBuilder struct {
	env              *Environment
	capacity         int
	exclusiveHorizon bool
	idGen            id.Generator
}

// MakeRunnerBuilder creates a RunnerBuilder with default settings: a fresh
// environment, the default calendar capacity, an inclusive horizon and
// sequential task IDs.
func MakeRunnerBuilder() RunnerBuilder {
	return RunnerBuilder{}
}

// WithEnvironment sets the environment the Runner drives.
func (b RunnerBuilder) WithEnvironment(env *Environment) RunnerBuilder {
	b.env = env
	return b
}

// WithCalendarCapacity sets the initial capacity of the calendar. Zero keeps
// the default; a negative capacity makes Build fail.
func (b RunnerBuilder) WithCalendarCapacity(capacity int) RunnerBuilder {
	b.capacity = capacity
	return b
}

// WithExclusiveHorizon makes runs stop before entries due exactly at the
// horizon.
func (b RunnerBuilder) WithExclusiveHorizon() RunnerBuilder {
	b.exclusiveHorizon = true
	return b
}

// WithIDGenerator sets the generator of task IDs.
func (b RunnerBuilder) WithIDGenerator(g id.Generator) RunnerBuilder {
	b.idGen = g
	return b
}

// Build creates the Runner.
func (b RunnerBuilder) Build() (*Runner, error) {
	var (
		calendar *queueing.PriorityQueue[entry]
		err      error
	)

	if b.capacity == 0 {
		calendar, err = queueing.New(compareEntries)
	} else {
		calendar, err = queueing.NewWithCapacity(b.capacity, compareEntries)
	}

	if err != nil {
		return nil, err
	}

	env := b.env
	if env == nil {
		env = NewEnvironment()
	}

	idGen := b.idGen
	if idGen == nil {
		idGen = id.NewSequential()
	}

	r := &Runner{
		HookableBase:     hooking.NewHookableBase(),
		env:              env,
		calendar:         calendar,
		tasks:            make(map[string]*task),
		idGen:            idGen,
		exclusiveHorizon: b.exclusiveHorizon,
	}

	return r, nil
}
