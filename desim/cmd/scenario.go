package cmd

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/desim/examples/clocks"
	"github.com/sarchlab/desim/sim"
	"github.com/sarchlab/desim/simulation"
)

// Process kinds a scenario can use.
const (
	KindClock   = "clock"
	KindTicker  = "ticker"
	KindBarrier = "barrier"
)

// ProcessSpec describes one or more identical processes of a scenario.
type ProcessSpec struct {
	Kind   string          `yaml:"kind"`
	At     time.Duration   `yaml:"at"`
	Period time.Duration   `yaml:"period,omitempty"`
	Limit  uint64          `yaml:"limit,omitempty"`
	Delays []time.Duration `yaml:"delays,omitempty"`

	// Count is the number of copies. Zero means one.
	Count int `yaml:"count,omitempty"`
}

// Scenario is a set of processes and a horizon.
type Scenario struct {
	Name             string        `yaml:"name"`
	Until            time.Duration `yaml:"until"`
	ExclusiveHorizon bool          `yaml:"exclusive_horizon,omitempty"`
	Processes        []ProcessSpec `yaml:"processes"`
}

var builtinScenarios = map[string]Scenario{
	"standard": {
		Name:  "standard",
		Until: 20 * time.Second,
		Processes: []ProcessSpec{
			{Kind: KindClock, Period: time.Second},
		},
	},
	"interleaving": {
		Name:  "interleaving",
		Until: 20 * time.Second,
		Processes: []ProcessSpec{
			{Kind: KindClock, Period: 5 * time.Second},
			{Kind: KindClock, Period: 10 * time.Second},
		},
	},
	"composite": {
		Name:  "composite",
		Until: 20 * time.Second,
		Processes: []ProcessSpec{
			{
				Kind:   KindBarrier,
				Delays: []time.Duration{time.Second, 5 * time.Second, 10 * time.Second},
			},
		},
	},
}

type processYAML struct {
	Kind   string   `yaml:"kind"`
	At     string   `yaml:"at"`
	Period string   `yaml:"period,omitempty"`
	Limit  uint64   `yaml:"limit,omitempty"`
	Delays []string `yaml:"delays,omitempty"`
	Count  int      `yaml:"count,omitempty"`
}

// MarshalYAML writes durations as strings such as "5s", the form they are
// read in.
func (p ProcessSpec) MarshalYAML() (any, error) {
	out := processYAML{
		Kind:  p.Kind,
		At:    p.At.String(),
		Limit: p.Limit,
		Count: p.Count,
	}

	if p.Period != 0 {
		out.Period = p.Period.String()
	}

	for _, d := range p.Delays {
		out.Delays = append(out.Delays, d.String())
	}

	return out, nil
}

type scenarioYAML struct {
	Name             string        `yaml:"name"`
	Until            string        `yaml:"until"`
	ExclusiveHorizon bool          `yaml:"exclusive_horizon,omitempty"`
	Processes        []ProcessSpec `yaml:"processes"`
}

// MarshalYAML writes durations as strings such as "20s".
func (s Scenario) MarshalYAML() (any, error) {
	return scenarioYAML{
		Name:             s.Name,
		Until:            s.Until.String(),
		ExclusiveHorizon: s.ExclusiveHorizon,
		Processes:        s.Processes,
	}, nil
}

// BuiltinScenarioNames lists the built-in scenarios, sorted.
func BuiltinScenarioNames() []string {
	names := make([]string, 0, len(builtinScenarios))
	for name := range builtinScenarios {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// BuiltinScenario returns a copy of the built-in scenario with the given
// name.
func BuiltinScenario(name string) (*Scenario, bool) {
	s, ok := builtinScenarios[name]
	if !ok {
		return nil, false
	}

	s.Processes = append([]ProcessSpec{}, s.Processes...)

	return &s, true
}

// ParseScenario decodes and validates a YAML scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	s := &Scenario{}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// LoadScenario returns the built-in scenario called nameOrPath, or else reads
// the scenario from the file at nameOrPath.
func LoadScenario(nameOrPath string) (*Scenario, error) {
	if s, ok := BuiltinScenario(nameOrPath); ok {
		return s, nil
	}

	data, err := os.ReadFile(nameOrPath)
	if err != nil {
		return nil, fmt.Errorf("scenario %q is neither built in nor a "+
			"readable file: %w", nameOrPath, err)
	}

	return ParseScenario(data)
}

// Validate reports every problem of the scenario.
func (s *Scenario) Validate() error {
	var errs []error

	if s.Until < 0 {
		errs = append(errs, fmt.Errorf("until %v is negative", s.Until))
	}

	if len(s.Processes) == 0 {
		errs = append(errs, errors.New("no processes"))
	}

	for i, p := range s.Processes {
		if err := p.validate(); err != nil {
			errs = append(errs, fmt.Errorf("process %d: %w", i, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("scenario %q: %w", s.Name, errors.Join(errs...))
	}

	return nil
}

func (p ProcessSpec) validate() error {
	var errs []error

	if p.At < 0 {
		errs = append(errs, fmt.Errorf("at %v is negative", p.At))
	}

	if p.Count < 0 {
		errs = append(errs, fmt.Errorf("count %d is negative", p.Count))
	}

	switch p.Kind {
	case KindClock, KindTicker:
		if p.Period <= 0 {
			errs = append(errs, fmt.Errorf("%s period %v is not positive",
				p.Kind, p.Period))
		}
	case KindBarrier:
		for _, d := range p.Delays {
			if d < 0 {
				errs = append(errs, fmt.Errorf("barrier delay %v is negative", d))
			}
		}
	default:
		errs = append(errs, fmt.Errorf("unknown kind %q", p.Kind))
	}

	return errors.Join(errs...)
}

func (p ProcessSpec) factory() simulation.ProcessFactory {
	switch p.Kind {
	case KindClock:
		return func() sim.Process {
			return clocks.NewClock(p.Period).WithLimit(p.Limit)
		}
	case KindTicker:
		return func() sim.Process { return clocks.NewTicker(p.Period) }
	case KindBarrier:
		return func() sim.Process { return clocks.NewBarrier(p.Delays...) }
	default:
		panic(fmt.Sprintf("unknown process kind %q", p.Kind))
	}
}

// Apply activates the processes of the scenario on b.
func (s *Scenario) Apply(b simulation.Builder) simulation.Builder {
	for _, p := range s.Processes {
		count := max(p.Count, 1)
		for i := 0; i < count; i++ {
			b = b.Activate(p.factory(), p.At)
		}
	}

	if s.ExclusiveHorizon {
		b = b.WithExclusiveHorizon()
	}

	return b
}
