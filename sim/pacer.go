package sim

import (
	"fmt"
	"time"

	"github.com/sarchlab/desim/sim/hooking"
)

// A Pacer slows a run down so that simulated time passes at a fixed ratio to
// wall-clock time. Before each step it sleeps for the simulated gap to that
// step multiplied by the factor. A factor of 1 runs in real time, 0.5 twice
// as fast, and 0 does not sleep at all.
//
// Pacing is best effort: time spent inside processes is not subtracted.
type Pacer struct {
	factor float64
	sleep  func(time.Duration)
	slept  time.Duration
}

// NewPacer creates a Pacer. A negative factor is rejected.
func NewPacer(factor float64) (*Pacer, error) {
	if factor < 0 {
		return nil, fmt.Errorf("sim: pacing factor %v is negative: %w",
			factor, ErrInvalidArgument)
	}

	return &Pacer{factor: factor, sleep: time.Sleep}, nil
}

// WithSleeper replaces time.Sleep, mainly for tests.
func (p *Pacer) WithSleeper(sleep func(time.Duration)) *Pacer {
	p.sleep = sleep
	return p
}

// Slept returns the total wall-clock time the Pacer asked to sleep.
func (p *Pacer) Slept() time.Duration {
	return p.slept
}

// Func implements hooking.Hook.
func (p *Pacer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosBeforeStep || p.factor == 0 {
		return
	}

	info, ok := ctx.Item.(StepInfo)
	if !ok {
		return
	}

	gap := info.DueAt - info.Now
	if gap <= 0 {
		return
	}

	d := time.Duration(float64(gap) * p.factor)
	p.slept += d
	p.sleep(d)
}
