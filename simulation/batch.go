package simulation

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sarchlab/desim/datarecording"
	"github.com/sarchlab/desim/sim"
)

// RunResult is the outcome of one run of a batch.
type RunResult struct {
	ID     string
	Result *sim.Result
	Err    error
}

// RunBatch builds n independent simulations from b and runs each up to
// until, at most GOMAXPROCS at a time. Results are returned in run order.
// When recording is on, all runs write into one database, each labelled with
// its own ID. The returned error joins the errors of all failed runs.
func RunBatch(
	ctx context.Context,
	b Builder,
	until time.Duration,
	n int,
) ([]RunResult, error) {
	if n <= 0 {
		return nil, fmt.Errorf("simulation: batch of %d runs: %w",
			n, ErrInvalidArgument)
	}

	if b.monitorOn {
		return nil, fmt.Errorf(
			"simulation: monitoring is not supported in batches: %w",
			ErrInvalidArgument)
	}

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

		defer recorder.Close()
	}

	results := make([]RunResult, n)
	for i := range results {
		results[i].ID = xid.New().String()
	}

	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < min(n, runtime.GOMAXPROCS(0)); w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range jobs {
				results[i].Result, results[i].Err =
					runOne(ctx, b, results[i].ID, recorder, until)
			}
		}()
	}

	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)

	wg.Wait()

	errs := make([]error, 0, n)
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("run %s: %w", r.ID, r.Err))
		}
	}

	return results, errors.Join(errs...)
}

func runOne(
	ctx context.Context,
	b Builder,
	runID string,
	recorder datarecording.DataRecorder,
	until time.Duration,
) (*sim.Result, error) {
	s, err := b.build(runID, recorder)
	if err != nil {
		return nil, err
	}
	defer s.Terminate()

	return s.Run(ctx, until)
}
