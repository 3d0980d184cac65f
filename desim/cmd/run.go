package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/desim/datarecording"
	"github.com/sarchlab/desim/sim"
	"github.com/sarchlab/desim/sim/hooking"
	"github.com/sarchlab/desim/simulation"
)

type runOptions struct {
	scenario         string
	until            time.Duration
	runs             int
	record           string
	recordDSN        string
	monitor          bool
	monitorPort      int
	browser          bool
	pace             float64
	exclusiveHorizon bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scenario.",
		Long: "`run --scenario NAME|FILE` runs a built-in scenario or a " +
			"scenario YAML file and prints a summary of each run.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.applyEnv(cmd); err != nil {
				return err
			}

			return opts.run(cmd)
		},
	}

	flags := runCmd.Flags()
	flags.StringVar(&opts.scenario, "scenario", "standard",
		"Built-in scenario name or path to a scenario YAML file")
	flags.DurationVar(&opts.until, "until", 0,
		"Simulated time to run to (default from the scenario)")
	flags.IntVar(&opts.runs, "runs", 1,
		"Number of independent runs")
	flags.StringVar(&opts.record, "record", "",
		"Record events into this SQLite file (default from "+
			envRecordPath+")")
	flags.StringVar(&opts.recordDSN, "record-dsn", "",
		"Record events into ClickHouse at this DSN (default from "+
			envRecordDSN+")")
	flags.BoolVar(&opts.monitor, "monitor", false,
		"Serve the monitoring page while running")
	flags.IntVar(&opts.monitorPort, "monitor-port", 0,
		"Port of the monitoring page (default from "+envMonitorPort+
			", then random)")
	flags.BoolVar(&opts.browser, "browser", false,
		"Open the monitoring page in a browser")
	flags.Float64Var(&opts.pace, "pace", 0,
		"Wall-clock seconds per simulated second, 0 runs unpaced")
	flags.BoolVar(&opts.exclusiveHorizon, "exclusive-horizon", false,
		"Stop before entries due exactly at the horizon")

	return runCmd
}

// applyEnv fills the options not given as flags from the environment.
func (o *runOptions) applyEnv(cmd *cobra.Command) error {
	flags := cmd.Flags()

	if !flags.Changed("record") {
		o.record = os.Getenv(envRecordPath)
	}

	if !flags.Changed("record-dsn") {
		o.recordDSN = os.Getenv(envRecordDSN)
	}

	if o.record != "" && o.recordDSN != "" {
		return fmt.Errorf("--record and --record-dsn are exclusive")
	}

	if !flags.Changed("monitor-port") {
		if v := os.Getenv(envMonitorPort); v != "" {
			port, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", envMonitorPort, v, err)
			}

			o.monitorPort = port
		}
	}

	if flags.Changed("monitor-port") && !o.monitor {
		return fmt.Errorf("--monitor-port requires --monitor")
	}

	return nil
}

// runStats holds the hooks attached to one run.
type runStats struct {
	counter *hooking.EventCounter
	waits   *sim.WaitTimeTracer
}

func (r runStats) Func(ctx hooking.HookCtx) {
	r.counter.Func(ctx)
	r.waits.Func(ctx)
}

// summary collects the per-run statistics.
type summary struct {
	lock  sync.Mutex
	stats map[string]runStats
}

func newSummary() *summary {
	return &summary{stats: make(map[string]runStats)}
}

func (s *summary) hook(runID string) hooking.Hook {
	s.lock.Lock()
	defer s.lock.Unlock()

	r := runStats{
		counter: hooking.NewEventCounter(sim.HookPosEventPublished),
		waits:   sim.NewWaitTimeTracer(),
	}
	s.stats[runID] = r

	return r
}

func (s *summary) get(runID string) runStats {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.stats[runID]
}

func (o *runOptions) builder(scenario *Scenario, sum *summary) simulation.Builder {
	b := scenario.Apply(simulation.MakeBuilder()).
		Subscribe(func(runID string) sim.Observer {
			return NewLogObserver(runID)
		}).
		AcceptHook(sum.hook)

	switch {
	case o.record != "":
		b = b.WithDataRecorder(o.record)
	case o.recordDSN != "":
		b = b.WithRecorderConfig(datarecording.RecorderConfig{
			Type:    datarecording.BackendClickHouse,
			ConnStr: o.recordDSN,
		})
	}

	if o.monitor {
		b = b.WithMonitor(o.monitorPort)
		if o.browser {
			b = b.WithBrowser()
		}
	}

	if o.pace != 0 {
		b = b.WithPacing(o.pace)
	}

	if o.exclusiveHorizon {
		b = b.WithExclusiveHorizon()
	}

	return b
}

func (o *runOptions) run(cmd *cobra.Command) error {
	scenario, err := LoadScenario(o.scenario)
	if err != nil {
		return err
	}

	until := scenario.Until
	if cmd.Flags().Changed("until") {
		until = o.until
	}

	if o.runs > 1 && o.monitor {
		return fmt.Errorf("--monitor cannot be used with --runs > 1")
	}

	sum := newSummary()
	b := o.builder(scenario, sum)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	log.WithFields(log.Fields{
		"scenario": scenario.Name,
		"until":    until,
		"runs":     o.runs,
	}).Info("Starting")

	if o.runs == 1 {
		s, err := b.Build()
		if err != nil {
			return err
		}
		defer s.Terminate()

		result, err := s.Run(ctx, until)
		if err != nil {
			return err
		}

		printSummary(cmd.OutOrStdout(), s.ID(), result, sum.get(s.ID()))

		return nil
	}

	results, err := simulation.RunBatch(ctx, b, until, o.runs)
	for _, r := range results {
		if r.Err == nil {
			printSummary(cmd.OutOrStdout(), r.ID, r.Result, sum.get(r.ID))
		}
	}

	return err
}

func printSummary(
	w io.Writer,
	runID string,
	result *sim.Result,
	stats runStats,
) {
	kinds := []string{}
	if stats.counter != nil {
		for _, kind := range stats.counter.KindNames() {
			kinds = append(kinds,
				fmt.Sprintf("%s=%d", kind, stats.counter.Count(kind)))
		}
	}

	var wait time.Duration
	if stats.waits != nil {
		wait = stats.waits.AverageWait()
	}

	fmt.Fprintf(w,
		"run %s: now=%v steps=%d events=%d pending=%d [%s] wait=%v\n",
		runID, result.Now, result.Steps, result.Published, result.Pending,
		strings.Join(kinds, " "), wait)
}
