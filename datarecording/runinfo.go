package datarecording

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sarchlab/desim/sim"
)

// RunInfoTable is the table RunInfoRecorder writes into.
const RunInfoTable = "run_info"

const wallClockLayout = "2006-01-02 15:04:05.000000000"

// RunInfoEntry is one property of one run.
type RunInfoEntry struct {
	RunID    string
	Property string
	Value    string
}

// RunInfoRecorder records how a run was started and how it ended.
type RunInfoRecorder struct {
	recorder DataRecorder
	runID    string
	entries  []RunInfoEntry
}

// NewRunInfoRecorder creates the run info table if needed.
func NewRunInfoRecorder(
	recorder DataRecorder,
	runID string,
) (*RunInfoRecorder, error) {
	err := recorder.CreateTable(RunInfoTable, RunInfoEntry{})
	if err != nil {
		return nil, err
	}

	r := &RunInfoRecorder{
		recorder: recorder,
		runID:    runID,
	}

	return r, nil
}

func (r *RunInfoRecorder) add(property, value string) {
	r.entries = append(r.entries, RunInfoEntry{
		RunID:    r.runID,
		Property: property,
		Value:    value,
	})
}

// Start notes the wall-clock start time, the command line, the working
// directory and the horizon of a run.
func (r *RunInfoRecorder) Start(until time.Duration) {
	r.add("Start Time", time.Now().Format(wallClockLayout))
	r.add("Command", strings.Join(os.Args, " "))

	if cwd, err := os.Getwd(); err == nil {
		r.add("Working Directory", cwd)
	}

	r.add("Until", until.String())
}

// End writes the noted properties together with the outcome of the run and
// flushes the recorder.
func (r *RunInfoRecorder) End(result *sim.Result, runErr error) error {
	r.add("End Time", time.Now().Format(wallClockLayout))

	if runErr != nil {
		r.add("Error", runErr.Error())
	}

	if result != nil {
		r.add("Now", result.Now.String())
		r.add("Steps", fmt.Sprint(result.Steps))
		r.add("Published", fmt.Sprint(result.Published))
		r.add("Pending", fmt.Sprint(result.Pending))
	}

	entries := r.entries
	r.entries = nil

	for _, entry := range entries {
		if err := r.recorder.InsertData(RunInfoTable, entry); err != nil {
			return err
		}
	}

	return r.recorder.Flush()
}

// ReadRunInfo returns the recorded properties of a run.
func ReadRunInfo(db *sql.DB, runID string) (map[string]string, error) {
	rows, err := db.Query(
		"SELECT Property, Value FROM "+RunInfoTable+" WHERE RunID = ?",
		runID)
	if err != nil {
		return nil, fmt.Errorf("datarecording: read run info: %w", err)
	}
	defer rows.Close()

	info := make(map[string]string)
	for rows.Next() {
		var property, value string
		if err := rows.Scan(&property, &value); err != nil {
			return nil, fmt.Errorf("datarecording: read run info: %w", err)
		}

		info[property] = value
	}

	return info, rows.Err()
}
