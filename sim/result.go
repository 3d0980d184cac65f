package sim

import "time"

// A Result summarizes one run.
type Result struct {
	// Now is the clock reading when the run stopped.
	Now time.Duration

	// Steps counts the calendar entries handled during the run.
	Steps uint64

	// Published counts the events delivered to observers during the run.
	Published uint64

	// Pending counts the calendar entries left for a later run.
	Pending int

	// Environment is the environment the run advanced.
	Environment *Environment
}
