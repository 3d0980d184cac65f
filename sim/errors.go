package sim

import "github.com/sarchlab/desim/sim/queueing"

// ErrInvalidArgument reports malformed caller input, such as a negative time
// or a nil process. It is the same value as queueing.ErrInvalidArgument.
var ErrInvalidArgument = queueing.ErrInvalidArgument

// ErrInvalidState reports an operation whose precondition does not hold, such
// as extracting from an empty calendar. It is the same value as
// queueing.ErrInvalidState.
var ErrInvalidState = queueing.ErrInvalidState
