package dispatch

import "fmt"

// State is the position of an invocation in its lifecycle.
type State int

const (
	StateReceived State = iota
	StateNormalized
	StatePolicyChecked
	StateExecuting
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateNormalized:
		return "normalized"
	case StatePolicyChecked:
		return "policy_checked"
	case StateExecuting:
		return "executing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome records how an invocation ended.
type Outcome struct {
	InvocationID string
	Command      string
	State        State
	Reply        string
	Err          error
}
