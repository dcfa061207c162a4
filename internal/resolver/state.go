package resolver

import "github.com/law-makers/rclookup/internal/detect"

// State is a step of the resolution state machine
type State int

const (
	StateInit State = iota
	StateAttempting
	StateSuccess
	StateNeedsRewarm
	StateTransientError
	StateGivingUp
)

var stateNames = [...]string{
	StateInit:           "init",
	StateAttempting:     "attempting",
	StateSuccess:        "success",
	StateNeedsRewarm:    "needs_rewarm",
	StateTransientError: "transient_error",
	StateGivingUp:       "giving_up",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal reports whether the machine stops in s
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateGivingUp
}

// Attempt tracks one plate resolution. It is discarded once the machine
// reaches a terminal state.
type Attempt struct {
	State State
	// Count is the number of fetches issued so far
	Count int
	Max   int
	// Strategy indexes the fetcher used by the next fetch
	Strategy   int
	LastReason detect.Reason
	LastErr    error
}

// exhausted reports whether no fetch is left in the budget
func (a *Attempt) exhausted() bool {
	return a.Count >= a.Max
}

func (a *Attempt) fail(next State, reason detect.Reason, err error) {
	a.State = next
	a.LastReason = reason
	a.LastErr = err
}
