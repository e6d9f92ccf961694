package controller

// State is the controller's position in the action flow.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateNetworkChecking
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateNetworkChecking:
		return "network_checking"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
