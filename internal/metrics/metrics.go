// Package metrics records controller activity.
package metrics

import "time"

// Action outcomes.
const (
	OutcomeSuccess       = "success"
	OutcomeConnectFailed = "connect_failed"
	OutcomeNetworkFailed = "network_failed"
	OutcomeGatewayFailed = "gateway_failed"
)

// Recorder receives controller events. Implementations must be safe for
// concurrent use.
type Recorder interface {
	// ObserveAction records one finished stake, withdraw or claim.
	ObserveAction(action, outcome string, duration time.Duration)
	// SyncFailed counts a balance refresh that left the snapshot unchanged.
	SyncFailed()
	// SetState publishes the controller state as its numeric value.
	SetState(state int)
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveAction(string, string, time.Duration) {}
func (Nop) SyncFailed()                                 {}
func (Nop) SetState(int)                                {}
