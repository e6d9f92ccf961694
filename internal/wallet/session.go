// Package wallet connects the client to a wallet provider and holds the
// resulting session.
package wallet

import (
	"sync"

	"github.com/moltbunker/stakedesk/internal/chain"
	"github.com/moltbunker/stakedesk/internal/staking"
)

// ConnectionState is what a successful connection produces. Signer and
// Gateway are either both set or both nil.
type ConnectionState struct {
	Provider chain.Provider
	Signer   *chain.Signer
	Gateway  staking.Gateway
}

// Connected reports whether the state can submit transactions.
func (s ConnectionState) Connected() bool {
	return s.Signer != nil && s.Gateway != nil
}

// Session holds the connection state for the life of the process. It starts
// empty, is written only by a Connector and is never torn down.
type Session struct {
	mu    sync.RWMutex
	state ConnectionState
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{}
}

// State returns the current connection state.
func (s *Session) State() ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) set(state ConnectionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
