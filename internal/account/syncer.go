// Package account keeps the displayed stake and reward balances in step with
// the contract.
package account

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/moltbunker/stakedesk/internal/logging"
	"github.com/moltbunker/stakedesk/internal/staking"
	pkgtypes "github.com/moltbunker/stakedesk/pkg/types"
)

// Syncer owns the AccountSnapshot. Only a refresh in which both reads
// succeed replaces it.
type Syncer struct {
	mu       sync.RWMutex
	snapshot pkgtypes.AccountSnapshot
	onChange func(pkgtypes.AccountSnapshot)
}

// NewSyncer starts from the empty snapshot.
func NewSyncer() *Syncer {
	return &Syncer{snapshot: pkgtypes.EmptySnapshot()}
}

// OnChange registers fn to run after every successful refresh.
func (s *Syncer) OnChange(fn func(pkgtypes.AccountSnapshot)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Snapshot returns the current balances.
func (s *Syncer) Snapshot() pkgtypes.AccountSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Refresh reads stake and rewards for addr and replaces both fields
// together. On failure the snapshot is kept and the error is logged and
// returned; it never becomes a status message.
func (s *Syncer) Refresh(ctx context.Context, gateway staking.Gateway, addr common.Address) (pkgtypes.AccountSnapshot, error) {
	log := logging.With(logging.Component("account"), logging.Address(addr))

	stake, err := gateway.ReadStake(ctx, addr)
	if err != nil {
		log.Error("failed to update user info", logging.Err(err))
		return s.Snapshot(), fmt.Errorf("reading stake: %w", err)
	}
	rewards, err := gateway.ReadRewards(ctx, addr)
	if err != nil {
		log.Error("failed to update user info", logging.Err(err))
		return s.Snapshot(), fmt.Errorf("reading rewards: %w", err)
	}

	next := pkgtypes.AccountSnapshot{
		Stake:   staking.FormatTokens(stake),
		Rewards: staking.FormatTokens(rewards),
	}

	s.mu.Lock()
	s.snapshot = next
	onChange := s.onChange
	s.mu.Unlock()

	log.Debug("account refreshed", "stake", next.Stake, "rewards", next.Rewards)
	if onChange != nil {
		onChange(next)
	}
	return next, nil
}
