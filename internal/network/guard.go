// Package network keeps the wallet on the chain the staking contract lives on.
package network

import (
	"context"
	"math/big"

	"github.com/moltbunker/stakedesk/internal/chain"
	"github.com/moltbunker/stakedesk/internal/logging"
	"github.com/moltbunker/stakedesk/internal/wallet"
	pkgtypes "github.com/moltbunker/stakedesk/pkg/types"
)

// Status lines set by the guard.
const (
	StatusNotConnected = "Please connect your wallet first"
	StatusSwitchFailed = "Failed to switch network"
)

// Guard verifies the provider's chain before every mutating call and asks the
// wallet to switch when it is elsewhere.
type Guard struct {
	required *big.Int
	status   pkgtypes.StatusSink
}

// NewGuard returns a guard for the required chain. A nil sink discards
// messages.
func NewGuard(status pkgtypes.StatusSink) *Guard {
	if status == nil {
		status = pkgtypes.DiscardStatus
	}
	return &Guard{required: big.NewInt(pkgtypes.RequiredChainID), status: status}
}

// EnsureNetwork reports whether the provider in state is on the required
// chain, switching it at most once. It never adds a chain to the wallet.
func (g *Guard) EnsureNetwork(ctx context.Context, state wallet.ConnectionState) (bool, error) {
	if state.Provider == nil {
		g.status.SetStatus(StatusNotConnected)
		return false, pkgtypes.ErrNotConnected
	}

	log := logging.With(logging.Component("guard"))

	current, err := chain.ChainID(ctx, state.Provider)
	if err != nil {
		g.status.SetStatus(StatusSwitchFailed)
		log.Error("failed to read chain id", logging.Err(err))
		return false, pkgtypes.Wrap(pkgtypes.ErrNetworkSwitchFailed, err)
	}
	if current.Cmp(g.required) == 0 {
		return true, nil
	}

	log.Info("wallet on wrong chain, requesting switch",
		"current", current.String(),
		logging.ChainID(g.required),
	)
	if err := chain.SwitchChain(ctx, state.Provider, g.required); err != nil {
		g.status.SetStatus(StatusSwitchFailed)
		log.Error("network switch failed", logging.Err(err))
		return false, pkgtypes.Wrap(pkgtypes.ErrNetworkSwitchFailed, err)
	}
	return true, nil
}
