package types

import (
	"github.com/ethereum/go-ethereum/common"
)

// Fixed deployment the client is built against. These are deliberately not
// part of the config file: the client talks to exactly one chain and one
// contract.
const (
	// RequiredChainID is the Holesky testnet chain id.
	RequiredChainID int64 = 17000

	// TokenDecimals is the precision of the staked token (base units per token = 10^18).
	TokenDecimals = 18

	// TokenSymbol is the unit name used in status messages.
	TokenSymbol = "tokens"
)

// StakingContractAddress is the deployed staking contract.
var StakingContractAddress = common.HexToAddress("0xc3039ee6993608c56ffAAcDb892b1ca5857858dD")

// AccountSnapshot holds the displayed balances of the connected account,
// already converted from base units to decimal strings.
type AccountSnapshot struct {
	Stake   string `json:"stake"`
	Rewards string `json:"rewards"`
}

// EmptySnapshot is the snapshot shown before the first successful refresh.
func EmptySnapshot() AccountSnapshot {
	return AccountSnapshot{Stake: "0", Rewards: "0"}
}

// StatusSink receives the single live, human-readable status line.
// Each call replaces the previous message.
type StatusSink interface {
	SetStatus(msg string)
}

// StatusFunc adapts a plain function to StatusSink.
type StatusFunc func(msg string)

// SetStatus calls f(msg).
func (f StatusFunc) SetStatus(msg string) {
	if f != nil {
		f(msg)
	}
}

// DiscardStatus is a StatusSink that drops every message.
var DiscardStatus StatusSink = StatusFunc(nil)
