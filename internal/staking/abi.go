// Package staking is the gateway to the on-chain staking contract.
package staking

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// StakingABI is the subset of the staking contract ABI the client uses.
const StakingABI = `[
	{
		"inputs": [{"name": "amount", "type": "uint256"}],
		"name": "stake",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"name": "amount", "type": "uint256"}],
		"name": "withdraw",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "getRewards",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"name": "user", "type": "address"}],
		"name": "checkRewards",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "", "type": "address"}],
		"name": "userStakeAmount",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// Contract method names.
const (
	MethodStake           = "stake"
	MethodWithdraw        = "withdraw"
	MethodGetRewards      = "getRewards"
	MethodCheckRewards    = "checkRewards"
	MethodUserStakeAmount = "userStakeAmount"
)

var parsedABI = mustParseABI(StakingABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("failed to parse staking ABI: %v", err))
	}
	return parsed
}

// ABI returns the parsed staking contract ABI.
func ABI() abi.ABI {
	return parsedABI
}
