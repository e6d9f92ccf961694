package staking

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/moltbunker/stakedesk/internal/chain"
	"github.com/moltbunker/stakedesk/internal/logging"
	"github.com/moltbunker/stakedesk/internal/util"
	pkgtypes "github.com/moltbunker/stakedesk/pkg/types"
)

// Gateway is the typed surface of the staking contract. Mutating calls wait
// for inclusion before returning.
type Gateway interface {
	Stake(ctx context.Context, amount string) (*types.Receipt, error)
	Withdraw(ctx context.Context, amount string) (*types.Receipt, error)
	ClaimRewards(ctx context.Context) (*types.Receipt, error)
	ReadStake(ctx context.Context, addr common.Address) (*big.Int, error)
	ReadRewards(ctx context.Context, addr common.Address) (*big.Int, error)
}

// Options tunes how a Contract talks to the provider.
type Options struct {
	// PollInterval paces receipt polling. Zero means chain.DefaultPollInterval.
	PollInterval time.Duration
	// ReadRetries is how many times a failed read is retried.
	ReadRetries int
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() *Options {
	return &Options{
		PollInterval: chain.DefaultPollInterval,
		ReadRetries:  2,
	}
}

// Contract is the Gateway bound to the deployed staking contract through a
// wallet signer.
type Contract struct {
	signer       *chain.Signer
	address      common.Address
	contractABI  abi.ABI
	pollInterval time.Duration
	retryConfig  *util.RetryConfig
}

var _ Gateway = (*Contract)(nil)

// NewContract binds the staking contract to signer. The address and ABI are
// fixed.
func NewContract(signer *chain.Signer, opts *Options) *Contract {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Contract{
		signer:       signer,
		address:      pkgtypes.StakingContractAddress,
		contractABI:  parsedABI,
		pollInterval: opts.PollInterval,
		retryConfig:  util.ReadRetryConfig(opts.ReadRetries),
	}
}

// Address returns the contract address.
func (c *Contract) Address() common.Address {
	return c.address
}

// Stake deposits amount tokens.
func (c *Contract) Stake(ctx context.Context, amount string) (*types.Receipt, error) {
	wei, err := ParseTokens(amount)
	if err != nil {
		return nil, err
	}
	return c.transact(ctx, MethodStake, wei)
}

// Withdraw takes amount tokens out of the stake.
func (c *Contract) Withdraw(ctx context.Context, amount string) (*types.Receipt, error) {
	wei, err := ParseTokens(amount)
	if err != nil {
		return nil, err
	}
	return c.transact(ctx, MethodWithdraw, wei)
}

// ClaimRewards pays out accrued rewards.
func (c *Contract) ClaimRewards(ctx context.Context) (*types.Receipt, error) {
	return c.transact(ctx, MethodGetRewards)
}

// ReadStake returns the staked amount of addr in base units.
func (c *Contract) ReadStake(ctx context.Context, addr common.Address) (*big.Int, error) {
	return c.read(ctx, MethodUserStakeAmount, addr)
}

// ReadRewards returns the unclaimed rewards of addr in base units.
func (c *Contract) ReadRewards(ctx context.Context, addr common.Address) (*big.Int, error) {
	return c.read(ctx, MethodCheckRewards, addr)
}

func (c *Contract) transact(ctx context.Context, method string, args ...interface{}) (*types.Receipt, error) {
	data, err := c.contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	log := logging.With(logging.Component("staking"), logging.Action(method), logging.Address(c.signer.Address()))

	hash, err := c.signer.SendTransaction(ctx, c.address, data)
	if err != nil {
		return nil, pkgtypes.Wrap(pkgtypes.ErrTransactionFailed, err)
	}
	log.Info("transaction submitted", logging.TxHash(hash))

	receipt, err := chain.WaitMined(ctx, c.signer.Provider(), hash, c.pollInterval)
	if err != nil {
		return receipt, pkgtypes.Wrap(pkgtypes.ErrTransactionFailed, err)
	}
	log.Info("transaction mined", logging.TxHash(hash), "block", receipt.BlockNumber, "gas_used", receipt.GasUsed)
	return receipt, nil
}

func (c *Contract) read(ctx context.Context, method string, addr common.Address) (*big.Int, error) {
	data, err := c.contractABI.Pack(method, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}
	to := c.address

	out, result := util.RetryWithValue(ctx, c.retryConfig, func() ([]byte, error) {
		out, err := chain.Call(ctx, c.signer.Provider(), chain.TxArgs{To: &to, Data: data})
		if err != nil && ctx.Err() != nil {
			return nil, util.MarkNonRetryable(err)
		}
		return out, err
	})
	if result.LastError != nil {
		return nil, pkgtypes.Wrap(pkgtypes.ErrReadFailed, result.LastError)
	}

	values, err := c.contractABI.Unpack(method, out)
	if err != nil {
		return nil, pkgtypes.Wrap(pkgtypes.ErrReadFailed, fmt.Errorf("failed to unpack %s: %w", method, err))
	}
	if len(values) == 0 {
		return nil, pkgtypes.Wrap(pkgtypes.ErrReadFailed, fmt.Errorf("%s returned no values", method))
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, pkgtypes.Wrap(pkgtypes.ErrReadFailed, fmt.Errorf("%s returned %T", method, values[0]))
	}
	return v, nil
}
