package staking

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/moltbunker/stakedesk/internal/chain"
	pkgtypes "github.com/moltbunker/stakedesk/pkg/types"
)

// SimulatedCall is one request seen by a SimulatedWallet.
type SimulatedCall struct {
	Method string
	Params json.RawMessage
}

// SentTransaction is a decoded eth_sendTransaction against the staking contract.
type SentTransaction struct {
	Hash   common.Hash
	From   common.Address
	Method string
	Amount *big.Int // nil for calls without an amount
}

// SimulatedWallet is an in-process wallet provider with an in-memory copy of
// the staking contract. Every request is recorded. It backs --mock and the
// package tests of everything above the chain layer.
type SimulatedWallet struct {
	mu sync.Mutex

	accounts []common.Address
	chainID  *big.Int
	calls    []SimulatedCall

	rejectAccounts bool
	rejectSwitch   bool
	rejectSends    bool
	switchErr      error
	readErr        error
	pendingPolls   int
	rewardRateBps  int64

	stakes   map[common.Address]*big.Int
	rewards  map[common.Address]*big.Int
	receipts map[common.Hash]*types.Receipt
	polls    map[common.Hash]int
	sent     []SentTransaction
	block    uint64
}

// NewSimulatedWallet returns a wallet exposing account on chainID.
func NewSimulatedWallet(account common.Address, chainID int64) *SimulatedWallet {
	return &SimulatedWallet{
		accounts: []common.Address{account},
		chainID:  big.NewInt(chainID),
		stakes:   make(map[common.Address]*big.Int),
		rewards:  make(map[common.Address]*big.Int),
		receipts: make(map[common.Hash]*types.Receipt),
		polls:    make(map[common.Hash]int),
	}
}

// SetAccounts replaces the accounts returned by eth_requestAccounts.
func (w *SimulatedWallet) SetAccounts(accounts ...common.Address) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.accounts = accounts
}

// SetChainID moves the wallet to another chain.
func (w *SimulatedWallet) SetChainID(id int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.chainID = big.NewInt(id)
}

// ChainID returns the chain the wallet is on.
func (w *SimulatedWallet) ChainID() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chainID.Int64()
}

// SetRejectAccounts makes eth_requestAccounts fail with code 4001.
func (w *SimulatedWallet) SetRejectAccounts(reject bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rejectAccounts = reject
}

// SetRejectSwitch makes wallet_switchEthereumChain fail with code 4001.
func (w *SimulatedWallet) SetRejectSwitch(reject bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rejectSwitch = reject
}

// SetSwitchError makes wallet_switchEthereumChain fail with err.
func (w *SimulatedWallet) SetSwitchError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.switchErr = err
}

// SetRejectTransactions makes eth_sendTransaction fail with code 4001.
func (w *SimulatedWallet) SetRejectTransactions(reject bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rejectSends = reject
}

// SetReadError makes every eth_call fail with err. Nil restores reads.
func (w *SimulatedWallet) SetReadError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.readErr = err
}

// SetPendingPolls keeps each new transaction pending for n receipt polls.
func (w *SimulatedWallet) SetPendingPolls(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pendingPolls = n
}

// SetRewardRate accrues bps/10000 of each account's stake as rewards per
// mined block.
func (w *SimulatedWallet) SetRewardRate(bps int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rewardRateBps = bps
}

// SetStake overrides the stake of addr.
func (w *SimulatedWallet) SetStake(addr common.Address, v *big.Int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stakes[addr] = new(big.Int).Set(v)
}

// SetRewards overrides the unclaimed rewards of addr.
func (w *SimulatedWallet) SetRewards(addr common.Address, v *big.Int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rewards[addr] = new(big.Int).Set(v)
}

// StakeOf returns the stake of addr.
func (w *SimulatedWallet) StakeOf(addr common.Address) *big.Int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return balanceOf(w.stakes, addr)
}

// RewardsOf returns the unclaimed rewards of addr.
func (w *SimulatedWallet) RewardsOf(addr common.Address) *big.Int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return balanceOf(w.rewards, addr)
}

// Calls returns a copy of every request seen so far.
func (w *SimulatedWallet) Calls() []SimulatedCall {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]SimulatedCall, len(w.calls))
	copy(out, w.calls)
	return out
}

// CallCount returns how many times method was requested.
func (w *SimulatedWallet) CallCount(method string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, c := range w.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Sent returns the contract transactions submitted so far.
func (w *SimulatedWallet) Sent() []SentTransaction {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]SentTransaction, len(w.sent))
	copy(out, w.sent)
	return out
}

// CallContext implements chain.Provider.
func (w *SimulatedWallet) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params, err := json.Marshal(args)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.calls = append(w.calls, SimulatedCall{Method: method, Params: params})
	v, err := w.handle(method, args)
	w.mu.Unlock()
	if err != nil {
		return err
	}
	return chain.AssignResult(result, v)
}

func (w *SimulatedWallet) handle(method string, args []interface{}) (interface{}, error) {
	switch method {
	case "eth_requestAccounts", "eth_accounts":
		if w.rejectAccounts {
			return nil, chain.NewProviderError(chain.CodeUserRejected, "User rejected the request.")
		}
		return w.accounts, nil

	case "eth_chainId":
		return (*hexutil.Big)(w.chainID), nil

	case "eth_blockNumber":
		return hexutil.Uint64(w.block), nil

	case "wallet_switchEthereumChain":
		var params []chain.SwitchChainParams
		if err := chain.DecodeParam(args, 0, &params); err != nil || len(params) == 0 {
			return nil, chain.NewProviderError(chain.CodeInvalidParams, "invalid switch chain parameters")
		}
		if w.rejectSwitch {
			return nil, chain.NewProviderError(chain.CodeUserRejected, "User rejected the request.")
		}
		if w.switchErr != nil {
			return nil, w.switchErr
		}
		w.chainID = new(big.Int).Set((*big.Int)(&params[0].ChainID))
		return nil, nil

	case "eth_sendTransaction":
		var tx chain.TxArgs
		if err := chain.DecodeParam(args, 0, &tx); err != nil {
			return nil, chain.NewProviderError(chain.CodeInvalidParams, "invalid transaction")
		}
		if w.rejectSends {
			return nil, chain.NewProviderError(chain.CodeUserRejected, "User denied transaction signature.")
		}
		return w.mine(tx), nil

	case "eth_getTransactionReceipt":
		var hash common.Hash
		if err := chain.DecodeParam(args, 0, &hash); err != nil {
			return nil, chain.NewProviderError(chain.CodeInvalidParams, "invalid transaction hash")
		}
		receipt, ok := w.receipts[hash]
		if !ok {
			return nil, nil
		}
		if w.polls[hash] > 0 {
			w.polls[hash]--
			return nil, nil
		}
		return receipt, nil

	case "eth_call":
		var call chain.TxArgs
		if err := chain.DecodeParam(args, 0, &call); err != nil {
			return nil, chain.NewProviderError(chain.CodeInvalidParams, "invalid call")
		}
		if w.readErr != nil {
			return nil, w.readErr
		}
		return w.view(call)

	default:
		return nil, chain.NewProviderError(chain.CodeUnsupportedMethod, fmt.Sprintf("method %s not supported", method))
	}
}

// mine applies tx to the in-memory contract and records its receipt.
func (w *SimulatedWallet) mine(tx chain.TxArgs) common.Hash {
	var from common.Address
	if tx.From != nil {
		from = *tx.From
	}

	w.block++
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], w.block)
	hash := crypto.Keccak256Hash(from.Bytes(), nonce[:])

	status := types.ReceiptStatusSuccessful
	if tx.To != nil && *tx.To == pkgtypes.StakingContractAddress {
		sent, ok := w.apply(from, tx.Data)
		if !ok {
			status = types.ReceiptStatusFailed
		}
		sent.Hash = hash
		sent.From = from
		w.sent = append(w.sent, sent)
	}
	if status == types.ReceiptStatusSuccessful {
		w.accrue()
	}

	w.receipts[hash] = &types.Receipt{
		Type:              types.DynamicFeeTxType,
		Status:            status,
		CumulativeGasUsed: 50000,
		GasUsed:           50000,
		Logs:              []*types.Log{},
		TxHash:            hash,
		BlockHash:         crypto.Keccak256Hash(hash.Bytes()),
		BlockNumber:       new(big.Int).SetUint64(w.block),
	}
	w.polls[hash] = w.pendingPolls
	return hash
}

// apply runs one staking call. It reports false when the contract reverts.
func (w *SimulatedWallet) apply(from common.Address, data []byte) (SentTransaction, bool) {
	if len(data) < 4 {
		return SentTransaction{}, false
	}
	method, err := parsedABI.MethodById(data[:4])
	if err != nil {
		return SentTransaction{}, false
	}
	sent := SentTransaction{Method: method.Name}

	values, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return sent, false
	}
	if len(values) > 0 {
		if amount, ok := values[0].(*big.Int); ok {
			sent.Amount = amount
		}
	}

	switch method.Name {
	case MethodStake:
		w.stakes[from] = new(big.Int).Add(balanceOf(w.stakes, from), sent.Amount)
	case MethodWithdraw:
		current := balanceOf(w.stakes, from)
		if current.Cmp(sent.Amount) < 0 {
			return sent, false
		}
		w.stakes[from] = new(big.Int).Sub(current, sent.Amount)
	case MethodGetRewards:
		w.rewards[from] = new(big.Int)
	default:
		return sent, false
	}
	return sent, true
}

func (w *SimulatedWallet) accrue() {
	if w.rewardRateBps <= 0 {
		return
	}
	for addr, stake := range w.stakes {
		gain := new(big.Int).Mul(stake, big.NewInt(w.rewardRateBps))
		gain.Div(gain, big.NewInt(10000))
		w.rewards[addr] = new(big.Int).Add(balanceOf(w.rewards, addr), gain)
	}
}

func (w *SimulatedWallet) view(call chain.TxArgs) (interface{}, error) {
	if call.To == nil || *call.To != pkgtypes.StakingContractAddress {
		return hexutil.Bytes{}, nil
	}
	if len(call.Data) < 4 {
		return nil, errReverted
	}
	method, err := parsedABI.MethodById(call.Data[:4])
	if err != nil {
		return nil, errReverted
	}
	values, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil || len(values) != 1 {
		return nil, errReverted
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return nil, errReverted
	}

	var v *big.Int
	switch method.Name {
	case MethodUserStakeAmount:
		v = balanceOf(w.stakes, addr)
	case MethodCheckRewards:
		v = balanceOf(w.rewards, addr)
	default:
		return nil, errReverted
	}
	out, err := method.Outputs.Pack(v)
	if err != nil {
		return nil, err
	}
	return hexutil.Bytes(out), nil
}

var errReverted = chain.NewProviderError(chain.CodeExecutionReverted, "execution reverted")

func balanceOf(m map[common.Address]*big.Int, addr common.Address) *big.Int {
	if v, ok := m[addr]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}
