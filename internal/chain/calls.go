package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// TxArgs is the transaction object of eth_sendTransaction and eth_call.
type TxArgs struct {
	From  *common.Address `json:"from,omitempty"`
	To    *common.Address `json:"to,omitempty"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Gas   *hexutil.Uint64 `json:"gas,omitempty"`
}

// SwitchChainParams is the single parameter of wallet_switchEthereumChain.
type SwitchChainParams struct {
	ChainID hexutil.Big `json:"chainId"`
}

// ChainID returns the chain the provider is currently on.
func ChainID(ctx context.Context, p Provider) (*big.Int, error) {
	var id hexutil.Big
	if err := p.CallContext(ctx, &id, "eth_chainId"); err != nil {
		return nil, fmt.Errorf("eth_chainId: %w", err)
	}
	return (*big.Int)(&id), nil
}

// RequestAccounts asks the wallet for account access.
func RequestAccounts(ctx context.Context, p Provider) ([]common.Address, error) {
	var accounts []common.Address
	if err := p.CallContext(ctx, &accounts, "eth_requestAccounts"); err != nil {
		return nil, fmt.Errorf("eth_requestAccounts: %w", err)
	}
	return accounts, nil
}

// SwitchChain asks the wallet to move to chainID. The chain is never added.
func SwitchChain(ctx context.Context, p Provider, chainID *big.Int) error {
	params := []SwitchChainParams{{ChainID: hexutil.Big(*chainID)}}
	if err := p.CallContext(ctx, nil, "wallet_switchEthereumChain", params); err != nil {
		return fmt.Errorf("wallet_switchEthereumChain: %w", err)
	}
	return nil
}

// Call executes a read-only contract call against the latest block.
func Call(ctx context.Context, p Provider, args TxArgs) ([]byte, error) {
	var out hexutil.Bytes
	if err := p.CallContext(ctx, &out, "eth_call", args, "latest"); err != nil {
		return nil, fmt.Errorf("eth_call: %w", err)
	}
	return out, nil
}

// SendTransaction hands args to the wallet for signing and broadcast.
func SendTransaction(ctx context.Context, p Provider, args TxArgs) (common.Hash, error) {
	var hash common.Hash
	if err := p.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, fmt.Errorf("eth_sendTransaction: %w", err)
	}
	return hash, nil
}

// TransactionReceipt returns the receipt for hash, or ethereum.NotFound while
// the transaction is still pending.
func TransactionReceipt(ctx context.Context, p Provider, hash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	if err := p.CallContext(ctx, &receipt, "eth_getTransactionReceipt", hash); err != nil {
		return nil, fmt.Errorf("eth_getTransactionReceipt: %w", err)
	}
	if receipt == nil {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}
