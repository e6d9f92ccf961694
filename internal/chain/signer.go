package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Signer sends transactions from one wallet account through its provider.
// The provider holds the key; Signer only names the account.
type Signer struct {
	provider Provider
	address  common.Address
}

// NewSigner binds address to provider.
func NewSigner(provider Provider, address common.Address) *Signer {
	return &Signer{provider: provider, address: address}
}

// Address returns the account the signer sends from.
func (s *Signer) Address() common.Address {
	return s.address
}

// Provider returns the provider the signer sends through.
func (s *Signer) Provider() Provider {
	return s.provider
}

// SendTransaction submits a contract call with the given calldata and returns
// its hash. The wallet fills in gas, fees and nonce.
func (s *Signer) SendTransaction(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	from := s.address
	return SendTransaction(ctx, s.provider, TxArgs{
		From: &from,
		To:   &to,
		Data: data,
	})
}
