// Package chain speaks the EIP-1193 subset of JSON-RPC that the staking client
// needs from a wallet provider.
package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
)

// Provider is anything that can answer wallet JSON-RPC requests.
// *rpc.Client satisfies it, as do the in-process keystore and simulated wallets.
type Provider interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// Dial connects to an external wallet provider over http, ws or ipc.
func Dial(ctx context.Context, url string) (*rpc.Client, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial wallet provider: %w", err)
	}
	return client, nil
}
