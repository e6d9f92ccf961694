package wallet

import (
	"context"
	"fmt"

	"github.com/moltbunker/stakedesk/internal/chain"
	"github.com/moltbunker/stakedesk/internal/identity"
	"github.com/moltbunker/stakedesk/internal/logging"
	pkgtypes "github.com/moltbunker/stakedesk/pkg/types"
)

// Discoverer finds the wallet provider to connect to. It returns
// types.ErrNoWalletProvider when there is none.
type Discoverer interface {
	Discover(ctx context.Context) (chain.Provider, error)
}

// DiscovererFunc adapts a function to Discoverer.
type DiscovererFunc func(ctx context.Context) (chain.Provider, error)

// Discover calls f(ctx).
func (f DiscovererFunc) Discover(ctx context.Context) (chain.Provider, error) {
	return f(ctx)
}

// Static always returns p, or ErrNoWalletProvider when p is nil.
func Static(p chain.Provider) Discoverer {
	return DiscovererFunc(func(context.Context) (chain.Provider, error) {
		if p == nil {
			return nil, pkgtypes.ErrNoWalletProvider
		}
		return p, nil
	})
}

// Discovery resolves the provider from configuration, in order: the mock
// wallet, an external provider URL, then a local keystore wallet.
type Discovery struct {
	Mock        chain.Provider
	ProviderURL string
	KeystoreDir string
	Keystore    KeystoreOptions
}

// Discover implements Discoverer.
func (d *Discovery) Discover(ctx context.Context) (chain.Provider, error) {
	log := logging.With(logging.Component("wallet"))

	if d.Mock != nil {
		log.Debug("using simulated wallet")
		return d.Mock, nil
	}

	if d.ProviderURL != "" {
		client, err := chain.Dial(ctx, d.ProviderURL)
		if err != nil {
			return nil, err
		}
		log.Debug("using external wallet provider", "url", d.ProviderURL)
		return client, nil
	}

	if d.KeystoreDir != "" && identity.HasWallet(d.KeystoreDir) {
		wm, err := identity.LoadWalletManager(d.KeystoreDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load keystore wallet: %w", err)
		}
		log.Debug("using keystore wallet", logging.Address(wm.Address()))
		return NewKeystoreProvider(wm, d.Keystore), nil
	}

	return nil, pkgtypes.ErrNoWalletProvider
}

// Close releases provider resources when the provider holds any.
func Close(p chain.Provider) {
	if c, ok := p.(interface{ Close() }); ok {
		c.Close()
	}
}
