package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/moltbunker/stakedesk/internal/chain"
	"github.com/moltbunker/stakedesk/internal/logging"
	"github.com/moltbunker/stakedesk/internal/staking"
	pkgtypes "github.com/moltbunker/stakedesk/pkg/types"
)

// Status lines set by the connector.
const (
	StatusNoProvider    = "Please install MetaMask"
	StatusConnectFailed = "Failed to connect wallet"
	StatusConnected     = "Wallet connected"
)

// GatewayFactory binds a contract gateway to a freshly derived signer.
type GatewayFactory func(signer *chain.Signer) staking.Gateway

// Connector discovers a wallet provider, requests account access and stores
// provider, signer and gateway in the session in one update.
type Connector struct {
	discoverer Discoverer
	newGateway GatewayFactory
	session    *Session
	status     pkgtypes.StatusSink
}

// NewConnector wires a connector. A nil status sink discards messages.
func NewConnector(d Discoverer, newGateway GatewayFactory, session *Session, status pkgtypes.StatusSink) *Connector {
	if status == nil {
		status = pkgtypes.DiscardStatus
	}
	return &Connector{discoverer: d, newGateway: newGateway, session: session, status: status}
}

// Session returns the session the connector writes.
func (c *Connector) Session() *Session {
	return c.session
}

// Connect returns the existing state when already connected. Otherwise it
// runs the connect flow; on failure the session is left as it was.
func (c *Connector) Connect(ctx context.Context) (ConnectionState, error) {
	if state := c.session.State(); state.Connected() {
		return state, nil
	}

	log := logging.With(logging.Component("wallet"))

	provider, err := c.discoverer.Discover(ctx)
	if err != nil {
		if errors.Is(err, pkgtypes.ErrNoWalletProvider) {
			c.status.SetStatus(StatusNoProvider)
			log.Warn("no wallet provider available")
			return ConnectionState{}, err
		}
		c.status.SetStatus(StatusConnectFailed)
		log.Error("wallet provider discovery failed", logging.Err(err))
		return ConnectionState{}, fmt.Errorf("failed to connect wallet: %w", err)
	}

	accounts, err := chain.RequestAccounts(ctx, provider)
	if err != nil {
		c.status.SetStatus(StatusConnectFailed)
		log.Error("account request failed", logging.Err(err))
		if chain.IsUserRejected(err) {
			return ConnectionState{}, pkgtypes.Wrap(pkgtypes.ErrUserRejected, err)
		}
		return ConnectionState{}, fmt.Errorf("failed to connect wallet: %w", err)
	}
	if len(accounts) == 0 {
		c.status.SetStatus(StatusConnectFailed)
		log.Error("wallet returned no accounts")
		return ConnectionState{}, pkgtypes.ErrUserRejected
	}

	signer := chain.NewSigner(provider, accounts[0])
	state := ConnectionState{
		Provider: provider,
		Signer:   signer,
		Gateway:  c.newGateway(signer),
	}
	c.session.set(state)

	c.status.SetStatus(StatusConnected)
	log.Info("wallet connected", logging.Address(signer.Address()))
	return state, nil
}
