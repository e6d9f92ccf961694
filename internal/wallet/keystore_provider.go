package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/moltbunker/stakedesk/internal/chain"
	"github.com/moltbunker/stakedesk/internal/identity"
	"github.com/moltbunker/stakedesk/internal/logging"
	"github.com/moltbunker/stakedesk/internal/util"
	pkgtypes "github.com/moltbunker/stakedesk/pkg/types"
)

// KeystoreOptions configures a KeystoreProvider.
type KeystoreOptions struct {
	// Endpoints maps chain id to node RPC URL.
	Endpoints map[int64]string
	// ChainID is the chain selected before any switch. Zero means the
	// required chain.
	ChainID            int64
	GasLimitMultiplier float64
	FeeCapMultiplier   float64
	Password           identity.PasswordSources
	RetryConfig        *util.RetryConfig
	// Dial opens a node connection. Nil means rpc.DialContext with retry.
	Dial func(ctx context.Context, url string) (*rpc.Client, error)
}

// KeystoreProvider is a wallet provider backed by the local keystore. It
// answers the account, chain and transaction methods itself and forwards
// everything else to the node of the selected chain.
type KeystoreProvider struct {
	wallet *identity.WalletManager
	opts   KeystoreOptions

	mu        sync.Mutex
	chainID   *big.Int
	rpcClient *rpc.Client
	client    *ethclient.Client
}

// NewKeystoreProvider wraps wm. Nodes are dialed lazily.
func NewKeystoreProvider(wm *identity.WalletManager, opts KeystoreOptions) *KeystoreProvider {
	if opts.ChainID == 0 {
		opts.ChainID = pkgtypes.RequiredChainID
	}
	if opts.GasLimitMultiplier <= 0 {
		opts.GasLimitMultiplier = 1.2
	}
	if opts.FeeCapMultiplier <= 0 {
		opts.FeeCapMultiplier = 2.0
	}
	if opts.RetryConfig == nil {
		opts.RetryConfig = util.DefaultRetryConfig()
	}
	p := &KeystoreProvider{
		wallet:  wm,
		opts:    opts,
		chainID: big.NewInt(opts.ChainID),
	}
	if p.opts.Dial == nil {
		p.opts.Dial = p.dialWithRetry
	}
	return p
}

// Address returns the keystore account.
func (p *KeystoreProvider) Address() common.Address {
	return p.wallet.Address()
}

// Close drops the node connection and locks the wallet.
func (p *KeystoreProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rpcClient != nil {
		p.rpcClient.Close()
		p.rpcClient, p.client = nil, nil
	}
	p.wallet.Lock()
}

// CallContext implements chain.Provider.
func (p *KeystoreProvider) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	switch method {
	case "eth_requestAccounts":
		if err := p.unlock(); err != nil {
			return err
		}
		return chain.AssignResult(result, []common.Address{p.wallet.Address()})

	case "eth_accounts":
		accounts := []common.Address{}
		if p.wallet.IsUnlocked() {
			accounts = append(accounts, p.wallet.Address())
		}
		return chain.AssignResult(result, accounts)

	case "eth_chainId":
		p.mu.Lock()
		id := new(big.Int).Set(p.chainID)
		p.mu.Unlock()
		return chain.AssignResult(result, (*hexutil.Big)(id))

	case "wallet_switchEthereumChain":
		var params []chain.SwitchChainParams
		if err := chain.DecodeParam(args, 0, &params); err != nil || len(params) == 0 {
			return chain.NewProviderError(chain.CodeInvalidParams, "invalid switch chain parameters")
		}
		return p.switchChain(ctx, (*big.Int)(&params[0].ChainID))

	case "eth_sendTransaction":
		var tx chain.TxArgs
		if err := chain.DecodeParam(args, 0, &tx); err != nil {
			return chain.NewProviderError(chain.CodeInvalidParams, "invalid transaction")
		}
		hash, err := p.sendTransaction(ctx, tx)
		if err != nil {
			return err
		}
		return chain.AssignResult(result, hash)

	case "wallet_addEthereumChain":
		return chain.NewProviderError(chain.CodeUnsupportedMethod, "adding chains is not supported")

	default:
		rpcClient, _, err := p.connect(ctx)
		if err != nil {
			return err
		}
		return rpcClient.CallContext(ctx, result, method, args...)
	}
}

func (p *KeystoreProvider) unlock() error {
	if p.wallet.IsUnlocked() {
		return nil
	}
	password, err := identity.ResolvePassword(p.opts.Password)
	if err != nil {
		return chain.NewProviderError(chain.CodeUserRejected, fmt.Sprintf("password not provided: %v", err))
	}
	if err := p.wallet.Unlock(password); err != nil {
		return chain.NewProviderError(chain.CodeUnauthorized, err.Error())
	}
	return nil
}

func (p *KeystoreProvider) switchChain(ctx context.Context, target *big.Int) error {
	var url string
	ok := target.IsInt64()
	if ok {
		url, ok = p.opts.Endpoints[target.Int64()]
	}
	if !ok {
		return chain.NewProviderError(chain.CodeUnrecognizedChain,
			fmt.Sprintf("unrecognized chain id %s: no endpoint configured", target))
	}

	rpcClient, err := p.opts.Dial(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to dial chain %s: %w", target, err)
	}
	client := ethclient.NewClient(rpcClient)

	actual, err := client.ChainID(ctx)
	if err != nil {
		rpcClient.Close()
		return fmt.Errorf("failed to verify chain %s: %w", target, err)
	}
	if actual.Cmp(target) != 0 {
		rpcClient.Close()
		return fmt.Errorf("endpoint for chain %s reports chain %s", target, actual)
	}

	p.mu.Lock()
	old := p.rpcClient
	p.chainID = new(big.Int).Set(target)
	p.rpcClient, p.client = rpcClient, client
	p.mu.Unlock()
	if old != nil {
		old.Close()
	}

	logging.Info("keystore wallet switched chain", logging.Component("wallet"), logging.ChainID(target))
	return nil
}

// connect returns the node client for the selected chain, dialing it on
// first use.
func (p *KeystoreProvider) connect(ctx context.Context) (*rpc.Client, *ethclient.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rpcClient != nil {
		return p.rpcClient, p.client, nil
	}

	url, ok := p.opts.Endpoints[p.chainID.Int64()]
	if !ok {
		return nil, nil, fmt.Errorf("no endpoint configured for chain %s", p.chainID)
	}
	rpcClient, err := p.opts.Dial(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial chain %s: %w", p.chainID, err)
	}
	p.rpcClient, p.client = rpcClient, ethclient.NewClient(rpcClient)
	return p.rpcClient, p.client, nil
}

func (p *KeystoreProvider) dialWithRetry(ctx context.Context, url string) (*rpc.Client, error) {
	client, result := util.RetryWithValue(ctx, p.opts.RetryConfig, func() (*rpc.Client, error) {
		return rpc.DialContext(ctx, url)
	})
	if result.LastError != nil {
		return nil, result.LastError
	}
	return client, nil
}

// sendTransaction builds an EIP-1559 transaction for args, signs it with the
// keystore key and submits it.
func (p *KeystoreProvider) sendTransaction(ctx context.Context, args chain.TxArgs) (common.Hash, error) {
	from := p.wallet.Address()
	if args.From != nil && *args.From != from {
		return common.Hash{}, chain.NewProviderError(chain.CodeUnauthorized, "unknown sender "+args.From.Hex())
	}
	if !p.wallet.IsUnlocked() {
		return common.Hash{}, chain.NewProviderError(chain.CodeUnauthorized, "wallet is locked; request accounts first")
	}

	_, client, err := p.connect(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	p.mu.Lock()
	chainID := new(big.Int).Set(p.chainID)
	p.mu.Unlock()

	value := new(big.Int)
	if args.Value != nil {
		value = args.Value.ToInt()
	}

	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}
	tipCap, feeCap, err := p.suggestFees(ctx, client)
	if err != nil {
		return common.Hash{}, err
	}

	var gas uint64
	if args.Gas != nil {
		gas = uint64(*args.Gas)
	} else {
		estimate, err := client.EstimateGas(ctx, ethereum.CallMsg{
			From:  from,
			To:    args.To,
			Value: value,
			Data:  args.Data,
		})
		if err != nil {
			return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
		}
		gas = uint64(float64(estimate) * p.opts.GasLimitMultiplier)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        args.To,
		Value:     value,
		Data:      args.Data,
	})
	signed, err := p.wallet.SignTx(tx, chainID)
	if err != nil {
		if errors.Is(err, identity.ErrLocked) {
			return common.Hash{}, chain.NewProviderError(chain.CodeUnauthorized, err.Error())
		}
		return common.Hash{}, err
	}

	if err := client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	logging.Debug("keystore wallet sent transaction",
		logging.Component("wallet"),
		logging.TxHash(signed.Hash()),
		"nonce", nonce,
		"gas", gas,
	)
	return signed.Hash(), nil
}

// suggestFees returns the tip cap and a fee cap of
// baseFee * FeeCapMultiplier + tip.
func (p *KeystoreProvider) suggestFees(ctx context.Context, client *ethclient.Client) (*big.Int, *big.Int, error) {
	tipCap, err := client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to suggest gas tip cap: %w", err)
	}
	head, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get latest header: %w", err)
	}
	if head.BaseFee == nil {
		return tipCap, new(big.Int).Mul(tipCap, big.NewInt(2)), nil
	}
	feeCap := scale(head.BaseFee, p.opts.FeeCapMultiplier)
	feeCap.Add(feeCap, tipCap)
	return tipCap, feeCap, nil
}

func scale(v *big.Int, m float64) *big.Int {
	f := new(big.Float).Mul(new(big.Float).SetInt(v), big.NewFloat(m))
	out, _ := f.Int(nil)
	return out
}
