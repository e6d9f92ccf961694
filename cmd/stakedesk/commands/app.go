package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/ethereum/go-ethereum/common"

	"github.com/moltbunker/stakedesk/internal/chain"
	"github.com/moltbunker/stakedesk/internal/config"
	"github.com/moltbunker/stakedesk/internal/controller"
	"github.com/moltbunker/stakedesk/internal/identity"
	"github.com/moltbunker/stakedesk/internal/logging"
	"github.com/moltbunker/stakedesk/internal/metrics"
	"github.com/moltbunker/stakedesk/internal/staking"
	"github.com/moltbunker/stakedesk/internal/util"
	"github.com/moltbunker/stakedesk/internal/wallet"
)

// mockAccount is the address exposed by the in-memory wallet.
var mockAccount = common.HexToAddress("0x5eAf5eAf5eAf5eAf5eAf5eAf5eAf5eAf5eAf5eAf")

// mockRewardRateBps is the reward accrued per mined transaction in --mock mode.
const mockRewardRateBps = 100

// app holds what a command needs to drive the controller.
type app struct {
	cfg       *config.Config
	discovery *wallet.Discovery
	ctrl      *controller.Controller

	cancel      context.CancelFunc
	metricsDone <-chan struct{}
}

// newApp wires the controller from cfg. Close must be called when done.
func newApp(ctx context.Context, cfg *config.Config) *app {
	ctx, cancel := context.WithCancel(ctx)
	a := &app{cfg: cfg, cancel: cancel}

	var recorder metrics.Recorder = metrics.Nop{}
	if cfg.Metrics.Enabled {
		prom := metrics.NewPrometheusRecorder()
		recorder = prom
		addr := cfg.Metrics.ListenAddr
		a.metricsDone = util.SafeGoWithName("metrics-server", func() {
			if err := prom.Serve(ctx, addr); err != nil {
				logging.Warn("metrics endpoint stopped", logging.Component("metrics"), logging.Err(err))
			}
		})
	}

	a.discovery = &wallet.Discovery{
		ProviderURL: cfg.Wallet.ProviderURL,
		KeystoreDir: cfg.Wallet.KeystoreDir,
		Keystore: wallet.KeystoreOptions{
			Endpoints:          cfg.Wallet.Endpoints,
			GasLimitMultiplier: cfg.Tx.GasLimitMultiplier,
			FeeCapMultiplier:   cfg.Tx.FeeCapMultiplier,
			Password:           passwordSources(cfg),
		},
	}
	if cfg.Mock {
		mock := staking.NewSimulatedWallet(mockAccount, 1)
		mock.SetRewardRate(mockRewardRateBps)
		a.discovery.Mock = mock
	}

	opts := &staking.Options{
		PollInterval: time.Duration(cfg.Tx.PollIntervalMs) * time.Millisecond,
		ReadRetries:  cfg.Reads.MaxRetries,
	}
	a.ctrl = controller.New(controller.Config{
		Discoverer: a.discovery,
		NewGateway: func(s *chain.Signer) staking.Gateway {
			return staking.NewContract(s, opts)
		},
		Recorder: recorder,
	})
	return a
}

// Close releases the wallet provider and stops the metrics endpoint.
func (a *app) Close() {
	wallet.Close(a.ctrl.Session().State().Provider)
	a.cancel()
	if a.metricsDone != nil {
		<-a.metricsDone
	}
}

// usesKeystore reports whether Discover will pick the local keystore wallet.
func (a *app) usesKeystore() bool {
	return a.discovery.Mock == nil && a.discovery.ProviderURL == "" &&
		identity.HasWallet(a.discovery.KeystoreDir)
}

// unlockUpFront resolves the keystore password before any spinner takes the
// terminal, so the signing step never needs to prompt.
func (a *app) unlockUpFront() error {
	if !a.usesKeystore() {
		return nil
	}
	password, err := identity.ResolvePassword(a.discovery.Keystore.Password)
	if err != nil {
		return fmt.Errorf("failed to unlock wallet: %w", err)
	}
	a.discovery.Keystore.Password = identity.PasswordSources{
		SkipKeyrings: true,
		Prompt:       func() (string, error) { return password, nil },
	}
	return nil
}

func passwordSources(cfg *config.Config) identity.PasswordSources {
	return identity.PasswordSources{
		EnvVar: config.EnvWalletPassword,
		File:   cfg.Wallet.PasswordFile,
		Prompt: promptPassword,
	}
}

// promptPassword asks for the keystore password. Aborting the form is
// reported as an error, which the wallet turns into a user rejection.
func promptPassword() (string, error) {
	if !isTTY() {
		return "", identity.ErrNoPassword
	}

	var password string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Wallet password").
				Description("Unlocks the keystore to sign the transaction").
				EchoMode(huh.EchoModePassword).
				Value(&password),
		),
	).WithTheme(huh.ThemeBase()).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return "", fmt.Errorf("password prompt cancelled: %w", err)
	}
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", identity.ErrNoPassword
	}
	return password, nil
}

// accountFields renders the connected account and its balances.
func accountFields(ctrl *controller.Controller) [][2]string {
	snap := ctrl.Snapshot()
	fields := [][2]string{}
	if state := ctrl.Session().State(); state.Signer != nil {
		fields = append(fields, [2]string{"Address", state.Signer.Address().Hex()})
	}
	return append(fields,
		[2]string{"Staked", FormatTokens(snap.Stake)},
		[2]string{"Rewards", FormatTokens(snap.Rewards)},
	)
}
