package controller

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/moltbunker/stakedesk/internal/chain"
	"github.com/moltbunker/stakedesk/internal/metrics"
	"github.com/moltbunker/stakedesk/internal/network"
	"github.com/moltbunker/stakedesk/internal/staking"
	"github.com/moltbunker/stakedesk/internal/wallet"
	pkgtypes "github.com/moltbunker/stakedesk/pkg/types"
)

var testAccount = common.HexToAddress("0x2222222222222222222222222222222222222222")

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func fastContract(s *chain.Signer) staking.Gateway {
	return staking.NewContract(s, &staking.Options{PollInterval: time.Millisecond})
}

func newTestController(w *staking.SimulatedWallet, rec metrics.Recorder) *Controller {
	return New(Config{
		Discoverer: wallet.Static(w),
		NewGateway: fastContract,
		Recorder:   rec,
	})
}

// fakeGateway counts calls and returns scripted results.
type fakeGateway struct {
	mu       sync.Mutex
	mutating int
	reads    int
	stake    *big.Int
	rewards  *big.Int
	sendErr  error
	readErr  error
}

func (g *fakeGateway) Stake(context.Context, string) (*types.Receipt, error) {
	return g.send()
}

func (g *fakeGateway) Withdraw(context.Context, string) (*types.Receipt, error) {
	return g.send()
}

func (g *fakeGateway) ClaimRewards(context.Context) (*types.Receipt, error) {
	return g.send()
}

func (g *fakeGateway) send() (*types.Receipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mutating++
	if g.sendErr != nil {
		return nil, g.sendErr
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

func (g *fakeGateway) ReadStake(context.Context, common.Address) (*big.Int, error) {
	return g.read(g.stake)
}

func (g *fakeGateway) ReadRewards(context.Context, common.Address) (*big.Int, error) {
	return g.read(g.rewards)
}

func (g *fakeGateway) read(v *big.Int) (*big.Int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reads++
	if g.readErr != nil {
		return nil, g.readErr
	}
	if v == nil {
		return new(big.Int), nil
	}
	return v, nil
}

func (g *fakeGateway) counts() (int, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mutating, g.reads
}

type actionRecord struct {
	action  string
	outcome string
}

type fakeRecorder struct {
	mu         sync.Mutex
	actions    []actionRecord
	syncFailed int
	lastState  int
}

func (r *fakeRecorder) ObserveAction(action, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, actionRecord{action, outcome})
}

func (r *fakeRecorder) SyncFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncFailed++
}

func (r *fakeRecorder) SetState(s int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastState = s
}

func TestNoProvider(t *testing.T) {
	c := New(Config{Discoverer: wallet.Static(nil), NewGateway: fastContract})

	err := c.Stake(context.Background())
	if !errors.Is(err, pkgtypes.ErrNoWalletProvider) {
		t.Fatalf("expected ErrNoWalletProvider, got %v", err)
	}
	if c.Status() != wallet.StatusNoProvider {
		t.Errorf("status = %q, want %q", c.Status(), wallet.StatusNoProvider)
	}
	if c.Session().State().Connected() {
		t.Error("session should stay empty")
	}
	if c.State() != StateIdle {
		t.Errorf("state = %v, want idle", c.State())
	}
}

func TestStakeOnWrongChainSwitchesAndStakes(t *testing.T) {
	w := staking.NewSimulatedWallet(testAccount, 1)
	rec := &fakeRecorder{}
	c := newTestController(w, rec)

	var snapshots []pkgtypes.AccountSnapshot
	c.OnSnapshot(func(s pkgtypes.AccountSnapshot) { snapshots = append(snapshots, s) })

	c.SetStakeInput("10")
	if err := c.Stake(context.Background()); err != nil {
		t.Fatalf("Stake failed: %v", err)
	}

	if got := w.CallCount("wallet_switchEthereumChain"); got != 1 {
		t.Errorf("switch requests = %d, want 1", got)
	}
	sent := w.Sent()
	if len(sent) != 1 || sent[0].Method != staking.MethodStake {
		t.Fatalf("unexpected transactions: %+v", sent)
	}
	if sent[0].Amount.Cmp(ether(10)) != 0 {
		t.Errorf("amount = %s, want %s", sent[0].Amount, ether(10))
	}
	if c.Status() != "Successfully staked 10 tokens" {
		t.Errorf("status = %q", c.Status())
	}
	if len(snapshots) != 1 {
		t.Fatalf("refreshes = %d, want exactly 1", len(snapshots))
	}
	if snap := c.Snapshot(); snap.Stake != "10.0" || snap.Rewards != "0.0" {
		t.Errorf("snapshot = %+v", snap)
	}
	if len(rec.actions) != 1 || rec.actions[0] != (actionRecord{ActionStake, metrics.OutcomeSuccess}) {
		t.Errorf("recorded actions = %+v", rec.actions)
	}
	if rec.lastState != int(StateIdle) {
		t.Errorf("last recorded state = %d, want idle", rec.lastState)
	}
}

func TestConnectPrecedesGuardAndGateway(t *testing.T) {
	w := staking.NewSimulatedWallet(testAccount, pkgtypes.RequiredChainID)
	c := newTestController(w, nil)

	c.SetStakeInput("1")
	if err := c.Stake(context.Background()); err != nil {
		t.Fatalf("Stake failed: %v", err)
	}

	calls := w.Calls()
	if len(calls) < 3 {
		t.Fatalf("expected at least 3 calls, got %d", len(calls))
	}
	if calls[0].Method != "eth_requestAccounts" {
		t.Errorf("first call = %s, want eth_requestAccounts", calls[0].Method)
	}
	if calls[1].Method != "eth_chainId" {
		t.Errorf("second call = %s, want eth_chainId", calls[1].Method)
	}
	if calls[2].Method != "eth_sendTransaction" {
		t.Errorf("third call = %s, want eth_sendTransaction", calls[2].Method)
	}
}

func TestStateTransitions(t *testing.T) {
	w := staking.NewSimulatedWallet(testAccount, pkgtypes.RequiredChainID)
	c := newTestController(w, nil)

	var mu sync.Mutex
	var states []State
	c.OnState(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	if err := c.Claim(context.Background()); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	want := []State{StateConnecting, StateNetworkChecking, StateSubmitting, StateSucceeded, StateIdle}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("states[%d] = %v, want %v", i, states[i], want[i])
		}
	}
	if c.Status() != StatusClaimed {
		t.Errorf("status = %q, want %q", c.Status(), StatusClaimed)
	}
}

func TestGuardRejectionBlocksGateway(t *testing.T) {
	w := staking.NewSimulatedWallet(testAccount, 1)
	w.SetRejectSwitch(true)
	gw := &fakeGateway{}
	rec := &fakeRecorder{}
	c := New(Config{
		Discoverer: wallet.Static(w),
		NewGateway: func(*chain.Signer) staking.Gateway { return gw },
		Recorder:   rec,
	})

	c.SetWithdrawInput("1")
	err := c.Withdraw(context.Background())
	if !errors.Is(err, pkgtypes.ErrNetworkSwitchFailed) {
		t.Fatalf("expected ErrNetworkSwitchFailed, got %v", err)
	}
	if got := w.CallCount("wallet_switchEthereumChain"); got != 1 {
		t.Errorf("switch requests = %d, want 1", got)
	}
	if mutating, _ := gw.counts(); mutating != 0 {
		t.Errorf("gateway mutating calls = %d, want 0", mutating)
	}
	if c.Status() != network.StatusSwitchFailed {
		t.Errorf("status = %q, want %q", c.Status(), network.StatusSwitchFailed)
	}
	if len(rec.actions) != 1 || rec.actions[0].outcome != metrics.OutcomeNetworkFailed {
		t.Errorf("recorded actions = %+v", rec.actions)
	}
}

func TestWithdrawRevertKeepsSnapshot(t *testing.T) {
	w := staking.NewSimulatedWallet(testAccount, pkgtypes.RequiredChainID)
	w.SetStake(testAccount, ether(5))
	c := newTestController(w, nil)

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	before := c.Snapshot()
	if before.Stake != "5.0" {
		t.Fatalf("initial stake = %q, want 5.0", before.Stake)
	}

	c.SetWithdrawInput("6")
	err := c.Withdraw(context.Background())
	if !errors.Is(err, pkgtypes.ErrTransactionFailed) {
		t.Fatalf("expected ErrTransactionFailed, got %v", err)
	}
	if !errors.Is(err, chain.ErrReverted) {
		t.Errorf("expected revert cause, got %v", err)
	}
	if c.Status() != StatusWithdrawFailed {
		t.Errorf("status = %q, want %q", c.Status(), StatusWithdrawFailed)
	}
	if c.Snapshot() != before {
		t.Errorf("snapshot changed: %+v -> %+v", before, c.Snapshot())
	}
}

func TestSubmitFailureStatuses(t *testing.T) {
	tests := []struct {
		name   string
		run    func(*Controller) error
		status string
	}{
		{"stake", func(c *Controller) error { return c.Stake(context.Background()) }, StatusStakeFailed},
		{"withdraw", func(c *Controller) error { return c.Withdraw(context.Background()) }, StatusWithdrawFailed},
		{"claim", func(c *Controller) error { return c.Claim(context.Background()) }, StatusClaimFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := staking.NewSimulatedWallet(testAccount, pkgtypes.RequiredChainID)
			gw := &fakeGateway{sendErr: errors.New("boom")}
			c := New(Config{
				Discoverer: wallet.Static(w),
				NewGateway: func(*chain.Signer) staking.Gateway { return gw },
			})
			c.SetStakeInput("1")
			c.SetWithdrawInput("1")

			if err := tt.run(c); err == nil {
				t.Fatal("expected error")
			}
			if c.Status() != tt.status {
				t.Errorf("status = %q, want %q", c.Status(), tt.status)
			}
			// The fresh connect still loads balances once.
			if _, reads := gw.counts(); reads != 2 {
				t.Errorf("reads = %d, want 2", reads)
			}
		})
	}
}

func TestInvalidAmountSendsNothing(t *testing.T) {
	w := staking.NewSimulatedWallet(testAccount, pkgtypes.RequiredChainID)
	c := newTestController(w, nil)

	c.SetStakeInput("abc")
	err := c.Stake(context.Background())
	if !errors.Is(err, pkgtypes.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if len(w.Sent()) != 0 {
		t.Errorf("sent %d transactions, want 0", len(w.Sent()))
	}
	if c.Status() != StatusStakeFailed {
		t.Errorf("status = %q, want %q", c.Status(), StatusStakeFailed)
	}
}

func TestSuccessUsesRawInput(t *testing.T) {
	w := staking.NewSimulatedWallet(testAccount, pkgtypes.RequiredChainID)
	w.SetStake(testAccount, ether(3))
	c := newTestController(w, nil)

	c.SetWithdrawInput("1.50")
	if err := c.Withdraw(context.Background()); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if c.Status() != "Successfully withdrawn 1.50 tokens" {
		t.Errorf("status = %q", c.Status())
	}
	if snap := c.Snapshot(); snap.Stake != "1.5" {
		t.Errorf("stake = %q, want 1.5", snap.Stake)
	}
}

func TestRefreshFailureKeepsSnapshot(t *testing.T) {
	gw := &fakeGateway{stake: ether(2), rewards: ether(1)}
	w := staking.NewSimulatedWallet(testAccount, pkgtypes.RequiredChainID)
	rec := &fakeRecorder{}
	c := New(Config{
		Discoverer: wallet.Static(w),
		NewGateway: func(*chain.Signer) staking.Gateway { return gw },
		Recorder:   rec,
	})

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	before := c.Snapshot()
	status := c.Status()

	gw.mu.Lock()
	gw.readErr = errors.New("rpc down")
	gw.mu.Unlock()

	if err := c.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if c.Snapshot() != before {
		t.Errorf("snapshot changed after failed refresh")
	}
	if c.Status() != status {
		t.Errorf("status changed to %q after failed refresh", c.Status())
	}
	if rec.syncFailed != 1 {
		t.Errorf("sync failures = %d, want 1", rec.syncFailed)
	}
}

func TestRefreshNotConnected(t *testing.T) {
	c := New(Config{Discoverer: wallet.Static(nil), NewGateway: fastContract})
	if err := c.Refresh(context.Background()); !errors.Is(err, pkgtypes.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestConnectDoesNotCheckNetwork(t *testing.T) {
	w := staking.NewSimulatedWallet(testAccount, 1)
	c := newTestController(w, nil)

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if got := w.CallCount("eth_chainId"); got != 0 {
		t.Errorf("eth_chainId calls = %d, want 0", got)
	}
	if got := w.CallCount("eth_call"); got != 2 {
		t.Errorf("eth_call calls = %d, want 2", got)
	}
	if c.Status() != wallet.StatusConnected {
		t.Errorf("status = %q, want %q", c.Status(), wallet.StatusConnected)
	}
}

func TestConcurrentActions(t *testing.T) {
	w := staking.NewSimulatedWallet(testAccount, pkgtypes.RequiredChainID)
	c := newTestController(w, nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	c.SetStakeInput("1")

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.Stake(context.Background())
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Stake failed: %v", err)
		}
	}
	if got := w.StakeOf(testAccount); got.Cmp(ether(4)) != 0 {
		t.Errorf("stake = %s, want %s", got, ether(4))
	}
	if !strings.HasPrefix(c.Status(), "Successfully staked") {
		t.Errorf("status = %q", c.Status())
	}
}

func TestConcurrentFirstActionsConnect(t *testing.T) {
	w := staking.NewSimulatedWallet(testAccount, pkgtypes.RequiredChainID)
	c := newTestController(w, nil)
	c.SetStakeInput("1")

	// Neither action waits for the other's connect; both must still land.
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.Stake(context.Background())
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Stake failed: %v", err)
		}
	}
	if !c.Session().State().Connected() {
		t.Error("expected a connected session")
	}
	if got := w.StakeOf(testAccount); got.Cmp(ether(2)) != 0 {
		t.Errorf("stake = %s, want %s", got, ether(2))
	}
}

func TestStateString(t *testing.T) {
	if StateNetworkChecking.String() != "network_checking" {
		t.Errorf("got %q", StateNetworkChecking.String())
	}
	if State(42).String() != "unknown" {
		t.Errorf("got %q", State(42).String())
	}
}
