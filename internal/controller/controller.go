// Package controller sequences connect, network check, submission and
// balance refresh for the three staking actions.
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/moltbunker/stakedesk/internal/account"
	"github.com/moltbunker/stakedesk/internal/logging"
	"github.com/moltbunker/stakedesk/internal/metrics"
	"github.com/moltbunker/stakedesk/internal/network"
	"github.com/moltbunker/stakedesk/internal/staking"
	"github.com/moltbunker/stakedesk/internal/wallet"
	pkgtypes "github.com/moltbunker/stakedesk/pkg/types"
)

// Action names, also used as metric labels.
const (
	ActionStake    = "stake"
	ActionWithdraw = "withdraw"
	ActionClaim    = "claim"
)

// Status lines set by the actions. Stake and withdraw successes embed the
// raw input, so they are built at submission time.
const (
	StatusStakeFailed    = "Staking failed"
	StatusWithdrawFailed = "Withdrawal failed"
	StatusClaimFailed    = "Claiming rewards failed"
	StatusClaimed        = "Successfully claimed rewards"
)

// Config wires a Controller.
type Config struct {
	// Discoverer finds the wallet provider on first use.
	Discoverer wallet.Discoverer
	// NewGateway binds the contract gateway to the connected signer.
	NewGateway wallet.GatewayFactory
	// Recorder receives action metrics. Nil means metrics.Nop.
	Recorder metrics.Recorder
}

// Controller is the presentation boundary: two input slots, three triggers,
// the live status line and the account snapshot. Actions may run
// concurrently; they are not serialized against each other.
type Controller struct {
	session   *wallet.Session
	connector *wallet.Connector
	guard     *network.Guard
	syncer    *account.Syncer
	recorder  metrics.Recorder

	mu            sync.Mutex
	state         State
	status        string
	stakeInput    string
	withdrawInput string
	onState       func(State)
	onStatus      func(string)
}

// New builds a controller with an empty session.
func New(cfg Config) *Controller {
	c := &Controller{
		session:  wallet.NewSession(),
		syncer:   account.NewSyncer(),
		recorder: cfg.Recorder,
	}
	if c.recorder == nil {
		c.recorder = metrics.Nop{}
	}
	c.connector = wallet.NewConnector(cfg.Discoverer, cfg.NewGateway, c.session, c)
	c.guard = network.NewGuard(c)
	return c
}

// SetStatus replaces the status line. It implements types.StatusSink for the
// connector and the guard.
func (c *Controller) SetStatus(msg string) {
	c.mu.Lock()
	c.status = msg
	fn := c.onStatus
	c.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}

// Status returns the last status line.
func (c *Controller) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// State returns the current flow state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the displayed balances.
func (c *Controller) Snapshot() pkgtypes.AccountSnapshot {
	return c.syncer.Snapshot()
}

// Session exposes the connection state.
func (c *Controller) Session() *wallet.Session {
	return c.session
}

// SetStakeInput stores the raw stake amount text.
func (c *Controller) SetStakeInput(s string) {
	c.mu.Lock()
	c.stakeInput = s
	c.mu.Unlock()
}

// SetWithdrawInput stores the raw withdraw amount text.
func (c *Controller) SetWithdrawInput(s string) {
	c.mu.Lock()
	c.withdrawInput = s
	c.mu.Unlock()
}

// OnStatus registers fn to run on every status change.
func (c *Controller) OnStatus(fn func(string)) {
	c.mu.Lock()
	c.onStatus = fn
	c.mu.Unlock()
}

// OnState registers fn to run on every state transition.
func (c *Controller) OnState(fn func(State)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

// OnSnapshot registers fn to run after every successful balance refresh.
func (c *Controller) OnSnapshot(fn func(pkgtypes.AccountSnapshot)) {
	c.syncer.OnChange(fn)
}

// Connect connects the wallet if needed and loads the balances.
func (c *Controller) Connect(ctx context.Context) error {
	state := c.session.State()
	if !state.Connected() {
		c.setState(StateConnecting)
		var err error
		state, err = c.connector.Connect(ctx)
		if err != nil {
			c.setState(StateFailed)
			c.setState(StateIdle)
			return err
		}
	}
	err := c.refresh(ctx, state)
	c.setState(StateIdle)
	return err
}

// Refresh reloads the balances of the connected account. Reads are not
// network-gated.
func (c *Controller) Refresh(ctx context.Context) error {
	state := c.session.State()
	if !state.Connected() {
		return pkgtypes.ErrNotConnected
	}
	return c.refresh(ctx, state)
}

// Stake submits the stake input.
func (c *Controller) Stake(ctx context.Context) error {
	return c.run(ctx, ActionStake, func(ctx context.Context, gw staking.Gateway) (submission, error) {
		c.mu.Lock()
		amount := c.stakeInput
		c.mu.Unlock()
		_, err := gw.Stake(ctx, amount)
		return submission{
			amount:  amount,
			success: fmt.Sprintf("Successfully staked %s %s", amount, pkgtypes.TokenSymbol),
			failure: StatusStakeFailed,
		}, err
	})
}

// Withdraw submits the withdraw input.
func (c *Controller) Withdraw(ctx context.Context) error {
	return c.run(ctx, ActionWithdraw, func(ctx context.Context, gw staking.Gateway) (submission, error) {
		c.mu.Lock()
		amount := c.withdrawInput
		c.mu.Unlock()
		_, err := gw.Withdraw(ctx, amount)
		return submission{
			amount:  amount,
			success: fmt.Sprintf("Successfully withdrawn %s %s", amount, pkgtypes.TokenSymbol),
			failure: StatusWithdrawFailed,
		}, err
	})
}

// Claim pays out the accrued rewards.
func (c *Controller) Claim(ctx context.Context) error {
	return c.run(ctx, ActionClaim, func(ctx context.Context, gw staking.Gateway) (submission, error) {
		_, err := gw.ClaimRewards(ctx)
		return submission{success: StatusClaimed, failure: StatusClaimFailed}, err
	})
}

// submission describes one gateway call: the raw amount text (empty for
// claim) and the status lines for either outcome.
type submission struct {
	amount  string
	success string
	failure string
}

type submitFunc func(ctx context.Context, gw staking.Gateway) (submission, error)

func (c *Controller) run(ctx context.Context, action string, submit submitFunc) error {
	start := time.Now()
	log := logging.With(logging.Component("controller"), logging.Action(action))

	state := c.session.State()
	freshConnect := false
	if !state.Connected() {
		c.setState(StateConnecting)
		var err error
		state, err = c.connector.Connect(ctx)
		if err != nil {
			log.Warn("action aborted: wallet not connected", logging.Err(err))
			c.fail(action, metrics.OutcomeConnectFailed, start)
			return err
		}
		freshConnect = true
	}

	c.setState(StateNetworkChecking)
	if ok, err := c.guard.EnsureNetwork(ctx, state); !ok {
		log.Warn("action aborted: wrong network", logging.Err(err))
		c.fail(action, metrics.OutcomeNetworkFailed, start)
		if freshConnect {
			_ = c.refresh(ctx, state)
		}
		return err
	}

	c.setState(StateSubmitting)
	sub, err := submit(ctx, state.Gateway)
	audit := logging.AuditEvent{
		Operation: action,
		Actor:     state.Signer.Address().Hex(),
		Target:    pkgtypes.StakingContractAddress.Hex(),
		Amount:    sub.amount,
		Result:    metrics.OutcomeSuccess,
	}
	if err != nil {
		audit.Result = metrics.OutcomeGatewayFailed
		logging.Audit(audit)
		c.SetStatus(sub.failure)
		log.Error("action failed", logging.Err(err))
		c.fail(action, metrics.OutcomeGatewayFailed, start)
		if freshConnect {
			_ = c.refresh(ctx, state)
		}
		return err
	}
	logging.Audit(audit)

	c.setState(StateSucceeded)
	c.SetStatus(sub.success)
	log.Info("action succeeded", "duration", time.Since(start))
	c.recorder.ObserveAction(action, metrics.OutcomeSuccess, time.Since(start))
	_ = c.refresh(ctx, state)
	c.setState(StateIdle)
	return nil
}

func (c *Controller) fail(action, outcome string, start time.Time) {
	c.setState(StateFailed)
	c.recorder.ObserveAction(action, outcome, time.Since(start))
	c.setState(StateIdle)
}

// refresh errors are logged by the syncer and counted here; they never
// reach the status line.
func (c *Controller) refresh(ctx context.Context, state wallet.ConnectionState) error {
	if _, err := c.syncer.Refresh(ctx, state.Gateway, state.Signer.Address()); err != nil {
		c.recorder.SyncFailed()
		return err
	}
	return nil
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	fn := c.onState
	c.mu.Unlock()
	c.recorder.SetState(int(s))
	if fn != nil {
		fn(s)
	}
}
