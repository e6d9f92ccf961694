package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moltbunker/stakedesk/internal/controller"
)

// NewStakeCmd creates the stake command.
func NewStakeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stake <amount>",
		Short: "Stake tokens",
		Long: `Stake the given amount of tokens in the staking contract.

The amount is a decimal token count, e.g. 10 or 0.5. The wallet is asked to
switch to Holesky first when it is on another chain.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd.Context(), "Staking", func(ctx context.Context, c *controller.Controller) error {
				c.SetStakeInput(args[0])
				return c.Stake(ctx)
			})
		},
	}
}

// NewWithdrawCmd creates the withdraw command.
func NewWithdrawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <amount>",
		Short: "Withdraw staked tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd.Context(), "Withdrawing", func(ctx context.Context, c *controller.Controller) error {
				c.SetWithdrawInput(args[0])
				return c.Withdraw(ctx)
			})
		},
	}
}

// NewClaimCmd creates the claim command.
func NewClaimCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "claim",
		Short: "Claim accrued rewards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd.Context(), "Claiming rewards", func(ctx context.Context, c *controller.Controller) error {
				return c.Claim(ctx)
			})
		},
	}
}

// NewBalanceCmd creates the balance command. It connects and reads without
// checking the wallet's chain.
func NewBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show staked amount and rewards",
		Args:  cobra.NoArgs,
		RunE:  runBalance,
	}
}

func runBalance(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a := newApp(cmd.Context(), cfg)
	defer a.Close()

	ctx := cmd.Context()
	if err := WithSpinner("Loading balances", func() error {
		return a.ctrl.Connect(ctx)
	}); err != nil {
		msg := balanceFailure(a.ctrl)
		if msg == "" {
			return err
		}
		Error(msg)
		return shown("balance", err)
	}

	fmt.Println(StatusBox("Account", accountFields(a.ctrl)))
	return nil
}

// balanceFailure picks the line shown when loading balances fails. Once the
// wallet is connected the status still reads as a connect success, so a read
// failure gets its own line.
func balanceFailure(ctrl *controller.Controller) string {
	if ctrl.Session().State().Connected() {
		return "Failed to load balances"
	}
	return ctrl.Status()
}

// runAction connects, runs fn under a spinner and prints the status line and
// the refreshed balances.
func runAction(ctx context.Context, title string, fn func(context.Context, *controller.Controller) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a := newApp(ctx, cfg)
	defer a.Close()

	if err := a.unlockUpFront(); err != nil {
		return err
	}

	err = WithSpinner(title, func() error {
		return fn(ctx, a.ctrl)
	})
	status := a.ctrl.Status()
	if err != nil {
		if status == "" {
			return err
		}
		Error(status)
		return shown(title, err)
	}

	Success(status)
	fmt.Println(ResultBox(true, "Account", accountFields(a.ctrl)))
	return nil
}
