package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/moltbunker/stakedesk/internal/controller"
	"github.com/moltbunker/stakedesk/internal/logging"
	"github.com/moltbunker/stakedesk/internal/util"
)

const (
	consoleStake    = "stake"
	consoleWithdraw = "withdraw"
	consoleClaim    = "claim"
	consoleRefresh  = "refresh"
	consoleQuit     = "quit"
)

// NewConsoleCmd creates the interactive console.
func NewConsoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Interactive staking console",
		Long: `Start an interactive console with the stake and withdraw amounts, the
three actions, the live status line and the account balances.`,
		Args: cobra.NoArgs,
		RunE: runConsole,
	}
}

func runConsole(cmd *cobra.Command, args []string) error {
	if !isTTY() {
		return fmt.Errorf("console requires a terminal")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a := newApp(ctx, cfg)
	defer a.Close()

	if err := a.unlockUpFront(); err != nil {
		return err
	}

	// A failed connect is shown in the status line; every action retries it.
	lastErr := WithSpinner("Connecting wallet", func() error {
		return a.ctrl.Connect(ctx)
	})

	var stakeInput, withdrawInput string
	for {
		fmt.Println(renderConsole(a.ctrl, lastErr == nil))

		action := consoleStake
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Action").
					Options(
						huh.NewOption("Stake", consoleStake),
						huh.NewOption("Withdraw", consoleWithdraw),
						huh.NewOption("Claim rewards", consoleClaim),
						huh.NewOption("Refresh balances", consoleRefresh),
						huh.NewOption("Quit", consoleQuit),
					).
					Value(&action),
			),
			huh.NewGroup(
				huh.NewInput().
					Title("Amount to stake").
					Placeholder("0.0").
					Value(&stakeInput),
			).WithHideFunc(func() bool {
				return action != consoleStake
			}),
			huh.NewGroup(
				huh.NewInput().
					Title("Amount to withdraw").
					Placeholder("0.0").
					Value(&withdrawInput),
			).WithHideFunc(func() bool {
				return action != consoleWithdraw
			}),
		).WithTheme(huh.ThemeBase())

		if err := form.Run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return err
		}
		if action == consoleQuit {
			return nil
		}

		a.ctrl.SetStakeInput(stakeInput)
		a.ctrl.SetWithdrawInput(withdrawInput)
		lastErr = runConsoleAction(ctx, a.ctrl, action)
		if lastErr != nil {
			logging.Debug("console action failed", logging.Action(action), logging.Err(lastErr))
		}
		if ctx.Err() != nil {
			return shown("console", ctx.Err())
		}
	}
}

// runConsoleAction fires the action on its own goroutine and waits for it
// behind a spinner.
func runConsoleAction(ctx context.Context, ctrl *controller.Controller, action string) error {
	var (
		run   func(context.Context) error
		title string
	)
	switch action {
	case consoleStake:
		run, title = ctrl.Stake, "Staking"
	case consoleWithdraw:
		run, title = ctrl.Withdraw, "Withdrawing"
	case consoleClaim:
		run, title = ctrl.Claim, "Claiming rewards"
	default:
		run, title = ctrl.Refresh, "Refreshing balances"
	}

	var actionErr error
	done := util.SafeGoWithName("console-"+action, func() {
		actionErr = run(ctx)
	})
	return WithSpinner(title, func() error {
		<-done
		return actionErr
	})
}

func renderConsole(ctrl *controller.Controller, ok bool) string {
	status := ctrl.Status()
	if status == "" {
		status = "-"
	}
	fields := append([][2]string{
		{"State", StatusBadge(ctrl.State().String())},
		{"Status", status},
	}, accountFields(ctrl)...)

	return "\n" + Logo() + "\n" + ResultBox(ok, "Staking", fields)
}
