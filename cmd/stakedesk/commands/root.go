package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the stakedesk command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "stakedesk",
		Short:         "Stake tokens on the Holesky staking contract",
		Long:          "Connect a wallet, stake and withdraw tokens, and claim rewards from the staking contract on Holesky.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&ConfigPath, "config", "", "Path to config file (default: ~/.stakedesk/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&LogLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&Mock, "mock", false, "Use the in-memory wallet and contract")

	rootCmd.AddCommand(NewStakeCmd())
	rootCmd.AddCommand(NewWithdrawCmd())
	rootCmd.AddCommand(NewClaimCmd())
	rootCmd.AddCommand(NewBalanceCmd())
	rootCmd.AddCommand(NewConsoleCmd())
	rootCmd.AddCommand(NewWalletCmd())
	rootCmd.AddCommand(NewConfigCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}
