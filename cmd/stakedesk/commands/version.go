package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/moltbunker/stakedesk/pkg/types"
)

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the version of stakedesk and build information.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(StatusBox("stakedesk", [][2]string{
				{"Version", GetVersion()},
				{"Commit", GetCommit()},
				{"Build Date", BuildDate},
				{"Go Version", GetGoVersion()},
				{"OS/Arch", runtime.GOOS + "/" + runtime.GOARCH},
				{"Chain ID", fmt.Sprintf("%d", types.RequiredChainID)},
				{"Contract", types.StakingContractAddress.Hex()},
			}))
		},
	}
}
