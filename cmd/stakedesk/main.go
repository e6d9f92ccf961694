package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/moltbunker/stakedesk/cmd/stakedesk/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := commands.NewRootCmd().ExecuteContext(ctx); err != nil {
		commands.ReportError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
