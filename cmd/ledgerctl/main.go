// Command ledgerctl administers a ledger service deployment.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/oikonomos/ledger-service/internal/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
