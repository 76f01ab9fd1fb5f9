package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/vaultdrop/internal/client/cli"
	"github.com/dmitrijs2005/vaultdrop/internal/client/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cfg := config.LoadConfig()
	code := cli.Execute(ctx, cfg)

	stop()
	os.Exit(code)
}
