package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/mailkeeper/internal/app"
	"github.com/dmitrijs2005/mailkeeper/internal/cli"
	"github.com/dmitrijs2005/mailkeeper/internal/config"
	"github.com/dmitrijs2005/mailkeeper/internal/logging"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	open := func(ctx context.Context, cfg *config.Config) (cli.Service, func() error, error) {
		logger := logging.New(os.Stderr, cfg.LogLevel, "text")
		a, err := app.New(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return a.Accounts(), a.Close, nil
	}

	if err := cli.Execute(ctx, cfg, open, os.Stdin, os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

}
