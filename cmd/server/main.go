package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/mailkeeper/internal/app"
	"github.com/dmitrijs2005/mailkeeper/internal/config"
	"github.com/dmitrijs2005/mailkeeper/internal/logging"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

	if err := a.Run(ctx); err != nil {
		logger.Error(ctx, err.Error())
		os.Exit(1)
	}

}
