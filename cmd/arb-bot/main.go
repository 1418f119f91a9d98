package main

import (
	"context"
	"flag"

	"go.uber.org/zap"

	"github.com/ziptalk/proton-arb/internal/bot"
	"github.com/ziptalk/proton-arb/internal/config"
)

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "log opportunities without sending orders")
	flag.Parse()

	logger, err := bot.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}
	if *dryRun {
		cfg.DryRun = true
	}

	logger.Info("starting",
		zap.String("pair", cfg.Pair),
		zap.String("strategy", cfg.Strategy),
		zap.Bool("dry_run", cfg.DryRun),
	)

	bot.New(cfg, logger).Run(context.Background())
}
