package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coin-trading-bot/internal/logger"
	"coin-trading-bot/internal/scheduler"
	"coin-trading-bot/internal/trace"
)

func main() {
	if err := initializeSystem(); err != nil {
		fmt.Fprintf(os.Stderr, "Initialization failed: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx)
	if err != nil {
		os.Exit(1)
	}

	venue := initializeVenue(ctx, cfg)
	oracle := initializeOracle(ctx, cfg)
	eng := initializeEngine(cfg, venue)
	headlines := initializeHeadlines(ctx, cfg)

	ldgr, err := initializeLedger(ctx, cfg)
	if err != nil {
		os.Exit(1)
	}
	defer ldgr.Close()

	s := scheduler.New(cfg, scheduler.Deps{
		Account:   venue,
		Market:    venue,
		Oracle:    oracle,
		Engine:    eng,
		Ledger:    ldgr,
		Reflector: initializeReflector(ldgr),
		Headlines: headlines,
	})

	logger.Info(ctx, "Bot started", "mode", cfg.Mode, "symbol", cfg.Symbol)
	if err := s.Run(ctx); err != nil {
		logger.ErrorWithErr(ctx, "Scheduler exited with error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := trace.Shutdown(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, "Tracer shutdown failed", "error", err)
	}
	_ = logger.Shutdown(shutdownCtx)
}
