package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/superrexy/APD-Restaurant-Violation-App/common/logger"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/config"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/service"
	"go.uber.org/zap"
)

func main() {
	once := flag.Bool("once", false, "run a single reconciliation pass and exit")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(2)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "apd-monitor")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	monitor, err := service.NewMonitorService(cfg, log)
	if err != nil {
		log.Fatal("Failed to create monitor service", zap.Error(err))
	}
	defer monitor.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		sum, err := monitor.RunOnce(ctx)
		if err != nil {
			log.Error("Reconciliation pass failed", zap.Error(err))
			monitor.Stop()
			os.Exit(1)
		}
		log.Info("Reconciliation pass complete",
			zap.Int("checked", sum.Checked),
			zap.Int("changed", sum.Changed),
			zap.Int("failed", sum.Failed),
			zap.Int("skipped", sum.Skipped),
		)
		return
	}

	if err := monitor.Start(ctx); err != nil {
		log.Error("Monitor service error", zap.Error(err))
	}
	log.Info("Camera health monitor stopped")
}
