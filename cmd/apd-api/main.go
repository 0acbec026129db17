package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/superrexy/APD-Restaurant-Violation-App/common/logger"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/config"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/service"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "apd-api")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	api, err := service.NewAPIService(cfg, log)
	if err != nil {
		log.Fatal("Failed to create API service", zap.Error(err))
	}
	defer api.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := api.Start(ctx); err != nil {
		log.Error("HTTP server error", zap.Error(err))
	}
	log.Info("apd-api stopped")
}
