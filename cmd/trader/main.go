package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deriv-copy-trader-go/internal/config"
	"deriv-copy-trader-go/internal/deriv"
	"deriv-copy-trader-go/internal/logger"
	"deriv-copy-trader-go/internal/notify"
	"deriv-copy-trader-go/internal/trader"

	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded", zap.String("mode", cfg.Trading.Mode))

	dialer := deriv.NewDialer(cfg.Deriv, log.Named("deriv"))
	notifier := notify.New(cfg.Notify, log)

	tradeEngine, err := trader.NewEngine(log, &cfg, dialer, notifier)
	if err != nil {
		log.Fatal("Failed to initialize trading engine", zap.Error(err))
	}

	apiServer := trader.NewAPIServer(tradeEngine, cfg.Server.Port, log)
	apiServer.Start()

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	tradeEngine.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		log.Error("API server shutdown failed", zap.Error(err))
	}

	log.Info("Bot has been shut down.")
}
