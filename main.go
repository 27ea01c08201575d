package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"quoteflow/config"
	"quoteflow/internal/dashboard"
	"quoteflow/internal/market"
	"quoteflow/internal/metrics"
	"quoteflow/internal/orchestrator"
	"quoteflow/internal/refrate"
	"quoteflow/internal/store"
	"quoteflow/logger"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithEnv("APP_ENV").WithFields(logger.Fields{
		"service": cfg.Quoteflow.Name,
		"version": cfg.Quoteflow.Version,
	}).Info("starting quoteflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.Enabled {
		metrics.InitCloudWatch(cfg.Metrics.Region, cfg.Metrics.Namespace)
		metrics.StartReporting(ctx, time.Minute)
	}

	st := store.New()

	rates := refrate.New(cfg.RefRate.URL, cfg.RefRate.Interval)
	rates.Start(ctx)

	orch := orchestrator.New(cfg, st, rates)
	orch.Start(ctx)

	if sym := market.Symbol(cfg.Quoteflow.DefaultSymbol); sym != "" {
		if err := orch.SelectSymbol(sym); err != nil {
			log.WithError(err).Error("failed to select default symbol")
			os.Exit(1)
		}
	}

	dash := dashboard.NewServer(cfg.Dashboard, st, orch)
	dashErr := make(chan error, 1)
	if dash != nil {
		go func() {
			dashErr <- dash.Run(ctx)
		}()
	}

	log.Info("all components started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	dashDown := false
	select {
	case sig := <-sigChan:
		log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
	case err := <-dashErr:
		dashDown = true
		if err != nil {
			log.WithError(err).Error("dashboard server failed")
		}
	}

	log.Info("starting graceful shutdown")
	cancel()

	log.Info("stopping pipelines")
	orch.Close()

	log.Info("stopping reference rate provider")
	rates.Stop()

	if dash != nil && !dashDown {
		select {
		case <-dashErr:
		case <-time.After(10 * time.Second):
			log.Warn("dashboard shutdown timeout exceeded")
		}
	}

	log.Info("quoteflow stopped")
}
