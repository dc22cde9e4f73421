package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-reward-engine/internal/config"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/engine"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/server"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main runs the distribution daemon: the epoch loop plus the status server.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	cfg := config.Load()

	eng, err := engine.NewFromConfig(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to init engine")
	}
	defer eng.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	h := &server.Handlers{
		Scheduler: eng.Scheduler,
		State:     eng.State,
		DevMode:   cfg.DevMode,
		Logger:    logger,
	}
	if eng.Notifier != nil {
		h.Recent = eng.Notifier
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:    cfg.StatusAddr,
			DevMode: cfg.DevMode,
			APIKey:  cfg.APIKey,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create status server")
	}

	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
		_ = srv.Shutdown(context.Background())
	}()

	go func() {
		logger.WithField("addr", cfg.StatusAddr).Info("status server starting")
		if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
			logger.WithError(err).Error("status server failed")
		}
	}()

	logger.WithFields(logrus.Fields{
		"wallet":   eng.Wallet.Address(),
		"mint":     cfg.TokenMint,
		"pool":     cfg.PoolID,
		"interval": cfg.EpochInterval,
	}).Info("distribution loop starting")

	if err := eng.Scheduler.Run(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Fatal("distribution loop failed")
	}

	if err := srv.WaitClosed(context.Background()); err != nil {
		fmt.Println(err)
	}
}
