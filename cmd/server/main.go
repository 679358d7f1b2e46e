package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hedge/vaultsync/config"
	"github.com/hedge/vaultsync/internal/hub"
	"github.com/hedge/vaultsync/internal/journal"
	"github.com/hedge/vaultsync/internal/logging"
	"github.com/hedge/vaultsync/internal/patterns"
	"github.com/hedge/vaultsync/internal/server"
	"github.com/hedge/vaultsync/internal/service"
	"github.com/hedge/vaultsync/internal/watcher"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

func main() {
	cfg := config.LoadConfig()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		logger = zap.Must(zap.NewProduction())
		logger.Warn("falling back to info logging", zap.Error(err))
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("vaultsync server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	matcher, err := patterns.NewVaultMatcher(cfg.WatchPatterns, cfg.IgnorePatterns)
	if err != nil {
		return err
	}

	detector := watcher.NewDetector(watcher.Options{
		Matcher:    matcher,
		SplitMoves: cfg.SplitMoves,
		Debounce:   time.Duration(cfg.DebounceMs) * time.Millisecond,
		Logger:     logger.Named("watcher"),
	})
	defer detector.Close()

	var recorder *journal.Recorder
	if cfg.JournalPath != "" {
		recorder, err = journal.NewRecorder(cfg.JournalPath, cfg.JournalWorkers, logger.Named("journal"))
		if err != nil {
			return err
		}
		defer recorder.Close()
	}

	sseHub := hub.NewSSEHub(logger.Named("hub"))
	go sseHub.Run(ctx)

	svc := service.New(service.Options{
		Detector: detector,
		Hub:      sseHub,
		Recorder: recorder,
		Logger:   logger.Named("service"),
	})
	go svc.Run(ctx)

	if cfg.VaultPath != "" {
		if err := svc.StartWatching(cfg.VaultPath); err != nil {
			logger.Warn("could not watch configured vault", zap.String("vault", cfg.VaultPath), zap.Error(err))
		}
	}

	grpcServer := server.NewGRPCServer(svc, logger.Named("grpc"))
	httpServer := server.NewHTTPServer(svc, sseHub, cfg.HTTPPort, logger.Named("http"))

	errCh := make(chan error, 2)
	go func() {
		if err := server.ServeGRPC(grpcServer, cfg.GRPCPort, logger); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- err
		}
	}()
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if stopErr := httpServer.Stop(shutdownCtx); stopErr != nil {
		logger.Warn("HTTP shutdown failed", zap.Error(stopErr))
	}
	grpcServer.Stop()

	if stopErr := svc.StopWatching(); stopErr != nil {
		logger.Warn("failed to release watch", zap.Error(stopErr))
	}
	return err
}
