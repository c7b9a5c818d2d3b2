package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BetterCallFirewall/ssti-master/internal/config"
	"github.com/BetterCallFirewall/ssti-master/internal/limits"
	"github.com/BetterCallFirewall/ssti-master/internal/llm"
	"github.com/BetterCallFirewall/ssti-master/internal/logger"
	"github.com/BetterCallFirewall/ssti-master/internal/metrics"
	"github.com/BetterCallFirewall/ssti-master/internal/storage"
	"github.com/BetterCallFirewall/ssti-master/internal/web"
	"github.com/BetterCallFirewall/ssti-master/internal/websocket"
	"github.com/BetterCallFirewall/ssti-master/internal/workbench"
)

func runServe(parent context.Context, envFile string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.Log)
	log.Info("🚀 Starting SSTI Master", "version", Version, "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)

	backend, closeBackend, err := openBackend(cfg.Storage, log)
	if err != nil {
		return err
	}
	defer closeBackend()

	limiter := limits.NewHistoryLimiter(limits.DefaultHistoryLimits())
	if err := limiter.ValidateLimits(); err != nil {
		return fmt.Errorf("invalid history limits: %w", err)
	}

	history := storage.NewHistoryStore(backend, limiter, log)
	if err := history.Load(ctx); err != nil {
		// a broken store must not keep the workbench from starting
		log.Err(err, "⚠️ History unavailable, starting empty")
	}

	completer, err := llm.NewCompleter(ctx, cfg.LLM, log)
	if err != nil {
		return fmt.Errorf("failed to create completion client: %w", err)
	}

	m, err := metrics.New()
	if err != nil {
		return err
	}

	hub := websocket.NewHub(log)
	go hub.Run(ctx)
	if err := m.WatchClients(hub.ClientCount); err != nil {
		return err
	}

	wb := workbench.New(completer, history, log, workbench.Options{
		Publisher: hub,
		Observer:  m,
	})

	webServer, err := web.NewServer(cfg.Web, wb, hub, m.Handler(), log)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- webServer.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("web server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return webServer.Stop(shutdownCtx)
}

func openBackend(cfg config.StorageConfig, log logger.Logger) (storage.Backend, func(), error) {
	switch cfg.Driver {
	case config.StorageMemory:
		log.Warn("History is kept in memory only")
		return storage.NewMemoryBackend(), func() {}, nil
	default:
		db, err := storage.OpenSQLite(storage.SQLiteOptions{
			Name:   cfg.DB,
			Prefix: cfg.Prefix,
			Logger: storage.NewGormLogger(log),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open history database: %w", err)
		}
		return db, func() {
			if err := db.Close(); err != nil {
				log.Err(err, "Failed to close history database")
			}
		}, nil
	}
}
