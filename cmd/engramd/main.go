package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	engmcp "github.com/engram-ai/engram/internal/adapter/mcp"
	postgresadapter "github.com/engram-ai/engram/internal/adapter/postgres"
	"github.com/engram-ai/engram/internal/adapter/ristretto"
	"github.com/engram-ai/engram/internal/cleanup"
	"github.com/engram-ai/engram/internal/config"
	"github.com/engram-ai/engram/internal/curation"
	"github.com/engram-ai/engram/internal/engine"
	"github.com/engram-ai/engram/internal/logger"
	"github.com/engram-ai/engram/internal/middleware"

	enghttp "github.com/engram-ai/engram/internal/adapter/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("ENGRAM_CONFIG_FILE"))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()

	log.Info("config loaded",
		"addr", cfg.Server.Addr,
		"vector_dim", cfg.VectorDim,
		"embedding_provider", cfg.Embedding.Provider,
		"curation_provider", cfg.Curation.Provider,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgresadapter.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	if err := postgresadapter.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	log.Info("migrations applied")

	store := postgresadapter.New(pool, cfg.VectorDim)
	if err := store.Rebuild(ctx); err != nil {
		return fmt.Errorf("initial index rebuild: %w", err)
	}
	log.Info("vector index rebuilt from durable rows")

	emb, err := buildEmbedder(cfg.Embedding)
	if err != nil {
		return fmt.Errorf("embedder: %w", err)
	}
	cur, err := buildCurator(cfg.Curation)
	if err != nil {
		return fmt.Errorf("curator: %w", err)
	}

	getCache, err := ristretto.New(cfg.Cache.MaxCostBytes)
	if err != nil {
		return fmt.Errorf("get cache: %w", err)
	}
	defer getCache.Close()

	eng := engine.New(store, emb, cfg.VectorDim, log, getCache)
	pipeline := curation.New(cur, emb, eng, log)

	sched := cleanup.New(store, log)
	if cfg.Cleanup.Enabled {
		if err := sched.Start(ctx, cfg.Cleanup); err != nil {
			return fmt.Errorf("cleanup scheduler: %w", err)
		}
		defer sched.Stop(ctx)
	}

	mcpServer := engmcp.NewServer(
		engmcp.ServerConfig{Name: "engram", Version: "0.1.0"},
		engmcp.ServerDeps{Engine: eng, Pipeline: pipeline, Embedder: emb, Sched: sched, Log: log},
	)

	handlers := enghttp.NewHandlers(eng, pipeline, sched, store, int64(cfg.Sanitize.FieldByteLimit), cfg.Sanitize, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(enghttp.Logger)
	r.Use(enghttp.SecurityHeaders)
	r.Use(enghttp.CORS(cfg.Server.CORSOrigin))

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		PerMinute:     cfg.RateLimit.PerMinute,
		PerHour:       cfg.RateLimit.PerHour,
		BlockDuration: cfg.RateLimit.BlockDuration,
	})
	stopRLCleanup := rateLimiter.StartCleanup(10*time.Minute, time.Hour)
	defer stopRLCleanup()
	r.Use(rateLimiter.Handler)

	enghttp.MountRoutes(r, handlers, mcpServer.Handler(), cfg.Auth)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
