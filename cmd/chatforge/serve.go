package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	cfhttp "github.com/Strob0t/ChatForge/internal/adapter/http"
	"github.com/Strob0t/ChatForge/internal/adapter/mcp"
	"github.com/Strob0t/ChatForge/internal/adapter/moonshot"
	cfnats "github.com/Strob0t/ChatForge/internal/adapter/nats"
	"github.com/Strob0t/ChatForge/internal/adapter/natskv"
	cfotel "github.com/Strob0t/ChatForge/internal/adapter/otel"
	"github.com/Strob0t/ChatForge/internal/adapter/postgres"
	"github.com/Strob0t/ChatForge/internal/adapter/ristretto"
	"github.com/Strob0t/ChatForge/internal/adapter/tiered"
	"github.com/Strob0t/ChatForge/internal/adapter/ws"
	"github.com/Strob0t/ChatForge/internal/middleware"
	"github.com/Strob0t/ChatForge/internal/port/cache"
	"github.com/Strob0t/ChatForge/internal/port/messagequeue"
	"github.com/Strob0t/ChatForge/internal/resilience"
	"github.com/Strob0t/ChatForge/internal/service"
	"github.com/Strob0t/ChatForge/internal/tools"
)

func runServe() error {
	cfg, flush, err := setup()
	if err != nil {
		return err
	}
	defer flush()

	slog.Info("config loaded",
		"version", version,
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"model", cfg.LLM.Model,
		"pg_max_conns", cfg.Postgres.MaxConns,
	)

	ctx := context.Background()

	// --- Observability ---

	shutdownOTEL, err := cfotel.Setup(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTEL(sctx); err != nil {
			slog.Error("otel shutdown", "error", err)
		}
	}()

	metrics, err := cfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	// --- Infrastructure ---

	// PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	// NATS (optional)
	var queue messagequeue.Queue
	var natsQueue *cfnats.Queue
	if cfg.NATS.URL != "" {
		natsQueue, err = cfnats.Connect(ctx, cfg.NATS.URL, cfg.NATS.Stream)
		if err != nil {
			slog.Warn("nats unavailable, events and L2 cache disabled", "error", err)
		} else {
			queue = natsQueue
			defer func() {
				if err := natsQueue.Drain(); err != nil {
					slog.Error("nats drain", "error", err)
				}
			}()
		}
	}

	// Cache: ristretto L1, NATS KV L2 when connected
	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer l1.Close()
	var responseCache cache.Cache = l1
	if natsQueue != nil {
		kv, err := natsQueue.KeyValue(ctx, cfg.Cache.L2Bucket, cfg.Cache.L2TTL)
		if err != nil {
			slog.Warn("nats kv unavailable, using L1 cache only", "error", err)
		} else {
			responseCache = tiered.New(l1, natskv.New(kv), cfg.Cache.L2TTL)
		}
	}

	// --- Services ---

	hub := ws.NewHub(cfg.Server.CORSOrigin)
	defer hub.Close()

	llm := moonshot.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Timeout)
	llm.SetHTTPClient(cfotel.HTTPClient(&http.Client{Timeout: cfg.LLM.Timeout}))
	llm.SetBreaker(resilience.NewBreaker("moonshot", cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	registry := tools.NewDefaultRegistry()
	completionSvc := service.NewCompletionService(llm, registry, &cfg.LLM)
	completionSvc.SetMetrics(metrics)
	store := postgres.NewStore(pool)
	conversationSvc := service.NewConversationService(store, completionSvc, hub, queue)

	// --- HTTP ---

	handlers := &cfhttp.Handlers{
		Conversations: conversationSvc,
		Completion:    completionSvc,
		LLM:           llm,
		Limits:        cfhttp.Limits{MaxRequestBodySize: cfg.Server.MaxBodyBytes},
		Version:       version,
		HealthChecks:  healthChecks(pool.Ping, natsQueue, llm),
	}

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(cfhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(cfotel.HTTPMiddleware(cfg.OTEL.ServiceName))

	// Long-lived connections stay outside the request timeout.
	r.Get("/ws", hub.HandleWS)
	if cfg.MCP.Enabled {
		mcpServer := mcp.NewServer(
			mcp.ServerConfig{Name: "chatforge", Version: version, APIKey: cfg.MCP.APIKey},
			mcp.ServerDeps{Registry: registry, Conversations: conversationSvc},
		)
		r.With(limiter.Handler).Handle(cfg.MCP.Path, mcpServer.Handler())
		slog.Info("mcp enabled", "path", cfg.MCP.Path, "auth", cfg.MCP.APIKey != "")
	}

	r.Group(func(r chi.Router) {
		r.Use(cfhttp.SecurityHeaders)
		r.Use(chimw.Timeout(cfg.Server.RequestTimeout))
		r.Use(limiter.Handler)
		if cfg.Idempotency.Enabled {
			r.Use(middleware.Idempotency(responseCache, cfg.Idempotency.TTL))
		}
		cfhttp.MountRoutes(r, handlers)
	})

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-done:
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub.Close()
	return srv.Shutdown(shutdownCtx)
}

// healthChecks builds the /health probes. Postgres is required; NATS and the
// LLM endpoint only report.
func healthChecks(pingDB func(context.Context) error, queue *cfnats.Queue, llm *moonshot.Client) []cfhttp.HealthCheck {
	checks := []cfhttp.HealthCheck{
		{Name: "postgres", Required: true, Check: pingDB},
		{Name: "nats"},
		{Name: "llm", Check: func(ctx context.Context) error {
			_, err := llm.Health(ctx)
			return err
		}},
	}
	if queue != nil {
		checks[1].Check = func(context.Context) error {
			if !queue.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		}
	}
	return checks
}
