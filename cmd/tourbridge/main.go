package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	tbhttp "github.com/Strob0t/TourBridge/internal/adapter/http"
	tbnats "github.com/Strob0t/TourBridge/internal/adapter/nats"
	"github.com/Strob0t/TourBridge/internal/adapter/natskv"
	tbotel "github.com/Strob0t/TourBridge/internal/adapter/otel"
	"github.com/Strob0t/TourBridge/internal/adapter/postgres"
	"github.com/Strob0t/TourBridge/internal/adapter/ristretto"
	"github.com/Strob0t/TourBridge/internal/adapter/tiered"
	"github.com/Strob0t/TourBridge/internal/adapter/ws"
	"github.com/Strob0t/TourBridge/internal/config"
	"github.com/Strob0t/TourBridge/internal/logger"
	"github.com/Strob0t/TourBridge/internal/middleware"
	"github.com/Strob0t/TourBridge/internal/port/notifier"
	"github.com/Strob0t/TourBridge/internal/resilience"
	"github.com/Strob0t/TourBridge/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	// Money leaves the API as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
		"notifier", cfg.Notifier.Provider,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---

	shutdownOTEL, err := tbotel.Setup(ctx, cfg.OTEL, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTEL(sctx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()
	metrics, err := tbotel.NewMetrics()
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

	// NATS
	queue, err := tbnats.Connect(ctx, cfg.NATS)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	idemKV, err := queue.KeyValue(ctx, cfg.Idempotency.Bucket, cfg.Idempotency.TTL)
	if err != nil {
		return fmt.Errorf("idempotency bucket: %w", err)
	}
	cacheKV, err := queue.KeyValue(ctx, cfg.Cache.L2Bucket, cfg.Cache.L2TTL)
	if err != nil {
		return fmt.Errorf("cache bucket: %w", err)
	}

	// Cache: ristretto in front of NATS KV
	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("l1 cache: %w", err)
	}
	defer l1.Close()
	shared := tiered.New(l1, natskv.New(cacheKV), cfg.Tracking.CacheTTL)

	// Notifications
	provider, err := notifier.New(cfg.Notifier.Provider, cfg.Notifier.Config)
	if err != nil {
		return fmt.Errorf("notifier: %w", err)
	}
	if err := bindNotifierSecrets(ctx, cfg.Notifier, provider); err != nil {
		return err
	}
	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	notify := service.NewNotificationService(provider, breaker, cfg.Notifier, metrics)

	// --- Services ---
	hub := ws.NewHub(originHosts(cfg.Server.CORSOrigin)...)
	store := postgres.NewStore(pool)
	events := service.NewEvents(queue, hub)

	tenants := service.NewTenantService(store, shared, cfg.Auth)
	tracking := service.NewTrackingService(store, shared, cfg.Tracking.CacheTTL, metrics)
	reservations := service.NewReservationService(store, events, tracking, metrics)
	fulfillment, err := service.NewFulfillmentService(store, cfg.Reconcile.Strictness, metrics)
	if err != nil {
		return fmt.Errorf("fulfillment: %w", err)
	}

	importer := service.NewImporter(queue, reservations, fulfillment)
	if err := importer.Start(ctx); err != nil {
		return fmt.Errorf("importer: %w", err)
	}
	defer importer.Stop()

	handlers := &tbhttp.Handlers{
		Tenants:      tenants,
		Activities:   service.NewActivityService(store),
		Capacity:     service.NewCapacityService(store, events, metrics),
		Partnerships: service.NewPartnershipService(store, events),
		Requests:     service.NewRequestService(store, events, notify, cfg.Tracking.BaseURL, metrics),
		Settlement:   service.NewSettlementService(store, events),
		Reservations: reservations,
		Tracking:     tracking,
		Fulfillment:  fulfillment,
		Notify:       notify,
		Ready: func(ctx context.Context) map[string]string {
			out := map[string]string{"postgres": "ok", "nats": "ok"}
			if err := store.Ping(ctx); err != nil {
				out["postgres"] = "unreachable"
			}
			if !queue.IsConnected() {
				out["nats"] = "disconnected"
			}
			return out
		},
	}

	// --- HTTP ---
	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	limiter.StartCleanup(ctx, cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(tbotel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(tbhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(tbhttp.SecurityHeaders)
	r.Use(tbhttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Auth(tenants))
	r.Use(limiter.Handler)
	r.Use(middleware.Idempotency(idemKV))

	// WebSocket endpoint; the hub outlives the request timeout below
	r.Get("/ws", hub.HandleWS)

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(30 * time.Second))
		tbhttp.MountRoutes(r, handlers)
	})

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := queue.Drain(); err != nil {
		slog.Warn("nats drain", "error", err)
	}
	return nil
}

// originHosts turns configured CORS origins into websocket origin patterns.
func originHosts(origins string) []string {
	var hosts []string
	for _, o := range strings.Split(origins, ",") {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if o == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
		}
	}
	return hosts
}
