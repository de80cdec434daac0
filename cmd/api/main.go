// Package main implements the fitment engine API server: parsing and batch
// parsing of part applications, mapping refresh, and mapping CRUD over the
// reference-data store.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/fitmentiq/fitment-engine/engine/fitment"
	"github.com/fitmentiq/fitment-engine/pkg/events"
	"github.com/fitmentiq/fitment-engine/pkg/fn"
	"github.com/fitmentiq/fitment-engine/pkg/metrics"
	"github.com/fitmentiq/fitment-engine/pkg/mid"
	"github.com/fitmentiq/fitment-engine/pkg/refdata"
	"github.com/fitmentiq/fitment-engine/pkg/resilience"
)

// Config holds all environment-based configuration.
type Config struct {
	Port          string
	RefdataSource string // "neo4j" or "static"
	SnapshotPath  string
	Neo4jURL      string
	Neo4jUser     string
	Neo4jPass     string
	NATSURL       string // empty disables the refresh bus
	CORSOrigin    string
	Workers         int
	MaxFitments     int
	ProviderRate    float64
	ProviderRetries int
}

func loadConfig() Config {
	return Config{
		Port:          envOr("PORT", "8080"),
		RefdataSource: envOr("REFDATA_SOURCE", "neo4j"),
		SnapshotPath:  envOr("REFDATA_SNAPSHOT", "refdata.yaml"),
		Neo4jURL:      envOr("NEO4J_URL", "neo4j://localhost:7687"),
		Neo4jUser:     envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:     envOr("NEO4J_PASS", "password"),
		NATSURL:       envOr("NATS_URL", ""),
		CORSOrigin:    envOr("CORS_ORIGIN", "*"),
		Workers:         envIntOr("BATCH_WORKERS", 4),
		MaxFitments:     envIntOr("MAX_FITMENTS", 0),
		ProviderRate:    float64(envIntOr("PROVIDER_RATE", 100)),
		ProviderRetries: envIntOr("PROVIDER_RETRIES", 3),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Reference data provider ---
	var (
		provider fitment.Provider
		store    refdata.MappingStore
	)
	switch cfg.RefdataSource {
	case "static":
		static, err := refdata.LoadFile(cfg.SnapshotPath)
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		provider, store = static, static
	default:
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
		if err != nil {
			return fmt.Errorf("neo4j driver: %w", err)
		}
		defer driver.Close(ctx)
		p := refdata.NewNeo4jProvider(driver)
		provider, store = p, p
	}

	// Resilience around the provider is composed here, not in the engine.
	guarded := &guardedProvider{
		inner:   provider,
		breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
		limiter: resilience.NewLimiter(resilience.LimiterOpts{Rate: cfg.ProviderRate, Burst: int(cfg.ProviderRate)}),
		retry: fn.RetryOpts{
			MaxAttempts: cfg.ProviderRetries,
			InitialWait: 200 * time.Millisecond,
			MaxWait:     2 * time.Second,
			Jitter:      true,
		},
	}

	// --- Engine ---
	registry := metrics.New()
	eng := fitment.New(guarded,
		fitment.WithLogger(logger),
		fitment.WithWorkers(cfg.Workers),
		fitment.WithMaxFitments(cfg.MaxFitments),
		fitment.WithMetrics(registry),
	)
	if err := eng.RefreshMappings(ctx); err != nil {
		return fmt.Errorf("initial mapping load: %w", err)
	}

	// --- Refresh bus (optional) ---
	var nc *nats.Conn
	if cfg.NATSURL != "" {
		var err error
		nc, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Drain()

		sub, err := events.Subscribe(nc, events.SubjectMappingsRefresh, func(ctx context.Context, sig events.MappingsRefresh) {
			logger.Info("refresh signal received", "source", sig.Source)
			if err := eng.RefreshMappings(ctx); err != nil {
				logger.Error("mapping refresh failed", "err", err)
			}
		})
		if err != nil {
			return fmt.Errorf("nats subscribe: %w", err)
		}
		defer sub.Unsubscribe()
	}

	// --- HTTP server ---
	api := &apiServer{engine: eng, store: store, nats: nc, log: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", api.handleHealth)
	mux.HandleFunc("POST /api/applications/parse", api.handleParse)
	mux.HandleFunc("POST /api/applications/batch", api.handleBatch)
	mux.HandleFunc("POST /api/mappings/refresh", api.handleRefresh)
	mux.HandleFunc("GET /api/mappings", api.handleListMappings)
	mux.HandleFunc("PUT /api/mappings", api.handleUpsertMapping)
	mux.HandleFunc("DELETE /api/mappings/{pattern}", api.handleDeleteMapping)
	mux.Handle("GET /metrics", registry.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("fitment-api"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port, "refdata", cfg.RefdataSource)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
