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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/Marcel-Kempel/Trading-Simulator/internal/broker"
	"github.com/Marcel-Kempel/Trading-Simulator/internal/brokerapi"
	"github.com/Marcel-Kempel/Trading-Simulator/internal/brokeraudit"
	"github.com/Marcel-Kempel/Trading-Simulator/internal/brokermetrics"
	"github.com/Marcel-Kempel/Trading-Simulator/internal/brokerstream"
	"github.com/Marcel-Kempel/Trading-Simulator/internal/marketdata"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// --- Broker core config ---
	cfg := broker.DefaultConfig()
	if seed := os.Getenv("BROKER_SEED"); seed != "" {
		if v, err := strconv.ParseInt(seed, 10, 64); err == nil {
			cfg.Seed = v
		}
	}

	// --- Market data provider ---
	provider, err := buildMarketDataProvider(cfg.BaseSpreadBps)
	if err != nil {
		slog.Error("market data provider setup failed", "err", err)
		os.Exit(1)
	}

	// --- Audit sink ---
	var cleanup []func()
	var audit broker.AuditSink = brokeraudit.NoopSink{}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		audit = brokeraudit.NewPostgresSink(pool)
		slog.Info("audit trail: writing to PostgreSQL")
	} else {
		slog.Warn("DATABASE_URL not set, audit trail disabled (in-memory ledger only)")
	}

	// --- WebSocket hub, optionally relayed through Redis ---
	var relay brokerstream.Relay
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "err", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
		redisRelay := brokerstream.NewRedisRelay(rdb, "broker-events")
		relay = redisRelay
		slog.Info("broker stream: Redis relay enabled")

		// Drain events published by other replicas; they are not
		// re-broadcast to this replica's local WebSocket clients.
		go relayRedisEvents(redisRelay)
	}
	hub := brokerstream.NewHub(relay)
	go hub.Run()

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Broker core ---
	b := broker.New(cfg, provider, hub, audit)

	svc := brokerapi.NewService(b, provider)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(brokermetrics.Middleware)

	r.Get("/actuator/health", brokerapi.Health)
	r.Handle("/metrics", brokermetrics.Handler())
	r.Get("/ws", hub.HandleWS)
	r.Get("/quotes", svc.GetQuote)

	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", svc.CreateAccount)
		r.Get("/{accountID}", svc.GetAccount)
		r.Get("/{accountID}/positions", svc.GetPositions)
		r.Post("/{accountID}/orders", svc.PlaceOrder)
		r.Get("/{accountID}/orders", svc.GetOrders)
		r.Get("/{accountID}/fills", svc.GetFills)
	})

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("broker-server listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down broker-server...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("broker-server stopped")
}

// buildMarketDataProvider selects between the replay dataset and the live
// placeholder based on MARKET_DATA_MODE / ENABLE_LIVE_MARKET_DATA, per the
// AMBIENT STACK configuration section.
func buildMarketDataProvider(defaultSpreadBps decimal.Decimal) (marketdata.Provider, error) {
	mode := os.Getenv("MARKET_DATA_MODE")
	if mode == "live" {
		enabled := os.Getenv("ENABLE_LIVE_MARKET_DATA") == "true"
		if !enabled {
			slog.Warn("MARKET_DATA_MODE=live but ENABLE_LIVE_MARKET_DATA is not \"true\"; falling back to disabled live provider")
		}
		return marketdata.NewLive(enabled), nil
	}

	datasetPath := os.Getenv("REPLAY_DATASET_PATH")
	if datasetPath == "" {
		datasetPath = "testdata/replay_dataset.json"
	}
	data, err := marketdata.LoadDataset(datasetPath)
	if err != nil {
		return nil, fmt.Errorf("loading replay dataset: %w", err)
	}
	slog.Info("market data: replay provider loaded", "path", datasetPath, "symbols", len(data))
	return marketdata.NewReplay(data, defaultSpreadBps, nil), nil
}

// relayRedisEvents subscribes to the relay channel and discards every
// payload it receives. Events from other replicas therefore do not reach
// this replica's WebSocket clients; only events from this replica's own
// broker go through the local hub.
func relayRedisEvents(relay *brokerstream.RedisRelay) {
	ctx := context.Background()
	for range relay.Subscribe(ctx) {
		// Cross-replica fan-out point; payloads are dropped here.
	}
}
