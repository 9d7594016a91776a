package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/jsgonzalez9/options/internal/journal"
	"github.com/jsgonzalez9/options/internal/metrics"
	"github.com/jsgonzalez9/options/internal/prices"
	"github.com/jsgonzalez9/options/internal/risk"
	"github.com/jsgonzalez9/options/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// --- Initialize store ---
	var st store.Store
	var rdb *redis.Client
	var cleanup []func()

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "err", err)
			os.Exit(1)
		}
		rdb = redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if rdb != nil {
			st = store.NewCachedStore(st, rdb, 30*time.Second)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Quote source ---
	// JOURNAL_QUOTES seeds the static source: "AAPL=231.50,SPY=645.20".
	var source prices.Source = prices.NewStaticSource(parseQuotes(os.Getenv("JOURNAL_QUOTES")))
	if rdb != nil {
		source = prices.NewCachedSource(source, rdb, 5*time.Minute)
	}

	// --- WebSocket hub ---
	wsHub := journal.NewWSHub()
	go wsHub.Run()

	// --- Journal service ---
	svc := journal.NewService(st, source, wsHub)

	// Model defaults, overridable per request.
	vol := parseFloatEnv("JOURNAL_DEFAULT_VOL", risk.DefaultVolatility)
	rate := parseFloatEnv("JOURNAL_DEFAULT_RATE", risk.DefaultRiskFreeRate)
	svc.SetModelDefaults(vol, rate)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"options-journal"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time position lifecycle events.
		r.Get("/ws", wsHub.HandleWS)

		// Position management.
		r.Post("/positions", svc.CreatePosition)
		r.Get("/positions", svc.ListPositions)
		r.Get("/positions/{positionID}", svc.GetPosition)
		r.Delete("/positions/{positionID}", svc.DeletePosition)
		r.Post("/positions/{positionID}/close", svc.ClosePosition)
		r.Post("/positions/{positionID}/roll", svc.RollPosition)
		r.Post("/positions/{positionID}/expire", svc.ExpirePosition)
		r.Post("/positions/{positionID}/reopen", svc.ReopenPosition)
		r.Post("/positions/{positionID}/legs", svc.AddLegs)
		r.Put("/positions/{positionID}/legs/{legID}", svc.UpdateLeg)
		r.Put("/positions/{positionID}/leg_prices", svc.UpdateLegPrices)
		r.Put("/positions/{positionID}/notes", svc.UpdateNotes)

		// Risk and model queries.
		r.Get("/positions/{positionID}/delta", svc.PositionDelta)
		r.Post("/greeks", svc.ComputeGreeks)

		// Portfolio and cash.
		r.Get("/portfolio/summary", svc.GetSummary)
		r.Post("/portfolio/deposit", svc.Deposit)
		r.Post("/portfolio/withdraw", svc.Withdraw)

		// Performance analytics.
		r.Get("/analytics/report", svc.GetReport)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("options-journal listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down options-journal...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("options-journal stopped")
}

// parseFloatEnv reads a float env var, falling back on empty or
// malformed values.
func parseFloatEnv(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		slog.Warn("ignoring malformed env var", "key", key, "value", raw, "err", err)
		return fallback
	}
	return v
}

// parseQuotes parses "SYM=price,SYM=price" into a quote map. Malformed
// entries are skipped with a warning.
func parseQuotes(raw string) map[string]decimal.Decimal {
	quotes := make(map[string]decimal.Decimal)
	if raw == "" {
		return quotes
	}
	for _, pair := range strings.Split(raw, ",") {
		sym, val, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			slog.Warn("skipping malformed quote", "entry", pair)
			continue
		}
		price, err := decimal.NewFromString(val)
		if err != nil {
			slog.Warn("skipping malformed quote", "entry", pair, "err", err)
			continue
		}
		quotes[sym] = price
	}
	return quotes
}
