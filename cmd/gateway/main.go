package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/dtmai/genai-gateway/config"
	"github.com/dtmai/genai-gateway/internal/auth"
	"github.com/dtmai/genai-gateway/internal/billing"
	"github.com/dtmai/genai-gateway/internal/gateway"
	"github.com/dtmai/genai-gateway/internal/pricing"
	"github.com/dtmai/genai-gateway/internal/provider"
	"github.com/dtmai/genai-gateway/internal/provider/claude"
	"github.com/dtmai/genai-gateway/internal/provider/gemini"
	"github.com/dtmai/genai-gateway/internal/provider/ollama"
	"github.com/dtmai/genai-gateway/internal/provider/openai"
	"github.com/dtmai/genai-gateway/internal/proxy"
	"github.com/dtmai/genai-gateway/internal/seeder"
	"github.com/dtmai/genai-gateway/internal/telemetry"
	"github.com/dtmai/genai-gateway/internal/worker"
	"github.com/dtmai/genai-gateway/pkg/ratelimit"
)

const serviceName = "genai-gateway"

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Init telemetry
	shutdownTracer, err := telemetry.InitTracer(serviceName, cfg)
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}
	defer shutdownTracer()

	shutdownMeter, err := telemetry.InitMeter(serviceName, cfg)
	if err != nil {
		log.Fatalf("failed to init meter: %v", err)
	}
	defer shutdownMeter()

	// 3. Connect PostgreSQL
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to connect postgres: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("failed to ping postgres: %v", err)
	}
	log.Println("PostgreSQL connected")

	// 4. Connect Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to ping redis: %v", err)
	}
	log.Println("Redis connected")

	// 5. Init auth
	authStore := auth.NewPostgresStore(pool)
	authMiddleware := auth.NewMiddleware(authStore, rdb)

	// 6. Init billing and the async usage recorder
	billingStore := billing.NewPostgresStore(pool)
	recorder := worker.NewRecorder(billingStore)

	recorderCtx, stopRecorder := context.WithCancel(ctx)
	go recorder.Start(recorderCtx)

	// 7. Init rate limiter
	limiter := ratelimit.NewLimiter(rdb, cfg.DefaultRateLimitTPM)

	// 8. Build providers and the gateway client
	primary, err := buildProvider(cfg.PrimaryProvider, cfg)
	if err != nil {
		log.Fatalf("failed to build primary provider: %v", err)
	}

	var fallback provider.Provider
	if cfg.FallbackProvider != "" {
		fallback, err = buildProvider(cfg.FallbackProvider, cfg)
		if err != nil {
			log.Fatalf("failed to build fallback provider: %v", err)
		}
	}

	table, err := pricing.Load(cfg.PricingFile)
	if err != nil {
		log.Fatalf("failed to load pricing table: %v", err)
	}

	metrics, err := telemetry.NewMetrics(otel.GetMeterProvider().Meter(serviceName))
	if err != nil {
		log.Fatalf("failed to create metrics: %v", err)
	}

	tracer := otel.GetTracerProvider().Tracer(serviceName)
	gw := gateway.New(primary, fallback, cfg.FallbackModel, table, tracer, metrics)

	// 9. Init handler
	handler := proxy.NewHandler(gw, billingStore, recorder, limiter, tracer, proxy.Defaults{
		Temperature: cfg.DefaultTemperature,
		MaxTokens:   cfg.DefaultMaxTokens,
	})

	// 10. Seed test API key if RUN_SEED=true
	if os.Getenv("RUN_SEED") == "true" {
		seeder.SeedTestAPIKey(ctx, authStore)
	}

	// 11. Init Chi router
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// Public routes
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"genai-gateway"}`))
	})
	if cfg.OTELMetricExporter == "prometheus" {
		r.Handle("/metrics", promhttp.Handler())
	}

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/v1/generate", handler.HandleGenerate)
		r.Get("/v1/usage", handler.HandleUsage)
	})

	// 12. Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("GenAI Gateway starting on port %s (primary=%s fallback=%s)",
			cfg.Port, cfg.PrimaryProvider, cfg.FallbackProvider)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	// Flush buffered usage records before exit.
	stopRecorder()
	recorder.Close()

	log.Println("Server stopped")
}

func buildProvider(name string, cfg *config.Config) (provider.Provider, error) {
	switch name {
	case "openai":
		return openai.New(cfg.OpenAIAPIKey), nil
	case "anthropic":
		return claude.New(cfg.AnthropicAPIKey), nil
	case "gemini":
		return gemini.New(cfg.GeminiAPIKey), nil
	case "ollama":
		return ollama.New(cfg.OllamaBaseURL)
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}
