package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/homematch/internal/cache"
	"github.com/kailas-cloud/homematch/internal/config"
	dbRedis "github.com/kailas-cloud/homematch/internal/db/redis"
	"github.com/kailas-cloud/homematch/internal/domain/attention"
	"github.com/kailas-cloud/homematch/internal/domain/catalog"
	logpkg "github.com/kailas-cloud/homematch/internal/logger"
	"github.com/kailas-cloud/homematch/internal/metrics"
	contactrepo "github.com/kailas-cloud/homematch/internal/repository/contact"
	listingrepo "github.com/kailas-cloud/homematch/internal/repository/listing"
	chiTransport "github.com/kailas-cloud/homematch/internal/transport/chi"
	healthuc "github.com/kailas-cloud/homematch/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/homematch/internal/usecase/recommend"
	"github.com/kailas-cloud/homematch/internal/usecase/scoring"
	"github.com/kailas-cloud/homematch/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting homematch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register recommendation metrics explicitly (no init())
	metrics.RegisterRecommendationMetrics()

	// Scoring pipeline — composition root
	cat, err := catalog.New(cfg.Catalog.Dimensions, map[catalog.Attribute][]float64{
		catalog.Price: cfg.Catalog.PriceBins,
		catalog.Area:  cfg.Catalog.AreaBins,
		catalog.Rooms: cfg.Catalog.RoomsBins,
	})
	if err != nil {
		logger.Fatal("Failed to build feature catalog", zap.Error(err))
	}
	pooler, err := attention.NewPooler(cfg.Attention.DistanceDecay)
	if err != nil {
		logger.Fatal("Failed to build attention pooler", zap.Error(err))
	}
	blender, err := scoring.NewBlender(scoring.Weights{
		Price:    cfg.Scoring.PriceWeight,
		Area:     cfg.Scoring.AreaWeight,
		Rooms:    cfg.Scoring.RoomsWeight,
		Location: cfg.Scoring.LocationWeight,
	}, cat, pooler)
	if err != nil {
		logger.Fatal("Failed to build score blender", zap.Error(err))
	}

	resultCache, err := cache.New(
		cfg.Cache.Capacity,
		time.Duration(cfg.Cache.TTLSec)*time.Second,
		time.Duration(cfg.Cache.JanitorIntervalSec)*time.Second,
		metrics.RecommendationCacheTotal,
		metrics.RecommendationCacheSize,
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to build recommendation cache", zap.Error(err))
	}
	defer resultCache.Close()

	// Repositories and use case services
	contacts := contactrepo.New(store)
	listings := listingrepo.New(store)

	recommender := recommenduc.New(contacts, listings, blender, resultCache, logger)
	healthSvc := healthuc.New(store)

	server := chiTransport.NewServer(recommender, healthSvc, chiTransport.QueryDefaults{
		MinScore: cfg.API.DefaultMinScore,
		Limit:    cfg.API.DefaultLimit,
		MaxLimit: cfg.API.MaxLimit,
		MaxBulk:  cfg.API.MaxBulkSubjects,
	}, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.RegisterRoutes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
