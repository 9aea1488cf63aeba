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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/staffdex/staffdex/internal/config"
	"github.com/staffdex/staffdex/internal/index"
	logpkg "github.com/staffdex/staffdex/internal/logger"
	"github.com/staffdex/staffdex/internal/metrics"
	"github.com/staffdex/staffdex/internal/parser"
	"github.com/staffdex/staffdex/internal/repository/snapshot"
	chiTransport "github.com/staffdex/staffdex/internal/transport/chi"
	openaiEmb "github.com/staffdex/staffdex/internal/transport/openai"
	answeruc "github.com/staffdex/staffdex/internal/usecase/answer"
	employeeuc "github.com/staffdex/staffdex/internal/usecase/employee"
	healthuc "github.com/staffdex/staffdex/internal/usecase/health"
	retrieveuc "github.com/staffdex/staffdex/internal/usecase/retrieve"
	"github.com/staffdex/staffdex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting staffdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("index_path", cfg.Store.IndexPath),
		zap.String("snapshot_path", cfg.Store.SnapshotPath),
	)

	// Register retrieval metrics explicitly (no init())
	metrics.RegisterRetrievalMetrics()

	// Load the metadata snapshot and the vector index. Both are read-only
	// artifacts produced by cmd/indexer; a failed load is fatal at startup.
	store := snapshot.New()
	if err := store.Load(cfg.Store.SnapshotPath); err != nil {
		logger.Fatal("Failed to load metadata snapshot",
			zap.String("path", cfg.Store.SnapshotPath), zap.Error(err))
	}
	logger.Info("Metadata snapshot loaded", zap.Int("employees", store.Len()))

	idx := index.Open(cfg.Embedding.Dimensions)
	if err := idx.Load(cfg.Store.IndexPath); err != nil {
		logger.Fatal("Failed to load vector index",
			zap.String("path", cfg.Store.IndexPath), zap.Error(err))
	}
	logger.Info("Vector index loaded", zap.Int("vectors", idx.Len()))

	if idx.Len() != store.Len() {
		logger.Fatal("Index and snapshot disagree on row count",
			zap.Int("index_rows", idx.Len()),
			zap.Int("snapshot_rows", store.Len()),
		)
	}

	// Query embedder
	embedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
	})
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Answer model is optional. Without one the /chat endpoint falls back to
	// a deterministic candidate listing.
	var chatModel answeruc.ChatModel
	if cfg.Answer.Model != "" {
		opts := []lcopenai.Option{
			lcopenai.WithToken(cfg.Answer.APIKey),
			lcopenai.WithModel(cfg.Answer.Model),
		}
		if cfg.Answer.BaseURL != "" {
			opts = append(opts, lcopenai.WithBaseURL(cfg.Answer.BaseURL))
		}
		model, err := lcopenai.New(opts...)
		if err != nil {
			logger.Fatal("Failed to create answer model", zap.Error(err))
		}
		chatModel = model
		logger.Info("Answer model created", zap.String("model", cfg.Answer.Model))
	} else {
		logger.Info("No answer model configured, /chat uses fallback answers")
	}

	// Create use case services
	retrieveSvc := retrieveuc.New(embedder, idx, store, parser.New()).
		WithWeights(retrieveuc.Weights{
			Skill:        cfg.Retrieval.Boosts.Skill,
			Availability: cfg.Retrieval.Boosts.Availability,
			Years:        cfg.Retrieval.Boosts.Years,
			Domain:       cfg.Retrieval.Boosts.Domain,
		}).
		WithTimeout(time.Duration(cfg.Retrieval.TimeoutSec) * time.Second)
	answerSvc := answeruc.New(chatModel, logger)
	employeeSvc := employeeuc.New(store)
	healthSvc := healthuc.New(idx, store, embedder)

	// Create chi server
	server := chiTransport.NewServer(
		retrieveSvc, answerSvc, employeeSvc, healthSvc,
		cfg.Retrieval.DefaultTopK, cfg.Retrieval.MaxTopK, logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Register(r)
	r.Handle("/metrics", promhttp.Handler())

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
