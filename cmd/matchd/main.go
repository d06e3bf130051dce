package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/adhika16/smart-matching-platform-sub000/internal/config"
	dbRedis "github.com/adhika16/smart-matching-platform-sub000/internal/db/redis"
	"github.com/adhika16/smart-matching-platform-sub000/internal/domain"
	logpkg "github.com/adhika16/smart-matching-platform-sub000/internal/logger"
	"github.com/adhika16/smart-matching-platform-sub000/internal/metrics"
	"github.com/adhika16/smart-matching-platform-sub000/internal/queue"
	embeddingrepo "github.com/adhika16/smart-matching-platform-sub000/internal/repository/embedding"
	jobrepo "github.com/adhika16/smart-matching-platform-sub000/internal/repository/job"
	profilerepo "github.com/adhika16/smart-matching-platform-sub000/internal/repository/profile"
	"github.com/adhika16/smart-matching-platform-sub000/internal/transport/httpapi"
	openaiEmb "github.com/adhika16/smart-matching-platform-sub000/internal/transport/openai"
	"github.com/adhika16/smart-matching-platform-sub000/internal/transport/pinecone"
	healthuc "github.com/adhika16/smart-matching-platform-sub000/internal/usecase/health"
	matchuc "github.com/adhika16/smart-matching-platform-sub000/internal/usecase/match"
	rankuc "github.com/adhika16/smart-matching-platform-sub000/internal/usecase/rank"
	syncuc "github.com/adhika16/smart-matching-platform-sub000/internal/usecase/sync"
	"github.com/adhika16/smart-matching-platform-sub000/internal/usecase/vectorize"
	"github.com/adhika16/smart-matching-platform-sub000/internal/version"
)

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

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

	logger.Info("Starting matching engine",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.Bool("embedding_enabled", cfg.Embedding.Enabled),
		zap.Bool("index_enabled", cfg.Index.Enabled),
		zap.Bool("index_simulate", cfg.Index.Simulate),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Store not ready", zap.Error(err))
	}
	logger.Info("Connected to store")

	metrics.Register()

	// Remote embedder is optional; the vectorizer falls back deterministically.
	var embedder domain.Embedder
	var embedderHealth domain.HealthChecker
	if cfg.Embedding.Enabled {
		e := openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Logger:     logger,
		})
		embedder = e
		embedderHealth = e
	}

	vectorizer := vectorize.New(embedder, vectorize.Config{
		Enabled:      cfg.Embedding.Enabled,
		ModelVersion: cfg.Embedding.Model,
		Dimension:    cfg.Index.Dimension,
	}, logger)

	indexClient := pinecone.NewClient(pinecone.Config{
		Enabled:   cfg.Index.Enabled,
		Simulate:  cfg.Index.Simulate,
		BaseURL:   cfg.Index.BaseURL,
		APIKey:    cfg.Index.APIKey,
		Namespace: cfg.Index.Namespace,
		Logger:    logger,
	})

	dispatcher, err := queue.New(cfg.Sync.Workers, logger)
	if err != nil {
		logger.Fatal("Failed to create worker pool", zap.Error(err))
	}
	defer dispatcher.Release()

	jobs := jobrepo.New(store, logger)
	profiles := profilerepo.New(store, logger)
	cache := embeddingrepo.New(store)

	if err := jobs.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure job index", zap.Error(err))
	}
	if err := profiles.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure profile index", zap.Error(err))
	}

	syncSvc := syncuc.New(jobs, profiles, cache, vectorizer, indexClient,
		dispatcher, cfg.Sync.ChunkSize, logger)
	matchSvc := matchuc.New(jobs, profiles, cache, vectorizer, indexClient, syncSvc,
		matchuc.Config{
			JobSemanticWeight:     cfg.Search.JobSemanticWeight,
			ProfileSemanticWeight: cfg.Search.ProfileSemanticWeight,
			MaxResults:            cfg.Search.MaxResults,
			MaxSemanticJobs:       cfg.Search.MaxSemanticJobs,
			MaxSemanticProfiles:   cfg.Search.MaxSemanticProfiles,
		}, logger)
	rankSvc := rankuc.New(vectorizer, logger)
	healthSvc := healthuc.New(store, cache, indexClient, dispatcher,
		embedderHealth, cfg.Embedding.Enabled, logger)

	server := httpapi.NewServer(httpapi.Deps{
		Matcher:  matchSvc,
		Syncer:   syncSvc,
		Ranker:   rankSvc,
		Health:   healthSvc,
		Jobs:     jobs,
		Profiles: profiles,
		Logger:   logger,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Handler(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
