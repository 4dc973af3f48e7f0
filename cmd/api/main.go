// Command api runs the thought network HTTP server.
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

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"thoughtnet/application/ports"
	"thoughtnet/application/services"
	"thoughtnet/infrastructure/config"
	"thoughtnet/infrastructure/enrichment"
	"thoughtnet/infrastructure/persistence/badgerstore"
	"thoughtnet/infrastructure/persistence/dynamodb"
	"thoughtnet/infrastructure/persistence/memory"
	"thoughtnet/interfaces/http/rest"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	repo, err := newRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer repo.Close()

	enricher, err := enrichment.NewClient(enrichment.Config{
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
		APIKey:  cfg.LLMAPIKey,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize enrichment client", zap.Error(err))
	}

	pipeline := services.NewEnrichmentPipeline(repo, enricher, logger)

	router := rest.NewRouter(repo, pipeline, enricher, logger, cfg.CORSAllowedOrigins)

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
			zap.String("backend", cfg.StorageBackend),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	// Let in-flight enrichment runs finish so their writes are not lost.
	pipeline.Wait()

	logger.Info("Server stopped")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zapCfg.Build()
}

func newRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.ThoughtRepository, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		return memory.NewStore(cfg.SnapshotPath, logger), nil
	case config.BackendBadger:
		return badgerstore.NewStore(cfg.BadgerPath, logger)
	case config.BackendDynamoDB:
		return dynamodb.NewStore(ctx, cfg.DynamoDBTable, cfg.AWSRegion, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
