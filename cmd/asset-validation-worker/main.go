// Command asset-validation-worker runs the durable background service
// that consumes file-validation jobs from NATS JetStream, validates and
// transforms the uploaded image or 3-D model, and transactionally
// advances its parent listing's state machine. Wiring mirrors
// original_source/services/validation-worker/main.go's startup sequence:
// connect dependencies with retry, build the worker, start it, then
// block until told to shut down.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"database/sql"

	"github.com/jordigilh/assetvalidator/internal/bus"
	"github.com/jordigilh/assetvalidator/internal/config"
	"github.com/jordigilh/assetvalidator/internal/dedup"
	"github.com/jordigilh/assetvalidator/internal/pipeline"
	processimage "github.com/jordigilh/assetvalidator/internal/process/image"
	processmodel "github.com/jordigilh/assetvalidator/internal/process/model"
	"github.com/jordigilh/assetvalidator/internal/repository"
	"github.com/jordigilh/assetvalidator/internal/storage"
	validateimage "github.com/jordigilh/assetvalidator/internal/validate/image"
	validatemodel "github.com/jordigilh/assetvalidator/internal/validate/model"
	"github.com/jordigilh/assetvalidator/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	nc, err := connectWithRetry(ctx, logger, "NATS", func() (*nats.Conn, error) {
		return nats.Connect(cfg.NatsURL, nats.Name("assetvalidator"), nats.MaxReconnects(-1))
	})
	if err != nil {
		logger.Fatal("giving up connecting to NATS", zap.Error(err))
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		logger.Fatal("failed to acquire JetStream context", zap.Error(err))
	}
	eventBus := bus.NewNatsEventBus(nc, js, bus.Config{
		StreamName:  cfg.NatsStream,
		DurableName: cfg.NatsDurable,
		QueueGroup:  cfg.NatsQueueGroup,
		MaxDeliver:  cfg.NatsMaxDeliver,
	}, logger)

	db, err := connectWithRetry(ctx, logger, "Postgres", func() (*sql.DB, error) {
		conn, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := conn.PingContext(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		return conn, nil
	})
	if err != nil {
		logger.Fatal("giving up connecting to Postgres", zap.Error(err))
	}
	defer db.Close()
	repo := repository.NewPostgresListingRepository(db, logger)

	provider, err := buildStorageProvider(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to build storage provider", zap.Error(err))
	}

	var dedupCache *dedup.Cache
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("invalid REDIS_URL", zap.Error(err))
		}
		dedupCache = dedup.NewCache(redis.NewClient(opts), cfg.DedupTTL)
	}

	registry, processors := buildPipelines(logger)
	policy := pipeline.Policy{
		MaxFileSizeMB:      cfg.MaxFileSizeMB,
		MaxModelVertices:   cfg.MaxModelVertices,
		MaxModelFaces:      cfg.MaxModelFaces,
		TimeoutSeconds:     cfg.JobTimeout.Seconds(),
		AllowedFileTypes:   pipeline.DefaultPolicy().AllowedFileTypes,
		MaxImageResolution: pipeline.Resolution{Width: cfg.MaxImageWidth, Height: cfg.MaxImageHeight},
	}

	w := worker.New(worker.Config{
		Bus:         eventBus,
		Repository:  repo,
		Provider:    provider,
		Registry:    registry,
		Processors:  processors,
		Policy:      policy,
		Dedup:       dedupCache,
		Subject:     cfg.NatsSubject,
		IndexTopic:  "index_listing",
		Concurrency: cfg.MaxConcurrentJobs,
		Logger:      logger,
	})

	if err := w.Start(ctx); err != nil {
		logger.Fatal("failed to start validation worker", zap.Error(err))
	}
	logger.Info("validation worker fully initialized and running")

	srv := buildHealthServer(cfg.HealthPort, repo, logger)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server stopped unexpectedly", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received, draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("health server shutdown error", zap.Error(err))
	}

	w.Wait()
	logger.Info("in-flight jobs drained, shutting down")
}

func buildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	var zl zap.AtomicLevel
	if err := zl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg.Level = zl
	return cfg.Build()
}

// connectWithRetry ports the original service's wait_for_connection: keep
// retrying connectFn every 2s until it succeeds or ctx is cancelled.
func connectWithRetry[T any](ctx context.Context, logger *zap.Logger, name string, connectFn func() (T, error)) (T, error) {
	var zero T
	attempt := 0
	for {
		result, err := connectFn()
		if err == nil {
			logger.Info("connected", zap.String("dependency", name))
			return result, nil
		}
		attempt++
		logger.Warn("connection failed, retrying",
			zap.String("dependency", name), zap.Int("attempt", attempt), zap.Error(err))

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func buildStorageProvider(ctx context.Context, cfg *config.Config) (storage.FileProvider, error) {
	if cfg.StorageBackend == "local" {
		return storage.NewLocalFileProvider(cfg.LocalStoragePath)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = &cfg.S3Endpoint
			o.UsePathStyle = true
		}
	})
	return storage.NewS3FileProvider(client, cfg.S3IncomingBucket, cfg.S3PublicBucket, cfg.S3ProductBucket), nil
}

func buildPipelines(logger *zap.Logger) (*pipeline.Registry, map[string]pipeline.Processor) {
	registry := pipeline.NewRegistry()
	if err := registry.Register("image", pipeline.New(logger,
		validateimage.FileTypeValidator{},
		validateimage.ResolutionValidator{},
		validateimage.IntegrityValidator{},
	)); err != nil {
		logger.Fatal("failed to register image pipeline", zap.Error(err))
	}
	if err := registry.Register("model", pipeline.New(logger,
		validatemodel.FileSizeValidator{},
		validatemodel.FileTypeValidator{},
		validatemodel.MeshLoadValidator{},
		validatemodel.ComplexityValidator{},
	)); err != nil {
		logger.Fatal("failed to register model pipeline", zap.Error(err))
	}

	processors := map[string]pipeline.Processor{
		"image": processimage.NewWebPNormalizer(),
		"model": processmodel.NewRenderer(),
	}
	return registry, processors
}

func buildHealthServer(port string, repo repository.ListingRepository, logger *zap.Logger) *http.Server {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := repo.HealthCheck(r.Context()); err != nil {
			logger.Warn("readiness check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
