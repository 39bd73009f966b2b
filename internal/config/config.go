// Package config loads the worker's runtime configuration from the
// environment. Unlike the teacher's YAML-file configuration, this
// service is deployed purely via env vars (pydantic-settings' pattern in
// original_source/services/model-generator/core/config.py), validated
// with go-playground/validator instead of hand-rolled presence checks.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the complete set of env-driven settings the worker needs to
// start: bus connection, database, storage backend, and the validation
// policy knobs that override pipeline.DefaultPolicy.
type Config struct {
	Env string `validate:"oneof=local production"`

	NatsURL        string `validate:"required,url"`
	NatsDurable    string `validate:"required"`
	NatsQueueGroup string `validate:"required"`
	NatsStream     string `validate:"required"`
	NatsSubject    string `validate:"required"`
	NatsMaxDeliver int    `validate:"required,min=1"`

	DatabaseURL string `validate:"required"`

	StorageBackend      string `validate:"required,oneof=local s3"`
	LocalStoragePath    string
	S3Endpoint          string
	S3Region            string
	S3AccessKey         string
	S3SecretKey         string
	S3IncomingBucket    string
	S3PublicBucket      string
	S3ProductBucket     string

	RedisURL     string
	DedupTTL     time.Duration

	MaxConcurrentJobs int           `validate:"required,min=1"`
	JobTimeout        time.Duration `validate:"required"`

	MaxFileSizeMB    float64 `validate:"required,gt=0"`
	MaxModelVertices int     `validate:"required,gt=0"`
	MaxModelFaces    int     `validate:"required,gt=0"`
	MaxImageWidth    int     `validate:"required,gt=0"`
	MaxImageHeight   int     `validate:"required,gt=0"`

	HealthPort string `validate:"required"`
	LogLevel   string `validate:"oneof=debug info warn error"`
}

// Load builds a Config from environment variables, applying the same
// local-development defaults the original service's LocalSettings does,
// then validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Env:               getenv("ENV", "local"),
		NatsURL:           getenv("NATS_URL", "nats://localhost:4222"),
		NatsDurable:       getenv("NATS_DURABLE_NAME", "validation-worker-1"),
		NatsQueueGroup:    getenv("NATS_QUEUE_GROUP", "validation_workers"),
		NatsStream:        getenv("NATS_STREAM", "VALIDATE"),
		NatsSubject:       getenv("NATS_SUBJECT", "validate.file"),
		NatsMaxDeliver:    getenvInt("NATS_MAX_DELIVER", 5),
		DatabaseURL:       getenv("DATABASE_URL", "postgres://localhost:5432/assetvalidator"),
		StorageBackend:    getenv("STORAGE_BACKEND", "local"),
		LocalStoragePath:  getenv("LOCAL_STORAGE_PATH", "./local_storage"),
		S3Endpoint:        os.Getenv("S3_ENDPOINT"),
		S3Region:          getenv("S3_REGION", "us-east-1"),
		S3AccessKey:       os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:       os.Getenv("S3_SECRET_KEY"),
		S3IncomingBucket:  getenv("S3_INCOMING_BUCKET", "incoming-files"),
		S3PublicBucket:    getenv("S3_PUBLIC_BUCKET", "public-files"),
		S3ProductBucket:   getenv("S3_PRODUCT_BUCKET", "product-files"),
		RedisURL:          getenv("REDIS_URL", "redis://localhost:6379"),
		DedupTTL:          getenvDuration("DEDUP_TTL", 24*time.Hour),
		MaxConcurrentJobs: getenvInt("MAX_CONCURRENT_JOBS", 8),
		JobTimeout:        getenvDuration("JOB_TIMEOUT", 30*time.Second),
		MaxFileSizeMB:     getenvFloat("MAX_FILE_SIZE_MB", 100.0),
		MaxModelVertices:  getenvInt("MAX_MODEL_VERTICES", 1_000_000),
		MaxModelFaces:     getenvInt("MAX_MODEL_FACES", 500_000),
		MaxImageWidth:     getenvInt("MAX_IMAGE_WIDTH", 4096),
		MaxImageHeight:    getenvInt("MAX_IMAGE_HEIGHT", 4096),
		HealthPort:        getenv("HEALTH_PORT", "8080"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
