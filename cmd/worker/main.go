/**
 * Extraction Worker - Main Entry Point
 *
 * Go worker that turns documents into text.
 *
 * Architecture:
 * - Redis-backed job queue (asynq by default, plain list consumer for
 *   producers that push onto a LIST directly)
 * - Image pipeline: quality analysis -> adaptive preprocessing ->
 *   Tesseract OCR with word-level confidence
 * - PDF ladder: embedded-text extraction -> full OCR via ocrmypdf ->
 *   raw byte scan for structurally broken files
 * - PostgreSQL persistence of OCR text and status on the documents table
 */

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docvault/extract-worker/internal/config"
	"github.com/docvault/extract-worker/internal/extractor"
	"github.com/docvault/extract-worker/internal/queue"
	"github.com/docvault/extract-worker/internal/storage"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env not found, using system environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Extraction worker starting...")
	log.Printf("Configuration loaded: Redis=%s, Queue=%s (%s), Workers=%d, OCR slots=%d",
		cfg.RedisURL, cfg.QueueName, cfg.QueueDriver, cfg.WorkerConcurrency, cfg.OcrConcurrency)

	if err := os.MkdirAll(cfg.TempDir, 0o755); err != nil {
		log.Fatalf("Failed to create temp directory %s: %v", cfg.TempDir, err)
	}

	log.Printf("Connecting to PostgreSQL...")
	store, err := storage.NewPostgresClient(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()
	log.Printf("Storage initialized")

	svc := extractor.NewService(cfg.TempDir, cfg.OcrConcurrency)
	if !svc.OcrAvailable() {
		log.Printf("Warning: tesseract not found; image jobs will fail until it is installed")
	}

	handler := queue.NewHandler(svc, store, cfg.ExtractionSettings(), 10*time.Minute)

	stop, err := startConsumer(cfg, handler)
	if err != nil {
		log.Fatalf("Failed to start queue consumer: %v", err)
	}

	log.Printf("===========================================")
	log.Printf("Extraction worker is READY")
	log.Printf("===========================================")
	log.Printf("Queue: %s (%s)", cfg.QueueName, cfg.QueueDriver)
	log.Printf("Workers: %d", cfg.WorkerConcurrency)
	log.Printf("Languages: %s", cfg.OcrLanguage)
	log.Printf("===========================================")
	log.Printf("Waiting for jobs...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Printf("Received signal %v, initiating graceful shutdown...", sig)

	if err := stop(); err != nil {
		log.Printf("Error stopping queue consumer: %v", err)
	} else {
		log.Printf("Queue consumer stopped successfully")
	}

	if err := store.Close(); err != nil {
		log.Printf("Error closing storage: %v", err)
	}

	log.Printf("Shutdown complete")
}

// startConsumer brings up the configured queue driver and returns its stop
// function.
func startConsumer(cfg *config.Config, handler *queue.Handler) (func() error, error) {
	switch cfg.QueueDriver {
	case config.QueueDriverRedisList:
		consumer, err := queue.NewRedisConsumer(&queue.RedisConsumerConfig{
			RedisURL:    cfg.RedisURL,
			QueueName:   cfg.QueueName,
			Concurrency: cfg.WorkerConcurrency,
			Handler:     handler,
		})
		if err != nil {
			return nil, err
		}
		if err := consumer.Start(); err != nil {
			return nil, err
		}
		return consumer.Stop, nil

	default:
		consumer, err := queue.NewConsumer(&queue.ConsumerConfig{
			RedisURL:    cfg.RedisURL,
			QueueName:   cfg.QueueName,
			Concurrency: cfg.WorkerConcurrency,
			Handler:     handler,
		})
		if err != nil {
			return nil, err
		}
		ctx := context.Background()
		if err := consumer.Start(ctx); err != nil {
			return nil, err
		}
		return func() error { return consumer.Stop(context.Background()) }, nil
	}
}

// healthCheck verifies database connectivity; wired to an HTTP probe when
// the deployment needs one.
func healthCheck(db *storage.PostgresClient) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	return nil
}
