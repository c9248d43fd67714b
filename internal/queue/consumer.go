/**
 * Asynq queue consumer for the extraction worker
 *
 * Consumes extract-document tasks from Redis via Asynq, which brings
 * retries with exponential backoff and per-queue priorities.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TaskTypeExtractDocument is the asynq task type this worker consumes.
const TaskTypeExtractDocument = "extract-document"

// NewExtractTask builds the task a producer enqueues for a document,
// together with the options the worker expects. The generated task ID makes
// re-enqueues of the same document distinguishable in the asynq UI.
func NewExtractTask(job *Job) (*asynq.Task, []asynq.Option, error) {
	if job.DocumentID == "" {
		return nil, nil, fmt.Errorf("job is missing documentId")
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal job: %w", err)
	}
	opts := []asynq.Option{
		asynq.TaskID(uuid.NewString()),
		asynq.MaxRetry(3),
		asynq.Timeout(15 * time.Minute),
	}
	return asynq.NewTask(TaskTypeExtractDocument, payload), opts, nil
}

// Consumer handles job consumption from the Redis queue via asynq
type Consumer struct {
	client  *asynq.Client
	server  *asynq.Server
	mux     *asynq.ServeMux
	handler *Handler
	config  *ConsumerConfig
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	RedisURL    string
	QueueName   string
	Concurrency int
	Handler     *Handler
}

// NewConsumer creates a new queue consumer
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}

	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}

	if cfg.Handler == nil {
		return nil, fmt.Errorf("Handler is required")
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := asynq.NewClient(redisOpt)

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				cfg.QueueName: 10,
				"default":     1,
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				// Exponential backoff: 5s, 10s, 20s, capped at 60s
				delay := time.Duration(5*(1<<uint(n))) * time.Second
				if delay > 60*time.Second {
					delay = 60 * time.Second
				}
				return delay
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("Task processing error: type=%s, payload=%s, error=%v",
					task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()

	consumer := &Consumer{
		client:  client,
		server:  server,
		mux:     mux,
		handler: cfg.Handler,
		config:  cfg,
	}

	mux.HandleFunc(TaskTypeExtractDocument, consumer.handleExtractDocument)

	return consumer, nil
}

// Enqueue submits an extraction job to this consumer's queue. Mostly used
// by maintenance commands that requeue stuck documents.
func (c *Consumer) Enqueue(ctx context.Context, job *Job) error {
	task, opts, err := NewExtractTask(job)
	if err != nil {
		return err
	}
	opts = append(opts, asynq.Queue(c.config.QueueName))
	if _, err := c.client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("failed to enqueue job for document %s: %w", job.DocumentID, err)
	}
	return nil
}

// Start starts the queue consumer
func (c *Consumer) Start(ctx context.Context) error {
	log.Printf("Starting queue consumer (concurrency=%d, queue=%s)...",
		c.config.Concurrency, c.config.QueueName)

	go func() {
		if err := c.server.Run(c.mux); err != nil {
			log.Printf("Queue consumer error: %v", err)
		}
	}()

	return nil
}

// Stop stops the queue consumer gracefully
func (c *Consumer) Stop(ctx context.Context) error {
	log.Printf("Stopping queue consumer...")

	c.server.Shutdown()

	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close client: %w", err)
	}

	log.Printf("Queue consumer stopped")
	return nil
}

// handleExtractDocument processes one extraction task
func (c *Consumer) handleExtractDocument(ctx context.Context, task *asynq.Task) error {
	var job Job
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job data: %w", err)
	}

	return c.handler.Handle(ctx, &job)
}

// GetStatistics returns consumer statistics
func (c *Consumer) GetStatistics() map[string]interface{} {
	return map[string]interface{}{
		"concurrency": c.config.Concurrency,
		"queue":       c.config.QueueName,
		"redisURL":    c.config.RedisURL,
	}
}
