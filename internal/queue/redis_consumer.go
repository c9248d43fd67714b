/**
 * Plain Redis list consumer for the extraction worker
 *
 * Compatible with producers that push job IDs onto a Redis LIST and keep
 * the job body in a companion hash. Retries are tracked in the job body;
 * exhausted jobs land in a failed set.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisJob is the envelope producers store in the <queue>:data hash.
type RedisJob struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Payload    Job       `json:"payload"`
	CreatedAt  time.Time `json:"createdAt"`
	Attempts   int       `json:"attempts"`
	MaxRetries int       `json:"maxRetries"`
}

// RedisConsumer handles job consumption from a plain Redis list
type RedisConsumer struct {
	client  *redis.Client
	handler *Handler
	config  *RedisConsumerConfig
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// RedisConsumerConfig holds consumer configuration
type RedisConsumerConfig struct {
	RedisURL    string
	QueueName   string
	Concurrency int
	Handler     *Handler
}

// NewRedisConsumer creates a new Redis-based queue consumer
func NewRedisConsumer(cfg *RedisConsumerConfig) (*RedisConsumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}

	if cfg.QueueName == "" {
		cfg.QueueName = "extract:jobs"
	}

	if cfg.Handler == nil {
		return nil, fmt.Errorf("Handler is required")
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	consumerCtx, cancel := context.WithCancel(context.Background())

	return &RedisConsumer{
		client:  client,
		handler: cfg.Handler,
		config:  cfg,
		ctx:     consumerCtx,
		cancel:  cancel,
	}, nil
}

// Start begins processing jobs from the queue
func (c *RedisConsumer) Start() error {
	log.Printf("Starting Redis queue consumer (concurrency=%d, queue=%s)...",
		c.config.Concurrency, c.config.QueueName)

	for i := 0; i < c.config.Concurrency; i++ {
		c.wg.Add(1)
		go c.worker(i)
	}

	log.Println("Queue consumer started successfully")
	return nil
}

// Stop gracefully stops the consumer
func (c *RedisConsumer) Stop() error {
	log.Println("Stopping queue consumer...")
	c.cancel()
	c.wg.Wait()
	return c.client.Close()
}

// worker is a goroutine that processes jobs
func (c *RedisConsumer) worker(id int) {
	defer c.wg.Done()
	log.Printf("Worker %d started", id)

	for {
		select {
		case <-c.ctx.Done():
			log.Printf("Worker %d stopping", id)
			return
		default:
			if err := c.processNextJob(); err != nil {
				if err != errNoJobs {
					log.Printf("Worker %d error: %v", id, err)
				}
				time.Sleep(1 * time.Second)
			}
		}
	}
}

var errNoJobs = fmt.Errorf("no jobs available")

// processNextJob fetches and processes the next job from the queue
func (c *RedisConsumer) processNextJob() error {
	// Block for up to 5 seconds waiting for a job
	result, err := c.client.BRPop(c.ctx, 5*time.Second, c.config.QueueName).Result()
	if err != nil {
		if err == redis.Nil {
			return errNoJobs
		}
		return fmt.Errorf("failed to fetch job: %w", err)
	}

	if len(result) < 2 {
		return fmt.Errorf("invalid job result")
	}

	jobID := result[1]

	jobData, err := c.client.HGet(c.ctx, c.dataKey(), jobID).Result()
	if err != nil {
		return fmt.Errorf("failed to get job data: %w", err)
	}

	var job RedisJob
	if err := json.Unmarshal([]byte(jobData), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job: %w", err)
	}

	c.markProcessing(job.Payload.DocumentID)

	if err := c.handler.Handle(c.ctx, &job.Payload); err != nil {
		log.Printf("Job %s failed: %v", job.Payload.DocumentID, err)

		job.Attempts++
		if job.Attempts < job.MaxRetries {
			updatedData, _ := json.Marshal(job)
			c.client.HSet(c.ctx, c.dataKey(), job.ID, updatedData)
			c.client.LPush(c.ctx, c.config.QueueName, job.ID)
			log.Printf("Job %s re-queued for retry (attempt %d/%d)",
				job.Payload.DocumentID, job.Attempts, job.MaxRetries)
		} else {
			c.markFailed(job.Payload.DocumentID, err)
		}
		return nil
	}

	c.markCompleted(job.Payload.DocumentID)
	c.client.HDel(c.ctx, c.dataKey(), job.ID)
	return nil
}

func (c *RedisConsumer) dataKey() string {
	return fmt.Sprintf("%s:data", c.config.QueueName)
}

func (c *RedisConsumer) markProcessing(documentID string) {
	c.client.SAdd(c.ctx, fmt.Sprintf("%s:processing", c.config.QueueName), documentID)
	c.publishEvent(documentID, "processing")
}

func (c *RedisConsumer) markCompleted(documentID string) {
	c.client.SRem(c.ctx, fmt.Sprintf("%s:processing", c.config.QueueName), documentID)
	c.client.SAdd(c.ctx, fmt.Sprintf("%s:completed", c.config.QueueName), documentID)
	c.publishEvent(documentID, "completed")
}

func (c *RedisConsumer) markFailed(documentID string, jobErr error) {
	c.client.SRem(c.ctx, fmt.Sprintf("%s:processing", c.config.QueueName), documentID)
	c.client.SAdd(c.ctx, fmt.Sprintf("%s:failed", c.config.QueueName), documentID)
	errorData, _ := json.Marshal(map[string]interface{}{
		"error":     jobErr.Error(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
	c.client.HSet(c.ctx, fmt.Sprintf("%s:errors", c.config.QueueName), documentID, errorData)
	c.publishEvent(documentID, "failed")
}

// publishEvent notifies listeners (status dashboards, websocket bridges)
// about job transitions.
func (c *RedisConsumer) publishEvent(documentID, status string) {
	event := map[string]interface{}{
		"event":      fmt.Sprintf("job:%s", status),
		"documentId": documentID,
		"timestamp":  time.Now().Format(time.RFC3339),
	}
	eventData, _ := json.Marshal(event)
	c.client.Publish(c.ctx, fmt.Sprintf("%s:events", c.config.QueueName), eventData)
}

// GetStats returns queue statistics
func (c *RedisConsumer) GetStats() (map[string]int64, error) {
	ctx := context.Background()

	waiting, _ := c.client.LLen(ctx, c.config.QueueName).Result()
	processing, _ := c.client.SCard(ctx, fmt.Sprintf("%s:processing", c.config.QueueName)).Result()
	completed, _ := c.client.SCard(ctx, fmt.Sprintf("%s:completed", c.config.QueueName)).Result()
	failed, _ := c.client.SCard(ctx, fmt.Sprintf("%s:failed", c.config.QueueName)).Result()

	return map[string]int64{
		"waiting":    waiting,
		"processing": processing,
		"completed":  completed,
		"failed":     failed,
	}, nil
}
