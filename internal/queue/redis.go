package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RedisClient dispatches jobs through Redis lists while keeping the job rows
// in the database as the source of truth. Losing Redis loses only dispatch
// latency, never jobs.
type RedisClient struct {
	client   *redis.Client
	db       *gorm.DB
	ctx      context.Context
	handlers map[JobType]JobHandler
}

// Redis key prefixes
const (
	queuePrefix      = "queue:"
	processingPrefix = "processing:"
	delayedPrefix    = "delayed:"
	failedPrefix     = "failed:"
	completedPrefix  = "completed:"
)

// NewRedisClient creates a new Redis-backed dispatcher.
func NewRedisClient(client *redis.Client, db *gorm.DB) *RedisClient {
	r := &RedisClient{
		client:   client,
		db:       db,
		ctx:      context.Background(),
		handlers: make(map[JobType]JobHandler),
	}

	go r.processDelayedJobs()

	return r
}

// RegisterHandler registers a handler for a job type
func (r *RedisClient) RegisterHandler(jobType JobType, handler JobHandler) {
	r.handlers[jobType] = handler
}

// Close closes the Redis client
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// Enqueue adds a job to the queue
func (r *RedisClient) Enqueue(jobType JobType, payload interface{}, opts ...EnqueueOption) (string, error) {
	options := &EnqueueOptions{
		delay:    0,
		maxRetry: 3,
	}
	for _, opt := range opts {
		opt(options)
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job payload: %w", err)
	}

	job := Job{
		ID:         uuid.New(),
		Type:       jobType,
		Payload:    payloadBytes,
		Status:     JobStatusPending,
		RetryCount: 0,
		MaxRetries: options.maxRetry,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := r.db.Create(&job).Error; err != nil {
		return "", err
	}

	if options.delay > 0 {
		return r.enqueueDelayed(job, options.delay)
	}
	return r.enqueueImmediate(job)
}

func (r *RedisClient) enqueueImmediate(job Job) (string, error) {
	data, err := json.Marshal(map[string]interface{}{
		"id":   job.ID.String(),
		"type": string(job.Type),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal job: %w", err)
	}

	queueName := queuePrefix + string(job.Type)
	if err := r.client.LPush(r.ctx, queueName, data).Err(); err != nil {
		return "", fmt.Errorf("failed to add job to queue: %w", err)
	}

	return job.ID.String(), nil
}

func (r *RedisClient) enqueueDelayed(job Job, delay time.Duration) (string, error) {
	processAt := time.Now().Add(delay)
	delayedQueue := delayedPrefix + string(job.Type)

	if err := r.client.ZAdd(r.ctx, delayedQueue, &redis.Z{
		Score:  float64(processAt.Unix()),
		Member: job.ID.String(),
	}).Err(); err != nil {
		return "", fmt.Errorf("failed to add job to delayed queue: %w", err)
	}

	return job.ID.String(), nil
}

// Dequeue gets a job from the queue
func (r *RedisClient) Dequeue(queueName string, timeout time.Duration) (*Job, error) {
	queueKey := queuePrefix + queueName

	result, err := r.client.BRPop(r.ctx, timeout, queueKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // No jobs in queue
		}
		return nil, fmt.Errorf("error popping job from queue %s: %w", queueName, err)
	}
	if len(result) < 2 {
		return nil, fmt.Errorf("invalid result from BRPOP for queue %s", queueName)
	}

	var jobInfo map[string]string
	if err := json.Unmarshal([]byte(result[1]), &jobInfo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job data: %w", err)
	}

	jobID, ok := jobInfo["id"]
	if !ok {
		return nil, fmt.Errorf("job data missing ID")
	}
	jobUUID, err := uuid.Parse(jobID)
	if err != nil {
		return nil, fmt.Errorf("invalid job ID: %w", err)
	}

	var job Job
	if err := r.db.First(&job, "id = ?", jobUUID).Error; err != nil {
		return nil, fmt.Errorf("failed to find job %s: %w", jobID, err)
	}

	if err := r.db.Model(&job).Updates(map[string]interface{}{
		"status":     JobStatusProcessing,
		"updated_at": time.Now(),
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to update job status: %w", err)
	}

	processingKey := processingPrefix + queueName
	if err := r.client.HSet(r.ctx, processingKey, job.ID.String(), time.Now().String()).Err(); err != nil {
		log.Printf("Warning: failed to add job to processing set: %v", err)
	}

	return &job, nil
}

// processDelayedJobs moves due delayed jobs onto their main queues.
func (r *RedisClient) processDelayedJobs() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		for jobType := range r.handlers {
			r.moveDelayedJobs(string(jobType))
		}
	}
}

func (r *RedisClient) moveDelayedJobs(jobType string) {
	delayedQueue := delayedPrefix + jobType
	queueName := queuePrefix + jobType
	now := float64(time.Now().Unix())

	jobs, err := r.client.ZRangeByScore(r.ctx, delayedQueue, &redis.ZRangeBy{
		Min: "0",
		Max: fmt.Sprintf("%f", now),
	}).Result()
	if err != nil {
		log.Printf("Error getting delayed jobs: %v", err)
		return
	}

	for _, jobID := range jobs {
		data, err := json.Marshal(map[string]interface{}{
			"id":   jobID,
			"type": jobType,
		})
		if err != nil {
			log.Printf("Failed to marshal job: %v", err)
			continue
		}

		if err := r.client.LPush(r.ctx, queueName, data).Err(); err != nil {
			log.Printf("Failed to add job to queue: %v", err)
			continue
		}

		if err := r.client.ZRem(r.ctx, delayedQueue, jobID).Err(); err != nil {
			log.Printf("Failed to remove job from delayed queue: %v", err)
		}
	}
}

// Complete marks a job as completed
func (r *RedisClient) Complete(queueName string, jobID uuid.UUID, result interface{}) error {
	var resultJSON []byte
	if result != nil {
		var err error
		resultJSON, err = json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal job result: %w", err)
		}
	}

	if err := r.db.Model(&Job{}).Where("id = ?", jobID).Updates(map[string]interface{}{
		"status":     JobStatusCompleted,
		"result":     resultJSON,
		"updated_at": time.Now(),
	}).Error; err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	processingKey := processingPrefix + queueName
	if err := r.client.HDel(r.ctx, processingKey, jobID.String()).Err(); err != nil {
		return fmt.Errorf("failed to remove job from processing set: %w", err)
	}

	completedKey := completedPrefix + queueName
	if err := r.client.HSet(r.ctx, completedKey, jobID.String(), time.Now().String()).Err(); err != nil {
		return fmt.Errorf("failed to add job to completed set: %w", err)
	}
	if err := r.client.Expire(r.ctx, completedKey, 24*time.Hour).Err(); err != nil {
		log.Printf("Warning: failed to set TTL on completed job %s: %v", jobID, err)
	}

	return nil
}

// Fail marks a job as failed, requeueing it with backoff while retries remain.
func (r *RedisClient) Fail(queueName string, job *Job, cause error) error {
	processingKey := processingPrefix + queueName
	if err := r.client.HDel(r.ctx, processingKey, job.ID.String()).Err(); err != nil {
		return fmt.Errorf("failed to remove job from processing set: %w", err)
	}

	retryCount := job.RetryCount + 1
	errMsg := ""
	if cause != nil {
		errMsg = cause.Error()
	}

	if retryCount < job.MaxRetries {
		backoff := calculateBackoff(retryCount)
		nextRetry := time.Now().Add(backoff)

		if err := r.db.Model(job).Updates(map[string]interface{}{
			"retry_count": retryCount,
			"next_retry":  nextRetry,
			"error":       errMsg,
			"status":      JobStatusPending,
			"updated_at":  time.Now(),
		}).Error; err != nil {
			return fmt.Errorf("failed to update job for retry: %w", err)
		}

		delayedQueue := delayedPrefix + string(job.Type)
		if err := r.client.ZAdd(r.ctx, delayedQueue, &redis.Z{
			Score:  float64(nextRetry.Unix()),
			Member: job.ID.String(),
		}).Err(); err != nil {
			return fmt.Errorf("failed to add job to delayed queue for retry: %w", err)
		}

		return nil
	}

	if err := r.db.Model(job).Updates(map[string]interface{}{
		"status":      JobStatusFailed,
		"retry_count": retryCount,
		"error":       errMsg,
		"updated_at":  time.Now(),
	}).Error; err != nil {
		return fmt.Errorf("failed to update job as failed: %w", err)
	}

	failedKey := failedPrefix + string(job.Type)
	if err := r.client.HSet(r.ctx, failedKey, job.ID.String(), time.Now().String()).Err(); err != nil {
		return fmt.Errorf("failed to add job to failed set: %w", err)
	}

	return nil
}

// GetQueueStats gets statistics for a queue
func (r *RedisClient) GetQueueStats(queueName string) (*QueueStats, error) {
	stats := &QueueStats{Queue: queueName}

	waiting, err := r.client.LLen(r.ctx, queuePrefix+queueName).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get waiting count: %w", err)
	}
	stats.Waiting = int(waiting)

	delayed, err := r.client.ZCard(r.ctx, delayedPrefix+queueName).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get delayed count: %w", err)
	}
	stats.Delayed = int(delayed)

	processing, err := r.client.HLen(r.ctx, processingPrefix+queueName).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get processing count: %w", err)
	}
	stats.Processing = int(processing)

	failed, err := r.client.HLen(r.ctx, failedPrefix+queueName).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get failed count: %w", err)
	}
	stats.Failed = int(failed)

	completed, err := r.client.HLen(r.ctx, completedPrefix+queueName).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get completed count: %w", err)
	}
	stats.Completed = int(completed)

	return stats, nil
}
