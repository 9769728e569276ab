package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobType defines the type of job
type JobType string

const (
	// JobTypeMatchSweep runs the matching pipeline for one case.
	JobTypeMatchSweep JobType = "match_sweep"
	// JobTypeSendNotification delivers one user notification.
	JobTypeSendNotification JobType = "send_notification"
	// JobTypeStorageSweep removes orphaned temporary uploads.
	JobTypeStorageSweep JobType = "storage_sweep"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending        JobStatus = "pending"
	JobStatusProcessing     JobStatus = "processing"
	JobStatusCompleted      JobStatus = "completed"
	JobStatusFailed         JobStatus = "failed"
	JobStatusRetryScheduled JobStatus = "retry_scheduled"
)

// Job represents a background job
type Job struct {
	ID         uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	Type       JobType         `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Status     JobStatus       `json:"status"`
	RetryCount int             `json:"retry_count" gorm:"default:0"`
	MaxRetries int             `json:"max_retries" gorm:"default:3"`
	NextRetry  *time.Time      `json:"next_retry,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Error      string          `json:"error,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
}

// JobHandler is a function that processes a job
type JobHandler func(ctx context.Context, job Job) (interface{}, error)

// recoverAfter is how long a job may sit pending before the database loop
// assumes its Redis dispatch was lost and runs it directly.
const recoverAfter = 2 * time.Minute

// Queue is the database-backed side of the job system. Every job is a row, so
// jobs survive restarts and Redis outages; this loop recovers stale pending
// jobs that never reached a worker and drives the retry schedule. Fresh jobs
// are left alone since Redis dispatch handles those.
type Queue struct {
	db           *gorm.DB
	handlers     map[JobType]JobHandler
	retryHandler *RetryHandler
	processing   bool
}

// NewQueue creates a new queue
func NewQueue(db *gorm.DB) *Queue {
	q := &Queue{
		db:       db,
		handlers: make(map[JobType]JobHandler),
	}

	q.retryHandler = NewRetryHandler(db, q)
	q.retryHandler.StartRetryProcessor(1 * time.Minute)

	return q
}

// RegisterHandler registers a handler for a job type
func (q *Queue) RegisterHandler(jobType JobType, handler JobHandler) {
	q.handlers[jobType] = handler
}

// EnqueueJob adds a job to the queue
func (q *Queue) EnqueueJob(jobType JobType, payload interface{}) (string, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job payload: %w", err)
	}

	job := Job{
		ID:        uuid.New(),
		Type:      jobType,
		Payload:   payloadBytes,
		Status:    JobStatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := q.db.Create(&job).Error; err != nil {
		return "", err
	}

	return job.ID.String(), nil
}

// GetJob retrieves a job by ID
func (q *Queue) GetJob(jobID string) (*Job, error) {
	var job Job
	err := q.db.Model(&Job{}).Where("id = ?", jobID).First(&job).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("job not found")
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// StartProcessing starts the recovery loop. Only pending jobs untouched for
// recoverAfter are picked up, so the loop never races the Redis workers for a
// freshly enqueued job.
func (q *Queue) StartProcessing() {
	if q.processing {
		return
	}

	q.processing = true
	go func() {
		for q.processing {
			var job Job
			err := q.db.Model(&Job{}).
				Where("status = ? AND updated_at < ?", JobStatusPending, time.Now().Add(-recoverAfter)).
				First(&job).Error
			if err != nil {
				if err != gorm.ErrRecordNotFound {
					log.Printf("Error getting job from queue: %v", err)
				}
				time.Sleep(10 * time.Second)
				continue
			}

			log.Printf("Recovering job %s (%s) that never reached a worker", job.ID, job.Type)
			q.processJob(job)
		}
	}()
}

func (q *Queue) processJob(job Job) {
	handler, ok := q.handlers[job.Type]
	if !ok {
		log.Printf("No handler registered for job type: %s", job.Type)
		q.markFailed(job, fmt.Errorf("no handler registered"))
		return
	}

	if err := q.db.Model(&job).Updates(map[string]interface{}{
		"status":     JobStatusProcessing,
		"updated_at": time.Now(),
	}).Error; err != nil {
		log.Printf("Failed to update job status: %v", err)
		return
	}

	result, err := handler(context.Background(), job)
	if err != nil {
		if q.retryHandler != nil {
			q.retryHandler.HandleFailedJob(job, err)
			return
		}
		q.markFailed(job, err)
		return
	}

	var resultJSON []byte
	if result != nil {
		resultJSON, err = json.Marshal(result)
		if err != nil {
			log.Printf("Failed to marshal job result: %v", err)
		}
	}

	if err := q.db.Model(&job).Updates(map[string]interface{}{
		"status":     JobStatusCompleted,
		"result":     resultJSON,
		"updated_at": time.Now(),
	}).Error; err != nil {
		log.Printf("Failed to update job result: %v", err)
	}
}

func (q *Queue) markFailed(job Job, cause error) {
	if err := q.db.Model(&job).Updates(map[string]interface{}{
		"status":     JobStatusFailed,
		"error":      cause.Error(),
		"updated_at": time.Now(),
	}).Error; err != nil {
		log.Printf("Failed to update job status: %v", err)
	}
	log.Printf("Job %s failed: %v", job.ID, cause)
}

// StopProcessing stops processing jobs
func (q *Queue) StopProcessing() {
	q.processing = false
}

// Close stops all processing
func (q *Queue) Close() error {
	q.StopProcessing()
	return nil
}
