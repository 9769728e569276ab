package queue

import (
	"math"
	"math/rand"
	"time"
)

// QueueStats represents statistics for a queue
type QueueStats struct {
	Queue      string `json:"queue"`
	Waiting    int    `json:"waiting"`
	Processing int    `json:"processing"`
	Delayed    int    `json:"delayed"`
	Failed     int    `json:"failed"`
	Completed  int    `json:"completed"`
}

// EnqueueOptions represents options for enqueueing a job
type EnqueueOptions struct {
	delay    time.Duration
	maxRetry int
}

// EnqueueOption is a function that modifies EnqueueOptions
type EnqueueOption func(*EnqueueOptions)

// WithDelay adds a delay to a job
func WithDelay(delay time.Duration) EnqueueOption {
	return func(o *EnqueueOptions) {
		o.delay = delay
	}
}

// WithMaxRetry sets the maximum number of retries for a job
func WithMaxRetry(maxRetry int) EnqueueOption {
	return func(o *EnqueueOptions) {
		o.maxRetry = maxRetry
	}
}

// calculateBackoff calculates the backoff duration for a retry with jitter so
// a burst of failures does not retry in lockstep.
func calculateBackoff(retry int) time.Duration {
	base := 5.0
	max := 3600.0

	seconds := math.Min(max, base*math.Pow(2, float64(retry)))

	jitter := seconds * 0.2
	seconds = seconds - jitter + (rand.Float64() * jitter * 2)

	return time.Duration(seconds) * time.Second
}
