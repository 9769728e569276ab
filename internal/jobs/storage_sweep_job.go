package jobs

import (
	"context"
	"time"

	"github.com/docufind/backend/internal/queue"
)

// TempSweeper removes stale temporary uploads.
type TempSweeper interface {
	SweepTemp(ctx context.Context, olderThan time.Duration) (int, error)
}

// staleUploadAge is how long an orphaned upload survives in the temp bucket.
const staleUploadAge = 24 * time.Hour

// StorageSweepJob cleans up uploads that never became claim attachments.
type StorageSweepJob struct {
	sweeper TempSweeper
}

// NewStorageSweepJob creates a storage sweep job handler.
func NewStorageSweepJob(sweeper TempSweeper) *StorageSweepJob {
	return &StorageSweepJob{sweeper: sweeper}
}

// Handle removes stale temporary objects.
func (j *StorageSweepJob) Handle(ctx context.Context, job queue.Job) (interface{}, error) {
	removed, err := j.sweeper.SweepTemp(ctx, staleUploadAge)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"removed": removed}, nil
}
