package jobs

import (
	"log"
	"time"

	"github.com/docufind/backend/internal/queue"
	"github.com/docufind/backend/internal/services/matching"
	"github.com/docufind/backend/internal/services/notify"
	"github.com/go-co-op/gocron"
	"gorm.io/gorm"
)

// RegisterJobs wires every job handler into the worker manager and into the
// database-backed recovery queue, which re-runs jobs whose Redis dispatch was
// lost and drives the retry schedule.
func RegisterJobs(
	wm *queue.WorkerManager,
	recovery *queue.Queue,
	db *gorm.DB,
	matcher *matching.Service,
	notifier *notify.Notifier,
	sweeper TempSweeper,
) {
	matchSweep := NewMatchSweepJob(db, matcher, notifier)
	wm.RegisterWorker(string(queue.JobTypeMatchSweep), matchSweep.Handle, 2)
	recovery.RegisterHandler(queue.JobTypeMatchSweep, matchSweep.Handle)

	notification := NewNotificationJob(db)
	wm.RegisterWorker(string(queue.JobTypeSendNotification), notification.Handle, 4)
	recovery.RegisterHandler(queue.JobTypeSendNotification, notification.Handle)

	storageSweep := NewStorageSweepJob(sweeper)
	wm.RegisterWorker(string(queue.JobTypeStorageSweep), storageSweep.Handle, 1)
	recovery.RegisterHandler(queue.JobTypeStorageSweep, storageSweep.Handle)
}

// StartScheduler starts the recurring jobs: a nightly storage sweep. The
// scheduler only enqueues; workers do the actual work, so a slow sweep never
// blocks the schedule.
func StartScheduler(wm *queue.WorkerManager) *gocron.Scheduler {
	scheduler := gocron.NewScheduler(time.UTC)

	if _, err := scheduler.Every(1).Day().At("03:00").Do(func() {
		if _, err := wm.EnqueueJob(string(queue.JobTypeStorageSweep), struct{}{}); err != nil {
			log.Printf("Error enqueueing storage sweep: %v", err)
		}
	}); err != nil {
		log.Printf("Error scheduling storage sweep: %v", err)
	}

	scheduler.StartAsync()
	return scheduler
}
