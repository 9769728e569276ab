package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/docufind/backend/internal/queue"
	"github.com/docufind/backend/internal/services/notify"
	"gorm.io/gorm"
)

// NotificationJob delivers queued user notifications.
type NotificationJob struct {
	db *gorm.DB
}

// NewNotificationJob creates a notification job handler.
func NewNotificationJob(db *gorm.DB) *NotificationJob {
	return &NotificationJob{db: db}
}

// Handle delivers one notification. Delivery is currently a structured log
// line; the email/push integration plugs in here without touching enqueuers.
func (j *NotificationJob) Handle(ctx context.Context, job queue.Job) (interface{}, error) {
	var payload notify.Payload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("invalid notification payload: %w", err)
	}

	log.Printf("NOTIFY user=%s kind=%s subject=%q", payload.UserID, payload.Kind, payload.Subject)

	return map[string]interface{}{"delivered": true}, nil
}
