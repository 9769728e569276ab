package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/docufind/backend/internal/models"
	"github.com/docufind/backend/internal/queue"
	"github.com/docufind/backend/internal/services/matching"
	"github.com/docufind/backend/internal/services/notify"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MatchSweepPayload identifies the case to sweep.
type MatchSweepPayload struct {
	CaseID uuid.UUID `json:"case_id"`
}

// MatchSweepJob runs the matching pipeline for one case in the background.
type MatchSweepJob struct {
	db       *gorm.DB
	matcher  *matching.Service
	notifier *notify.Notifier
}

// NewMatchSweepJob creates a match sweep job handler.
func NewMatchSweepJob(db *gorm.DB, matcher *matching.Service, notifier *notify.Notifier) *MatchSweepJob {
	return &MatchSweepJob{db: db, matcher: matcher, notifier: notifier}
}

// Handle sweeps the case and notifies each lost-case owner of a new match.
// Sweep errors are returned so the queue's retry policy can reschedule the
// job; the oracle being down is the expected failure here.
func (j *MatchSweepJob) Handle(ctx context.Context, job queue.Job) (interface{}, error) {
	var payload MatchSweepPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("invalid match sweep payload: %w", err)
	}

	created, err := j.matcher.RunSweep(ctx, payload.CaseID)
	if err != nil {
		return nil, err
	}

	for i := range created {
		j.notifyOwner(ctx, &created[i])
	}

	return map[string]interface{}{"matches_created": len(created)}, nil
}

func (j *MatchSweepJob) notifyOwner(ctx context.Context, m *models.Match) {
	var lostCase models.DocumentCase
	err := j.db.WithContext(ctx).First(&lostCase, "id = ?", m.LostCaseID).Error
	if err != nil {
		return
	}

	j.notifier.Send(notify.Payload{
		UserID:  lostCase.UserID,
		Kind:    notify.KindMatchFound,
		Subject: "A document matching your lost report was found",
		Body:    "Review the proposed match and file a claim if the document is yours.",
		Data: map[string]interface{}{
			"match_id":     m.ID.String(),
			"lost_case_id": m.LostCaseID.String(),
		},
	})
}
