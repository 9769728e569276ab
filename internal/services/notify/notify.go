package notify

import (
	"log"

	"github.com/docufind/backend/internal/queue"
	"github.com/google/uuid"
)

// Notification kinds.
const (
	KindMatchFound    = "match_found"
	KindCaseVerified  = "case_verified"
	KindCaseRejected  = "case_rejected"
	KindClaimFiled    = "claim_filed"
	KindClaimVerified = "claim_verified"
	KindClaimRejected = "claim_rejected"
	KindHandoverDone  = "handover_completed"
	KindInvoiceIssued = "invoice_issued"
)

// Payload is the body of one send_notification job.
type Payload struct {
	UserID  uuid.UUID              `json:"user_id"`
	Kind    string                 `json:"kind"`
	Subject string                 `json:"subject"`
	Body    string                 `json:"body"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// Enqueuer is the queue surface the notifier needs.
type Enqueuer interface {
	EnqueueJob(queue string, payload interface{}, opts ...queue.EnqueueOption) (string, error)
}

// Notifier fans user notifications out through the job queue so a slow or
// broken delivery channel never blocks a request.
type Notifier struct {
	queue Enqueuer
}

// New creates a notifier.
func New(q Enqueuer) *Notifier {
	return &Notifier{queue: q}
}

// Send enqueues one notification. Failures are logged, not returned:
// notifying is always best-effort relative to the triggering operation.
func (n *Notifier) Send(p Payload) {
	if _, err := n.queue.EnqueueJob(string(queue.JobTypeSendNotification), p); err != nil {
		log.Printf("Error enqueueing %s notification for user %s: %v", p.Kind, p.UserID, err)
	}
}
