package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/docufind/backend/internal/jobs"
	"github.com/docufind/backend/internal/models"
	"github.com/docufind/backend/internal/queue"
	"github.com/docufind/backend/internal/services/cases"
	"github.com/docufind/backend/internal/services/notify"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CaseHandler handles found/lost report endpoints.
type CaseHandler struct {
	cases    *cases.Service
	workers  *queue.WorkerManager
	notifier *notify.Notifier
}

// NewCaseHandler creates a new case handler
func NewCaseHandler(caseService *cases.Service, workers *queue.WorkerManager, notifier *notify.Notifier) *CaseHandler {
	return &CaseHandler{cases: caseService, workers: workers, notifier: notifier}
}

// CreateFound handles POST /api/cases/found
func (h *CaseHandler) CreateFound(c *gin.Context) {
	var input cases.ReportInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dc, err := h.cases.CreateFoundCase(c.Request.Context(), currentUserID(c), input)
	if err != nil {
		h.respondCaseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"case": dc})
}

// CreateLost handles POST /api/cases/lost
func (h *CaseHandler) CreateLost(c *gin.Context) {
	var input cases.ReportInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dc, err := h.cases.CreateLostCase(c.Request.Context(), currentUserID(c), input)
	if err != nil {
		h.respondCaseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"case": dc})
}

// Get handles GET /api/cases/:id
func (h *CaseHandler) Get(c *gin.Context) {
	dc, ok := h.loadVisibleCase(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"case": dc})
}

// Status handles GET /api/cases/:id/status
func (h *CaseHandler) Status(c *gin.Context) {
	dc, ok := h.loadVisibleCase(c)
	if !ok {
		return
	}

	status, err := dc.CurrentStatus()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Case has no lifecycle record"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// Submit handles POST /api/cases/:id/submit. Submitting a lost report also
// starts its first match sweep.
func (h *CaseHandler) Submit(c *gin.Context) {
	dc, ok := h.loadVisibleCase(c)
	if !ok {
		return
	}
	if dc.UserID != currentUserID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Case not found"})
		return
	}

	var body struct {
		Metadata models.JSON `json:"metadata"`
	}
	_ = c.ShouldBindJSON(&body)

	userID := currentUserID(c)
	if err := h.cases.Submit(c.Request.Context(), dc.ID, userID, body.Metadata); err != nil {
		h.respondCaseError(c, err)
		return
	}

	if kind, _ := dc.Kind(); kind == models.CaseKindLost {
		h.enqueueSweep(dc.ID)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Case submitted"})
}

// Verify handles POST /api/cases/:id/verify (admin). A verified found case
// enters the matching pool, so a sweep is enqueued right away.
func (h *CaseHandler) Verify(c *gin.Context) {
	caseID, ok := uuidParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid case id"})
		return
	}

	var body struct {
		Comment string `json:"comment"`
	}
	_ = c.ShouldBindJSON(&body)

	if err := h.cases.Verify(c.Request.Context(), caseID, currentUserID(c), body.Comment); err != nil {
		h.respondCaseError(c, err)
		return
	}

	h.enqueueSweep(caseID)
	h.notifyReporter(c, caseID, notify.KindCaseVerified, "Your found report was verified",
		"The document you reported is now discoverable by its owner.")

	c.JSON(http.StatusOK, gin.H{"message": "Case verified"})
}

// Reject handles POST /api/cases/:id/reject (admin).
func (h *CaseHandler) Reject(c *gin.Context) {
	caseID, ok := uuidParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid case id"})
		return
	}

	var body struct {
		Comment string `json:"comment"`
	}
	_ = c.ShouldBindJSON(&body)

	if err := h.cases.Reject(c.Request.Context(), caseID, currentUserID(c), body.Comment); err != nil {
		h.respondCaseError(c, err)
		return
	}

	h.notifyReporter(c, caseID, notify.KindCaseRejected, "Your found report was rejected",
		"An administrator reviewed your report and rejected it.")

	c.JSON(http.StatusOK, gin.H{"message": "Case rejected"})
}

// History handles GET /api/cases/:id/history
func (h *CaseHandler) History(c *gin.Context) {
	dc, ok := h.loadVisibleCase(c)
	if !ok {
		return
	}

	limit, offset := pagination(c)
	rows, total, err := h.cases.History(c.Request.Context(), dc.ID, limit, offset)
	if err != nil {
		h.respondCaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": rows, "total": total})
}

// loadVisibleCase loads the case and enforces owner-or-admin visibility.
func (h *CaseHandler) loadVisibleCase(c *gin.Context) (*models.DocumentCase, bool) {
	caseID, ok := uuidParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid case id"})
		return nil, false
	}

	dc, err := h.cases.GetCase(c.Request.Context(), caseID)
	if err != nil {
		h.respondCaseError(c, err)
		return nil, false
	}

	if !currentIsAdmin(c) && dc.UserID != currentUserID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Case not found"})
		return nil, false
	}
	return dc, true
}

func (h *CaseHandler) enqueueSweep(caseID uuid.UUID) {
	_, err := h.workers.EnqueueJob(string(queue.JobTypeMatchSweep), jobs.MatchSweepPayload{CaseID: caseID})
	if err != nil {
		log.Printf("Error enqueueing match sweep for case %s: %v", caseID, err)
	}
}

func (h *CaseHandler) notifyReporter(c *gin.Context, caseID uuid.UUID, kind, subject, body string) {
	dc, err := h.cases.GetCase(c.Request.Context(), caseID)
	if err != nil {
		return
	}
	h.notifier.Send(notify.Payload{
		UserID:  dc.UserID,
		Kind:    kind,
		Subject: subject,
		Body:    body,
		Data:    map[string]interface{}{"case_id": caseID.String()},
	})
}

func (h *CaseHandler) respondCaseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, cases.ErrCaseNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Case not found"})
	case errors.Is(err, cases.ErrInvalidTransition), errors.Is(err, models.ErrCaseKindMissing):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, cases.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
	}
}
