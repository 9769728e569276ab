package handlers

import (
	"errors"
	"net/http"

	"github.com/docufind/backend/internal/services/claims"
	"github.com/docufind/backend/internal/services/notify"
	"github.com/gin-gonic/gin"
)

// ClaimHandler handles claim endpoints.
type ClaimHandler struct {
	claims   *claims.Service
	notifier *notify.Notifier
}

// NewClaimHandler creates a new claim handler
func NewClaimHandler(claimService *claims.Service, notifier *notify.Notifier) *ClaimHandler {
	return &ClaimHandler{claims: claimService, notifier: notifier}
}

// Create handles POST /api/claims
func (h *ClaimHandler) Create(c *gin.Context) {
	var input claims.CreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := currentUserID(c)
	claim, err := h.claims.Create(c.Request.Context(), userID, input)
	if err != nil {
		h.respondClaimError(c, err)
		return
	}

	h.notifier.Send(notify.Payload{
		UserID:  userID,
		Kind:    notify.KindClaimFiled,
		Subject: "Your claim was filed",
		Body:    "Your claim " + claim.ClaimNumber + " is awaiting verification.",
		Data:    map[string]interface{}{"claim_id": claim.ID.String()},
	})

	c.JSON(http.StatusCreated, gin.H{"claim": claim})
}

// List handles GET /api/claims
func (h *ClaimHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	list, err := h.claims.ListForUser(c.Request.Context(), currentUserID(c), limit, offset)
	if err != nil {
		h.respondClaimError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claims": list})
}

// Get handles GET /api/claims/:id
func (h *ClaimHandler) Get(c *gin.Context) {
	claimID, ok := uuidParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid claim id"})
		return
	}

	claim, err := h.claims.Get(c.Request.Context(), claimID, currentUserID(c), currentIsAdmin(c))
	if err != nil {
		h.respondClaimError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claim": claim})
}

// History handles GET /api/claims/:id/history
func (h *ClaimHandler) History(c *gin.Context) {
	claimID, ok := uuidParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid claim id"})
		return
	}

	// Visibility check rides on Get.
	if _, err := h.claims.Get(c.Request.Context(), claimID, currentUserID(c), currentIsAdmin(c)); err != nil {
		h.respondClaimError(c, err)
		return
	}

	limit, offset := pagination(c)
	rows, total, err := h.claims.History(c.Request.Context(), claimID, limit, offset)
	if err != nil {
		h.respondClaimError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": rows, "total": total})
}

// Cancel handles POST /api/claims/:id/cancel
func (h *ClaimHandler) Cancel(c *gin.Context) {
	claimID, ok := uuidParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid claim id"})
		return
	}

	if err := h.claims.Cancel(c.Request.Context(), claimID, currentUserID(c)); err != nil {
		h.respondClaimError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Claim cancelled"})
}

// Dispute handles POST /api/claims/:id/dispute
func (h *ClaimHandler) Dispute(c *gin.Context) {
	claimID, ok := uuidParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid claim id"})
		return
	}

	var body struct {
		Comment string `json:"comment" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.claims.Dispute(c.Request.Context(), claimID, currentUserID(c), body.Comment); err != nil {
		h.respondClaimError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Dispute recorded"})
}

// Verify handles POST /api/admin/claims/:id/verify.
func (h *ClaimHandler) Verify(c *gin.Context) {
	claimID, ok := uuidParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid claim id"})
		return
	}

	var body struct {
		Comment     string `json:"comment"`
		UnderReview bool   `json:"under_review"`
	}
	_ = c.ShouldBindJSON(&body)

	adminID := currentUserID(c)
	invoice, err := h.claims.Verify(c.Request.Context(), claimID, adminID, body.Comment, body.UnderReview)
	if err != nil {
		h.respondClaimError(c, err)
		return
	}

	if claim, err := h.claims.Get(c.Request.Context(), claimID, adminID, true); err == nil {
		h.notifier.Send(notify.Payload{
			UserID:  claim.UserID,
			Kind:    notify.KindClaimVerified,
			Subject: "Your claim was verified",
			Body:    "Pay invoice " + invoice.InvoiceNumber + " to schedule the handover.",
			Data: map[string]interface{}{
				"claim_id":   claimID.String(),
				"invoice_id": invoice.ID.String(),
			},
		})
		h.notifier.Send(notify.Payload{
			UserID:  claim.UserID,
			Kind:    notify.KindInvoiceIssued,
			Subject: "Invoice " + invoice.InvoiceNumber,
			Body:    "Service fee and finder reward for claim " + claim.ClaimNumber + ".",
			Data: map[string]interface{}{
				"invoice_id":     invoice.ID.String(),
				"invoice_number": invoice.InvoiceNumber,
				"total_amount":   invoice.TotalAmount,
			},
		})
	}

	c.JSON(http.StatusOK, gin.H{"message": "Claim verified", "invoice": invoice})
}

// Reject handles POST /api/admin/claims/:id/reject.
func (h *ClaimHandler) Reject(c *gin.Context) {
	claimID, ok := uuidParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid claim id"})
		return
	}

	var body struct {
		Comment     string `json:"comment" binding:"required"`
		UnderReview bool   `json:"under_review"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	adminID := currentUserID(c)
	if err := h.claims.Reject(c.Request.Context(), claimID, adminID, body.Comment, body.UnderReview); err != nil {
		h.respondClaimError(c, err)
		return
	}

	if claim, err := h.claims.Get(c.Request.Context(), claimID, adminID, true); err == nil {
		h.notifier.Send(notify.Payload{
			UserID:  claim.UserID,
			Kind:    notify.KindClaimRejected,
			Subject: "Your claim was rejected",
			Body:    "You can dispute the decision from your claim page.",
			Data:    map[string]interface{}{"claim_id": claimID.String()},
		})
	}

	c.JSON(http.StatusOK, gin.H{"message": "Claim rejected"})
}

// ReviewDispute handles POST /api/admin/claims/:id/review.
func (h *ClaimHandler) ReviewDispute(c *gin.Context) {
	claimID, ok := uuidParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid claim id"})
		return
	}

	var body struct {
		Comment string `json:"comment"`
	}
	_ = c.ShouldBindJSON(&body)

	if err := h.claims.ReviewDispute(c.Request.Context(), claimID, currentUserID(c), body.Comment); err != nil {
		h.respondClaimError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Dispute under review"})
}

func (h *ClaimHandler) respondClaimError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, claims.ErrClaimNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Claim not found"})
	case errors.Is(err, claims.ErrInvalidMatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid match"})
	case errors.Is(err, claims.ErrMatchNotClaimable),
		errors.Is(err, claims.ErrDeliveryChoice),
		errors.Is(err, claims.ErrAttachmentMissing),
		errors.Is(err, claims.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, claims.ErrActiveClaimExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, claims.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
	}
}
