package handlers

import (
	"errors"
	"net/http"

	"github.com/docufind/backend/internal/models"
	"github.com/docufind/backend/internal/services/match"
	"github.com/docufind/backend/internal/services/matching"
	"github.com/docufind/backend/internal/services/notify"
	"github.com/gin-gonic/gin"
)

// MatchHandler handles match endpoints.
type MatchHandler struct {
	matches  *match.Service
	notifier *notify.Notifier
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(matches *match.Service, notifier *notify.Notifier) *MatchHandler {
	return &MatchHandler{matches: matches, notifier: notifier}
}

// List handles GET /api/matches
func (h *MatchHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	matches, err := h.matches.ListForUser(c.Request.Context(), currentUserID(c), limit, offset)
	if err != nil {
		h.respondMatchError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

// Get handles GET /api/matches/:id
func (h *MatchHandler) Get(c *gin.Context) {
	matchID, ok := uuidParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid match id"})
		return
	}

	m, err := h.matches.Get(c.Request.Context(), matchID, currentUserID(c), currentIsAdmin(c))
	if err != nil {
		h.respondMatchError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"match": m})
}

// Accept handles POST /api/matches/:id/accept
func (h *MatchHandler) Accept(c *gin.Context) {
	matchID, ok := uuidParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid match id"})
		return
	}

	var body struct {
		Comment string `json:"comment"`
	}
	_ = c.ShouldBindJSON(&body)

	if err := h.matches.Accept(c.Request.Context(), matchID, currentUserID(c), body.Comment); err != nil {
		h.respondMatchError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Match accepted, file a claim to proceed"})
}

// Reject handles POST /api/matches/:id/reject
func (h *MatchHandler) Reject(c *gin.Context) {
	matchID, ok := uuidParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid match id"})
		return
	}

	var body struct {
		ReasonCode string `json:"reason_code"`
		Comment    string `json:"comment"`
	}
	_ = c.ShouldBindJSON(&body)
	if body.ReasonCode == "" {
		body.ReasonCode = models.ReasonCodeOwnerRejectedMatch
	}

	err := h.matches.Reject(c.Request.Context(), matchID, currentUserID(c), body.ReasonCode, body.Comment)
	if err != nil {
		h.respondMatchError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Match rejected"})
}

// Complete handles POST /api/admin/matches/:id/complete. Completion cascades
// both cases to completed and credits the finder.
func (h *MatchHandler) Complete(c *gin.Context) {
	matchID, ok := uuidParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid match id"})
		return
	}

	adminID := currentUserID(c)
	if err := h.matches.Complete(c.Request.Context(), matchID, adminID); err != nil {
		h.respondMatchError(c, err)
		return
	}

	if m, err := h.matches.Get(c.Request.Context(), matchID, adminID, true); err == nil {
		h.notifier.Send(notify.Payload{
			UserID:  m.FoundCase.UserID,
			Kind:    notify.KindHandoverDone,
			Subject: "Handover completed",
			Body:    "The document you found was returned to its owner. Thank you!",
			Data:    map[string]interface{}{"match_id": matchID.String()},
		})
		h.notifier.Send(notify.Payload{
			UserID:  m.LostCase.UserID,
			Kind:    notify.KindHandoverDone,
			Subject: "Handover completed",
			Body:    "Your document has been returned to you.",
			Data:    map[string]interface{}{"match_id": matchID.String()},
		})
	}

	c.JSON(http.StatusOK, gin.H{"message": "Match completed"})
}

// AdminVerify handles POST /api/admin/matches/:id/verify, re-running the
// oracle adjudication for dispute review.
func (h *MatchHandler) AdminVerify(c *gin.Context) {
	matchID, ok := uuidParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid match id"})
		return
	}

	analysis, err := h.matches.AdminVerify(c.Request.Context(), matchID, currentUserID(c))
	if err != nil {
		h.respondMatchError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": analysis})
}

func (h *MatchHandler) respondMatchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, match.ErrMatchNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Match not found"})
	case errors.Is(err, match.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, match.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, match.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, matching.ErrOracleFailure):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Match adjudication is temporarily unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
	}
}
