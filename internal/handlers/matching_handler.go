package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/docufind/backend/internal/services/matching"
	"github.com/gin-gonic/gin"
)

// MatchingHandler exposes the candidate search to administrators.
type MatchingHandler struct {
	matcher *matching.Service
}

// NewMatchingHandler creates a new matching handler
func NewMatchingHandler(matcher *matching.Service) *MatchingHandler {
	return &MatchingHandler{matcher: matcher}
}

// Candidates handles GET /api/admin/matching/candidates/:document_id. The
// search is a pure read; rerunning it never writes anything.
func (h *MatchingHandler) Candidates(c *gin.Context) {
	documentID, ok := uuidParam(c, "document_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document id"})
		return
	}

	limit, offset := pagination(c)
	threshold, _ := strconv.ParseFloat(c.DefaultQuery("threshold", "0"), 64)

	candidates, total, err := h.matcher.FindMatches(c.Request.Context(), documentID, matching.FindOptions{
		Limit:               limit,
		Skip:                offset,
		SimilarityThreshold: threshold,
		IncludeTotal:        true,
	})
	if err != nil {
		h.respondMatchingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"candidates": candidates, "total": total})
}

// Sweep handles POST /api/admin/matching/sweep/:case_id, running the full
// pipeline synchronously for one case. The background job does the same thing
// on submit/verify; this endpoint exists for manual re-runs.
func (h *MatchingHandler) Sweep(c *gin.Context) {
	caseID, ok := uuidParam(c, "case_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid case id"})
		return
	}

	created, err := h.matcher.RunSweep(c.Request.Context(), caseID)
	if err != nil {
		h.respondMatchingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"matches_created": len(created), "matches": created})
}

func (h *MatchingHandler) respondMatchingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, matching.ErrDocumentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
	case errors.Is(err, matching.ErrOracleFailure):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Match adjudication is temporarily unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
	}
}
