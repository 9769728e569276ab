package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Actor identifies who is performing an operation. A zero UserID with
// System=true marks a system-triggered cascade.
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
	System  bool
}

// Action names a permission-gated operation.
type Action string

const (
	ActionVerifyCase    Action = "case.verify"
	ActionRejectCase    Action = "case.reject"
	ActionSearchMatches Action = "matching.search"
	ActionVerifyClaim   Action = "claim.verify"
	ActionRejectClaim   Action = "claim.reject"
	ActionReviewDispute Action = "claim.review_dispute"
	ActionAdminVerify   Action = "match.admin_verify"
)

// Authorize is the single policy-evaluation point consulted before any
// permission-gated state-machine operation. Ownership checks (claim owner,
// lost-case owner) stay inside the state machines themselves because they
// need the loaded entity; this function only decides role-level access.
func Authorize(actor Actor, action Action) bool {
	if actor.System {
		return true
	}

	switch action {
	case ActionVerifyCase, ActionRejectCase,
		ActionVerifyClaim, ActionRejectClaim,
		ActionReviewDispute, ActionAdminVerify:
		return actor.IsAdmin
	case ActionSearchMatches:
		// Candidate search exposes other users' document data; staff only.
		return actor.IsAdmin
	default:
		return actor.UserID != uuid.Nil
	}
}

// RequirePermission aborts the request when the authenticated user fails the
// policy check for the given action.
func RequirePermission(action Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFromContext(c)
		if !Authorize(actor, action) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// ActorFromContext builds an Actor from the values set by AuthMiddleware.
func ActorFromContext(c *gin.Context) Actor {
	actor := Actor{}
	if id, ok := c.Get("user_id"); ok {
		switch v := id.(type) {
		case uuid.UUID:
			actor.UserID = v
		case string:
			if parsed, err := uuid.Parse(v); err == nil {
				actor.UserID = parsed
			}
		}
	}
	if isAdmin, ok := c.Get("is_admin"); ok {
		if v, ok := isAdmin.(bool); ok {
			actor.IsAdmin = v
		}
	}
	return actor
}
