package middleware

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAuthorize(t *testing.T) {
	member := Actor{UserID: uuid.New()}
	admin := Actor{UserID: uuid.New(), IsAdmin: true}
	system := Actor{System: true}
	anonymous := Actor{}

	adminOnly := []Action{
		ActionVerifyCase,
		ActionRejectCase,
		ActionSearchMatches,
		ActionVerifyClaim,
		ActionRejectClaim,
		ActionReviewDispute,
		ActionAdminVerify,
	}

	for _, action := range adminOnly {
		assert.False(t, Authorize(member, action), "%s must be denied to members", action)
		assert.True(t, Authorize(admin, action), "%s must be allowed for admins", action)
		assert.True(t, Authorize(system, action), "%s must be allowed for system cascades", action)
	}

	// Unlisted actions only require an authenticated user.
	assert.True(t, Authorize(member, Action("claim.create")))
	assert.True(t, Authorize(admin, Action("claim.create")))
	assert.False(t, Authorize(anonymous, Action("claim.create")))
}
