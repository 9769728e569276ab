package cases

import (
	"testing"

	"github.com/docufind/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestValidateTransitionAllowsLegalMoves(t *testing.T) {
	legal := []struct {
		kind    models.CaseKind
		from    string
		to      string
	}{
		{models.CaseKindFound, "draft", "submitted"},
		{models.CaseKindFound, "submitted", "verified"},
		{models.CaseKindFound, "submitted", "rejected"},
		{models.CaseKindFound, "verified", "completed"},
		{models.CaseKindLost, "draft", "submitted"},
		{models.CaseKindLost, "submitted", "completed"},
	}

	for _, tc := range legal {
		assert.NoError(t, ValidateTransition(tc.kind, tc.from, tc.to),
			"%s %s -> %s should be allowed", tc.kind, tc.from, tc.to)
	}
}

func TestValidateTransitionRejectsIllegalMoves(t *testing.T) {
	illegal := []struct {
		kind models.CaseKind
		from string
		to   string
	}{
		{models.CaseKindFound, "draft", "verified"},
		{models.CaseKindFound, "draft", "completed"},
		{models.CaseKindFound, "submitted", "completed"},
		{models.CaseKindFound, "verified", "rejected"},
		{models.CaseKindFound, "rejected", "submitted"},
		{models.CaseKindFound, "completed", "verified"},
		{models.CaseKindLost, "draft", "completed"},
		{models.CaseKindLost, "completed", "submitted"},
		// Lost cases have no verification step at all.
		{models.CaseKindLost, "submitted", "verified"},
	}

	for _, tc := range illegal {
		err := ValidateTransition(tc.kind, tc.from, tc.to)
		assert.ErrorIs(t, err, ErrInvalidTransition,
			"%s %s -> %s should be rejected", tc.kind, tc.from, tc.to)
	}
}

func TestValidateTransitionRejectsSelfTransition(t *testing.T) {
	for _, kind := range []models.CaseKind{models.CaseKindFound, models.CaseKindLost} {
		for _, status := range statusValues(kind) {
			err := ValidateTransition(kind, status, status)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Contains(t, err.Error(), "already")
		}
	}
}

func TestValidateTransitionNamesAllowedTargets(t *testing.T) {
	err := ValidateTransition(models.CaseKindFound, "submitted", "draft")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "verified")
	assert.Contains(t, err.Error(), "rejected")
}

func TestValidateTransitionTerminalStates(t *testing.T) {
	terminal := []struct {
		kind   models.CaseKind
		status string
	}{
		{models.CaseKindFound, "rejected"},
		{models.CaseKindFound, "completed"},
		{models.CaseKindLost, "completed"},
	}

	for _, tc := range terminal {
		err := ValidateTransition(tc.kind, tc.status, "submitted")
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Contains(t, err.Error(), "terminal")
	}
}

// Every non-terminal status must have at least one exit and every exit must be
// a known status, so no case can get stuck or escape the enumeration.
func TestAllowListCompleteness(t *testing.T) {
	for _, kind := range []models.CaseKind{models.CaseKindFound, models.CaseKindLost} {
		known := map[string]bool{}
		for _, s := range statusValues(kind) {
			known[s] = true
		}

		for _, status := range statusValues(kind) {
			for _, target := range AllowedTargets(kind, status) {
				assert.True(t, known[target],
					"%s: %s -> %s leads outside the known statuses", kind, status, target)
				assert.NotEqual(t, status, target, "%s: self-loop on %s", kind, status)
			}
		}
	}
}
