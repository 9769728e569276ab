package cases

import (
	"errors"
	"fmt"
	"strings"

	"github.com/docufind/backend/internal/models"
)

var (
	// ErrCaseNotFound covers both "no such case" and "not visible to you".
	ErrCaseNotFound = errors.New("case not found")
	// ErrInvalidTransition is returned for no-op and disallowed targets.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConflict is returned when a concurrent transition won the race.
	ErrConflict = errors.New("case was modified concurrently, retry")
)

// Legal transitions per case kind. Anything absent is rejected.
var foundTransitions = map[models.FoundCaseStatus][]models.FoundCaseStatus{
	models.FoundCaseStatusDraft:     {models.FoundCaseStatusSubmitted},
	models.FoundCaseStatusSubmitted: {models.FoundCaseStatusVerified, models.FoundCaseStatusRejected},
	models.FoundCaseStatusVerified:  {models.FoundCaseStatusCompleted},
	models.FoundCaseStatusRejected:  {},
	models.FoundCaseStatusCompleted: {},
}

var lostTransitions = map[models.LostCaseStatus][]models.LostCaseStatus{
	models.LostCaseStatusDraft:     {models.LostCaseStatusSubmitted},
	models.LostCaseStatusSubmitted: {models.LostCaseStatusCompleted},
	models.LostCaseStatusCompleted: {},
}

// AllowedTargets returns the legal target statuses for a case kind and
// current status. Unknown statuses return nil.
func AllowedTargets(kind models.CaseKind, current string) []string {
	var targets []string
	switch kind {
	case models.CaseKindFound:
		for _, t := range foundTransitions[models.FoundCaseStatus(current)] {
			targets = append(targets, string(t))
		}
	case models.CaseKindLost:
		for _, t := range lostTransitions[models.LostCaseStatus(current)] {
			targets = append(targets, string(t))
		}
	}
	return targets
}

// ValidateTransition checks a requested transition against the allow-list.
// The returned error names the allowed targets so clients can correct
// themselves without another round trip.
func ValidateTransition(kind models.CaseKind, current, target string) error {
	if target == current {
		return fmt.Errorf("%w: case is already %s", ErrInvalidTransition, current)
	}

	allowed := AllowedTargets(kind, current)
	for _, t := range allowed {
		if t == target {
			return nil
		}
	}

	if len(allowed) == 0 {
		return fmt.Errorf("%w: %s case in status %s is terminal", ErrInvalidTransition, kind, current)
	}
	return fmt.Errorf("%w: %s case in status %s may only move to %s",
		ErrInvalidTransition, kind, current, strings.Join(allowed, ", "))
}

// statusValues enumerates every status a case kind can hold, used by tests
// and by handler validation of user-supplied targets.
func statusValues(kind models.CaseKind) []string {
	if kind == models.CaseKindFound {
		return []string{
			string(models.FoundCaseStatusDraft),
			string(models.FoundCaseStatusSubmitted),
			string(models.FoundCaseStatusVerified),
			string(models.FoundCaseStatusRejected),
			string(models.FoundCaseStatusCompleted),
		}
	}
	return []string{
		string(models.LostCaseStatusDraft),
		string(models.LostCaseStatusSubmitted),
		string(models.LostCaseStatusCompleted),
	}
}
