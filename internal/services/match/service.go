package match

import (
	"context"
	"errors"
	"fmt"

	"github.com/docufind/backend/internal/models"
	"github.com/docufind/backend/internal/services/cases"
	"github.com/docufind/backend/internal/services/matching"
	"github.com/docufind/backend/internal/services/transitions"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrMatchNotFound covers both absence and lack of visibility.
	ErrMatchNotFound = errors.New("match not found")
	// ErrInvalidTransition is returned for disallowed match transitions.
	ErrInvalidTransition = errors.New("invalid match transition")
	// ErrNotOwner is returned when someone other than the lost-case owner
	// acts on an owner-only operation.
	ErrNotOwner = errors.New("only the lost-case owner may perform this action")
	// ErrConflict is returned when a concurrent transition won the race.
	ErrConflict = errors.New("match was modified concurrently, retry")
)

// LoyaltyPointsPerHandover is credited to the finder when a match completes.
const LoyaltyPointsPerHandover = 100

// Service owns the match state machine.
type Service struct {
	db       *gorm.DB
	cases    *cases.Service
	verifier *matching.Service
}

// NewService creates a match service.
func NewService(db *gorm.DB, caseService *cases.Service, verifier *matching.Service) *Service {
	return &Service{db: db, cases: caseService, verifier: verifier}
}

// Get loads a match visible to the actor: the lost-case owner, the finder or
// an admin. Anyone else gets ErrMatchNotFound, indistinguishable from a
// missing row.
func (s *Service) Get(ctx context.Context, matchID uuid.UUID, actorID uuid.UUID, isAdmin bool) (*models.Match, error) {
	match, err := s.load(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if !isAdmin && match.LostCase.UserID != actorID && match.FoundCase.UserID != actorID {
		return nil, ErrMatchNotFound
	}
	return match, nil
}

// ListForUser returns the matches where the user owns either side.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Match, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var matches []models.Match
	err := s.db.WithContext(ctx).
		Joins("JOIN document_cases AS lost ON lost.id = matches.lost_case_id").
		Joins("JOIN document_cases AS found ON found.id = matches.found_case_id").
		Where("matches.voided = ?", false).
		Where("lost.user_id = ? OR found.user_id = ?", userID, userID).
		Preload("FoundCase.Document").
		Preload("LostCase.Document").
		Order("matches.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&matches).Error
	if err != nil {
		return nil, fmt.Errorf("error listing matches: %w", err)
	}
	return matches, nil
}

// Reject lets the lost-case owner dismiss a proposed match. Only permitted
// from pending, gated by a registered reason, and atomic with its ledger row.
func (s *Service) Reject(ctx context.Context, matchID uuid.UUID, actorID uuid.UUID, reasonCode, comment string) error {
	match, err := s.load(ctx, matchID)
	if err != nil {
		return err
	}
	if match.LostCase.UserID != actorID {
		return ErrNotOwner
	}
	if match.Status != models.MatchStatusPending {
		return fmt.Errorf("%w: match is %s, only pending matches can be rejected", ErrInvalidTransition, match.Status)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return TransitionTx(tx, match, models.MatchStatusRejected, reasonCode, false, &actorID, comment)
	})
}

// Accept records the lost-case owner's acknowledgement of a pending match
// without changing its status; filing a claim is what moves the machine.
func (s *Service) Accept(ctx context.Context, matchID uuid.UUID, actorID uuid.UUID, comment string) error {
	match, err := s.load(ctx, matchID)
	if err != nil {
		return err
	}
	if match.LostCase.UserID != actorID {
		return ErrNotOwner
	}
	if match.Status != models.MatchStatusPending {
		return fmt.Errorf("%w: match is %s", ErrInvalidTransition, match.Status)
	}

	return transitions.Append(s.db.WithContext(ctx), transitions.Record{
		EntityType: models.EntityTypeMatch,
		EntityID:   match.ID,
		FromStatus: string(match.Status),
		ToStatus:   string(match.Status),
		ChangedByID: &actorID,
		Comment:    "owner accepted the proposed match: " + comment,
	})
}

// Complete finalizes a claimed match: both cases move to completed through
// the case machine's auto reasons and the finder is credited loyalty points,
// all in one transaction.
func (s *Service) Complete(ctx context.Context, matchID uuid.UUID, actorID uuid.UUID) error {
	match, err := s.load(ctx, matchID)
	if err != nil {
		return err
	}
	if match.Status != models.MatchStatusClaimed {
		return fmt.Errorf("%w: match is %s, only claimed matches can be completed", ErrInvalidTransition, match.Status)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := s.cases.TransitionStatusTx(tx, match.FoundCaseID, string(models.FoundCaseStatusCompleted), &actorID, cases.TransitionOptions{
			ReasonCode: models.ReasonCodeMatchCompleted,
			Auto:       true,
		})
		if err != nil {
			return err
		}

		err = s.cases.TransitionStatusTx(tx, match.LostCaseID, string(models.LostCaseStatusCompleted), &actorID, cases.TransitionOptions{
			ReasonCode: models.ReasonCodeMatchCompleted,
			Auto:       true,
		})
		if err != nil {
			return err
		}

		err = tx.Model(&models.FoundDocumentCase{}).
			Where("case_id = ?", match.FoundCaseID).
			Update("loyalty_points", gorm.Expr("loyalty_points + ?", LoyaltyPointsPerHandover)).Error
		if err != nil {
			return fmt.Errorf("error awarding loyalty points: %w", err)
		}

		return tx.Model(&models.User{}).
			Where("id = ?", match.FoundCase.UserID).
			Update("loyalty_points", gorm.Expr("loyalty_points + ?", LoyaltyPointsPerHandover)).Error
	})
}

// AdminVerify re-runs the oracle adjudication for an existing match and
// refreshes its stored analysis, for dispute review.
func (s *Service) AdminVerify(ctx context.Context, matchID uuid.UUID, actorID uuid.UUID) (*matching.MatchAnalysis, error) {
	match, err := s.load(ctx, matchID)
	if err != nil {
		return nil, err
	}

	analysis, interaction, err := s.verifier.VerifyMatch(ctx, &match.FoundCase, &match.LostCase, &actorID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"ai_analysis": models.JSON{
			"overall_score":      analysis.OverallScore,
			"confidence":         analysis.Confidence,
			"recommendation":     analysis.Recommendation,
			"matching_fields":    analysis.MatchingFields,
			"conflicting_fields": analysis.ConflictingFields,
			"red_flags":          analysis.RedFlags,
		},
		"ai_interaction_id": interaction.ID,
	}
	err = s.db.WithContext(ctx).Model(&models.Match{}).
		Where("id = ?", match.ID).
		Updates(updates).Error
	if err != nil {
		return nil, fmt.Errorf("error refreshing match analysis: %w", err)
	}

	return analysis, nil
}

func (s *Service) load(ctx context.Context, matchID uuid.UUID) (*models.Match, error) {
	var match models.Match
	err := s.db.WithContext(ctx).
		Preload("FoundCase").
		Preload("FoundCase.Document").
		Preload("FoundCase.FoundCase").
		Preload("LostCase").
		Preload("LostCase.Document").
		Preload("LostCase.LostCase").
		First(&match, "id = ? AND voided = ?", matchID, false).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("error loading match: %w", err)
	}
	return &match, nil
}

// TransitionTx moves a match to a new status with its ledger row inside the
// caller's transaction. The reason row must be pre-registered; autoOnly
// restricts the lookup to auto reasons for system cascades. The conditional
// update is guarded by the loaded status and version, so a lost race
// surfaces as ErrConflict and rolls the caller back.
func TransitionTx(tx *gorm.DB, match *models.Match, to models.MatchStatus, reasonCode string, autoOnly bool, actorID *uuid.UUID, comment string) error {
	reason, err := transitions.Resolve(tx, models.EntityTypeMatch, string(match.Status), string(to), reasonCode, autoOnly)
	if err != nil {
		return err
	}

	result := tx.Model(&models.Match{}).
		Where("id = ? AND status = ? AND version = ?", match.ID, match.Status, match.Version).
		Updates(map[string]interface{}{
			"status":  to,
			"version": match.Version + 1,
		})
	if result.Error != nil {
		return fmt.Errorf("error updating match status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConflict
	}

	err = transitions.Append(tx, transitions.Record{
		EntityType:  models.EntityTypeMatch,
		EntityID:    match.ID,
		FromStatus:  string(match.Status),
		ToStatus:    string(to),
		ChangedByID: actorID,
		ReasonID:    &reason.ID,
		Comment:     comment,
	})
	if err != nil {
		return err
	}

	match.Status = to
	match.Version++
	return nil
}
