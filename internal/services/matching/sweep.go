package matching

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/docufind/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShouldCreateMatch applies the creation threshold: the adjudication score is
// 0..100, the configured minimum is 0..1.
func ShouldCreateMatch(overallScore, minVerificationScore float64) bool {
	return overallScore/100.0 >= minVerificationScore
}

// RunSweep searches the opposite pool for a case and adjudicates the top
// candidates, creating a pending match for every pair that clears the
// verification threshold. Re-running a sweep is safe: candidate search skips
// pairs that already have an active match, and the partial unique index
// downgrades a racing duplicate insert to a no-op.
func (s *Service) RunSweep(ctx context.Context, caseID uuid.UUID) ([]models.Match, error) {
	var dc models.DocumentCase
	err := s.db.WithContext(ctx).
		Preload("FoundCase").
		Preload("LostCase").
		Preload("Document").
		First(&dc, "id = ? AND voided = ?", caseID, false).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("error loading case for sweep: %w", err)
	}

	kind, err := dc.Kind()
	if err != nil {
		return nil, err
	}

	candidates, _, err := s.FindMatches(ctx, dc.DocumentID, FindOptions{
		Limit:               s.cfg.MaxCandidatesPerRun,
		SimilarityThreshold: s.cfg.SimilarityThreshold,
	})
	if err != nil {
		return nil, err
	}

	var created []models.Match
	for i := range candidates {
		candidate := candidates[i]

		foundCase, lostCase := &dc, &candidate.Case
		if kind == models.CaseKindLost {
			foundCase, lostCase = &candidate.Case, &dc
		}

		analysis, interaction, err := s.VerifyMatch(ctx, foundCase, lostCase, nil)
		if err != nil {
			// One failed adjudication must not sink the rest of the sweep.
			log.Printf("Skipping candidate %s for case %s: %v", candidate.Case.ID, caseID, err)
			continue
		}

		if !ShouldCreateMatch(analysis.OverallScore, s.cfg.MinVerificationScore) {
			continue
		}

		match, err := s.createMatch(ctx, foundCase.ID, lostCase.ID, analysis, interaction)
		if err != nil {
			log.Printf("Error creating match for case %s: %v", caseID, err)
			continue
		}
		if match != nil {
			created = append(created, *match)
		}
	}

	return created, nil
}

// createMatch persists a pending match. A duplicate-pair violation of the
// partial unique index means another sweep got there first; that is a no-op,
// not an error.
func (s *Service) createMatch(ctx context.Context, foundCaseID, lostCaseID uuid.UUID, analysis *MatchAnalysis, interaction *models.AIInteraction) (*models.Match, error) {
	analysisJSON := models.JSON{
		"overall_score":      analysis.OverallScore,
		"confidence":         analysis.Confidence,
		"recommendation":     analysis.Recommendation,
		"matching_fields":    analysis.MatchingFields,
		"conflicting_fields": analysis.ConflictingFields,
		"red_flags":          analysis.RedFlags,
	}

	match := models.Match{
		FoundCaseID: foundCaseID,
		LostCaseID:  lostCaseID,
		MatchScore:  analysis.OverallScore / 100.0,
		Status:      models.MatchStatusPending,
		AIAnalysis:  analysisJSON,
	}
	if interaction != nil {
		match.AIInteractionID = &interaction.ID
	}

	if err := s.db.WithContext(ctx).Create(&match).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil
		}
		return nil, fmt.Errorf("error creating match: %w", err)
	}
	return &match, nil
}
