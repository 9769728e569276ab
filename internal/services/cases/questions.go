package cases

import (
	"context"
	"fmt"
	"time"

	"github.com/docufind/backend/internal/models"
	"github.com/docufind/backend/internal/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// generateSecurityQuestions derives Q/A pairs from the extracted document of
// a verified found case. The true owner can answer them from memory; a
// stranger looking at the blurred public photo cannot. Re-running is a no-op
// once questions exist.
func (s *Service) generateSecurityQuestions(ctx context.Context, caseID uuid.UUID) error {
	dc, err := s.GetCase(ctx, caseID)
	if err != nil {
		return err
	}
	if dc.FoundCase == nil {
		return fmt.Errorf("case %s is not a found case", caseID)
	}

	var count int64
	err = s.db.WithContext(ctx).Model(&models.SecurityQuestion{}).
		Where("found_case_id = ?", dc.FoundCase.ID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("error counting security questions: %w", err)
	}
	if count > 0 {
		return nil
	}

	doc := dc.Document
	type candidate struct {
		question string
		answer   string
	}
	candidates := []candidate{
		{"What is the document number on the document?", doc.DocumentNumber},
		{"What is the date of birth printed on the document?", formatAnswerDate(doc.DateOfBirth)},
		{"What is the place of birth printed on the document?", doc.PlaceOfBirth},
		{"What is the full name printed on the document?", doc.OwnerName},
		{"Which authority issued the document?", doc.Issuer},
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created := 0
		for _, c := range candidates {
			normalized := utils.NormalizeAnswer(c.answer)
			if normalized == "" {
				continue
			}
			question := models.SecurityQuestion{
				FoundCaseID:      dc.FoundCase.ID,
				Question:         c.question,
				NormalizedAnswer: normalized,
			}
			if err := tx.Create(&question).Error; err != nil {
				return fmt.Errorf("error creating security question: %w", err)
			}
			created++
			if created == 3 {
				break
			}
		}
		return nil
	})
}

func formatAnswerDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
