package claims

import (
	"context"
	"fmt"

	"github.com/docufind/backend/internal/models"
	"github.com/docufind/backend/internal/utils"
	"github.com/google/uuid"
)

// checkSecurityAnswers grades the claimant's answers against the found case's
// stored questions. Every question must have a matching answer to pass; one
// wrong or missing answer fails the check. Comparison is on normalized forms,
// so accents, case and punctuation differences do not fail a truthful owner.
// Answers to unknown question ids are ignored. When the found case has no
// questions at all the check passes vacuously.
func (s *Service) checkSecurityAnswers(ctx context.Context, foundCaseID uuid.UUID, answers []SecurityAnswer) (*models.ClaimVerification, error) {
	var questions []models.SecurityQuestion
	err := s.db.WithContext(ctx).
		Where("found_case_id = ?", foundCaseID).
		Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("error loading security questions: %w", err)
	}

	supplied := make(map[uuid.UUID]string, len(answers))
	for _, a := range answers {
		supplied[a.QuestionID] = a.Answer
	}

	correct := 0
	results := models.JSON{}
	for _, q := range questions {
		answer, answered := supplied[q.ID]
		matched := answered && utils.AnswersMatch(q.NormalizedAnswer, answer)
		if matched {
			correct++
		}
		results[q.ID.String()] = map[string]interface{}{
			"question": q.Question,
			"answered": answered,
			"correct":  matched,
		}
	}

	return &models.ClaimVerification{
		Passed:          correct == len(questions),
		QuestionsAsked:  len(questions),
		CorrectAnswers:  correct,
		QuestionResults: results,
	}, nil
}
