package matching

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/docufind/backend/internal/models"
	"github.com/docufind/backend/internal/services/ai"
	"github.com/google/uuid"
)

// Confidence tiers and recommendations the oracle may return.
const (
	ConfidenceHigh    = "HIGH"
	ConfidenceMedium  = "MEDIUM"
	ConfidenceLow     = "LOW"
	ConfidenceNoMatch = "NO_MATCH"

	RecommendationSamePerson      = "SAME_PERSON"
	RecommendationLikelySame      = "LIKELY_SAME"
	RecommendationPossiblySame    = "POSSIBLY_SAME"
	RecommendationDifferentPerson = "DIFFERENT_PERSON"
)

// MatchAnalysis is the schema-validated adjudication result.
type MatchAnalysis struct {
	OverallScore      float64                  `json:"overall_score"`
	Confidence        string                   `json:"confidence"`
	Recommendation    string                   `json:"recommendation"`
	FieldAnalysis     map[string]FieldVerdict  `json:"field_analysis"`
	MatchingFields    []string                 `json:"matching_fields"`
	ConflictingFields []string                 `json:"conflicting_fields"`
	RedFlags          []string                 `json:"red_flags"`
}

// FieldVerdict is the oracle's per-field judgement.
type FieldVerdict struct {
	FoundValue string `json:"found_value"`
	LostValue  string `json:"lost_value"`
	Match      bool   `json:"match"`
	Note       string `json:"note,omitempty"`
}

// VerifyMatch sends a found/lost pair to the oracle for adjudication. The
// interaction is audited on every attempt; a failed call or an invalid
// response is recorded and surfaced as ErrOracleFailure. Retry policy lives
// in the AI client, never here.
func (s *Service) VerifyMatch(ctx context.Context, foundCase, lostCase *models.DocumentCase, actorID *uuid.UUID) (*MatchAnalysis, *models.AIInteraction, error) {
	prompt := buildAdjudicationPrompt(foundCase, lostCase)

	result, err := s.oracle.GenerateJSON(ctx, prompt)
	if err != nil {
		interaction := s.auditInteraction(ctx, actorID, prompt, "", "", nil, err)
		return nil, interaction, fmt.Errorf("%w: %v", ErrOracleFailure, err)
	}

	analysis, parseErr := parseMatchAnalysis(result.Text)
	if parseErr != nil {
		interaction := s.auditInteraction(ctx, actorID, prompt, result.Text, result.ModelVersion, &result, parseErr)
		return nil, interaction, fmt.Errorf("%w: %v", ErrOracleFailure, parseErr)
	}

	interaction := s.auditInteraction(ctx, actorID, prompt, result.Text, result.ModelVersion, &result, nil)
	return analysis, interaction, nil
}

func parseMatchAnalysis(text string) (*MatchAnalysis, error) {
	var analysis MatchAnalysis
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		return nil, fmt.Errorf("unparseable adjudication response: %w", err)
	}

	if analysis.OverallScore < 0 || analysis.OverallScore > 100 {
		return nil, fmt.Errorf("overall_score %v outside 0..100", analysis.OverallScore)
	}
	switch analysis.Confidence {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow, ConfidenceNoMatch:
	default:
		return nil, fmt.Errorf("unknown confidence tier %q", analysis.Confidence)
	}
	switch analysis.Recommendation {
	case RecommendationSamePerson, RecommendationLikelySame,
		RecommendationPossiblySame, RecommendationDifferentPerson:
	default:
		return nil, fmt.Errorf("unknown recommendation %q", analysis.Recommendation)
	}

	return &analysis, nil
}

func buildAdjudicationPrompt(foundCase, lostCase *models.DocumentCase) string {
	var b strings.Builder
	b.WriteString("Decide whether the found document and the lost-document report below describe the same document owned by the same person.\n\n")
	b.WriteString("Field importance:\n")
	b.WriteString("- critical identifiers: document_number, serial_number, date_of_birth\n")
	b.WriteString("- strong: owner_name, gender\n")
	b.WriteString("- moderate: place_of_birth, place_of_issue\n")
	b.WriteString("- weak: batch_number, issuance_date, expiry_date\n\n")

	b.WriteString("FOUND DOCUMENT:\n")
	writeCasePayload(&b, foundCase)
	b.WriteString("\nLOST REPORT:\n")
	writeCasePayload(&b, lostCase)

	b.WriteString("\nRespond with a single JSON object: ")
	b.WriteString(`{"overall_score": 0-100, "confidence": "HIGH|MEDIUM|LOW|NO_MATCH", `)
	b.WriteString(`"recommendation": "SAME_PERSON|LIKELY_SAME|POSSIBLY_SAME|DIFFERENT_PERSON", `)
	b.WriteString(`"field_analysis": {field: {"found_value", "lost_value", "match", "note"}}, `)
	b.WriteString(`"matching_fields": [], "conflicting_fields": [], "red_flags": []}`)
	return b.String()
}

func writeCasePayload(b *strings.Builder, dc *models.DocumentCase) {
	doc := dc.Document
	fmt.Fprintf(b, "owner_name: %s\n", doc.OwnerName)
	fmt.Fprintf(b, "document_number: %s\n", doc.DocumentNumber)
	fmt.Fprintf(b, "serial_number: %s\n", doc.SerialNumber)
	fmt.Fprintf(b, "batch_number: %s\n", doc.BatchNumber)
	fmt.Fprintf(b, "issuer: %s\n", doc.Issuer)
	fmt.Fprintf(b, "place_of_issue: %s\n", doc.PlaceOfIssue)
	fmt.Fprintf(b, "place_of_birth: %s\n", doc.PlaceOfBirth)
	fmt.Fprintf(b, "gender: %s\n", doc.Gender)
	if doc.DateOfBirth != nil {
		fmt.Fprintf(b, "date_of_birth: %s\n", doc.DateOfBirth.Format("2006-01-02"))
	}
	if doc.IssuanceDate != nil {
		fmt.Fprintf(b, "issuance_date: %s\n", doc.IssuanceDate.Format("2006-01-02"))
	}
	if doc.ExpiryDate != nil {
		fmt.Fprintf(b, "expiry_date: %s\n", doc.ExpiryDate.Format("2006-01-02"))
	}
	if len(dc.Tags) > 0 {
		fmt.Fprintf(b, "tags: %s\n", strings.Join(dc.Tags, ", "))
	}
	for key, value := range doc.AdditionalFields {
		fmt.Fprintf(b, "%s: %v\n", key, value)
	}
}

func (s *Service) auditInteraction(ctx context.Context, actorID *uuid.UUID, prompt, response, modelVersion string, usage *ai.GenerateResult, callErr error) *models.AIInteraction {
	interaction := models.AIInteraction{
		Kind:         models.AIInteractionKindAdjudication,
		ActorID:      actorID,
		Prompt:       prompt,
		Response:     response,
		ModelVersion: modelVersion,
		Success:      callErr == nil,
	}
	if usage != nil {
		interaction.PromptTokens = usage.PromptTokens
		interaction.CompletionTokens = usage.CompletionTokens
	}
	if callErr != nil {
		interaction.ErrorMessage = callErr.Error()
	}

	if err := s.db.WithContext(ctx).Create(&interaction).Error; err != nil {
		log.Printf("Error writing adjudication audit row: %v", err)
	}
	return &interaction
}
