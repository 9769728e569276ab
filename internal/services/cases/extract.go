package cases

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/docufind/backend/internal/models"
	"github.com/google/uuid"
)

// extractedDocument is the schema the extraction oracle must return.
type extractedDocument struct {
	OwnerName        string            `json:"owner_name"`
	DocumentNumber   string            `json:"document_number"`
	SerialNumber     string            `json:"serial_number"`
	BatchNumber      string            `json:"batch_number"`
	Issuer           string            `json:"issuer"`
	PlaceOfIssue     string            `json:"place_of_issue"`
	PlaceOfBirth     string            `json:"place_of_birth"`
	DateOfBirth      string            `json:"date_of_birth"`
	Gender           string            `json:"gender"`
	IssuanceDate     string            `json:"issuance_date"`
	ExpiryDate       string            `json:"expiry_date"`
	AdditionalFields map[string]string `json:"additional_fields"`
	Confidence       float64           `json:"confidence"`
}

// extractDocument asks the oracle to read the submitted photos into the
// structured document schema. Every attempt is audited.
func (s *Service) extractDocument(ctx context.Context, userID uuid.UUID, input ReportInput) (*extractedDocument, error) {
	prompt := buildExtractionPrompt(input)

	result, err := s.oracle.GenerateJSON(ctx, prompt)
	if err != nil {
		s.auditInteraction(ctx, models.AIInteractionKindExtraction, &userID, prompt, "", "", nil, err)
		return nil, fmt.Errorf("document extraction failed: %w", err)
	}

	var extracted extractedDocument
	if parseErr := json.Unmarshal([]byte(result.Text), &extracted); parseErr != nil {
		s.auditInteraction(ctx, models.AIInteractionKindExtraction, &userID, prompt, result.Text, result.ModelVersion, &result, parseErr)
		return nil, fmt.Errorf("document extraction returned unparseable data: %w", parseErr)
	}

	s.auditInteraction(ctx, models.AIInteractionKindExtraction, &userID, prompt, result.Text, result.ModelVersion, &result, nil)
	return &extracted, nil
}

func buildExtractionPrompt(input ReportInput) string {
	var b strings.Builder
	b.WriteString("Extract the structured fields of the photographed personal document.\n")
	b.WriteString("Respond with a single JSON object using exactly these keys: ")
	b.WriteString("owner_name, document_number, serial_number, batch_number, issuer, ")
	b.WriteString("place_of_issue, place_of_birth, date_of_birth, gender, issuance_date, ")
	b.WriteString("expiry_date, additional_fields, confidence.\n")
	b.WriteString("Dates must be YYYY-MM-DD or empty. confidence is 0..1.\n")
	fmt.Fprintf(&b, "Image keys: %s\n", strings.Join(imageKeys(input.ImageKeys), ", "))
	if input.Description != "" {
		fmt.Fprintf(&b, "Reporter description: %s\n", input.Description)
	}
	return b.String()
}

func imageKeys(images []ImageInput) []string {
	keys := make([]string, 0, len(images))
	for _, img := range images {
		keys = append(keys, img.PrivateKey)
	}
	return keys
}

func (e *extractedDocument) toDocument(typeID uuid.UUID) *models.Document {
	doc := &models.Document{
		TypeID:         typeID,
		OwnerName:      e.OwnerName,
		DocumentNumber: e.DocumentNumber,
		SerialNumber:   e.SerialNumber,
		BatchNumber:    e.BatchNumber,
		Issuer:         e.Issuer,
		PlaceOfIssue:   e.PlaceOfIssue,
		PlaceOfBirth:   e.PlaceOfBirth,
		Gender:         e.Gender,
		DateOfBirth:    parseDate(e.DateOfBirth),
		IssuanceDate:   parseDate(e.IssuanceDate),
		ExpiryDate:     parseDate(e.ExpiryDate),
	}
	if len(e.AdditionalFields) > 0 {
		doc.AdditionalFields = models.JSON{}
		for k, v := range e.AdditionalFields {
			doc.AdditionalFields[k] = v
		}
	}
	return doc
}

func (d DeclaredDocument) toDocument(typeID uuid.UUID) *models.Document {
	return &models.Document{
		TypeID:           typeID,
		OwnerName:        d.OwnerName,
		DocumentNumber:   d.DocumentNumber,
		SerialNumber:     d.SerialNumber,
		BatchNumber:      d.BatchNumber,
		Issuer:           d.Issuer,
		PlaceOfIssue:     d.PlaceOfIssue,
		PlaceOfBirth:     d.PlaceOfBirth,
		DateOfBirth:      d.DateOfBirth,
		Gender:           d.Gender,
		IssuanceDate:     d.IssuanceDate,
		ExpiryDate:       d.ExpiryDate,
		AdditionalFields: d.AdditionalFields,
	}
}

func parseDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil
	}
	return &parsed
}
