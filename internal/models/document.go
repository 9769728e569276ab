package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Document holds the structured data extracted from a photographed document,
// plus the embedding used for semantic candidate search.
type Document struct {
	Base
	TypeID           uuid.UUID    `gorm:"type:uuid;not null;index" json:"type_id"`
	Type             DocumentType `gorm:"foreignKey:TypeID" json:"type,omitempty"`
	OwnerName        string       `json:"owner_name"`
	DocumentNumber   string       `json:"document_number"`
	SerialNumber     string       `json:"serial_number"`
	BatchNumber      string       `json:"batch_number"`
	Issuer           string       `json:"issuer"`
	PlaceOfIssue     string       `json:"place_of_issue"`
	PlaceOfBirth     string       `json:"place_of_birth"`
	DateOfBirth      *time.Time   `json:"date_of_birth"`
	Gender           string       `gorm:"type:varchar(20)" json:"gender"`
	IssuanceDate     *time.Time   `json:"issuance_date"`
	ExpiryDate       *time.Time   `json:"expiry_date"`
	AdditionalFields JSON         `gorm:"type:jsonb" json:"additional_fields,omitempty"`
	Embedding        Vector       `gorm:"type:jsonb" json:"-"`

	Images []DocumentImage `gorm:"foreignKey:DocumentID" json:"images,omitempty"`
}

// DocumentImage references the stored photos of a document. The blurred
// variant is safe to show publicly; the private key is only served to
// verified claimants and admins.
type DocumentImage struct {
	Base
	DocumentID uuid.UUID `gorm:"type:uuid;not null;index" json:"document_id"`
	BlurredKey string    `gorm:"not null" json:"blurred_key"`
	PrivateKey string    `gorm:"not null" json:"-"`
	MimeType   string    `gorm:"type:varchar(100)" json:"mime_type"`
}

// CompositeText concatenates the salient fields of a document into the text
// that gets embedded for nearest-neighbor search.
func (d *Document) CompositeText(tags []string) string {
	parts := []string{
		d.OwnerName,
		d.DocumentNumber,
		d.SerialNumber,
		d.PlaceOfBirth,
		d.Gender,
		d.Issuer,
		d.PlaceOfIssue,
	}
	if d.DateOfBirth != nil {
		parts = append(parts, d.DateOfBirth.Format("2006-01-02"))
	}
	parts = append(parts, tags...)

	// Additional fields are appended in key order so the composite text, and
	// therefore the embedding, is stable across calls.
	keys := make([]string, 0, len(d.AdditionalFields))
	for key := range d.AdditionalFields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if s, ok := d.AdditionalFields[key].(string); ok && s != "" {
			parts = append(parts, key+": "+s)
		}
	}

	clean := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			clean = append(clean, strings.TrimSpace(p))
		}
	}
	return strings.Join(clean, " | ")
}
