package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// CaseKind discriminates the two case sub-lifecycles.
type CaseKind string

const (
	CaseKindFound CaseKind = "found"
	CaseKindLost  CaseKind = "lost"
)

// FoundCaseStatus is the lifecycle of a found-document report.
type FoundCaseStatus string

const (
	FoundCaseStatusDraft     FoundCaseStatus = "draft"
	FoundCaseStatusSubmitted FoundCaseStatus = "submitted"
	FoundCaseStatusVerified  FoundCaseStatus = "verified"
	FoundCaseStatusRejected  FoundCaseStatus = "rejected"
	FoundCaseStatusCompleted FoundCaseStatus = "completed"
)

// LostCaseStatus is the lifecycle of a lost-document report. Lost reports are
// self-declared, so there is no verification step.
type LostCaseStatus string

const (
	LostCaseStatusDraft     LostCaseStatus = "draft"
	LostCaseStatusSubmitted LostCaseStatus = "submitted"
	LostCaseStatusCompleted LostCaseStatus = "completed"
)

var (
	// ErrCaseKindMissing is returned when a case row has neither a found nor
	// a lost sub-record. Such rows are invalid and cannot be transitioned.
	ErrCaseKindMissing = errors.New("case has neither a found nor a lost sub-record")
)

// DocumentCase is one lost or found report. Exactly one of FoundCase/LostCase
// must exist for every row; the sub-record carries the status.
type DocumentCase struct {
	Base
	UserID      uuid.UUID   `gorm:"type:uuid;not null;index" json:"user_id"`
	User        User        `gorm:"foreignKey:UserID" json:"-"`
	DocumentID  uuid.UUID   `gorm:"type:uuid;not null;index" json:"document_id"`
	Document    Document    `gorm:"foreignKey:DocumentID" json:"document,omitempty"`
	EventDate   *time.Time  `json:"event_date"`
	Description string      `gorm:"type:text" json:"description"`
	Tags        StringSlice `gorm:"type:jsonb" json:"tags,omitempty"`
	AddressID   *uuid.UUID  `gorm:"type:uuid" json:"address_id,omitempty"`
	Voided      bool        `gorm:"default:false;index" json:"voided"`

	FoundCase *FoundDocumentCase `gorm:"foreignKey:CaseID" json:"found_case,omitempty"`
	LostCase  *LostDocumentCase  `gorm:"foreignKey:CaseID" json:"lost_case,omitempty"`
}

// FoundDocumentCase extends a case reported by a finder.
type FoundDocumentCase struct {
	Base
	CaseID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"case_id"`
	Status        FoundCaseStatus `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	Version       int             `gorm:"not null;default:0" json:"-"`
	LoyaltyPoints int             `gorm:"default:0" json:"loyalty_points"`

	SecurityQuestions []SecurityQuestion `gorm:"foreignKey:FoundCaseID" json:"-"`
}

// LostDocumentCase extends a case reported by an owner.
type LostDocumentCase struct {
	Base
	CaseID  uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"case_id"`
	Status  LostCaseStatus `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	Version int            `gorm:"not null;default:0" json:"-"`
}

// SecurityQuestion is a Q/A pair derived from the extracted document data of a
// found case. Answers are stored in normalized form, never shown to claimants.
type SecurityQuestion struct {
	Base
	FoundCaseID      uuid.UUID `gorm:"type:uuid;not null;index" json:"found_case_id"`
	Question         string    `gorm:"not null" json:"question"`
	NormalizedAnswer string    `gorm:"not null" json:"-"`
}

// Kind discriminates the case type by which sub-record is present.
func (c *DocumentCase) Kind() (CaseKind, error) {
	switch {
	case c.FoundCase != nil && c.LostCase == nil:
		return CaseKindFound, nil
	case c.LostCase != nil && c.FoundCase == nil:
		return CaseKindLost, nil
	default:
		return "", ErrCaseKindMissing
	}
}

// CurrentStatus returns the status of whichever sub-record is present.
func (c *DocumentCase) CurrentStatus() (string, error) {
	kind, err := c.Kind()
	if err != nil {
		return "", err
	}
	if kind == CaseKindFound {
		return string(c.FoundCase.Status), nil
	}
	return string(c.LostCase.Status), nil
}
