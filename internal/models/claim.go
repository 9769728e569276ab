package models

import (
	"time"

	"github.com/google/uuid"
)

// ClaimStatus is the lifecycle of an ownership claim against a match.
type ClaimStatus string

const (
	ClaimStatusPending     ClaimStatus = "pending"
	ClaimStatusVerified    ClaimStatus = "verified"
	ClaimStatusRejected    ClaimStatus = "rejected"
	ClaimStatusCancelled   ClaimStatus = "cancelled"
	ClaimStatusDisputed    ClaimStatus = "disputed"
	ClaimStatusUnderReview ClaimStatus = "under_review"
)

// Claim is a user's assertion of ownership of a found document, filed against
// a match. At most one non-cancelled claim may exist per match at any time.
type Claim struct {
	Base
	ClaimNumber string       `gorm:"uniqueIndex;not null" json:"claim_number"`
	MatchID     uuid.UUID    `gorm:"type:uuid;not null;index" json:"match_id"`
	Match       Match        `gorm:"foreignKey:MatchID" json:"match,omitempty"`
	FoundCaseID uuid.UUID    `gorm:"type:uuid;not null;index" json:"found_case_id"`
	FoundCase   DocumentCase `gorm:"foreignKey:FoundCaseID" json:"-"`
	UserID      uuid.UUID    `gorm:"type:uuid;not null;index" json:"user_id"`
	User        User         `gorm:"foreignKey:UserID" json:"-"`

	Status  ClaimStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Version int         `gorm:"not null;default:0" json:"-"`

	// Exactly one of PickupStationID/AddressID is set.
	PickupStationID       *uuid.UUID `gorm:"type:uuid" json:"pickup_station_id,omitempty"`
	AddressID             *uuid.UUID `gorm:"type:uuid" json:"address_id,omitempty"`
	PreferredHandoverDate *time.Time `json:"preferred_handover_date,omitempty"`

	// Fee snapshot taken from the DocumentType at creation time.
	ServiceFee   float64 `gorm:"not null" json:"service_fee"`
	FinderReward float64 `gorm:"not null" json:"finder_reward"`
	TotalAmount  float64 `gorm:"not null" json:"total_amount"`

	Verification *ClaimVerification `gorm:"foreignKey:ClaimID" json:"verification,omitempty"`
	Attachments  []ClaimAttachment  `gorm:"foreignKey:ClaimID" json:"attachments,omitempty"`
}

// ClaimVerification records the outcome of the security-question check made
// when the claim was filed. A failed check does not block claim creation; it
// flags the claim for manual review instead.
type ClaimVerification struct {
	Base
	ClaimID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"claim_id"`
	Passed          bool      `gorm:"not null" json:"passed"`
	QuestionsAsked  int       `gorm:"not null" json:"questions_asked"`
	CorrectAnswers  int       `gorm:"not null" json:"correct_answers"`
	QuestionResults JSON      `gorm:"type:jsonb" json:"question_results,omitempty"`
}

// ClaimAttachment references a supporting file uploaded by the claimant.
type ClaimAttachment struct {
	Base
	ClaimID  uuid.UUID `gorm:"type:uuid;not null;index" json:"claim_id"`
	FileKey  string    `gorm:"not null" json:"file_key"`
	FileName string    `json:"file_name"`
	MimeType string    `gorm:"type:varchar(100)" json:"mime_type"`
}
