package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EntityType names the state machines covered by the transition ledger.
type EntityType string

const (
	EntityTypeFoundCase EntityType = "found_case"
	EntityTypeLostCase  EntityType = "lost_case"
	EntityTypeMatch     EntityType = "match"
	EntityTypeClaim     EntityType = "claim"
)

// Well-known transition reason codes used by system-triggered cascades. Rows
// for these codes are seeded by migration and must exist before a cascade is
// attempted; a missing row aborts the whole transition.
const (
	ReasonCodeClaimVerified         = "CLAIM_VERIFIED"
	ReasonCodeClaimRejected         = "CLAIM_REJECTED"
	ReasonCodeClaimantCancelled     = "CLAIMANT_CANCELLED_CLAIM"
	ReasonCodeMatchCompleted        = "MATCH_COMPLETED"
	ReasonCodeClaimFiled            = "CLAIM_FILED"
	ReasonCodeOwnerRejectedMatch    = "OWNER_REJECTED_MATCH"
	ReasonCodeAdminVerifiedCase     = "ADMIN_VERIFIED_CASE"
	ReasonCodeAdminRejectedCase     = "ADMIN_REJECTED_CASE"
	ReasonCodeReporterSubmittedCase = "REPORTER_SUBMITTED_CASE"
	ReasonCodeAdminVerifiedClaim    = "ADMIN_VERIFIED_CLAIM"
	ReasonCodeAdminRejectedClaim    = "ADMIN_REJECTED_CLAIM"
	ReasonCodeClaimantDisputed      = "CLAIMANT_DISPUTED_CLAIM"
	ReasonCodeDisputeUnderReview    = "DISPUTE_UNDER_REVIEW"
)

// TransitionReason is the registry row gating a specific transition. Rows with
// Auto=true are reserved for system-triggered cascades and are not selectable
// by users.
type TransitionReason struct {
	Base
	EntityType EntityType `gorm:"type:varchar(20);not null;uniqueIndex:idx_transition_reason_key" json:"entity_type"`
	FromStatus string     `gorm:"type:varchar(40);not null;uniqueIndex:idx_transition_reason_key" json:"from_status"`
	ToStatus   string     `gorm:"type:varchar(40);not null;uniqueIndex:idx_transition_reason_key" json:"to_status"`
	Code       string     `gorm:"type:varchar(60);not null;uniqueIndex:idx_transition_reason_key" json:"code"`
	Label      string     `gorm:"not null" json:"label"`
	Auto       bool       `gorm:"default:false" json:"auto"`
}

// StatusTransition is one append-only audit row. Rows are never updated or
// deleted; ChangedByID is nil for system actors.
type StatusTransition struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	EntityType     EntityType `gorm:"type:varchar(20);not null;index:idx_status_transition_entity" json:"entity_type"`
	EntityID       uuid.UUID  `gorm:"type:uuid;not null;index:idx_status_transition_entity" json:"entity_id"`
	FromStatus     string     `gorm:"type:varchar(40);not null" json:"from_status"`
	ToStatus       string     `gorm:"type:varchar(40);not null" json:"to_status"`
	ChangedByID    *uuid.UUID `gorm:"type:uuid" json:"changed_by_id,omitempty"`
	ReasonID       *uuid.UUID `gorm:"type:uuid" json:"reason_id,omitempty"`
	Reason         *TransitionReason `gorm:"foreignKey:ReasonID" json:"reason,omitempty"`
	Comment        string     `gorm:"type:text" json:"comment,omitempty"`
	DeviceMetadata JSON       `gorm:"type:jsonb" json:"device_metadata,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// BeforeCreate sets the row id. StatusTransition does not embed Base because
// audit rows are never soft-deleted or updated.
func (st *StatusTransition) BeforeCreate(tx *gorm.DB) error {
	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}
	return nil
}
