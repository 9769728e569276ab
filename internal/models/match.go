package models

import "github.com/google/uuid"

// MatchStatus is the lifecycle of a candidate pairing between a found and a
// lost case.
type MatchStatus string

const (
	MatchStatusPending MatchStatus = "pending"
	// MatchStatusAwaitingClaimVerification marks a match that has a pending
	// claim against it. The match becomes "claimed" only once that claim is
	// verified.
	MatchStatusAwaitingClaimVerification MatchStatus = "awaiting_claim_verification"
	MatchStatusClaimed                   MatchStatus = "claimed"
	MatchStatusRejected                  MatchStatus = "rejected"
)

// Match links one found case to one lost case. Matches are only ever created
// by the verification pipeline, never directly by users. A partial unique
// index on (found_case_id, lost_case_id) where voided = false enforces at most
// one active match per pair at the database level.
type Match struct {
	Base
	FoundCaseID uuid.UUID    `gorm:"type:uuid;not null;index" json:"found_case_id"`
	FoundCase   DocumentCase `gorm:"foreignKey:FoundCaseID" json:"found_case,omitempty"`
	LostCaseID  uuid.UUID    `gorm:"type:uuid;not null;index" json:"lost_case_id"`
	LostCase    DocumentCase `gorm:"foreignKey:LostCaseID" json:"lost_case,omitempty"`

	MatchScore      float64     `gorm:"not null" json:"match_score"`
	Status          MatchStatus `gorm:"type:varchar(40);not null;default:'pending'" json:"status"`
	Version         int         `gorm:"not null;default:0" json:"-"`
	AIAnalysis      JSON        `gorm:"type:jsonb" json:"ai_analysis,omitempty"`
	AIInteractionID *uuid.UUID  `gorm:"type:uuid" json:"ai_interaction_id,omitempty"`
	Voided          bool        `gorm:"default:false" json:"voided"`
}
