package models

import "github.com/google/uuid"

// AIInteractionKind distinguishes what an oracle call was for.
type AIInteractionKind string

const (
	AIInteractionKindExtraction   AIInteractionKind = "extraction"
	AIInteractionKindAdjudication AIInteractionKind = "adjudication"
	AIInteractionKindEmbedding    AIInteractionKind = "embedding"
)

// AIInteraction is the mandatory audit record of a single call to the
// extraction oracle or embedding provider. One row is written per attempt,
// success or failure. The oracle is the least reliable dependency in the
// system and every call must be reconstructable after the fact.
type AIInteraction struct {
	Base
	Kind             AIInteractionKind `gorm:"type:varchar(20);not null;index" json:"kind"`
	ActorID          *uuid.UUID        `gorm:"type:uuid" json:"actor_id,omitempty"`
	Prompt           string            `gorm:"type:text" json:"prompt"`
	Response         string            `gorm:"type:text" json:"response,omitempty"`
	ModelVersion     string            `gorm:"type:varchar(100)" json:"model_version,omitempty"`
	PromptTokens     int               `json:"prompt_tokens"`
	CompletionTokens int               `json:"completion_tokens"`
	Success          bool              `gorm:"not null" json:"success"`
	ErrorMessage     string            `gorm:"type:text" json:"error_message,omitempty"`
}
