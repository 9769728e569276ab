package models

import "github.com/google/uuid"

// InvoiceStatus is the billing lifecycle of a verified claim.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusVoided  InvoiceStatus = "voided"
)

// Invoice bills a verified claim. The unique index on ClaimID guarantees at
// most one invoice per claim even under concurrent verification attempts.
type Invoice struct {
	Base
	InvoiceNumber string        `gorm:"uniqueIndex;not null" json:"invoice_number"`
	ClaimID       uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex" json:"claim_id"`
	Claim         Claim         `gorm:"foreignKey:ClaimID" json:"-"`
	ServiceFee    float64       `gorm:"not null" json:"service_fee"`
	FinderReward  float64       `gorm:"not null" json:"finder_reward"`
	TotalAmount   float64       `gorm:"not null" json:"total_amount"`
	Status        InvoiceStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
}
