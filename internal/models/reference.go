package models

import "github.com/google/uuid"

// DocumentType is reference data for a category of personal document.
// ServiceFee and FinderReward are snapshotted onto claims at creation time so
// later fee-schedule changes never affect claims already in flight.
type DocumentType struct {
	Base
	Name         string  `gorm:"not null" json:"name"`
	Slug         string  `gorm:"uniqueIndex;not null" json:"slug"`
	ServiceFee   float64 `gorm:"not null;default:0" json:"service_fee"`
	FinderReward float64 `gorm:"not null;default:0" json:"finder_reward"`
}

// PickupStation is a physical location where a claimed document can be handed over.
type PickupStation struct {
	Base
	Name    string `gorm:"not null" json:"name"`
	Slug    string `gorm:"uniqueIndex;not null" json:"slug"`
	Region  string `json:"region"`
	City    string `json:"city"`
	Address string `json:"address"`
}

// Address is a delivery destination supplied by a claimant instead of a station.
type Address struct {
	Base
	UserID *uuid.UUID `gorm:"type:uuid" json:"user_id,omitempty"`
	Region string     `json:"region"`
	City   string     `json:"city"`
	Line   string     `json:"line"`
}
