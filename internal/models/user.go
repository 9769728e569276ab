package models

// User represents a platform account. Authentication is deliberately minimal:
// cases, matches and claims only need a stable owner identity and an admin flag.
type User struct {
	Base
	Email         string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash  string `gorm:"not null" json:"-"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Phone         string `json:"phone"`
	IsAdmin       bool   `gorm:"default:false" json:"is_admin"`
	LoyaltyPoints int    `gorm:"default:0" json:"loyalty_points"`
}
