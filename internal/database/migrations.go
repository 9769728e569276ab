package database

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/docufind/backend/internal/models"
	"gorm.io/gorm"
)

// RunVersionedMigrations applies the migrations AutoMigrate cannot express:
// the duplicate-match guard index and the transition reason seed rows.
func RunVersionedMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			// At most one active match per (found, lost) pair. The partial
			// index makes the check-then-create in the match sweep safe under
			// concurrency: the losing insert fails and is treated as a no-op.
			ID: "202601010001_unique_active_match",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec(
					`CREATE UNIQUE INDEX IF NOT EXISTS idx_matches_active_pair
					 ON matches (found_case_id, lost_case_id)
					 WHERE voided = false AND deleted_at IS NULL`,
				).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec(`DROP INDEX IF EXISTS idx_matches_active_pair`).Error
			},
		},
		{
			// Auto reasons must exist before any cascade runs; cascades fail
			// closed when the lookup misses. Seeding them here ties reason
			// availability to deployment rather than runtime registration.
			ID: "202601010002_seed_transition_reasons",
			Migrate: func(tx *gorm.DB) error {
				for i := range seedReasons {
					reason := seedReasons[i]
					err := tx.Where(models.TransitionReason{
						EntityType: reason.EntityType,
						FromStatus: reason.FromStatus,
						ToStatus:   reason.ToStatus,
						Code:       reason.Code,
					}).FirstOrCreate(&reason).Error
					if err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Where("auto = ?", true).Delete(&models.TransitionReason{}).Error
			},
		},
	})

	return m.Migrate()
}

var seedReasons = []models.TransitionReason{
	// Case transitions driven by users/admins.
	{EntityType: models.EntityTypeFoundCase, FromStatus: "draft", ToStatus: "submitted", Code: models.ReasonCodeReporterSubmittedCase, Label: "Reporter submitted the case"},
	{EntityType: models.EntityTypeLostCase, FromStatus: "draft", ToStatus: "submitted", Code: models.ReasonCodeReporterSubmittedCase, Label: "Reporter submitted the case"},
	{EntityType: models.EntityTypeFoundCase, FromStatus: "submitted", ToStatus: "verified", Code: models.ReasonCodeAdminVerifiedCase, Label: "Admin verified the extracted document data"},
	{EntityType: models.EntityTypeFoundCase, FromStatus: "submitted", ToStatus: "rejected", Code: models.ReasonCodeAdminRejectedCase, Label: "Admin rejected the case"},

	// System cascades on cases when a match completes.
	{EntityType: models.EntityTypeFoundCase, FromStatus: "verified", ToStatus: "completed", Code: models.ReasonCodeMatchCompleted, Label: "Document handed over through a completed match", Auto: true},
	{EntityType: models.EntityTypeLostCase, FromStatus: "submitted", ToStatus: "completed", Code: models.ReasonCodeMatchCompleted, Label: "Document recovered through a completed match", Auto: true},

	// Match transitions.
	{EntityType: models.EntityTypeMatch, FromStatus: "pending", ToStatus: "rejected", Code: models.ReasonCodeOwnerRejectedMatch, Label: "Lost-case owner rejected the proposed match"},
	{EntityType: models.EntityTypeMatch, FromStatus: "pending", ToStatus: "awaiting_claim_verification", Code: models.ReasonCodeClaimFiled, Label: "Claim filed against the match", Auto: true},
	{EntityType: models.EntityTypeMatch, FromStatus: "awaiting_claim_verification", ToStatus: "claimed", Code: models.ReasonCodeClaimVerified, Label: "Claim verified", Auto: true},
	{EntityType: models.EntityTypeMatch, FromStatus: "pending", ToStatus: "claimed", Code: models.ReasonCodeClaimVerified, Label: "Claim verified", Auto: true},
	{EntityType: models.EntityTypeMatch, FromStatus: "awaiting_claim_verification", ToStatus: "rejected", Code: models.ReasonCodeClaimRejected, Label: "Claim rejected", Auto: true},
	{EntityType: models.EntityTypeMatch, FromStatus: "pending", ToStatus: "rejected", Code: models.ReasonCodeClaimRejected, Label: "Claim rejected", Auto: true},
	{EntityType: models.EntityTypeMatch, FromStatus: "awaiting_claim_verification", ToStatus: "pending", Code: models.ReasonCodeClaimantCancelled, Label: "Claimant cancelled the claim", Auto: true},
	{EntityType: models.EntityTypeMatch, FromStatus: "rejected", ToStatus: "pending", Code: models.ReasonCodeClaimantCancelled, Label: "Claimant cancelled the disputed claim", Auto: true},
	{EntityType: models.EntityTypeMatch, FromStatus: "rejected", ToStatus: "claimed", Code: models.ReasonCodeClaimVerified, Label: "Claim verified after dispute review", Auto: true},
	{EntityType: models.EntityTypeMatch, FromStatus: "claimed", ToStatus: "rejected", Code: models.ReasonCodeClaimRejected, Label: "Verified claim rejected", Auto: true},

	// Claim transitions.
	{EntityType: models.EntityTypeClaim, FromStatus: "pending", ToStatus: "verified", Code: models.ReasonCodeAdminVerifiedClaim, Label: "Admin verified the claim"},
	{EntityType: models.EntityTypeClaim, FromStatus: "rejected", ToStatus: "verified", Code: models.ReasonCodeAdminVerifiedClaim, Label: "Admin overturned the rejection"},
	{EntityType: models.EntityTypeClaim, FromStatus: "disputed", ToStatus: "verified", Code: models.ReasonCodeAdminVerifiedClaim, Label: "Admin verified the disputed claim"},
	{EntityType: models.EntityTypeClaim, FromStatus: "pending", ToStatus: "rejected", Code: models.ReasonCodeAdminRejectedClaim, Label: "Admin rejected the claim"},
	{EntityType: models.EntityTypeClaim, FromStatus: "verified", ToStatus: "rejected", Code: models.ReasonCodeAdminRejectedClaim, Label: "Admin revoked the verification"},
	{EntityType: models.EntityTypeClaim, FromStatus: "disputed", ToStatus: "rejected", Code: models.ReasonCodeAdminRejectedClaim, Label: "Admin rejected the disputed claim"},
	{EntityType: models.EntityTypeClaim, FromStatus: "pending", ToStatus: "cancelled", Code: models.ReasonCodeClaimantCancelled, Label: "Claimant cancelled the claim"},
	{EntityType: models.EntityTypeClaim, FromStatus: "disputed", ToStatus: "cancelled", Code: models.ReasonCodeClaimantCancelled, Label: "Claimant withdrew the dispute"},
	{EntityType: models.EntityTypeClaim, FromStatus: "rejected", ToStatus: "disputed", Code: models.ReasonCodeClaimantDisputed, Label: "Claimant disputed the rejection"},
	{EntityType: models.EntityTypeClaim, FromStatus: "disputed", ToStatus: "under_review", Code: models.ReasonCodeDisputeUnderReview, Label: "Admin took the dispute under review"},
	{EntityType: models.EntityTypeClaim, FromStatus: "under_review", ToStatus: "verified", Code: models.ReasonCodeAdminVerifiedClaim, Label: "Admin verified the claim after review"},
	{EntityType: models.EntityTypeClaim, FromStatus: "under_review", ToStatus: "rejected", Code: models.ReasonCodeAdminRejectedClaim, Label: "Admin rejected the claim after review"},
}
