package claims

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/docufind/backend/internal/models"
	"github.com/docufind/backend/internal/services/billing"
	"github.com/docufind/backend/internal/services/match"
	"github.com/docufind/backend/internal/services/storage"
	"github.com/docufind/backend/internal/services/transitions"
	"github.com/docufind/backend/internal/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrClaimNotFound covers missing claims and claims not visible to the
	// requester.
	ErrClaimNotFound = errors.New("claim not found")
	// ErrInvalidMatch is returned for a missing match, a voided match, or a
	// match whose lost case the requester does not own. The three cases are
	// deliberately indistinguishable to the caller.
	ErrInvalidMatch = errors.New("invalid match")
	// ErrMatchNotClaimable is returned when the match already left pending.
	ErrMatchNotClaimable = errors.New("match is not open for claims")
	// ErrActiveClaimExists enforces the one-active-claim-per-match rule.
	ErrActiveClaimExists = errors.New("an active claim already exists for this match")
	// ErrDeliveryChoice is returned unless exactly one of pickup station and
	// delivery address was provided.
	ErrDeliveryChoice = errors.New("provide exactly one of pickup_station_id and address_id")
	// ErrAttachmentMissing is returned when a supplied attachment key does not
	// exist in temporary storage.
	ErrAttachmentMissing = errors.New("attachment was not uploaded")
	// ErrInvalidTransition is returned for disallowed claim transitions.
	ErrInvalidTransition = errors.New("invalid claim transition")
	// ErrConflict is returned when a concurrent transition won the race.
	ErrConflict = errors.New("claim was modified concurrently, retry")
)

// Service owns the claim workflow: filing, verification, rejection, disputes
// and their cascades onto the match and case machines.
type Service struct {
	db      *gorm.DB
	store   storage.BlobStore
	billing *billing.Service
}

// NewService creates a claims service.
func NewService(db *gorm.DB, store storage.BlobStore, billingService *billing.Service) *Service {
	return &Service{db: db, store: store, billing: billingService}
}

// SecurityAnswer is one claimant answer to a found-case security question.
type SecurityAnswer struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	Answer     string    `json:"answer" binding:"required"`
}

// AttachmentInput references a file already uploaded to temporary storage.
type AttachmentInput struct {
	FileKey  string `json:"file_key" binding:"required"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
}

// CreateInput is a claim filing request.
type CreateInput struct {
	MatchID               uuid.UUID         `json:"match_id" binding:"required"`
	PickupStationID       *uuid.UUID        `json:"pickup_station_id"`
	AddressID             *uuid.UUID        `json:"address_id"`
	PreferredHandoverDate *time.Time        `json:"preferred_handover_date"`
	SecurityAnswers       []SecurityAnswer  `json:"security_answers"`
	Attachments           []AttachmentInput `json:"attachments"`
}

// Create files a claim against a pending match. Security answers are checked
// fuzzily against the found case's stored questions and the outcome is
// persisted; a failed check flags the claim for review but never blocks it.
// The claim row, its verification, the match cascade and all ledger rows
// commit atomically; attachments move out of temporary storage only after
// the commit succeeds.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Claim, error) {
	if (input.PickupStationID == nil) == (input.AddressID == nil) {
		return nil, ErrDeliveryChoice
	}

	m, err := s.loadClaimableMatch(ctx, input.MatchID, userID)
	if err != nil {
		return nil, err
	}

	if err := s.ensureNoActiveClaim(ctx, m.ID); err != nil {
		return nil, err
	}
	if err := s.validateDelivery(ctx, userID, input); err != nil {
		return nil, err
	}
	for _, att := range input.Attachments {
		exists, err := s.store.FileExists(ctx, att.FileKey)
		if err != nil {
			return nil, fmt.Errorf("error checking attachment %s: %w", att.FileKey, err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrAttachmentMissing, att.FileKey)
		}
	}

	verification, err := s.checkSecurityAnswers(ctx, m.FoundCase.FoundCase.ID, input.SecurityAnswers)
	if err != nil {
		return nil, err
	}

	docType, err := s.loadDocumentType(ctx, m.FoundCase.Document.TypeID)
	if err != nil {
		return nil, err
	}

	claim := models.Claim{
		ClaimNumber:           utils.GenerateReference("CLM"),
		MatchID:               m.ID,
		FoundCaseID:           m.FoundCaseID,
		UserID:                userID,
		Status:                models.ClaimStatusPending,
		PickupStationID:       input.PickupStationID,
		AddressID:             input.AddressID,
		PreferredHandoverDate: input.PreferredHandoverDate,
		ServiceFee:            docType.ServiceFee,
		FinderReward:          docType.FinderReward,
		TotalAmount:           docType.ServiceFee + docType.FinderReward,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&claim).Error; err != nil {
			return fmt.Errorf("error creating claim: %w", err)
		}

		verification.ClaimID = claim.ID
		if err := tx.Create(verification).Error; err != nil {
			return fmt.Errorf("error persisting claim verification: %w", err)
		}

		for _, att := range input.Attachments {
			row := models.ClaimAttachment{
				ClaimID:  claim.ID,
				FileKey:  att.FileKey,
				FileName: att.FileName,
				MimeType: att.MimeType,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("error persisting claim attachment: %w", err)
			}
		}

		err := match.TransitionTx(tx, m, models.MatchStatusAwaitingClaimVerification, models.ReasonCodeClaimFiled, true, &userID, "")
		if err != nil {
			return err
		}

		return transitions.Append(tx, transitions.Record{
			EntityType:  models.EntityTypeClaim,
			EntityID:    claim.ID,
			FromStatus:  "",
			ToStatus:    string(models.ClaimStatusPending),
			ChangedByID: &userID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.moveAttachments(ctx, &claim, input.Attachments)

	claim.Verification = verification
	return &claim, nil
}

// adminEligible guards the verify/reject source statuses. A claim under
// review is only reachable with the underReview flag set, so a plain verify
// or reject cannot silently resolve a dispute.
func adminEligible(status models.ClaimStatus, underReview bool, from ...models.ClaimStatus) error {
	if underReview {
		if status != models.ClaimStatusUnderReview {
			return fmt.Errorf("%w: claim is %s, the under-review path requires an under_review claim", ErrInvalidTransition, status)
		}
		return nil
	}
	for _, f := range from {
		if status == f {
			return nil
		}
	}
	return fmt.Errorf("%w: claim is %s", ErrInvalidTransition, status)
}

// Verify accepts a claim. The claim and the match move together, and the
// invoice is issued in the same transaction, so a verified claim without an
// invoice cannot exist. Pass underReview to resolve a dispute taken under
// review.
func (s *Service) Verify(ctx context.Context, claimID uuid.UUID, adminID uuid.UUID, comment string, underReview bool) (*models.Invoice, error) {
	claim, err := s.load(ctx, claimID)
	if err != nil {
		return nil, err
	}
	err = adminEligible(claim.Status, underReview,
		models.ClaimStatusPending, models.ClaimStatusRejected, models.ClaimStatusDisputed)
	if err != nil {
		return nil, err
	}

	var invoice *models.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := s.transitionTx(tx, claim, models.ClaimStatusVerified, models.ReasonCodeAdminVerifiedClaim, &adminID, comment)
		if err != nil {
			return err
		}

		// Verifying after a dispute reinstates a match that was rejected
		// alongside the original rejection.
		if claim.Match.Status != models.MatchStatusClaimed {
			err = match.TransitionTx(tx, &claim.Match, models.MatchStatusClaimed, models.ReasonCodeClaimVerified, true, &adminID, "")
			if err != nil {
				return err
			}
		}

		invoice, err = s.billing.CreateInvoiceTx(tx, claim, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// Reject declines a claim and rejects the match with it. A verified claim can
// be rejected again, which pulls the match back out of claimed.
func (s *Service) Reject(ctx context.Context, claimID uuid.UUID, adminID uuid.UUID, comment string, underReview bool) error {
	claim, err := s.load(ctx, claimID)
	if err != nil {
		return err
	}
	err = adminEligible(claim.Status, underReview,
		models.ClaimStatusPending, models.ClaimStatusVerified, models.ClaimStatusDisputed)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := s.transitionTx(tx, claim, models.ClaimStatusRejected, models.ReasonCodeAdminRejectedClaim, &adminID, comment)
		if err != nil {
			return err
		}
		// Rejecting a disputed claim leaves the match in the rejected state it
		// already reached with the original rejection.
		if claim.Match.Status == models.MatchStatusRejected {
			return nil
		}
		return match.TransitionTx(tx, &claim.Match, models.MatchStatusRejected, models.ReasonCodeClaimRejected, true, &adminID, "")
	})
}

// Cancel lets the claimant withdraw a pending or disputed claim. The match
// returns to pending so another claim can be filed.
func (s *Service) Cancel(ctx context.Context, claimID uuid.UUID, userID uuid.UUID) error {
	claim, err := s.load(ctx, claimID)
	if err != nil {
		return err
	}
	if claim.UserID != userID {
		return ErrClaimNotFound
	}
	if claim.Status != models.ClaimStatusPending && claim.Status != models.ClaimStatusDisputed {
		return fmt.Errorf("%w: claim is %s, only pending or disputed claims can be cancelled", ErrInvalidTransition, claim.Status)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := s.transitionTx(tx, claim, models.ClaimStatusCancelled, models.ReasonCodeClaimantCancelled, &userID, "")
		if err != nil {
			return err
		}
		if claim.Match.Status == models.MatchStatusPending {
			return nil
		}
		return match.TransitionTx(tx, &claim.Match, models.MatchStatusPending, models.ReasonCodeClaimantCancelled, true, &userID, "")
	})
}

// Dispute lets the claimant contest a rejection. The match is untouched: a
// dispute only flags the claim for an admin to take under review.
func (s *Service) Dispute(ctx context.Context, claimID uuid.UUID, userID uuid.UUID, comment string) error {
	claim, err := s.load(ctx, claimID)
	if err != nil {
		return err
	}
	if claim.UserID != userID {
		return ErrClaimNotFound
	}
	if claim.Status != models.ClaimStatusRejected {
		return fmt.Errorf("%w: claim is %s, only rejected claims can be disputed", ErrInvalidTransition, claim.Status)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.transitionTx(tx, claim, models.ClaimStatusDisputed, models.ReasonCodeClaimantDisputed, &userID, comment)
	})
}

// ReviewDispute moves a disputed claim under admin review. From under_review
// the admin resolves it through Verify or Reject.
func (s *Service) ReviewDispute(ctx context.Context, claimID uuid.UUID, adminID uuid.UUID, comment string) error {
	claim, err := s.load(ctx, claimID)
	if err != nil {
		return err
	}
	if claim.Status != models.ClaimStatusDisputed {
		return fmt.Errorf("%w: claim is %s, only disputed claims can be taken under review", ErrInvalidTransition, claim.Status)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.transitionTx(tx, claim, models.ClaimStatusUnderReview, models.ReasonCodeDisputeUnderReview, &adminID, comment)
	})
}

// Get loads a claim visible to the actor: the claimant or an admin.
func (s *Service) Get(ctx context.Context, claimID uuid.UUID, actorID uuid.UUID, isAdmin bool) (*models.Claim, error) {
	claim, err := s.load(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && claim.UserID != actorID {
		return nil, ErrClaimNotFound
	}
	return claim, nil
}

// ListForUser returns the user's claims, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Claim, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var claims []models.Claim
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Verification").
		Preload("Attachments").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&claims).Error
	if err != nil {
		return nil, fmt.Errorf("error listing claims: %w", err)
	}
	return claims, nil
}

// History returns the transition ledger for one claim.
func (s *Service) History(ctx context.Context, claimID uuid.UUID, limit, offset int) ([]models.StatusTransition, int64, error) {
	return transitions.History(s.db.WithContext(ctx), models.EntityTypeClaim, claimID, limit, offset)
}

func (s *Service) load(ctx context.Context, claimID uuid.UUID) (*models.Claim, error) {
	var claim models.Claim
	err := s.db.WithContext(ctx).
		Preload("Match").
		Preload("Verification").
		Preload("Attachments").
		First(&claim, "id = ?", claimID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClaimNotFound
		}
		return nil, fmt.Errorf("error loading claim: %w", err)
	}
	return &claim, nil
}

// loadClaimableMatch loads a match the user may claim against: it must exist,
// be active, still be pending, and its lost case must belong to the user.
func (s *Service) loadClaimableMatch(ctx context.Context, matchID uuid.UUID, userID uuid.UUID) (*models.Match, error) {
	var m models.Match
	err := s.db.WithContext(ctx).
		Preload("FoundCase").
		Preload("FoundCase.Document").
		Preload("FoundCase.FoundCase").
		Preload("LostCase").
		First(&m, "id = ? AND voided = ?", matchID, false).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidMatch
		}
		return nil, fmt.Errorf("error loading match: %w", err)
	}

	if m.LostCase.UserID != userID {
		return nil, ErrInvalidMatch
	}
	if m.FoundCase.FoundCase == nil {
		return nil, models.ErrCaseKindMissing
	}
	if m.Status != models.MatchStatusPending {
		return nil, fmt.Errorf("%w: match is %s", ErrMatchNotClaimable, m.Status)
	}
	return &m, nil
}

func (s *Service) ensureNoActiveClaim(ctx context.Context, matchID uuid.UUID) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Claim{}).
		Where("match_id = ? AND status <> ?", matchID, models.ClaimStatusCancelled).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("error checking for existing claims: %w", err)
	}
	if count > 0 {
		return ErrActiveClaimExists
	}
	return nil
}

func (s *Service) validateDelivery(ctx context.Context, userID uuid.UUID, input CreateInput) error {
	if input.PickupStationID != nil {
		var station models.PickupStation
		err := s.db.WithContext(ctx).First(&station, "id = ?", *input.PickupStationID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: pickup station does not exist", ErrDeliveryChoice)
			}
			return fmt.Errorf("error loading pickup station: %w", err)
		}
		return nil
	}

	var address models.Address
	err := s.db.WithContext(ctx).First(&address, "id = ? AND user_id = ?", *input.AddressID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: address does not exist or is not yours", ErrDeliveryChoice)
		}
		return fmt.Errorf("error loading address: %w", err)
	}
	return nil
}

func (s *Service) loadDocumentType(ctx context.Context, typeID uuid.UUID) (*models.DocumentType, error) {
	var docType models.DocumentType
	if err := s.db.WithContext(ctx).First(&docType, "id = ?", typeID).Error; err != nil {
		return nil, fmt.Errorf("error loading document type: %w", err)
	}
	return &docType, nil
}

// transitionTx moves a claim to a new status with its ledger row inside the
// caller's transaction, guarded by the loaded status and version.
func (s *Service) transitionTx(tx *gorm.DB, claim *models.Claim, to models.ClaimStatus, reasonCode string, actorID *uuid.UUID, comment string) error {
	reason, err := transitions.Resolve(tx, models.EntityTypeClaim, string(claim.Status), string(to), reasonCode, false)
	if err != nil {
		return err
	}

	result := tx.Model(&models.Claim{}).
		Where("id = ? AND status = ? AND version = ?", claim.ID, claim.Status, claim.Version).
		Updates(map[string]interface{}{
			"status":  to,
			"version": claim.Version + 1,
		})
	if result.Error != nil {
		return fmt.Errorf("error updating claim status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConflict
	}

	err = transitions.Append(tx, transitions.Record{
		EntityType:  models.EntityTypeClaim,
		EntityID:    claim.ID,
		FromStatus:  string(claim.Status),
		ToStatus:    string(to),
		ChangedByID: actorID,
		ReasonID:    &reason.ID,
		Comment:     comment,
	})
	if err != nil {
		return err
	}

	claim.Status = to
	claim.Version++
	return nil
}

// moveAttachments relocates committed attachments out of temporary storage.
// The claim is already durable at this point, so a failed move is logged and
// left for a storage sweep rather than failing the request.
func (s *Service) moveAttachments(ctx context.Context, claim *models.Claim, attachments []AttachmentInput) {
	caseDir := claim.FoundCaseID.String()
	for _, att := range attachments {
		newKey, err := s.store.MoveToCaseBucket(ctx, att.FileKey, caseDir)
		if err != nil {
			log.Printf("Error moving attachment %s for claim %s: %v", att.FileKey, claim.ID, err)
			continue
		}
		err = s.db.WithContext(ctx).Model(&models.ClaimAttachment{}).
			Where("claim_id = ? AND file_key = ?", claim.ID, att.FileKey).
			Update("file_key", newKey).Error
		if err != nil {
			log.Printf("Error updating attachment key for claim %s: %v", claim.ID, err)
		}
	}
}
