package cases

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/docufind/backend/internal/config"
	"github.com/docufind/backend/internal/models"
	"github.com/docufind/backend/internal/services/ai"
	"github.com/docufind/backend/internal/services/transitions"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service owns the case lifecycle: report creation (with extraction and
// embedding) and the case state machine. The transition primitive is free of
// side effects; orchestration (match sweeps, notifications) happens in the
// callers after a successful transition.
type Service struct {
	db       *gorm.DB
	oracle   ai.Oracle
	embedder ai.Embedder
	cfg      config.MatchingConfig
}

// NewService creates a case service.
func NewService(db *gorm.DB, oracle ai.Oracle, embedder ai.Embedder, cfg config.MatchingConfig) *Service {
	return &Service{db: db, oracle: oracle, embedder: embedder, cfg: cfg}
}

// ReportInput is a found or lost report as submitted by a user.
type ReportInput struct {
	TypeID      uuid.UUID    `json:"type_id" binding:"required"`
	EventDate   *time.Time   `json:"event_date"`
	Description string       `json:"description"`
	Tags        []string     `json:"tags"`
	AddressID   *uuid.UUID   `json:"address_id"`
	ImageKeys   []ImageInput `json:"images"`

	// Declared document fields. For found reports these are overridden by
	// whatever the extraction oracle reads off the photos; for lost reports
	// they are the owner's own declaration.
	Declared DeclaredDocument `json:"declared"`
}

// ImageInput references an uploaded photo pair.
type ImageInput struct {
	BlurredKey string `json:"blurred_key" binding:"required"`
	PrivateKey string `json:"private_key" binding:"required"`
	MimeType   string `json:"mime_type"`
}

// DeclaredDocument mirrors the extractable document fields.
type DeclaredDocument struct {
	OwnerName        string      `json:"owner_name"`
	DocumentNumber   string      `json:"document_number"`
	SerialNumber     string      `json:"serial_number"`
	BatchNumber      string      `json:"batch_number"`
	Issuer           string      `json:"issuer"`
	PlaceOfIssue     string      `json:"place_of_issue"`
	PlaceOfBirth     string      `json:"place_of_birth"`
	DateOfBirth      *time.Time  `json:"date_of_birth"`
	Gender           string      `json:"gender"`
	IssuanceDate     *time.Time  `json:"issuance_date"`
	ExpiryDate       *time.Time  `json:"expiry_date"`
	AdditionalFields models.JSON `json:"additional_fields"`
}

// TransitionOptions carries the optional audit payload of a transition.
type TransitionOptions struct {
	ReasonCode string
	Comment    string
	Metadata   models.JSON
	// Auto marks a system cascade; the reason lookup is then restricted to
	// auto reasons and a missing row aborts the enclosing transaction.
	Auto bool
}

// CreateFoundCase runs the extraction pipeline over the submitted photos and
// persists the draft case. The oracle interaction is audited whether or not
// extraction succeeds.
func (s *Service) CreateFoundCase(ctx context.Context, userID uuid.UUID, input ReportInput) (*models.DocumentCase, error) {
	if len(input.ImageKeys) == 0 {
		return nil, fmt.Errorf("%w: a found report requires at least one photo", ErrInvalidTransition)
	}

	extracted, err := s.extractDocument(ctx, userID, input)
	if err != nil {
		return nil, err
	}

	doc := extracted.toDocument(input.TypeID)
	return s.createCase(ctx, userID, input, doc, models.CaseKindFound)
}

// CreateLostCase persists a lost report from the owner's declared document
// data. Lost reports are self-declared; no extraction or verification step.
func (s *Service) CreateLostCase(ctx context.Context, userID uuid.UUID, input ReportInput) (*models.DocumentCase, error) {
	doc := input.Declared.toDocument(input.TypeID)
	return s.createCase(ctx, userID, input, doc, models.CaseKindLost)
}

func (s *Service) createCase(ctx context.Context, userID uuid.UUID, input ReportInput, doc *models.Document, kind models.CaseKind) (*models.DocumentCase, error) {
	// Embed before opening the transaction; the embedding call is the slow,
	// unreliable part and must not hold a database transaction open.
	embedding, err := s.embedder.EmbedQuery(ctx, doc.CompositeText(input.Tags))
	if err != nil {
		s.auditInteraction(ctx, models.AIInteractionKindEmbedding, &userID, doc.CompositeText(input.Tags), "", "", nil, err)
		return nil, fmt.Errorf("error generating document embedding: %w", err)
	}
	doc.Embedding = embedding

	dc := &models.DocumentCase{
		UserID:      userID,
		EventDate:   input.EventDate,
		Description: input.Description,
		Tags:        input.Tags,
		AddressID:   input.AddressID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return fmt.Errorf("error creating document: %w", err)
		}
		for _, img := range input.ImageKeys {
			image := models.DocumentImage{
				DocumentID: doc.ID,
				BlurredKey: img.BlurredKey,
				PrivateKey: img.PrivateKey,
				MimeType:   img.MimeType,
			}
			if err := tx.Create(&image).Error; err != nil {
				return fmt.Errorf("error creating document image: %w", err)
			}
		}

		dc.DocumentID = doc.ID
		if err := tx.Create(dc).Error; err != nil {
			return fmt.Errorf("error creating case: %w", err)
		}

		if kind == models.CaseKindFound {
			sub := models.FoundDocumentCase{CaseID: dc.ID, Status: models.FoundCaseStatusDraft}
			if err := tx.Create(&sub).Error; err != nil {
				return fmt.Errorf("error creating found sub-record: %w", err)
			}
			dc.FoundCase = &sub
		} else {
			sub := models.LostDocumentCase{CaseID: dc.ID, Status: models.LostCaseStatusDraft}
			if err := tx.Create(&sub).Error; err != nil {
				return fmt.Errorf("error creating lost sub-record: %w", err)
			}
			dc.LostCase = &sub
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dc.Document = *doc
	return dc, nil
}

// GetCase loads a case with its sub-records and document.
func (s *Service) GetCase(ctx context.Context, caseID uuid.UUID) (*models.DocumentCase, error) {
	var dc models.DocumentCase
	err := s.db.WithContext(ctx).
		Preload("FoundCase").
		Preload("LostCase").
		Preload("Document").
		Preload("Document.Images").
		First(&dc, "id = ? AND voided = ?", caseID, false).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCaseNotFound
		}
		return nil, fmt.Errorf("error loading case: %w", err)
	}
	return &dc, nil
}

// TransitionStatus is the state-machine primitive. It validates the target
// against the allow-list, performs a conditional update guarded by the
// current status and version, and appends one ledger row, all in a single
// transaction. It executes no side effects.
func (s *Service) TransitionStatus(ctx context.Context, caseID uuid.UUID, toStatus string, actorID *uuid.UUID, opts TransitionOptions) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.TransitionStatusTx(tx, caseID, toStatus, actorID, opts)
	})
}

// TransitionStatusTx runs the transition inside the caller's transaction so
// cascades (match completion) stay atomic with their own writes.
func (s *Service) TransitionStatusTx(tx *gorm.DB, caseID uuid.UUID, toStatus string, actorID *uuid.UUID, opts TransitionOptions) error {
	var dc models.DocumentCase
	err := tx.Preload("FoundCase").Preload("LostCase").
		First(&dc, "id = ? AND voided = ?", caseID, false).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCaseNotFound
		}
		return fmt.Errorf("error loading case: %w", err)
	}

	kind, err := dc.Kind()
	if err != nil {
		return err
	}
	current, _ := dc.CurrentStatus()

	if err := ValidateTransition(kind, current, toStatus); err != nil {
		return err
	}

	var (
		entityType models.EntityType
		result     *gorm.DB
	)
	if kind == models.CaseKindFound {
		entityType = models.EntityTypeFoundCase
		result = tx.Model(&models.FoundDocumentCase{}).
			Where("case_id = ? AND status = ? AND version = ?", caseID, current, dc.FoundCase.Version).
			Updates(map[string]interface{}{
				"status":  toStatus,
				"version": dc.FoundCase.Version + 1,
			})
	} else {
		entityType = models.EntityTypeLostCase
		result = tx.Model(&models.LostDocumentCase{}).
			Where("case_id = ? AND status = ? AND version = ?", caseID, current, dc.LostCase.Version).
			Updates(map[string]interface{}{
				"status":  toStatus,
				"version": dc.LostCase.Version + 1,
			})
	}
	if result.Error != nil {
		return fmt.Errorf("error updating case status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConflict
	}

	var reasonID *uuid.UUID
	if opts.ReasonCode != "" {
		reason, err := transitions.Resolve(tx, entityType, current, toStatus, opts.ReasonCode, opts.Auto)
		if err != nil {
			return err
		}
		reasonID = &reason.ID
	}

	return transitions.Append(tx, transitions.Record{
		EntityType:     entityType,
		EntityID:       caseID,
		FromStatus:     current,
		ToStatus:       toStatus,
		ChangedByID:    actorID,
		ReasonID:       reasonID,
		Comment:        opts.Comment,
		DeviceMetadata: opts.Metadata,
	})
}

// Submit moves a draft case to submitted.
func (s *Service) Submit(ctx context.Context, caseID uuid.UUID, actorID uuid.UUID, metadata models.JSON) error {
	return s.TransitionStatus(ctx, caseID, string(models.FoundCaseStatusSubmitted), &actorID, TransitionOptions{
		ReasonCode: models.ReasonCodeReporterSubmittedCase,
		Metadata:   metadata,
	})
}

// Verify moves a submitted found case to verified and generates the security
// questions claimants will have to answer. The match sweep is triggered by
// the caller after Verify returns, not in here.
func (s *Service) Verify(ctx context.Context, caseID uuid.UUID, actorID uuid.UUID, comment string) error {
	err := s.TransitionStatus(ctx, caseID, string(models.FoundCaseStatusVerified), &actorID, TransitionOptions{
		ReasonCode: models.ReasonCodeAdminVerifiedCase,
		Comment:    comment,
	})
	if err != nil {
		return err
	}

	if err := s.generateSecurityQuestions(ctx, caseID); err != nil {
		// The transition already committed; question generation is
		// re-runnable, so log rather than fail the verification.
		log.Printf("Error generating security questions for case %s: %v", caseID, err)
	}
	return nil
}

// Reject moves a submitted found case to rejected.
func (s *Service) Reject(ctx context.Context, caseID uuid.UUID, actorID uuid.UUID, comment string) error {
	return s.TransitionStatus(ctx, caseID, string(models.FoundCaseStatusRejected), &actorID, TransitionOptions{
		ReasonCode: models.ReasonCodeAdminRejectedCase,
		Comment:    comment,
	})
}

// History returns the paginated transition ledger for a case.
func (s *Service) History(ctx context.Context, caseID uuid.UUID, limit, offset int) ([]models.StatusTransition, int64, error) {
	dc, err := s.GetCase(ctx, caseID)
	if err != nil {
		return nil, 0, err
	}

	kind, err := dc.Kind()
	if err != nil {
		return nil, 0, err
	}
	entityType := models.EntityTypeFoundCase
	if kind == models.CaseKindLost {
		entityType = models.EntityTypeLostCase
	}

	return transitions.History(s.db.WithContext(ctx), entityType, caseID, limit, offset)
}

func (s *Service) auditInteraction(ctx context.Context, kind models.AIInteractionKind, actorID *uuid.UUID, prompt, response, modelVersion string, usage *ai.GenerateResult, callErr error) *models.AIInteraction {
	interaction := models.AIInteraction{
		Kind:         kind,
		ActorID:      actorID,
		Prompt:       prompt,
		Response:     response,
		ModelVersion: modelVersion,
		Success:      callErr == nil,
	}
	if usage != nil {
		interaction.PromptTokens = usage.PromptTokens
		interaction.CompletionTokens = usage.CompletionTokens
	}
	if callErr != nil {
		interaction.ErrorMessage = callErr.Error()
	}

	if err := s.db.WithContext(ctx).Create(&interaction).Error; err != nil {
		log.Printf("Error writing AI interaction audit row: %v", err)
	}
	return &interaction
}
