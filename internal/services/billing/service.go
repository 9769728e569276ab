package billing

import (
	"errors"
	"fmt"

	"github.com/docufind/backend/internal/models"
	"github.com/docufind/backend/internal/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrInvoiceExists is returned when an invoice already exists for the claim
// and the caller asked for that to be an error.
var ErrInvoiceExists = errors.New("invoice already exists for this claim")

// Service issues invoices for verified claims.
type Service struct {
	db *gorm.DB
}

// NewService creates a billing service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateInvoiceTx issues the invoice for a claim inside the caller's
// transaction. Amounts are copied from the claim's fee snapshot, not re-read
// from the document type, so later fee changes never alter an issued invoice.
// When throwIfExists is false an existing invoice is returned as-is, which
// makes claim verification retry-safe.
func (s *Service) CreateInvoiceTx(tx *gorm.DB, claim *models.Claim, throwIfExists bool) (*models.Invoice, error) {
	var existing models.Invoice
	err := tx.First(&existing, "claim_id = ?", claim.ID).Error
	if err == nil {
		if throwIfExists {
			return nil, ErrInvoiceExists
		}
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("error checking for existing invoice: %w", err)
	}

	invoice := models.Invoice{
		InvoiceNumber: utils.GenerateReference("INV"),
		ClaimID:       claim.ID,
		ServiceFee:    claim.ServiceFee,
		FinderReward:  claim.FinderReward,
		TotalAmount:   claim.TotalAmount,
		Status:        models.InvoiceStatusPending,
	}
	if err := tx.Create(&invoice).Error; err != nil {
		return nil, fmt.Errorf("error creating invoice: %w", err)
	}
	return &invoice, nil
}

// GetByClaim loads the invoice issued for a claim, if any.
func (s *Service) GetByClaim(claimID uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.db.First(&invoice, "claim_id = ?", claimID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("error loading invoice: %w", err)
	}
	return &invoice, nil
}
