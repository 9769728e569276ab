package transitions

import (
	"errors"
	"fmt"

	"github.com/docufind/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrReasonNotRegistered is returned when no TransitionReason row exists for
// the requested (entityType, from, to, code) quadruple. Cascading transitions
// treat this as fatal and roll back everything.
var ErrReasonNotRegistered = errors.New("transition reason is not registered")

// Resolve looks up the reason row gating a transition. Pass autoOnly=true for
// system cascades so user-selectable reasons cannot be hijacked for them.
func Resolve(tx *gorm.DB, entityType models.EntityType, from, to, code string, autoOnly bool) (*models.TransitionReason, error) {
	query := tx.Where(
		"entity_type = ? AND from_status = ? AND to_status = ? AND code = ?",
		entityType, from, to, code,
	)
	if autoOnly {
		query = query.Where("auto = ?", true)
	}

	var reason models.TransitionReason
	if err := query.First(&reason).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: (%s, %s -> %s, %s)", ErrReasonNotRegistered, entityType, from, to, code)
		}
		return nil, fmt.Errorf("error resolving transition reason: %w", err)
	}
	return &reason, nil
}

// Record describes one ledger row to append.
type Record struct {
	EntityType     models.EntityType
	EntityID       uuid.UUID
	FromStatus     string
	ToStatus       string
	ChangedByID    *uuid.UUID
	ReasonID       *uuid.UUID
	Comment        string
	DeviceMetadata models.JSON
}

// Append writes one append-only audit row inside the caller's transaction.
func Append(tx *gorm.DB, rec Record) error {
	row := models.StatusTransition{
		EntityType:     rec.EntityType,
		EntityID:       rec.EntityID,
		FromStatus:     rec.FromStatus,
		ToStatus:       rec.ToStatus,
		ChangedByID:    rec.ChangedByID,
		ReasonID:       rec.ReasonID,
		Comment:        rec.Comment,
		DeviceMetadata: rec.DeviceMetadata,
	}
	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("error appending status transition: %w", err)
	}
	return nil
}

// History returns the ledger rows for one entity, newest first, paginated.
func History(db *gorm.DB, entityType models.EntityType, entityID uuid.UUID, limit, offset int) ([]models.StatusTransition, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := db.Model(&models.StatusTransition{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("error counting status transitions: %w", err)
	}

	var rows []models.StatusTransition
	err := query.Preload("Reason").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("error loading status transitions: %w", err)
	}

	return rows, total, nil
}
