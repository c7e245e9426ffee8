package services

import (
	"github.com/google/uuid"
	"github.com/offerpoint/offerpoint-core/internal/app/errors"
	"github.com/offerpoint/offerpoint-core/internal/app/models"
	"github.com/offerpoint/offerpoint-core/internal/infrastructures"
	"gorm.io/gorm"
)

// LedgerService owns the append-only point ledger. Every mutation is an insert;
// balances are recomputed from SUM(delta) on every read so there is no stored
// balance to drift.
type LedgerService struct {
	db        *gorm.DB
	validator *infrastructures.Validator
}

func NewLedgerService(db *gorm.DB, validator *infrastructures.Validator) *LedgerService {
	return &LedgerService{
		db:        db,
		validator: validator,
	}
}

// AppendEntry records one signed point movement. The unique constraint on
// (ref_type, ref_id) makes replays fail with duplicate_reference.
func (s *LedgerService) AppendEntry(userID uuid.UUID, delta int64, reason models.LedgerReason, refType, refID string) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		entry, txErr = s.appendEntryTx(tx, userID, delta, reason, refType, refID)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *LedgerService) appendEntryTx(tx *gorm.DB, userID uuid.UUID, delta int64, reason models.LedgerReason, refType, refID string) (*models.LedgerEntry, error) {
	entry := &models.LedgerEntry{
		UserID:  userID,
		Delta:   delta,
		Reason:  reason,
		RefType: refType,
		RefID:   refID,
	}

	if err := tx.Create(entry).Error; err != nil {
		if err == gorm.ErrDuplicatedKey {
			return nil, errors.NewConflictError(errors.CodeDuplicateReference, "Ledger reference already recorded")
		}
		return nil, errors.NewInternalServerError(err, "Failed to append ledger entry")
	}

	return entry, nil
}

// Credit records an earn-side entry. Replaying the same reference returns the
// existing entry with replayed=true instead of an error, so callers driven by
// at-least-once postbacks do not need their own dedup state.
func (s *LedgerService) Credit(userID uuid.UUID, delta int64, reason models.LedgerReason, refType, refID string) (*models.LedgerEntry, bool, error) {
	entry, err := s.AppendEntry(userID, delta, reason, refType, refID)
	if err != nil {
		if errors.CodeOf(err) == errors.CodeDuplicateReference {
			existing, findErr := s.FindByRef(refType, refID)
			if findErr != nil {
				return nil, false, findErr
			}
			return existing, true, nil
		}
		return nil, false, err
	}
	return entry, false, nil
}

// GetBalance recomputes the balance from the entries. Deliberately no cache.
func (s *LedgerService) GetBalance(userID uuid.UUID) (int64, error) {
	return s.balanceTx(s.db, userID)
}

func (s *LedgerService) balanceTx(tx *gorm.DB, userID uuid.UUID) (int64, error) {
	var balance int64
	err := tx.Model(&models.LedgerEntry{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(delta), 0)").
		Scan(&balance).Error
	if err != nil {
		return 0, errors.NewInternalServerError(err, "Failed to compute balance")
	}
	return balance, nil
}

// FindByRef returns the entry previously recorded under (refType, refID).
func (s *LedgerService) FindByRef(refType, refID string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := s.db.Where("ref_type = ? AND ref_id = ?", refType, refID).First(&entry).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("Ledger entry not found")
		}
		return nil, errors.NewInternalServerError(err, "Failed to get ledger entry")
	}
	return &entry, nil
}

func (s *LedgerService) GetEntriesByUser(userID uuid.UUID, pagination *models.PaginationRequest) (*models.Pagination[[]models.LedgerEntry], error) {
	if pagination.Limit <= 0 {
		pagination.Limit = 10
	}
	if pagination.Page <= 0 {
		pagination.Page = 1
	}

	offset := (pagination.Page - 1) * pagination.Limit

	var totalItems int64
	if err := s.db.Model(&models.LedgerEntry{}).Where("user_id = ?", userID).Count(&totalItems).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to count ledger entries")
	}

	var entries []models.LedgerEntry
	query := s.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(pagination.Limit)
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to get ledger entries")
	}

	totalPages := int((totalItems + int64(pagination.Limit) - 1) / int64(pagination.Limit))

	return &models.Pagination[[]models.LedgerEntry]{
		Page:       pagination.Page,
		Limit:      pagination.Limit,
		TotalPages: totalPages,
		TotalItems: int(totalItems),
		HasNext:    pagination.Page < totalPages,
		HasPrev:    pagination.Page > 1,
		Items:      entries,
	}, nil
}

// ManualAdjust is the admin correction path. Corrections are new offsetting
// entries, never edits.
func (s *LedgerService) ManualAdjust(req *models.LedgerAdjustmentRequest) (*models.LedgerEntry, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	userUUID, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, errors.NewBadRequestError("Invalid user ID format")
	}

	return s.AppendEntry(userUUID, req.Delta, models.LedgerReasonManualAdjustment, models.RefTypeManual, req.RefID)
}
