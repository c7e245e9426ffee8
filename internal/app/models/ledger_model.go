package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LedgerReason string

const (
	LedgerReasonOfferConversion    LedgerReason = "OFFER_CONVERSION"
	LedgerReasonConversionReversal LedgerReason = "CONVERSION_REVERSAL"
	LedgerReasonRedemptionDebit    LedgerReason = "REDEMPTION_DEBIT"
	LedgerReasonRedemptionReversal LedgerReason = "REDEMPTION_REVERSAL"
	LedgerReasonManualAdjustment   LedgerReason = "MANUAL_ADJUSTMENT"
)

// Reference types namespacing the (ref_type, ref_id) uniqueness constraint.
const (
	RefTypeRedemption         = "redemption"
	RefTypeRedemptionReversal = "redemption_reversal"
	RefTypeConversionPrefix   = "conversion:" // followed by the provider code
	RefTypeManual             = "manual"
)

// LedgerEntry is an immutable signed point movement. Rows are never updated or
// deleted; a correction is always a new offsetting entry. A user's balance is
// SUM(delta) over their entries and is stored nowhere else.
type LedgerEntry struct {
	ID        uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID    `json:"user_id" gorm:"type:uuid;not null;index"`
	Delta     int64        `json:"delta" gorm:"not null"`
	Reason    LedgerReason `json:"reason" gorm:"type:varchar(40);not null"`
	RefType   string       `json:"ref_type" gorm:"type:varchar(60);not null;uniqueIndex:idx_ledger_entries_ref"`
	RefID     string       `json:"ref_id" gorm:"type:varchar(255);not null;uniqueIndex:idx_ledger_entries_ref"`
	CreatedAt time.Time    `json:"created_at" gorm:"autoCreateTime"`
}

func (e *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

type BalanceResponse struct {
	UserID  uuid.UUID `json:"user_id"`
	Balance int64     `json:"balance"`
}

type LedgerAdjustmentRequest struct {
	UserID string  `json:"user_id" validate:"required,uuid"`
	Delta  int64   `json:"delta" validate:"required"`
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
	RefID  string  `json:"ref_id" validate:"required,max=255"`
}
