package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RedemptionStatus string

const (
	RedemptionStatusPending    RedemptionStatus = "PENDING"
	RedemptionStatusApproved   RedemptionStatus = "APPROVED"
	RedemptionStatusProcessing RedemptionStatus = "PROCESSING"
	RedemptionStatusFulfilled  RedemptionStatus = "FULFILLED"
	RedemptionStatusRejected   RedemptionStatus = "REJECTED"
)

// IsTerminal reports whether no further transitions are legal from the status.
func (s RedemptionStatus) IsTerminal() bool {
	return s == RedemptionStatusFulfilled || s == RedemptionStatusRejected
}

// RedemptionRequest is the single mutable record of one spend-intent. The points
// debit is written atomically with the row insert, so the ledger already reflects
// every non-rejected request. StatusVersion increments by exactly 1 per accepted
// transition and guards every write against lost updates.
type RedemptionRequest struct {
	ID             uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID        `json:"user_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_redemptions_idem"`
	VariantID      uuid.UUID        `json:"variant_id" gorm:"type:uuid;not null"`
	IdempotencyKey string           `json:"idempotency_key" gorm:"type:varchar(64);not null;uniqueIndex:idx_redemptions_idem"`
	CostPoints     int64            `json:"cost_points" gorm:"not null"`
	PayoutAmount   decimal.Decimal  `json:"payout_amount" gorm:"type:decimal(18,2);not null"`
	Status         RedemptionStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	StatusVersion  int              `json:"status_version" gorm:"not null;default:0"`
	Note           *string          `json:"note,omitempty" gorm:"type:text"`
	ReviewedBy     *uuid.UUID       `json:"reviewed_by,omitempty" gorm:"type:uuid"`
	ReviewedAt     *time.Time       `json:"reviewed_at,omitempty"`
	ExternalRef    *string          `json:"external_ref,omitempty" gorm:"type:varchar(255)"`
	FulfilledAt    *time.Time       `json:"fulfilled_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
}

func (r *RedemptionRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RedemptionStatusHistory records every accepted transition for audit purposes.
type RedemptionStatusHistory struct {
	ID           uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	RedemptionID uuid.UUID         `json:"redemption_id" gorm:"type:uuid;not null;index"`
	FromStatus   *RedemptionStatus `json:"from_status,omitempty" gorm:"type:varchar(20)"`
	ToStatus     RedemptionStatus  `json:"to_status" gorm:"type:varchar(20);not null"`
	Note         *string           `json:"note,omitempty" gorm:"type:text"`
	ActorID      *uuid.UUID        `json:"actor_id,omitempty" gorm:"type:uuid"`
	CreatedAt    time.Time         `json:"created_at" gorm:"autoCreateTime"`
}

func (h *RedemptionStatusHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

type RedemptionCreateRequest struct {
	VariantID      string  `json:"variant_id" validate:"required,uuid"`
	IdempotencyKey string  `json:"idempotency_key" validate:"required,max=64"`
	Note           *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

type RedemptionCreateResponse struct {
	Redemption *RedemptionRequest `json:"redemption"`
	Replayed   bool               `json:"replayed"`
}

type RedemptionTransitionRequest struct {
	ToStatus        RedemptionStatus `json:"to_status" validate:"required,oneof=APPROVED PROCESSING FULFILLED REJECTED"`
	ExpectedVersion int              `json:"expected_version" validate:"gte=0"`
	Note            *string          `json:"note,omitempty" validate:"omitempty,max=500"`
	ExternalRef     *string          `json:"external_ref,omitempty" validate:"omitempty,max=255"`
}

type RedemptionTransitionResponse struct {
	ID         uuid.UUID        `json:"id"`
	Status     RedemptionStatus `json:"status"`
	NewVersion int              `json:"new_version"`
}

type BulkTransitionRequest struct {
	IDs      []string         `json:"ids" validate:"required,min=1,dive,uuid"`
	ToStatus RedemptionStatus `json:"to_status" validate:"required,oneof=APPROVED PROCESSING FULFILLED REJECTED"`
	Note     *string          `json:"note,omitempty" validate:"omitempty,max=500"`
}

// BulkTransitionResult is one member of the per-item result list. A batch is
// never accepted or rejected as a whole.
type BulkTransitionResult struct {
	ID      string `json:"id"`
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
