package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FulfillmentJobStatus string

const (
	FulfillmentJobStatusQueued            FulfillmentJobStatus = "QUEUED"
	FulfillmentJobStatusProcessing        FulfillmentJobStatus = "PROCESSING"
	FulfillmentJobStatusSuccess           FulfillmentJobStatus = "SUCCESS"
	FulfillmentJobStatusPermanentlyFailed FulfillmentJobStatus = "PERMANENTLY_FAILED"
)

// FulfillmentJob drives exactly one approved redemption to actual payout.
// Attempts never exceed the configured ceiling; exceeding it parks the job in
// PERMANENTLY_FAILED for manual intervention, never silent infinite retry.
type FulfillmentJob struct {
	ID           uuid.UUID            `json:"id" gorm:"type:uuid;primaryKey"`
	RedemptionID uuid.UUID            `json:"redemption_id" gorm:"type:uuid;not null;uniqueIndex"`
	Status       FulfillmentJobStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	Attempts     int                  `json:"attempts" gorm:"not null;default:0"`
	LastError    *string              `json:"last_error,omitempty" gorm:"type:text"`
	NextRunAt    time.Time            `json:"next_run_at" gorm:"not null;index"`
	CreatedAt    time.Time            `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time            `json:"updated_at" gorm:"autoUpdateTime"`
}

func (j *FulfillmentJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

// PayoutRequest is the normalized request sent to the external payout provider.
// IdempotencyKey is the redemption id: the provider call is at-least-once, so
// the provider side deduplicates on it.
type PayoutRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	Denomination   string `json:"denomination"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	RecipientID    string `json:"recipient_id"`
	Remark         string `json:"remark"`
}

type PayoutResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

type PayoutErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
