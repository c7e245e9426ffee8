package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Reward struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	Category    string    `json:"category" gorm:"type:varchar(50);not null"`
	Description *string   `json:"description,omitempty" gorm:"type:text"`
	ImageURL    *string   `json:"image_url,omitempty" gorm:"type:varchar(500)"`
	IsActive    bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (r *Reward) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RewardVariant is one redeemable denomination of a reward. The redemption flow
// re-checks is_active, stock and limits at submit time, not at display time.
type RewardVariant struct {
	ID                uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	RewardID          uuid.UUID       `json:"reward_id" gorm:"type:uuid;not null;index"`
	Denomination      string          `json:"denomination" gorm:"type:varchar(100);not null"`
	CostPoints        int64           `json:"cost_points" gorm:"not null"`
	PayoutAmount      decimal.Decimal `json:"payout_amount" gorm:"type:decimal(18,2);not null"`
	Stock             *int            `json:"stock,omitempty"`
	DailyLimitPerUser *int            `json:"daily_limit_per_user,omitempty"`
	MinAccountAgeDays *int            `json:"min_account_age_days,omitempty"`
	IsActive          bool            `json:"is_active" gorm:"not null;default:true"`
	CreatedAt         time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

func (v *RewardVariant) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

type RewardCreateRequest struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Category    string  `json:"category" validate:"required,max=50"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	ImageURL    *string `json:"image_url,omitempty" validate:"omitempty,url"`
}

type VariantCreateRequest struct {
	RewardID          string          `json:"reward_id" validate:"required,uuid"`
	Denomination      string          `json:"denomination" validate:"required,max=100"`
	CostPoints        int64           `json:"cost_points" validate:"required,gt=0"`
	PayoutAmount      decimal.Decimal `json:"payout_amount" validate:"required"`
	Stock             *int            `json:"stock,omitempty" validate:"omitempty,min=0"`
	DailyLimitPerUser *int            `json:"daily_limit_per_user,omitempty" validate:"omitempty,min=1"`
	MinAccountAgeDays *int            `json:"min_account_age_days,omitempty" validate:"omitempty,min=0"`
}

type VariantUpdateRequest struct {
	Denomination      *string          `json:"denomination,omitempty" validate:"omitempty,max=100"`
	CostPoints        *int64           `json:"cost_points,omitempty" validate:"omitempty,gt=0"`
	PayoutAmount      *decimal.Decimal `json:"payout_amount,omitempty"`
	Stock             *int             `json:"stock,omitempty" validate:"omitempty,min=0"`
	DailyLimitPerUser *int             `json:"daily_limit_per_user,omitempty" validate:"omitempty,min=1"`
	MinAccountAgeDays *int             `json:"min_account_age_days,omitempty" validate:"omitempty,min=0"`
	IsActive          *bool            `json:"is_active,omitempty"`
}
