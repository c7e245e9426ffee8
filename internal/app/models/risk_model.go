package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RiskEntityType string

const (
	RiskEntityUser       RiskEntityType = "USER"
	RiskEntityRedemption RiskEntityType = "REDEMPTION"
)

type RiskAction string

const (
	RiskActionAllow  RiskAction = "ALLOW"
	RiskActionReview RiskAction = "REVIEW"
	RiskActionBlock  RiskAction = "BLOCK"
)

// RiskAssessment rows are written by the external risk engine and read-only
// here. The most recent assessment per entity is authoritative for gating.
type RiskAssessment struct {
	ID                uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	EntityType        RiskEntityType `json:"entity_type" gorm:"type:varchar(20);not null;index:idx_risk_entity"`
	EntityID          uuid.UUID      `json:"entity_id" gorm:"type:uuid;not null;index:idx_risk_entity"`
	RiskScore         int            `json:"risk_score" gorm:"not null"`
	Flags             string         `json:"flags" gorm:"type:text"` // comma separated
	RecommendedAction RiskAction     `json:"recommended_action" gorm:"type:varchar(10);not null"`
	CreatedAt         time.Time      `json:"created_at" gorm:"autoCreateTime;index"`
}

func (a *RiskAssessment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (a *RiskAssessment) FlagList() []string {
	if a.Flags == "" {
		return nil
	}
	parts := strings.Split(a.Flags, ",")
	flags := make([]string, 0, len(parts))
	for _, p := range parts {
		if f := strings.TrimSpace(p); f != "" {
			flags = append(flags, f)
		}
	}
	return flags
}

func (a *RiskAssessment) HasFlag(flag string) bool {
	for _, f := range a.FlagList() {
		if f == flag {
			return true
		}
	}
	return false
}

// RiskVerdict is the gate's answer for one entity.
type RiskVerdict struct {
	Locked bool   `json:"locked"`
	Reason string `json:"reason,omitempty"`
}
