package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/offerpoint/offerpoint-core/internal/app/errors"
	"github.com/offerpoint/offerpoint-core/internal/app/models"
	"github.com/offerpoint/offerpoint-core/internal/infrastructures"
	"gorm.io/gorm"
)

const defaultRiskScoreThreshold = 80

// Flags that lock a redemption on their own, regardless of score.
var highConfidenceFraudFlags = []string{
	"multi_account_device",
	"multi_account_ip",
	"chargeback_history",
}

// RiskService is the gate in front of admin progress on a redemption. It only
// reads assessments written by the external risk engine; it never scores.
type RiskService struct {
	db             *gorm.DB
	scoreThreshold int
}

func NewRiskService(db *gorm.DB) *RiskService {
	threshold := defaultRiskScoreThreshold
	if infrastructures.Config != nil && infrastructures.Config.RiskScoreThreshold > 0 {
		threshold = infrastructures.Config.RiskScoreThreshold
	}
	return &RiskService{
		db:             db,
		scoreThreshold: threshold,
	}
}

// latestAssessment returns the most recent assessment for the entity, or nil
// when none exists (treated as not locked).
func (s *RiskService) latestAssessment(entityType models.RiskEntityType, entityID uuid.UUID) (*models.RiskAssessment, error) {
	var assessment models.RiskAssessment
	err := s.db.Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		First(&assessment).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.NewInternalServerError(err, "Failed to read risk assessment")
	}
	return &assessment, nil
}

// Evaluate answers whether the entity is locked from further admin action.
func (s *RiskService) Evaluate(entityType models.RiskEntityType, entityID uuid.UUID) (*models.RiskVerdict, error) {
	assessment, err := s.latestAssessment(entityType, entityID)
	if err != nil {
		return nil, err
	}
	return s.verdictFor(assessment), nil
}

// EvaluateRedemption checks the redemption-level assessment first, then the
// user-level one; either can lock.
func (s *RiskService) EvaluateRedemption(redemption *models.RedemptionRequest) (*models.RiskVerdict, error) {
	verdict, err := s.Evaluate(models.RiskEntityRedemption, redemption.ID)
	if err != nil {
		return nil, err
	}
	if verdict.Locked {
		return verdict, nil
	}
	return s.Evaluate(models.RiskEntityUser, redemption.UserID)
}

func (s *RiskService) verdictFor(assessment *models.RiskAssessment) *models.RiskVerdict {
	if assessment == nil {
		return &models.RiskVerdict{Locked: false}
	}

	if assessment.RecommendedAction == models.RiskActionBlock {
		return &models.RiskVerdict{Locked: true, Reason: "blocked by risk engine"}
	}

	for _, flag := range highConfidenceFraudFlags {
		if assessment.HasFlag(flag) {
			return &models.RiskVerdict{Locked: true, Reason: fmt.Sprintf("fraud flag: %s", flag)}
		}
	}

	if assessment.RiskScore >= s.scoreThreshold {
		return &models.RiskVerdict{Locked: true, Reason: fmt.Sprintf("risk score %d above threshold", assessment.RiskScore)}
	}

	return &models.RiskVerdict{Locked: false}
}
