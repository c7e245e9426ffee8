package services

import (
	"github.com/google/uuid"
	"github.com/offerpoint/offerpoint-core/internal/app/errors"
	"github.com/offerpoint/offerpoint-core/internal/app/models"
	"github.com/offerpoint/offerpoint-core/internal/infrastructures"
	"gorm.io/gorm"
)

// VariantService manages the reward catalog. The redemption flow consumes it
// read-only apart from the conditional stock claim.
type VariantService struct {
	db        *gorm.DB
	validator *infrastructures.Validator
}

func NewVariantService(db *gorm.DB, validator *infrastructures.Validator) *VariantService {
	return &VariantService{
		db:        db,
		validator: validator,
	}
}

func (s *VariantService) GetVariant(variantId string) (*models.RewardVariant, error) {
	variantUUID, err := uuid.Parse(variantId)
	if err != nil {
		return nil, errors.NewBadRequestError("Invalid variant ID format")
	}

	var variant models.RewardVariant
	err = s.db.Where("id = ?", variantUUID).First(&variant).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("Variant not found")
		}
		return nil, errors.NewInternalServerError(err, "Failed to get variant")
	}

	return &variant, nil
}

func (s *VariantService) GetVariantsByReward(rewardId string) ([]models.RewardVariant, error) {
	rewardUUID, err := uuid.Parse(rewardId)
	if err != nil {
		return nil, errors.NewBadRequestError("Invalid reward ID format")
	}

	var variants []models.RewardVariant
	err = s.db.Where("reward_id = ? AND is_active = ?", rewardUUID, true).
		Order("cost_points ASC").
		Find(&variants).Error
	if err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to get variants")
	}

	return variants, nil
}

func (s *VariantService) CreateVariant(req *models.VariantCreateRequest) (*models.RewardVariant, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	rewardUUID, err := uuid.Parse(req.RewardID)
	if err != nil {
		return nil, errors.NewBadRequestError("Invalid reward ID format")
	}

	variant := &models.RewardVariant{
		RewardID:          rewardUUID,
		Denomination:      req.Denomination,
		CostPoints:        req.CostPoints,
		PayoutAmount:      req.PayoutAmount,
		Stock:             req.Stock,
		DailyLimitPerUser: req.DailyLimitPerUser,
		MinAccountAgeDays: req.MinAccountAgeDays,
		IsActive:          true,
	}

	if err := s.db.Create(variant).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to create variant")
	}

	return variant, nil
}

func (s *VariantService) UpdateVariant(variantId string, req *models.VariantUpdateRequest) (*models.RewardVariant, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	variant, err := s.GetVariant(variantId)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Denomination != nil {
		updates["denomination"] = *req.Denomination
	}
	if req.CostPoints != nil {
		updates["cost_points"] = *req.CostPoints
	}
	if req.PayoutAmount != nil {
		updates["payout_amount"] = *req.PayoutAmount
	}
	if req.Stock != nil {
		updates["stock"] = *req.Stock
	}
	if req.DailyLimitPerUser != nil {
		updates["daily_limit_per_user"] = *req.DailyLimitPerUser
	}
	if req.MinAccountAgeDays != nil {
		updates["min_account_age_days"] = *req.MinAccountAgeDays
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if err := s.db.Model(variant).Updates(updates).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to update variant")
	}

	return variant, nil
}

// claimStockTx atomically claims one unit of stock if the variant is active and
// in stock. Zero affected rows means the catalog state changed between display
// and submit, which surfaces as variant_unavailable.
func (s *VariantService) claimStockTx(tx *gorm.DB, variantID uuid.UUID) (*models.RewardVariant, error) {
	res := tx.Model(&models.RewardVariant{}).
		Where("id = ? AND is_active = ? AND (stock IS NULL OR stock > 0)", variantID, true).
		UpdateColumn("stock", gorm.Expr("CASE WHEN stock IS NULL THEN NULL ELSE stock - 1 END"))
	if res.Error != nil {
		return nil, errors.NewInternalServerError(res.Error, "Failed to claim variant stock")
	}
	if res.RowsAffected == 0 {
		return nil, errors.NewConflictError(errors.CodeVariantUnavailable, "Variant is inactive or out of stock")
	}

	var variant models.RewardVariant
	if err := tx.Where("id = ?", variantID).First(&variant).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to load variant")
	}
	return &variant, nil
}

// restoreStockTx returns a claimed unit when the redemption is rejected.
func (s *VariantService) restoreStockTx(tx *gorm.DB, variantID uuid.UUID) error {
	err := tx.Model(&models.RewardVariant{}).
		Where("id = ? AND stock IS NOT NULL", variantID).
		UpdateColumn("stock", gorm.Expr("stock + 1")).Error
	if err != nil {
		return errors.NewInternalServerError(err, "Failed to restore variant stock")
	}
	return nil
}
