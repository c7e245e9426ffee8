package services

import (
	"github.com/google/uuid"
	"github.com/offerpoint/offerpoint-core/internal/app/errors"
	"github.com/offerpoint/offerpoint-core/internal/app/models"
	"github.com/offerpoint/offerpoint-core/internal/infrastructures"
	"gorm.io/gorm"
)

type RewardService struct {
	db        *gorm.DB
	validator *infrastructures.Validator
}

func NewRewardService(db *gorm.DB, validator *infrastructures.Validator) *RewardService {
	return &RewardService{
		db:        db,
		validator: validator,
	}
}

func (s *RewardService) CreateReward(req *models.RewardCreateRequest) (*models.Reward, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	reward := &models.Reward{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		IsActive:    true,
	}

	if err := s.db.Create(reward).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to create reward")
	}

	return reward, nil
}

func (s *RewardService) GetReward(rewardId string) (*models.Reward, error) {
	rewardUUID, err := uuid.Parse(rewardId)
	if err != nil {
		return nil, errors.NewBadRequestError("Invalid reward ID format")
	}

	var reward models.Reward
	err = s.db.Where("id = ?", rewardUUID).First(&reward).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("Reward not found")
		}
		return nil, errors.NewInternalServerError(err, "Failed to get reward")
	}

	return &reward, nil
}

func (s *RewardService) ListActiveRewards() ([]models.Reward, error) {
	var rewards []models.Reward
	err := s.db.Where("is_active = ?", true).Order("name ASC").Find(&rewards).Error
	if err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to list rewards")
	}
	return rewards, nil
}
