package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/offerpoint/offerpoint-core/internal/app/models"
	"github.com/offerpoint/offerpoint-core/internal/infrastructures"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.LedgerEntry{},
		&models.Reward{},
		&models.RewardVariant{},
		&models.RedemptionRequest{},
		&models.RedemptionStatusHistory{},
		&models.FulfillmentJob{},
		&models.RiskAssessment{},
	)
	require.NoError(t, err)

	return db
}

func setupTestConfig(t *testing.T) {
	t.Helper()

	previous := infrastructures.Config
	infrastructures.Config = &infrastructures.AppConfig{
		MinRedeemPoints:    100,
		RiskScoreThreshold: 80,
		SweepInterval:      time.Second,
		MaxAttempts:        3,
		BackoffBase:        30 * time.Second,
		BackoffCap:         30 * time.Minute,
		ClaimLease:         2 * time.Minute,
		SweepBatchSize:     50,
		PayoutConfig: infrastructures.PayoutConfig{
			Timeout: 5 * time.Second,
		},
		PostbackSecrets: map[string]string{
			"adgate":   "adgate-secret",
			"cpx":      "cpx-secret",
			"lootably": "lootably-secret",
		},
	}
	t.Cleanup(func() { infrastructures.Config = previous })
}

// stubIdentity serves account-age checks with a fixed registration time.
type stubIdentity struct {
	registeredAt time.Time
}

func (s *stubIdentity) GetUser(userId string) (*models.IdentityUser, error) {
	id, err := uuid.Parse(userId)
	if err != nil {
		return nil, err
	}
	registeredAt := s.registeredAt
	if registeredAt.IsZero() {
		registeredAt = time.Now().Add(-365 * 24 * time.Hour)
	}
	return &models.IdentityUser{
		ID:           id,
		Username:     "testuser",
		RegisteredAt: registeredAt,
	}, nil
}

// stubPayout records calls and returns canned results.
type stubPayout struct {
	calls     int
	failTimes int
	reference string
}

func (s *stubPayout) CreatePayout(ctx context.Context, data *models.PayoutRequest) (*models.PayoutResponse, error) {
	s.calls++
	if s.calls <= s.failTimes {
		return nil, fmt.Errorf("provider unavailable")
	}
	ref := s.reference
	if ref == "" {
		ref = "PAYOUT-" + data.IdempotencyKey
	}
	return &models.PayoutResponse{Reference: ref, Status: "completed"}, nil
}

type testEnv struct {
	db          *gorm.DB
	ledger      *LedgerService
	risk        *RiskService
	variants    *VariantService
	rewards     *RewardService
	redemptions *RedemptionService
	identity    *stubIdentity
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	setupTestConfig(t)

	db := setupTestDB(t)
	validator := infrastructures.NewValidator()
	ledger := NewLedgerService(db, validator)
	risk := NewRiskService(db)
	variants := NewVariantService(db, validator)
	identity := &stubIdentity{}

	return &testEnv{
		db:          db,
		ledger:      ledger,
		risk:        risk,
		variants:    variants,
		rewards:     NewRewardService(db, validator),
		redemptions: NewRedemptionService(db, validator, ledger, variants, risk, identity),
		identity:    identity,
	}
}

func (e *testEnv) seedVariant(t *testing.T, costPoints int64, stock *int) *models.RewardVariant {
	t.Helper()

	reward, err := e.rewards.CreateReward(&models.RewardCreateRequest{
		Name:     "Gift Card",
		Category: "giftcard",
	})
	require.NoError(t, err)

	variant := &models.RewardVariant{
		RewardID:     reward.ID,
		Denomination: fmt.Sprintf("%d points card", costPoints),
		CostPoints:   costPoints,
		PayoutAmount: decimal.NewFromInt(costPoints / 100),
		Stock:        stock,
		IsActive:     true,
	}
	require.NoError(t, e.db.Create(variant).Error)
	return variant
}

func (e *testEnv) creditUser(t *testing.T, userID uuid.UUID, points int64) {
	t.Helper()

	_, err := e.ledger.AppendEntry(userID, points, models.LedgerReasonOfferConversion,
		models.RefTypeConversionPrefix+"test", uuid.NewString())
	require.NoError(t, err)
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func (e *testEnv) balance(t *testing.T, userID uuid.UUID) int64 {
	t.Helper()
	balance, err := e.ledger.GetBalance(userID)
	require.NoError(t, err)
	return balance
}
