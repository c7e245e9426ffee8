package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/offerpoint/offerpoint-core/internal/app/errors"
	"github.com/offerpoint/offerpoint-core/internal/app/models"
	"github.com/offerpoint/offerpoint-core/internal/app/pkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRedemptionDebitsAtCreation(t *testing.T) {
	env := setupEnv(t)
	userID := uuid.New()
	env.creditUser(t, userID, 500)
	variant := env.seedVariant(t, 300, nil)

	result, err := env.redemptions.CreateRedemption(userID, &models.RedemptionCreateRequest{
		VariantID:      variant.ID.String(),
		IdempotencyKey: "k1",
	})
	require.NoError(t, err)
	assert.False(t, result.Replayed)
	assert.Equal(t, models.RedemptionStatusPending, result.Redemption.Status)
	assert.Equal(t, 0, result.Redemption.StatusVersion)
	assert.Equal(t, int64(300), result.Redemption.CostPoints)

	assert.Equal(t, int64(200), env.balance(t, userID))
}

func TestCreateRedemptionReplaysOnSameKey(t *testing.T) {
	env := setupEnv(t)
	userID := uuid.New()
	env.creditUser(t, userID, 500)
	variant := env.seedVariant(t, 300, nil)

	first, err := env.redemptions.CreateRedemption(userID, &models.RedemptionCreateRequest{
		VariantID:      variant.ID.String(),
		IdempotencyKey: "k1",
	})
	require.NoError(t, err)

	replay, err := env.redemptions.CreateRedemption(userID, &models.RedemptionCreateRequest{
		VariantID:      variant.ID.String(),
		IdempotencyKey: "k1",
	})
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, first.Redemption.ID, replay.Redemption.ID)

	// Exactly one debit
	assert.Equal(t, int64(200), env.balance(t, userID))

	// A different key is a new request
	_, err = env.redemptions.CreateRedemption(userID, &models.RedemptionCreateRequest{
		VariantID:      variant.ID.String(),
		IdempotencyKey: "k2",
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInsufficientBalance, errors.CodeOf(err))
}

func TestCreateRedemptionInsufficientBalance(t *testing.T) {
	env := setupEnv(t)
	userID := uuid.New()
	env.creditUser(t, userID, 100)
	variant := env.seedVariant(t, 300, nil)

	_, err := env.redemptions.CreateRedemption(userID, &models.RedemptionCreateRequest{
		VariantID:      variant.ID.String(),
		IdempotencyKey: "k1",
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInsufficientBalance, errors.CodeOf(err))
	assert.Equal(t, int64(100), env.balance(t, userID))
}

func TestCreateRedemptionBelowMinimum(t *testing.T) {
	env := setupEnv(t)
	userID := uuid.New()
	env.creditUser(t, userID, 500)
	variant := env.seedVariant(t, 50, nil)

	_, err := env.redemptions.CreateRedemption(userID, &models.RedemptionCreateRequest{
		VariantID:      variant.ID.String(),
		IdempotencyKey: "k1",
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeLimitExceeded, errors.CodeOf(err))
}

func TestCreateRedemptionClaimsStock(t *testing.T) {
	env := setupEnv(t)
	variant := env.seedVariant(t, 300, intPtr(1))

	firstUser := uuid.New()
	env.creditUser(t, firstUser, 500)
	_, err := env.redemptions.CreateRedemption(firstUser, &models.RedemptionCreateRequest{
		VariantID:      variant.ID.String(),
		IdempotencyKey: "k1",
	})
	require.NoError(t, err)

	secondUser := uuid.New()
	env.creditUser(t, secondUser, 500)
	_, err = env.redemptions.CreateRedemption(secondUser, &models.RedemptionCreateRequest{
		VariantID:      variant.ID.String(),
		IdempotencyKey: "k1",
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeVariantUnavailable, errors.CodeOf(err))
}

func TestCreateRedemptionInactiveVariant(t *testing.T) {
	env := setupEnv(t)
	userID := uuid.New()
	env.creditUser(t, userID, 500)
	variant := env.seedVariant(t, 300, nil)
	require.NoError(t, env.db.Model(variant).UpdateColumn("is_active", false).Error)

	_, err := env.redemptions.CreateRedemption(userID, &models.RedemptionCreateRequest{
		VariantID:      variant.ID.String(),
		IdempotencyKey: "k1",
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeVariantUnavailable, errors.CodeOf(err))
}

func TestCreateRedemptionDailyLimit(t *testing.T) {
	env := setupEnv(t)
	userID := uuid.New()
	env.creditUser(t, userID, 1000)
	variant := env.seedVariant(t, 300, nil)
	require.NoError(t, env.db.Model(variant).UpdateColumn("daily_limit_per_user", 1).Error)

	_, err := env.redemptions.CreateRedemption(userID, &models.RedemptionCreateRequest{
		VariantID:      variant.ID.String(),
		IdempotencyKey: "k1",
	})
	require.NoError(t, err)

	_, err = env.redemptions.CreateRedemption(userID, &models.RedemptionCreateRequest{
		VariantID:      variant.ID.String(),
		IdempotencyKey: "k2",
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeLimitExceeded, errors.CodeOf(err))
}

func TestCreateRedemptionAccountAge(t *testing.T) {
	env := setupEnv(t)
	userID := uuid.New()
	env.creditUser(t, userID, 500)
	variant := env.seedVariant(t, 300, nil)
	require.NoError(t, env.db.Model(variant).UpdateColumn("min_account_age_days", 30).Error)

	env.identity.registeredAt = time.Now().Add(-5 * 24 * time.Hour)
	_, err := env.redemptions.CreateRedemption(userID, &models.RedemptionCreateRequest{
		VariantID:      variant.ID.String(),
		IdempotencyKey: "k1",
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeLimitExceeded, errors.CodeOf(err))

	env.identity.registeredAt = time.Now().Add(-60 * 24 * time.Hour)
	_, err = env.redemptions.CreateRedemption(userID, &models.RedemptionCreateRequest{
		VariantID:      variant.ID.String(),
		IdempotencyKey: "k1",
	})
	require.NoError(t, err)
}

func TestCreateRedemptionLockedUser(t *testing.T) {
	env := setupEnv(t)
	userID := uuid.New()
	env.creditUser(t, userID, 500)
	variant := env.seedVariant(t, 300, nil)
	env.seedAssessment(t, models.RiskEntityUser, userID, 5, "", models.RiskActionBlock)

	_, err := env.redemptions.CreateRedemption(userID, &models.RedemptionCreateRequest{
		VariantID:      variant.ID.String(),
		IdempotencyKey: "k1",
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeLocked, errors.CodeOf(err))
	assert.Equal(t, int64(500), env.balance(t, userID))
}

func createPending(t *testing.T, env *testEnv, userID uuid.UUID) *models.RedemptionRequest {
	t.Helper()
	env.creditUser(t, userID, 500)
	variant := env.seedVariant(t, 300, intPtr(10))

	result, err := env.redemptions.CreateRedemption(userID, &models.RedemptionCreateRequest{
		VariantID:      variant.ID.String(),
		IdempotencyKey: pkg.RandomString(24),
	})
	require.NoError(t, err)
	return result.Redemption
}

func TestTransitionHappyPath(t *testing.T) {
	env := setupEnv(t)
	userID := uuid.New()
	redemption := createPending(t, env, userID)
	admin := uuid.New()

	res, err := env.redemptions.Transition(redemption.ID.String(), &models.RedemptionTransitionRequest{
		ToStatus:        models.RedemptionStatusApproved,
		ExpectedVersion: 0,
	}, &admin)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NewVersion)

	res, err = env.redemptions.Transition(redemption.ID.String(), &models.RedemptionTransitionRequest{
		ToStatus:        models.RedemptionStatusProcessing,
		ExpectedVersion: 1,
	}, &admin)
	require.NoError(t, err)
	assert.Equal(t, 2, res.NewVersion)

	// FULFILLED needs a settlement reference
	_, err = env.redemptions.Transition(redemption.ID.String(), &models.RedemptionTransitionRequest{
		ToStatus:        models.RedemptionStatusFulfilled,
		ExpectedVersion: 2,
	}, &admin)
	require.Error(t, err)
	assert.Equal(t, errors.CodeMissingExternalRef, errors.CodeOf(err))

	res, err = env.redemptions.Transition(redemption.ID.String(), &models.RedemptionTransitionRequest{
		ToStatus:        models.RedemptionStatusFulfilled,
		ExpectedVersion: 2,
		ExternalRef:     strPtr("TXN123"),
	}, &admin)
	require.NoError(t, err)
	assert.Equal(t, 3, res.NewVersion)

	final, err := env.redemptions.GetRedemption(redemption.ID.String())
	require.NoError(t, err)
	assert.Equal(t, models.RedemptionStatusFulfilled, final.Status)
	require.NotNil(t, final.ExternalRef)
	assert.Equal(t, "TXN123", *final.ExternalRef)
	assert.NotNil(t, final.FulfilledAt)
	require.NotNil(t, final.ReviewedBy)
	assert.Equal(t, admin, *final.ReviewedBy)

	// Debit stays committed
	assert.Equal(t, int64(200), env.balance(t, userID))

	var historyCount int64
	require.NoError(t, env.db.Model(&models.RedemptionStatusHistory{}).
		Where("redemption_id = ?", redemption.ID).Count(&historyCount).Error)
	assert.Equal(t, int64(4), historyCount)
}

func TestTransitionIllegalEdge(t *testing.T) {
	env := setupEnv(t)
	redemption := createPending(t, env, uuid.New())

	_, err := env.redemptions.Transition(redemption.ID.String(), &models.RedemptionTransitionRequest{
		ToStatus:        models.RedemptionStatusFulfilled,
		ExpectedVersion: 0,
		ExternalRef:     strPtr("TXN123"),
	}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeIllegalTransition, errors.CodeOf(err))
}

func TestTransitionStaleVersion(t *testing.T) {
	env := setupEnv(t)
	redemption := createPending(t, env, uuid.New())

	_, err := env.redemptions.Transition(redemption.ID.String(), &models.RedemptionTransitionRequest{
		ToStatus:        models.RedemptionStatusApproved,
		ExpectedVersion: 0,
	}, nil)
	require.NoError(t, err)

	// A second actor still holding version 0 loses
	_, err = env.redemptions.Transition(redemption.ID.String(), &models.RedemptionTransitionRequest{
		ToStatus:        models.RedemptionStatusProcessing,
		ExpectedVersion: 0,
	}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeStaleVersion, errors.CodeOf(err))
}

func TestRejectRestoresBalanceAndStock(t *testing.T) {
	env := setupEnv(t)
	userID := uuid.New()
	env.creditUser(t, userID, 500)
	variant := env.seedVariant(t, 300, intPtr(5))

	result, err := env.redemptions.CreateRedemption(userID, &models.RedemptionCreateRequest{
		VariantID:      variant.ID.String(),
		IdempotencyKey: "k1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(200), env.balance(t, userID))

	var claimed models.RewardVariant
	require.NoError(t, env.db.First(&claimed, "id = ?", variant.ID).Error)
	assert.Equal(t, 4, *claimed.Stock)

	_, err = env.redemptions.Transition(result.Redemption.ID.String(), &models.RedemptionTransitionRequest{
		ToStatus:        models.RedemptionStatusRejected,
		ExpectedVersion: 0,
		Note:            strPtr("failed verification"),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(500), env.balance(t, userID))

	var restored models.RewardVariant
	require.NoError(t, env.db.First(&restored, "id = ?", variant.ID).Error)
	assert.Equal(t, 5, *restored.Stock)
}

func TestRejectIsIdempotent(t *testing.T) {
	env := setupEnv(t)
	userID := uuid.New()
	redemption := createPending(t, env, userID)

	first, err := env.redemptions.Transition(redemption.ID.String(), &models.RedemptionTransitionRequest{
		ToStatus:        models.RedemptionStatusRejected,
		ExpectedVersion: 0,
	}, nil)
	require.NoError(t, err)

	// Re-rejecting is a no-op, not a second credit
	again, err := env.redemptions.Transition(redemption.ID.String(), &models.RedemptionTransitionRequest{
		ToStatus:        models.RedemptionStatusRejected,
		ExpectedVersion: 5,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, first.NewVersion, again.NewVersion)

	assert.Equal(t, int64(500), env.balance(t, userID))
}

func TestTerminalStatesRejectProgress(t *testing.T) {
	env := setupEnv(t)
	redemption := createPending(t, env, uuid.New())

	_, err := env.redemptions.Transition(redemption.ID.String(), &models.RedemptionTransitionRequest{
		ToStatus:        models.RedemptionStatusRejected,
		ExpectedVersion: 0,
	}, nil)
	require.NoError(t, err)

	_, err = env.redemptions.Transition(redemption.ID.String(), &models.RedemptionTransitionRequest{
		ToStatus:        models.RedemptionStatusApproved,
		ExpectedVersion: 1,
	}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeIllegalTransition, errors.CodeOf(err))
}

func TestLockedRedemptionOnlyMovesToRejected(t *testing.T) {
	env := setupEnv(t)
	userID := uuid.New()
	redemption := createPending(t, env, userID)
	env.seedAssessment(t, models.RiskEntityRedemption, redemption.ID, 95, "multi_account_device", models.RiskActionReview)

	_, err := env.redemptions.Transition(redemption.ID.String(), &models.RedemptionTransitionRequest{
		ToStatus:        models.RedemptionStatusApproved,
		ExpectedVersion: 0,
	}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeLocked, errors.CodeOf(err))

	// Rejection is always allowed
	_, err = env.redemptions.Transition(redemption.ID.String(), &models.RedemptionTransitionRequest{
		ToStatus:        models.RedemptionStatusRejected,
		ExpectedVersion: 0,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(500), env.balance(t, userID))
}

func TestProcessingCreatesFulfillmentJob(t *testing.T) {
	env := setupEnv(t)
	redemption := createPending(t, env, uuid.New())

	_, err := env.redemptions.Transition(redemption.ID.String(), &models.RedemptionTransitionRequest{
		ToStatus:        models.RedemptionStatusApproved,
		ExpectedVersion: 0,
	}, nil)
	require.NoError(t, err)

	_, err = env.redemptions.Transition(redemption.ID.String(), &models.RedemptionTransitionRequest{
		ToStatus:        models.RedemptionStatusProcessing,
		ExpectedVersion: 1,
	}, nil)
	require.NoError(t, err)

	var job models.FulfillmentJob
	require.NoError(t, env.db.First(&job, "redemption_id = ?", redemption.ID).Error)
	assert.Equal(t, models.FulfillmentJobStatusQueued, job.Status)
	assert.Equal(t, 0, job.Attempts)
}

func TestBulkTransitionPartialFailure(t *testing.T) {
	env := setupEnv(t)
	admin := uuid.New()

	pending := createPending(t, env, uuid.New())
	rejected := createPending(t, env, uuid.New())
	_, err := env.redemptions.Transition(rejected.ID.String(), &models.RedemptionTransitionRequest{
		ToStatus:        models.RedemptionStatusRejected,
		ExpectedVersion: 0,
	}, &admin)
	require.NoError(t, err)
	missing := uuid.NewString()

	results, err := env.redemptions.BulkTransition(&models.BulkTransitionRequest{
		IDs:      []string{pending.ID.String(), rejected.ID.String(), missing},
		ToStatus: models.RedemptionStatusApproved,
	}, &admin)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].OK)
	assert.False(t, results[1].OK)
	assert.Equal(t, errors.CodeIllegalTransition, results[1].Code)
	assert.False(t, results[2].OK)
}
