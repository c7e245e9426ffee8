package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/offerpoint/offerpoint-core/internal/app/errors"
	"github.com/offerpoint/offerpoint-core/internal/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerBalanceIsSumOfEntries(t *testing.T) {
	env := setupEnv(t)
	userID := uuid.New()

	assert.Equal(t, int64(0), env.balance(t, userID))

	env.creditUser(t, userID, 500)
	env.creditUser(t, userID, 250)

	_, err := env.ledger.AppendEntry(userID, -300, models.LedgerReasonRedemptionDebit,
		models.RefTypeRedemption, uuid.NewString())
	require.NoError(t, err)

	assert.Equal(t, int64(450), env.balance(t, userID))
}

func TestLedgerRejectsDuplicateReference(t *testing.T) {
	env := setupEnv(t)
	userID := uuid.New()
	refID := uuid.NewString()

	_, err := env.ledger.AppendEntry(userID, 100, models.LedgerReasonOfferConversion,
		models.RefTypeConversionPrefix+"adgate", refID)
	require.NoError(t, err)

	_, err = env.ledger.AppendEntry(userID, 100, models.LedgerReasonOfferConversion,
		models.RefTypeConversionPrefix+"adgate", refID)
	require.Error(t, err)
	assert.Equal(t, errors.CodeDuplicateReference, errors.CodeOf(err))

	// Same ref id under a different type is a different reference
	_, err = env.ledger.AppendEntry(userID, 100, models.LedgerReasonOfferConversion,
		models.RefTypeConversionPrefix+"cpx", refID)
	require.NoError(t, err)

	assert.Equal(t, int64(200), env.balance(t, userID))
}

func TestLedgerManualAdjust(t *testing.T) {
	env := setupEnv(t)
	userID := uuid.New()
	env.creditUser(t, userID, 500)

	entry, err := env.ledger.ManualAdjust(&models.LedgerAdjustmentRequest{
		UserID: userID.String(),
		Delta:  -200,
		RefID:  "support-ticket-991",
	})
	require.NoError(t, err)
	assert.Equal(t, models.LedgerReasonManualAdjustment, entry.Reason)
	assert.Equal(t, int64(300), env.balance(t, userID))

	// The same correction cannot land twice
	_, err = env.ledger.ManualAdjust(&models.LedgerAdjustmentRequest{
		UserID: userID.String(),
		Delta:  -200,
		RefID:  "support-ticket-991",
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeDuplicateReference, errors.CodeOf(err))
}

func TestLedgerEntriesPagination(t *testing.T) {
	env := setupEnv(t)
	userID := uuid.New()

	for i := 0; i < 5; i++ {
		env.creditUser(t, userID, 10)
	}

	page, err := env.ledger.GetEntriesByUser(userID, &models.PaginationRequest{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.TotalItems)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Items, 2)
	assert.True(t, page.HasNext)
	assert.False(t, page.HasPrev)
}
