package services

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/offerpoint/offerpoint-core/internal/app/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adgateParams(userID uuid.UUID, txID string, points int64, secret string) map[string]string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s:%s:%d", txID, userID, points)
	return map[string]string{
		"tx_id":     txID,
		"user_id":   userID.String(),
		"points":    strconv.FormatInt(points, 10),
		"signature": hex.EncodeToString(mac.Sum(nil)),
	}
}

func cpxParams(userID uuid.UUID, transID string, amount int64, status, secret string) map[string]string {
	sum := md5.Sum([]byte(transID + "-" + secret))
	return map[string]string{
		"trans_id": transID,
		"user_id":  userID.String(),
		"amount":   strconv.FormatInt(amount, 10),
		"status":   status,
		"hash":     hex.EncodeToString(sum[:]),
	}
}

func lootablyParams(userID uuid.UUID, txID string, reward int64, secret string) map[string]string {
	sum := sha256.Sum256([]byte(userID.String() + txID + strconv.FormatInt(reward, 10) + secret))
	return map[string]string{
		"transactionId": txID,
		"userId":        userID.String(),
		"reward":        strconv.FormatInt(reward, 10),
		"hash":          hex.EncodeToString(sum[:]),
	}
}

func TestIngestCreditsConversion(t *testing.T) {
	env := setupEnv(t)
	conversions := NewConversionService(env.ledger)
	userID := uuid.New()

	result, err := conversions.Ingest("adgate", adgateParams(userID, "tx-1", 250, "adgate-secret"))
	require.NoError(t, err)
	assert.False(t, result.Duplicate)
	assert.Equal(t, int64(250), result.Entry.Delta)
	assert.Equal(t, int64(250), env.balance(t, userID))
}

func TestIngestIsIdempotentPerTransaction(t *testing.T) {
	env := setupEnv(t)
	conversions := NewConversionService(env.ledger)
	userID := uuid.New()

	first, err := conversions.Ingest("adgate", adgateParams(userID, "tx-1", 250, "adgate-secret"))
	require.NoError(t, err)

	replay, err := conversions.Ingest("adgate", adgateParams(userID, "tx-1", 250, "adgate-secret"))
	require.NoError(t, err)
	assert.True(t, replay.Duplicate)
	assert.Equal(t, first.Entry.ID, replay.Entry.ID)

	assert.Equal(t, int64(250), env.balance(t, userID))
}

func TestIngestRejectsBadSignature(t *testing.T) {
	env := setupEnv(t)
	conversions := NewConversionService(env.ledger)
	userID := uuid.New()

	params := adgateParams(userID, "tx-1", 250, "wrong-secret")
	_, err := conversions.Ingest("adgate", params)
	require.Error(t, err)

	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, appErr.StatusCode)
	assert.Equal(t, int64(0), env.balance(t, userID))
}

func TestIngestUnknownProvider(t *testing.T) {
	env := setupEnv(t)
	conversions := NewConversionService(env.ledger)

	_, err := conversions.Ingest("unknownwall", map[string]string{})
	require.Error(t, err)
	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, appErr.StatusCode)
}

func TestIngestCpxChargeback(t *testing.T) {
	env := setupEnv(t)
	conversions := NewConversionService(env.ledger)
	userID := uuid.New()

	_, err := conversions.Ingest("cpx", cpxParams(userID, "trans-9", 400, "1", "cpx-secret"))
	require.NoError(t, err)
	assert.Equal(t, int64(400), env.balance(t, userID))

	// The chargeback references the same transaction but is its own entry
	result, err := conversions.Ingest("cpx", cpxParams(userID, "trans-9", 400, "2", "cpx-secret"))
	require.NoError(t, err)
	assert.False(t, result.Duplicate)
	assert.Equal(t, int64(-400), result.Entry.Delta)
	assert.Equal(t, int64(0), env.balance(t, userID))

	// Replayed chargeback does not double-debit
	replay, err := conversions.Ingest("cpx", cpxParams(userID, "trans-9", 400, "2", "cpx-secret"))
	require.NoError(t, err)
	assert.True(t, replay.Duplicate)
	assert.Equal(t, int64(0), env.balance(t, userID))
}

func TestIngestLootably(t *testing.T) {
	env := setupEnv(t)
	conversions := NewConversionService(env.ledger)
	userID := uuid.New()

	result, err := conversions.Ingest("lootably", lootablyParams(userID, "loot-1", 120, "lootably-secret"))
	require.NoError(t, err)
	assert.Equal(t, int64(120), result.Entry.Delta)
	assert.Equal(t, "lootably", result.Entry.RefType[len("conversion:"):])
}
