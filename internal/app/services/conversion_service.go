package services

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/offerpoint/offerpoint-core/internal/app/errors"
	"github.com/offerpoint/offerpoint-core/internal/app/models"
	"github.com/offerpoint/offerpoint-core/internal/app/pkg"
	"github.com/offerpoint/offerpoint-core/internal/infrastructures"
)

// PostbackParser verifies and normalizes one provider's postback parameters.
// Verification uses the provider's shared secret; a bad signature is rejected
// before anything touches the ledger.
type PostbackParser func(params map[string]string, secret string) (*models.Conversion, error)

// ConversionService credits offerwall earnings into the ledger. Providers
// retry postbacks aggressively, so crediting is idempotent on the provider
// transaction id.
type ConversionService struct {
	ledgerService *LedgerService
	parsers       map[string]PostbackParser
}

func NewConversionService(ledgerService *LedgerService) *ConversionService {
	return &ConversionService{
		ledgerService: ledgerService,
		parsers: map[string]PostbackParser{
			"adgate":   parseAdgatePostback,
			"cpx":      parseCpxPostback,
			"lootably": parseLootablyPostback,
		},
	}
}

// Ingest handles one postback. A replayed transaction id returns the original
// ledger entry with Duplicate set, never a second credit.
func (s *ConversionService) Ingest(provider string, params map[string]string) (*models.ConversionResult, error) {
	parser, ok := s.parsers[provider]
	if !ok {
		return nil, errors.NewNotFoundError("Unknown postback provider")
	}

	secret, ok := infrastructures.Config.PostbackSecrets[provider]
	if !ok || secret == "" {
		return nil, errors.NewNotFoundError("Postback provider is not configured")
	}

	conversion, err := parser(params, secret)
	if err != nil {
		return nil, err
	}
	conversion.Provider = provider

	refType := models.RefTypeConversionPrefix + provider
	refID := conversion.TransactionID
	delta := conversion.Points
	reason := models.LedgerReasonOfferConversion
	if conversion.Chargeback {
		// A chargeback is its own ledger event, so it gets its own reference
		// and can itself be replayed safely.
		refID = conversion.TransactionID + ":reversal"
		delta = -conversion.Points
		reason = models.LedgerReasonConversionReversal
	}

	entry, replayed, err := s.ledgerService.Credit(conversion.UserID, delta, reason, refType, refID)
	if err != nil {
		return nil, err
	}
	if replayed {
		return &models.ConversionResult{Entry: entry, Duplicate: true}, nil
	}

	pkg.ConversionsCredited.WithLabelValues(provider).Inc()
	return &models.ConversionResult{Entry: entry, Duplicate: false}, nil
}

func postbackField(params map[string]string, key string) (string, error) {
	value, ok := params[key]
	if !ok || value == "" {
		return "", errors.NewBadRequestError(fmt.Sprintf("Missing postback parameter: %s", key))
	}
	return value, nil
}

func postbackUser(params map[string]string, key string) (uuid.UUID, error) {
	raw, err := postbackField(params, key)
	if err != nil {
		return uuid.Nil, err
	}
	userID, parseErr := uuid.Parse(raw)
	if parseErr != nil {
		return uuid.Nil, errors.NewBadRequestError("Invalid user ID in postback")
	}
	return userID, nil
}

func postbackPoints(params map[string]string, key string) (int64, error) {
	raw, err := postbackField(params, key)
	if err != nil {
		return 0, err
	}
	points, parseErr := strconv.ParseInt(raw, 10, 64)
	if parseErr != nil || points == 0 {
		return 0, errors.NewBadRequestError("Invalid point amount in postback")
	}
	return points, nil
}

// parseAdgatePostback expects tx_id, user_id, points and an HMAC-SHA256
// signature over "tx_id:user_id:points". Negative points signal a chargeback.
func parseAdgatePostback(params map[string]string, secret string) (*models.Conversion, error) {
	txID, err := postbackField(params, "tx_id")
	if err != nil {
		return nil, err
	}
	userID, err := postbackUser(params, "user_id")
	if err != nil {
		return nil, err
	}
	points, err := postbackPoints(params, "points")
	if err != nil {
		return nil, err
	}
	signature, err := postbackField(params, "signature")
	if err != nil {
		return nil, err
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s:%s:%d", txID, userID, points)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, errors.NewUnauthorizedError("Invalid postback signature")
	}

	chargeback := points < 0
	if chargeback {
		points = -points
	}

	return &models.Conversion{
		UserID:        userID,
		Points:        points,
		TransactionID: txID,
		OfferName:     params["offer_name"],
		Chargeback:    chargeback,
	}, nil
}

// parseCpxPostback expects trans_id, user_id, amount, status and a hash of
// md5(trans_id + "-" + secret). Status 2 is a chargeback.
func parseCpxPostback(params map[string]string, secret string) (*models.Conversion, error) {
	transID, err := postbackField(params, "trans_id")
	if err != nil {
		return nil, err
	}
	userID, err := postbackUser(params, "user_id")
	if err != nil {
		return nil, err
	}
	points, err := postbackPoints(params, "amount")
	if err != nil {
		return nil, err
	}
	hash, err := postbackField(params, "hash")
	if err != nil {
		return nil, err
	}

	sum := md5.Sum([]byte(transID + "-" + secret))
	expected := hex.EncodeToString(sum[:])
	if !hmac.Equal([]byte(expected), []byte(hash)) {
		return nil, errors.NewUnauthorizedError("Invalid postback signature")
	}

	if points < 0 {
		points = -points
	}

	return &models.Conversion{
		UserID:        userID,
		Points:        points,
		TransactionID: transID,
		OfferName:     params["offer_title"],
		Chargeback:    params["status"] == "2",
	}, nil
}

// parseLootablyPostback expects transactionId, userId, reward and a hash of
// sha256(userId + transactionId + reward + secret).
func parseLootablyPostback(params map[string]string, secret string) (*models.Conversion, error) {
	txID, err := postbackField(params, "transactionId")
	if err != nil {
		return nil, err
	}
	userID, err := postbackUser(params, "userId")
	if err != nil {
		return nil, err
	}
	points, err := postbackPoints(params, "reward")
	if err != nil {
		return nil, err
	}
	hash, err := postbackField(params, "hash")
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256([]byte(userID.String() + txID + strconv.FormatInt(points, 10) + secret))
	expected := hex.EncodeToString(sum[:])
	if !hmac.Equal([]byte(expected), []byte(hash)) {
		return nil, errors.NewUnauthorizedError("Invalid postback signature")
	}

	chargeback := points < 0
	if chargeback {
		points = -points
	}

	return &models.Conversion{
		UserID:        userID,
		Points:        points,
		TransactionID: txID,
		OfferName:     params["offerName"],
		Chargeback:    chargeback,
	}, nil
}
