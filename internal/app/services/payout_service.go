package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/offerpoint/offerpoint-core/internal/app/models"
	"github.com/offerpoint/offerpoint-core/internal/infrastructures"
)

// PayoutService sends fulfillment disbursements to the external payout
// provider. The idempotency key forwarded with each request lets the provider
// deduplicate retried attempts on their side.
type PayoutService struct {
	client *infrastructures.PayoutClient
}

func NewPayoutService(payoutClient *infrastructures.PayoutClient) *PayoutService {
	return &PayoutService{
		client: payoutClient,
	}
}

func (s *PayoutService) CreatePayout(ctx context.Context, data *models.PayoutRequest) (*models.PayoutResponse, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := s.client.GetFullURL("/disbursements")
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", s.client.GetAuthHeader())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", data.IdempotencyKey)

	resp, err := s.client.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var errorResp models.PayoutErrorResponse
		if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Message != "" {
			return nil, fmt.Errorf("payout API error: %s", errorResp.Message)
		}
		return nil, fmt.Errorf("payout API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var payoutResponse models.PayoutResponse
	if err := json.Unmarshal(body, &payoutResponse); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &payoutResponse, nil
}
