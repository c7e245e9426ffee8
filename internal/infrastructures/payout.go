package infrastructures

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"time"
)

type PayoutConfig struct {
	APIKey      string
	Environment string // "sandbox" or "production"
	BaseURL     string
	Timeout     time.Duration
}

type PayoutClient struct {
	HTTPClient *http.Client
	Config     *PayoutConfig
	BaseURL    string
	AuthHeader string
}

// NewPayoutClient creates the HTTP client used for external payout calls.
// The timeout here is the hard ceiling for a single fulfillment attempt; a hung
// payout call must never hold a job in processing past its lease.
func NewPayoutClient() *PayoutClient {
	config := &PayoutConfig{
		APIKey:      Config.PayoutConfig.APIKey,
		Environment: Config.PayoutConfig.Environment,
		BaseURL:     Config.PayoutConfig.BaseURL,
		Timeout:     Config.PayoutConfig.Timeout,
	}

	if config.BaseURL == "" {
		if config.Environment == "production" {
			config.BaseURL = "https://api.payoutdesk.io/v1"
		} else {
			config.BaseURL = "https://sandbox.payoutdesk.io/v1"
		}
	}

	authString := base64.StdEncoding.EncodeToString([]byte(config.APIKey + ":"))
	authHeader := "Basic " + authString

	return &PayoutClient{
		HTTPClient: &http.Client{
			Timeout: config.Timeout,
		},
		Config:     config,
		BaseURL:    config.BaseURL,
		AuthHeader: authHeader,
	}
}

// GetAuthHeader returns the properly formatted authorization header
func (c *PayoutClient) GetAuthHeader() string {
	return c.AuthHeader
}

// GetFullURL constructs the full URL for an endpoint
func (c *PayoutClient) GetFullURL(endpoint string) string {
	return fmt.Sprintf("%s%s", c.BaseURL, endpoint)
}
