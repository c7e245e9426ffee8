package models

import (
	"github.com/google/uuid"
)

// Conversion is the normalized result of one offerwall postback. Every
// provider-specific parser returns this struct; nothing past the parser
// boundary branches on provider identity.
type Conversion struct {
	Provider      string    `json:"provider"`
	UserID        uuid.UUID `json:"user_id"`
	Points        int64     `json:"points"`
	TransactionID string    `json:"transaction_id"`
	OfferName     string    `json:"offer_name,omitempty"`
	Chargeback    bool      `json:"chargeback"`
}

type ConversionResult struct {
	Entry     *LedgerEntry `json:"entry"`
	Duplicate bool         `json:"duplicate"`
}
