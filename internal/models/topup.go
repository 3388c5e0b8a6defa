package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TopupRequest represents the JSON body for topping up a wallet
// swagger:model TopupRequest
type TopupRequest struct {
	// Amount to top up
	// required: true
	// example: 1000.00
	Amount decimal.Decimal `json:"amount" validate:"required"`

	// Target wallet kind
	// required: true
	// example: central
	Kind WalletKind `json:"kind" validate:"required"`

	// Chama of the target wallet, required for chama wallets
	ChamaID *uuid.UUID `json:"chama_id,omitempty"`
}

// TopupResponse represents a successful top-up response
// swagger:model TopupResponse
type TopupResponse struct {
	// Success message
	// example: Wallet topped up successfully
	Message string `json:"message"`

	// Ledger entry recording the top-up
	Entry LedgerEntryDB `json:"entry"`
}

// TopupErrorResponse represents an error response for top-up
// swagger:model TopupErrorResponse
type TopupErrorResponse struct {
	// Error message
	// example: Invalid amount
	Error string `json:"error"`
}
