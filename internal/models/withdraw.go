package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WithdrawRequest represents the JSON body for withdrawing funds
// swagger:model WithdrawRequest
type WithdrawRequest struct {
	// Amount to withdraw
	// required: true
	// example: 700.00
	Amount decimal.Decimal `json:"amount" validate:"required"`

	// Source wallet kind
	// required: true
	// example: chama_mgr
	Kind WalletKind `json:"kind" validate:"required"`

	// Chama of the source wallet, required for chama wallets
	ChamaID *uuid.UUID `json:"chama_id,omitempty"`
}

// WithdrawResponse represents a successful withdrawal response
// swagger:model WithdrawResponse
type WithdrawResponse struct {
	// Success message
	// example: Withdrawal successful
	Message string `json:"message"`

	// Ledger entry recording the withdrawal
	Entry LedgerEntryDB `json:"entry"`
}

// WithdrawErrorResponse represents an error response for withdrawal
// swagger:model WithdrawErrorResponse
type WithdrawErrorResponse struct {
	// Error message
	// example: insufficient funds
	Error string `json:"error"`
}
