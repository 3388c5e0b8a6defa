package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SendRequest represents the JSON body for sending funds between wallets
// swagger:model SendRequest
type SendRequest struct {
	// Amount to send
	// required: true
	// example: 250.00
	Amount decimal.Decimal `json:"amount" validate:"required"`

	// Chama both wallets belong to
	// required: true
	ChamaID uuid.UUID `json:"chama_id" validate:"required"`

	// Source wallet kind
	// required: true
	// example: chama_mgr
	FromKind WalletKind `json:"from_kind" validate:"required"`

	// Receiving member
	// required: true
	ToMemberID uuid.UUID `json:"to_member_id" validate:"required"`

	// Destination wallet kind
	// required: true
	// example: chama_savings
	ToKind WalletKind `json:"to_kind" validate:"required"`
}

// SendResponse represents a successful send response
// swagger:model SendResponse
type SendResponse struct {
	// Success message
	// example: Funds sent successfully
	Message string `json:"message"`

	// Ledger entry recording the transfer
	Entry LedgerEntryDB `json:"entry"`
}

// SendErrorResponse represents an error response for send
// swagger:model SendErrorResponse
type SendErrorResponse struct {
	// Error message
	Error string `json:"error"`
}
