package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InitiatePaymentRequest represents the JSON body for starting a gateway payment
// swagger:model InitiatePaymentRequest
type InitiatePaymentRequest struct {
	// Amount to pay in
	// required: true
	// example: 2000.00
	Amount decimal.Decimal `json:"amount" validate:"required"`

	// Payment channel, mobile_money or card
	// required: true
	// example: mobile_money
	Method string `json:"method" validate:"required,oneof=mobile_money card"`

	// Phone number for mobile money
	Phone string `json:"phone,omitempty"`

	// Card token for card payments
	CardToken string `json:"card_token,omitempty"`

	// Wallet the payment should land in
	// required: true
	// example: chama_savings
	Kind WalletKind `json:"kind" validate:"required"`

	// Chama of the destination wallet, required for chama wallets
	ChamaID *uuid.UUID `json:"chama_id,omitempty"`

	// Human-readable purpose forwarded to the gateway
	// example: March contribution
	Purpose string `json:"purpose"`
}

// InitiatePaymentResponse acknowledges an initiated payment
// swagger:model InitiatePaymentResponse
type InitiatePaymentResponse struct {
	// Gateway reference to poll the payment with
	ExternalReference string `json:"external_reference"`

	// Success message
	// example: Payment initiated, confirmation pending
	Message string `json:"message"`
}

// WebhookRequest is the gateway confirmation callback payload
// swagger:model WebhookRequest
type WebhookRequest struct {
	// Gateway transaction reference
	// required: true
	ExternalReference string `json:"external_reference" validate:"required"`

	// Final gateway status, success or failed
	// required: true
	// example: success
	Status string `json:"status" validate:"required,oneof=success failed"`

	// Opaque provider metadata, stored for operators
	ProviderMetadata map[string]any `json:"provider_metadata,omitempty"`
}

// PaymentStatusResponse reports the state of an initiated payment
// swagger:model PaymentStatusResponse
type PaymentStatusResponse struct {
	// Gateway transaction reference
	ExternalReference string `json:"external_reference"`

	// Ledger status of the payment entry
	// example: completed
	Status EntryStatus `json:"status"`

	// Gross amount requested from the gateway
	Amount decimal.Decimal `json:"amount"`

	// User-facing detail, set when verification timed out
	Detail string `json:"detail,omitempty"`
}

// PaymentReviewResponse lists entries flagged for manual reconciliation
// swagger:model PaymentReviewResponse
type PaymentReviewResponse struct {
	Entries []LedgerEntryDB `json:"entries"`
}

// PaymentErrorResponse represents an error response for payment endpoints
// swagger:model PaymentErrorResponse
type PaymentErrorResponse struct {
	// Error message
	Error string `json:"error"`
}
