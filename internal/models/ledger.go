package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OperationKind tags a fund-movement operation.
type OperationKind string

// Supported operation kinds
const (
	OpTopup         OperationKind = "topup"          // external funding into a wallet
	OpWithdraw      OperationKind = "withdraw"       // payout from a wallet to the outside
	OpSend          OperationKind = "send"           // transfer between two wallets in one chama
	OpVerifyCredit  OperationKind = "verify-credit"  // credit from a verified contribution
	OpGatewayCredit OperationKind = "gateway-credit" // credit confirmed by a payment gateway
)

// EntryStatus is the lifecycle state of a ledger entry.
type EntryStatus string

// Ledger entry statuses
const (
	EntryPending   EntryStatus = "pending"
	EntryCompleted EntryStatus = "completed"
	EntryFailed    EntryStatus = "failed"
)

// Operation is a validated fund-movement request handed to the ledger engine.
// Source is nil for external funding, Destination is nil for external payout.
type Operation struct {
	Kind              OperationKind
	ActorID           uuid.UUID
	Source            *WalletKey
	Destination       *WalletKey
	Amount            decimal.Decimal
	ExternalReference *string
}

// LedgerEntryDB represents a ledger entry row in the database.
// Entries are append-only; only status and the external reference
// change after insert, and never after completed/failed.
type LedgerEntryDB struct {
	EntryID           uuid.UUID       `json:"entry_id" db:"entry_id"`
	Kind              OperationKind   `json:"kind" db:"kind"`
	SourceWalletID    *uuid.UUID      `json:"source_wallet_id,omitempty" db:"source_wallet_id"`
	DestWalletID      *uuid.UUID      `json:"dest_wallet_id,omitempty" db:"dest_wallet_id"`
	ActorID           uuid.UUID       `json:"actor_id" db:"actor_id"`
	Amount            decimal.Decimal `json:"amount" db:"amount"`
	Status            EntryStatus     `json:"status" db:"status"`
	ExternalReference *string         `json:"external_reference,omitempty" db:"external_reference"`
	Provider          *string         `json:"provider,omitempty" db:"provider"`
	NeedsReview       bool            `json:"needs_review" db:"needs_review"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}
