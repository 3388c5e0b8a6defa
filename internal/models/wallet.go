package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletKind distinguishes the logical wallets a member can hold.
type WalletKind string

// Supported wallet kinds
const (
	WalletCentral      WalletKind = "central"       // platform-wide cash balance, chama-independent
	WalletChamaSavings WalletKind = "chama_savings" // savings balance within one chama
	WalletChamaMGR     WalletKind = "chama_mgr"     // merry-go-round balance within one chama
)

// Valid reports whether the kind is one of the supported wallet kinds.
func (k WalletKind) Valid() bool {
	switch k {
	case WalletCentral, WalletChamaSavings, WalletChamaMGR:
		return true
	}
	return false
}

// WalletKey identifies a wallet by owner, chama and kind.
// ChamaID is nil for the central wallet.
type WalletKey struct {
	OwnerID uuid.UUID
	ChamaID *uuid.UUID
	Kind    WalletKind
}

// LockKey returns a stable string used to order row locks.
// Operations touching two wallets acquire them in ascending LockKey order.
func (k WalletKey) LockKey() string {
	chama := ""
	if k.ChamaID != nil {
		chama = k.ChamaID.String()
	}
	return fmt.Sprintf("%s|%s|%s", k.OwnerID, chama, k.Kind)
}

// WalletDB represents a wallet row in the database
type WalletDB struct {
	WalletID  uuid.UUID       `json:"wallet_id" db:"wallet_id"`
	OwnerID   uuid.UUID       `json:"owner_id" db:"owner_id"`
	ChamaID   *uuid.UUID      `json:"chama_id,omitempty" db:"chama_id"`
	Kind      WalletKind      `json:"kind" db:"kind"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// Key returns the identifying key of the wallet row.
func (w WalletDB) Key() WalletKey {
	return WalletKey{OwnerID: w.OwnerID, ChamaID: w.ChamaID, Kind: w.Kind}
}

// WalletBalance is one wallet's balance in a balance response
// swagger:model WalletBalance
type WalletBalance struct {
	// Wallet kind
	// example: chama_savings
	Kind WalletKind `json:"kind"`

	// Chama the wallet belongs to, absent for the central wallet
	ChamaID *uuid.UUID `json:"chama_id,omitempty"`

	// Current balance
	// example: 1500.00
	Balance decimal.Decimal `json:"balance"`
}

// BalanceResponse lists the caller's wallet balances
// swagger:model BalanceResponse
type BalanceResponse struct {
	Wallets []WalletBalance `json:"wallets"`
}

// BalanceErrorResponse represents an error response for balance retrieval
// swagger:model BalanceErrorResponse
type BalanceErrorResponse struct {
	// Error message
	Error string `json:"error"`
}
