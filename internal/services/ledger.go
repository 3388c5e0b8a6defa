package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chamapesa/chama-wallet/internal/logger"
	"github.com/chamapesa/chama-wallet/internal/models"
)

var (
	// ErrValidation is returned for malformed operations, rejected before any state change.
	ErrValidation = errors.New("invalid operation")

	// ErrInsufficientFunds is returned when a debit exceeds the source balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrWithdrawalLocked is returned when the acting member's merry-go-round turn is locked.
	ErrWithdrawalLocked = errors.New("withdrawal locked")

	// ErrInvalidStateTransition is returned when an entity has already left the expected state.
	ErrInvalidStateTransition = errors.New("invalid state transition")
)

// WalletLocker serializes wallet access for the ledger engine.
type WalletLocker interface {
	LockForUpdate(ctx context.Context, keys ...models.WalletKey) (map[string]*models.WalletDB, error) // Locks wallet rows in fixed order
	SetBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error                // Writes a locked wallet's balance
}

// EntryStore appends and resolves ledger entries.
type EntryStore interface {
	Insert(ctx context.Context, entry *models.LedgerEntryDB) error                                   // Appends an entry
	GetByReferenceForUpdate(ctx context.Context, reference string) (*models.LedgerEntryDB, error)    // Locks the entry carrying a reference
	Complete(ctx context.Context, entryID uuid.UUID, destWalletID *uuid.UUID) error                  // Completes a pending entry
}

// TurnLockChecker reports whether a member's MGR withdrawals are locked.
type TurnLockChecker interface {
	IsLocked(ctx context.Context, chamaID, memberID uuid.UUID) (bool, error)
}

// AuditWriter appends audit log rows.
type AuditWriter interface {
	Insert(ctx context.Context, entry *models.AuditEntryDB) error
}

// TxRunner executes a function inside one database transaction.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// LedgerService is the only writer of wallet balances. Apply is the unit
// of atomicity: validation happens before any state change, and the lock,
// sufficiency check, balance writes, entry insert and audit row share one
// transaction.
type LedgerService struct {
	runner   TxRunner
	wallets  WalletLocker
	entries  EntryStore
	schedule TurnLockChecker
	audit    AuditWriter
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(runner TxRunner, wallets WalletLocker, entries EntryStore, schedule TurnLockChecker, audit AuditWriter) *LedgerService {
	return &LedgerService{
		runner:   runner,
		wallets:  wallets,
		entries:  entries,
		schedule: schedule,
		audit:    audit,
	}
}

// validate rejects malformed operations before any state is touched.
func validate(op models.Operation) error {
	if !op.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if op.ActorID == uuid.Nil {
		return fmt.Errorf("%w: missing actor", ErrValidation)
	}

	checkKey := func(key *models.WalletKey) error {
		if !key.Kind.Valid() {
			return fmt.Errorf("%w: unknown wallet kind %q", ErrValidation, key.Kind)
		}
		if key.OwnerID == uuid.Nil {
			return fmt.Errorf("%w: missing wallet owner", ErrValidation)
		}
		if key.Kind == models.WalletCentral && key.ChamaID != nil {
			return fmt.Errorf("%w: central wallet is chama-independent", ErrValidation)
		}
		if key.Kind != models.WalletCentral && key.ChamaID == nil {
			return fmt.Errorf("%w: chama wallet requires a chama", ErrValidation)
		}
		return nil
	}

	switch op.Kind {
	case models.OpTopup, models.OpVerifyCredit, models.OpGatewayCredit:
		if op.Source != nil || op.Destination == nil {
			return fmt.Errorf("%w: %s requires a destination and no source", ErrValidation, op.Kind)
		}
		return checkKey(op.Destination)
	case models.OpWithdraw:
		if op.Source == nil || op.Destination != nil {
			return fmt.Errorf("%w: withdraw requires a source and no destination", ErrValidation)
		}
		return checkKey(op.Source)
	case models.OpSend:
		if op.Source == nil || op.Destination == nil {
			return fmt.Errorf("%w: send requires a source and a destination", ErrValidation)
		}
		if err := checkKey(op.Source); err != nil {
			return err
		}
		if err := checkKey(op.Destination); err != nil {
			return err
		}
		if op.Source.ChamaID == nil || op.Destination.ChamaID == nil || *op.Source.ChamaID != *op.Destination.ChamaID {
			return fmt.Errorf("%w: send requires both wallets in the same chama", ErrValidation)
		}
		if op.Source.LockKey() == op.Destination.LockKey() {
			return fmt.Errorf("%w: send requires two distinct wallets", ErrValidation)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown operation kind %q", ErrValidation, op.Kind)
}

// Apply validates and atomically applies a fund-movement operation,
// returning the completed ledger entry. A second apply with an external
// reference that already completed returns the prior entry unchanged.
func (s *LedgerService) Apply(ctx context.Context, op models.Operation) (*models.LedgerEntryDB, error) {
	if err := validate(op); err != nil {
		return nil, err
	}

	var entry *models.LedgerEntryDB
	err := s.runner.Run(ctx, func(ctx context.Context) error {
		if op.ExternalReference != nil {
			prior, err := s.entries.GetByReferenceForUpdate(ctx, *op.ExternalReference)
			if err != nil {
				return err
			}
			if prior != nil {
				switch prior.Status {
				case models.EntryCompleted:
					// Idempotency hit: the credit was already applied.
					logger.Log.Infow("duplicate operation, returning prior entry",
						"reference", *op.ExternalReference, "entry_id", prior.EntryID)
					entry = prior
					return nil
				case models.EntryFailed:
					return fmt.Errorf("%w: entry %s already failed", ErrInvalidStateTransition, prior.EntryID)
				case models.EntryPending:
					completed, err := s.completePending(ctx, op, prior)
					if err != nil {
						return err
					}
					entry = completed
					return nil
				}
			}
		}

		fresh, err := s.applyFresh(ctx, op)
		if err != nil {
			return err
		}
		entry = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// completePending finishes a pending gateway entry: credit the destination
// and flip the entry to completed in the same transaction.
func (s *LedgerService) completePending(ctx context.Context, op models.Operation, prior *models.LedgerEntryDB) (*models.LedgerEntryDB, error) {
	wallets, err := s.wallets.LockForUpdate(ctx, *op.Destination)
	if err != nil {
		return nil, err
	}
	dest := wallets[op.Destination.LockKey()]

	newBalance := dest.Balance.Add(op.Amount)
	if err := s.wallets.SetBalance(ctx, dest.WalletID, newBalance); err != nil {
		return nil, err
	}
	if err := s.entries.Complete(ctx, prior.EntryID, &dest.WalletID); err != nil {
		return nil, err
	}
	if err := s.writeAudit(ctx, op, dest.ChamaID, dest.Balance, newBalance); err != nil {
		return nil, err
	}

	completed := *prior
	completed.Status = models.EntryCompleted
	completed.DestWalletID = &dest.WalletID
	completed.UpdatedAt = time.Now()
	return &completed, nil
}

// applyFresh applies an operation with no prior entry for its reference.
func (s *LedgerService) applyFresh(ctx context.Context, op models.Operation) (*models.LedgerEntryDB, error) {
	keys := make([]models.WalletKey, 0, 2)
	if op.Source != nil {
		keys = append(keys, *op.Source)
	}
	if op.Destination != nil {
		keys = append(keys, *op.Destination)
	}

	wallets, err := s.wallets.LockForUpdate(ctx, keys...)
	if err != nil {
		return nil, err
	}

	entry := &models.LedgerEntryDB{
		EntryID:           uuid.New(),
		Kind:              op.Kind,
		ActorID:           op.ActorID,
		Amount:            op.Amount,
		Status:            models.EntryCompleted,
		ExternalReference: op.ExternalReference,
	}

	var chamaID *uuid.UUID
	var oldBalance, newBalance decimal.Decimal

	if op.Source != nil {
		source := wallets[op.Source.LockKey()]

		if source.Kind == models.WalletChamaMGR {
			locked, err := s.schedule.IsLocked(ctx, *source.ChamaID, op.ActorID)
			if err != nil {
				return nil, err
			}
			if locked {
				return nil, ErrWithdrawalLocked
			}
		}

		if source.Balance.LessThan(op.Amount) {
			return nil, ErrInsufficientFunds
		}

		oldBalance, newBalance = source.Balance, source.Balance.Sub(op.Amount)
		if err := s.wallets.SetBalance(ctx, source.WalletID, newBalance); err != nil {
			return nil, err
		}
		entry.SourceWalletID = &source.WalletID
		chamaID = source.ChamaID
	}

	if op.Destination != nil {
		dest := wallets[op.Destination.LockKey()]

		destNew := dest.Balance.Add(op.Amount)
		if err := s.wallets.SetBalance(ctx, dest.WalletID, destNew); err != nil {
			return nil, err
		}
		entry.DestWalletID = &dest.WalletID
		if op.Source == nil {
			oldBalance, newBalance = dest.Balance, destNew
			chamaID = dest.ChamaID
		}
	}

	if err := s.entries.Insert(ctx, entry); err != nil {
		return nil, err
	}
	if err := s.writeAudit(ctx, op, chamaID, oldBalance, newBalance); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *LedgerService) writeAudit(ctx context.Context, op models.Operation, chamaID *uuid.UUID, oldBalance, newBalance decimal.Decimal) error {
	oldValue, _ := json.Marshal(map[string]string{"balance": oldBalance.String()})
	newValue, _ := json.Marshal(map[string]string{"balance": newBalance.String(), "amount": op.Amount.String()})

	return s.audit.Insert(ctx, &models.AuditEntryDB{
		AuditID:  uuid.New(),
		ActorID:  op.ActorID,
		ChamaID:  chamaID,
		Action:   "ledger." + string(op.Kind),
		OldValue: oldValue,
		NewValue: newValue,
	})
}
