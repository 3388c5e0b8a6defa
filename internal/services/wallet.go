package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/chamapesa/chama-wallet/internal/authz"
	"github.com/chamapesa/chama-wallet/internal/logger"
	"github.com/chamapesa/chama-wallet/internal/models"
)

// LedgerApplier applies fund-movement operations atomically.
type LedgerApplier interface {
	Apply(ctx context.Context, op models.Operation) (*models.LedgerEntryDB, error)
}

// WalletReader reads a user's wallets.
type WalletReader interface {
	GetByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.WalletDB, error)
}

// WalletService fronts member-initiated fund movements. It resolves the
// actor's role, checks the capability table, and hands validated
// operations to the ledger engine.
type WalletService struct {
	ledger LedgerApplier
	reader WalletReader
	roles  RoleResolver
}

// NewWalletService creates a new WalletService.
func NewWalletService(ledger LedgerApplier, reader WalletReader, roles RoleResolver) *WalletService {
	return &WalletService{
		ledger: ledger,
		reader: reader,
		roles:  roles,
	}
}

func (s *WalletService) authorize(ctx context.Context, chamaID *uuid.UUID, actorID uuid.UUID, action authz.Action) error {
	role, err := s.roles.Resolve(ctx, chamaID, actorID)
	if err != nil {
		return err
	}
	if !authz.CanPerform(role, action) {
		return ErrForbidden
	}
	return nil
}

// Topup records a manual top-up into one of the actor's own wallets.
func (s *WalletService) Topup(ctx context.Context, actorID uuid.UUID, req models.TopupRequest) (*models.LedgerEntryDB, error) {
	if err := s.authorize(ctx, req.ChamaID, actorID, authz.ActionMoveOwnFunds); err != nil {
		return nil, err
	}

	entry, err := s.ledger.Apply(ctx, models.Operation{
		Kind:    models.OpTopup,
		ActorID: actorID,
		Destination: &models.WalletKey{
			OwnerID: actorID,
			ChamaID: req.ChamaID,
			Kind:    req.Kind,
		},
		Amount: req.Amount,
	})
	if err != nil {
		logger.Log.Errorw("failed to top up wallet", "actorID", actorID, "amount", req.Amount, "error", err)
		return nil, err
	}
	return entry, nil
}

// Withdraw debits one of the actor's own wallets.
func (s *WalletService) Withdraw(ctx context.Context, actorID uuid.UUID, req models.WithdrawRequest) (*models.LedgerEntryDB, error) {
	if err := s.authorize(ctx, req.ChamaID, actorID, authz.ActionMoveOwnFunds); err != nil {
		return nil, err
	}

	entry, err := s.ledger.Apply(ctx, models.Operation{
		Kind:    models.OpWithdraw,
		ActorID: actorID,
		Source: &models.WalletKey{
			OwnerID: actorID,
			ChamaID: req.ChamaID,
			Kind:    req.Kind,
		},
		Amount: req.Amount,
	})
	if err != nil {
		logger.Log.Errorw("failed to withdraw", "actorID", actorID, "amount", req.Amount, "error", err)
		return nil, err
	}
	return entry, nil
}

// Send moves funds from the actor's wallet to another member's wallet in
// the same chama.
func (s *WalletService) Send(ctx context.Context, actorID uuid.UUID, req models.SendRequest) (*models.LedgerEntryDB, error) {
	chamaID := req.ChamaID
	if err := s.authorize(ctx, &chamaID, actorID, authz.ActionMoveOwnFunds); err != nil {
		return nil, err
	}

	// The destination member must belong to the chama, otherwise the
	// destination wallet is not resolvable for a send.
	if _, err := s.roles.Resolve(ctx, &chamaID, req.ToMemberID); err != nil {
		return nil, err
	}

	entry, err := s.ledger.Apply(ctx, models.Operation{
		Kind:    models.OpSend,
		ActorID: actorID,
		Source: &models.WalletKey{
			OwnerID: actorID,
			ChamaID: &chamaID,
			Kind:    req.FromKind,
		},
		Destination: &models.WalletKey{
			OwnerID: req.ToMemberID,
			ChamaID: &chamaID,
			Kind:    req.ToKind,
		},
		Amount: req.Amount,
	})
	if err != nil {
		logger.Log.Errorw("failed to send funds", "actorID", actorID, "toMemberID", req.ToMemberID, "amount", req.Amount, "error", err)
		return nil, err
	}
	return entry, nil
}

// GetBalances returns the actor's wallet balances.
func (s *WalletService) GetBalances(ctx context.Context, actorID uuid.UUID) ([]models.WalletBalance, error) {
	wallets, err := s.reader.GetByOwner(ctx, actorID)
	if err != nil {
		logger.Log.Errorw("failed to get balances", "actorID", actorID, "error", err)
		return nil, err
	}

	balances := make([]models.WalletBalance, 0, len(wallets))
	for _, w := range wallets {
		balances = append(balances, models.WalletBalance{
			Kind:    w.Kind,
			ChamaID: w.ChamaID,
			Balance: w.Balance,
		})
	}
	return balances, nil
}
