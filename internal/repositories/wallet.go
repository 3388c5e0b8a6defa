package repositories

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/chamapesa/chama-wallet/internal/logger"
	"github.com/chamapesa/chama-wallet/internal/models"
	"github.com/chamapesa/chama-wallet/internal/tx"
)

// WalletRepository reads and mutates wallet rows. Balance mutation goes
// through LockForUpdate followed by SetBalance inside one transaction;
// only the ledger engine calls the mutating methods.
type WalletRepository struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// ensure creates the wallet row with a zero balance if it does not exist.
// Wallet rows are created lazily on first reference and never deleted.
func (r *WalletRepository) ensure(ctx context.Context, key models.WalletKey) error {
	query := `
		INSERT INTO wallets (wallet_id, owner_id, chama_id, kind, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, NOW(), NOW())
		ON CONFLICT (owner_id, chama_id, kind) DO NOTHING
	`

	executor := tx.Executor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query, uuid.New(), key.OwnerID, key.ChamaID, key.Kind)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{key.OwnerID, key.ChamaID, key.Kind},
		"error", err,
	)

	return err
}

// lockOne ensures the wallet row exists and acquires its row lock.
func (r *WalletRepository) lockOne(ctx context.Context, key models.WalletKey) (*models.WalletDB, error) {
	if err := r.ensure(ctx, key); err != nil {
		return nil, err
	}

	query := `
		SELECT wallet_id, owner_id, chama_id, kind, balance, created_at, updated_at
		FROM wallets
		WHERE owner_id = $1 AND chama_id IS NOT DISTINCT FROM $2 AND kind = $3
		FOR UPDATE
	`

	executor := tx.Executor(ctx, r.db)

	var wallet models.WalletDB
	err := sqlx.GetContext(ctx, executor, &wallet, query, key.OwnerID, key.ChamaID, key.Kind)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{key.OwnerID, key.ChamaID, key.Kind},
		"error", err,
	)

	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// LockForUpdate acquires FOR UPDATE locks on the given wallets, creating
// rows lazily. Locks are taken in ascending LockKey order so concurrent
// two-wallet operations cannot deadlock. Returns wallets keyed by LockKey.
func (r *WalletRepository) LockForUpdate(ctx context.Context, keys ...models.WalletKey) (map[string]*models.WalletDB, error) {
	ordered := make([]models.WalletKey, len(keys))
	copy(ordered, keys)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].LockKey() < ordered[j].LockKey()
	})

	wallets := make(map[string]*models.WalletDB, len(ordered))
	for _, key := range ordered {
		if _, ok := wallets[key.LockKey()]; ok {
			continue
		}
		wallet, err := r.lockOne(ctx, key)
		if err != nil {
			return nil, err
		}
		wallets[key.LockKey()] = wallet
	}
	return wallets, nil
}

// SetBalance writes a new balance for a locked wallet row.
func (r *WalletRepository) SetBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error {
	query := `
		UPDATE wallets
		SET balance = $2, updated_at = NOW()
		WHERE wallet_id = $1
	`

	executor := tx.Executor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query, walletID, balance)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{walletID, balance},
		"error", err,
	)

	return err
}

// GetOrCreate returns the wallet row for a key, creating it lazily.
// No lock is taken; balance mutation still requires LockForUpdate.
func (r *WalletRepository) GetOrCreate(ctx context.Context, key models.WalletKey) (*models.WalletDB, error) {
	if err := r.ensure(ctx, key); err != nil {
		return nil, err
	}

	query := `
		SELECT wallet_id, owner_id, chama_id, kind, balance, created_at, updated_at
		FROM wallets
		WHERE owner_id = $1 AND chama_id IS NOT DISTINCT FROM $2 AND kind = $3
	`

	executor := tx.Executor(ctx, r.db)

	var wallet models.WalletDB
	err := sqlx.GetContext(ctx, executor, &wallet, query, key.OwnerID, key.ChamaID, key.Kind)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{key.OwnerID, key.ChamaID, key.Kind},
		"error", err,
	)

	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// GetByID retrieves a wallet row by its id.
func (r *WalletRepository) GetByID(ctx context.Context, walletID uuid.UUID) (*models.WalletDB, error) {
	const query = `
		SELECT wallet_id, owner_id, chama_id, kind, balance, created_at, updated_at
		FROM wallets
		WHERE wallet_id = $1
	`

	var wallet models.WalletDB
	err := r.db.GetContext(ctx, &wallet, query, walletID)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{walletID},
		"error", err,
	)

	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// GetByOwner retrieves all wallets owned by a user.
func (r *WalletRepository) GetByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.WalletDB, error) {
	const query = `
		SELECT wallet_id, owner_id, chama_id, kind, balance, created_at, updated_at
		FROM wallets
		WHERE owner_id = $1
		ORDER BY kind, chama_id
	`

	var wallets []models.WalletDB
	err := r.db.SelectContext(ctx, &wallets, query, ownerID)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{ownerID},
		"error", err,
	)

	return wallets, err
}
