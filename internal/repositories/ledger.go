package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/chamapesa/chama-wallet/internal/logger"
	"github.com/chamapesa/chama-wallet/internal/models"
	"github.com/chamapesa/chama-wallet/internal/tx"
)

// ErrEntryNotPending is returned when a terminal entry is asked to change state.
var ErrEntryNotPending = errors.New("ledger entry is not pending")

// LedgerRepository appends and resolves ledger entries. Entries are
// append-only: after completed or failed nothing changes them.
type LedgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Insert writes a new ledger entry.
func (r *LedgerRepository) Insert(ctx context.Context, entry *models.LedgerEntryDB) error {
	query := `
		INSERT INTO ledger_entries
			(entry_id, kind, source_wallet_id, dest_wallet_id, actor_id, amount, status, external_reference, provider, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`

	executor := tx.Executor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		entry.EntryID, entry.Kind, entry.SourceWalletID, entry.DestWalletID,
		entry.ActorID, entry.Amount, entry.Status, entry.ExternalReference, entry.Provider)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{entry.EntryID, entry.Kind, entry.Amount, entry.Status, entry.ExternalReference},
		"error", err,
	)

	return err
}

// GetByReference retrieves the entry carrying an external reference.
// Returns nil when no entry exists.
func (r *LedgerRepository) GetByReference(ctx context.Context, reference string) (*models.LedgerEntryDB, error) {
	return r.getByReference(ctx, reference, false)
}

// GetByReferenceForUpdate is GetByReference under a row lock, serializing
// concurrent reconciliation attempts against the same payment.
func (r *LedgerRepository) GetByReferenceForUpdate(ctx context.Context, reference string) (*models.LedgerEntryDB, error) {
	return r.getByReference(ctx, reference, true)
}

func (r *LedgerRepository) getByReference(ctx context.Context, reference string, lock bool) (*models.LedgerEntryDB, error) {
	query := `
		SELECT entry_id, kind, source_wallet_id, dest_wallet_id, actor_id, amount, status, external_reference, provider, needs_review, created_at, updated_at
		FROM ledger_entries
		WHERE external_reference = $1
	`
	if lock {
		query += ` FOR UPDATE`
	}

	executor := tx.Executor(ctx, r.db)

	var entry models.LedgerEntryDB
	err := sqlx.GetContext(ctx, executor, &entry, query, reference)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{reference},
		"error", err,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// Complete transitions a pending entry to completed and records the
// destination wallet the funds landed in.
func (r *LedgerRepository) Complete(ctx context.Context, entryID uuid.UUID, destWalletID *uuid.UUID) error {
	return r.finish(ctx, entryID, models.EntryCompleted, destWalletID)
}

// Fail transitions a pending entry to failed.
func (r *LedgerRepository) Fail(ctx context.Context, entryID uuid.UUID) error {
	return r.finish(ctx, entryID, models.EntryFailed, nil)
}

func (r *LedgerRepository) finish(ctx context.Context, entryID uuid.UUID, status models.EntryStatus, destWalletID *uuid.UUID) error {
	query := `
		UPDATE ledger_entries
		SET status = $2, dest_wallet_id = COALESCE($3, dest_wallet_id), updated_at = NOW()
		WHERE entry_id = $1 AND status = 'pending'
	`

	executor := tx.Executor(ctx, r.db)
	res, err := executor.ExecContext(ctx, query, entryID, status, destWalletID)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{entryID, status},
		"error", err,
	)

	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrEntryNotPending
	}
	return nil
}

// ListPendingGateway retrieves pending gateway-credit entries, used to
// resume reconciliation after a restart.
func (r *LedgerRepository) ListPendingGateway(ctx context.Context) ([]models.LedgerEntryDB, error) {
	const query = `
		SELECT entry_id, kind, source_wallet_id, dest_wallet_id, actor_id, amount, status, external_reference, provider, needs_review, created_at, updated_at
		FROM ledger_entries
		WHERE kind = 'gateway-credit' AND status = 'pending'
		ORDER BY created_at
	`

	var entries []models.LedgerEntryDB
	err := r.db.SelectContext(ctx, &entries, query)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"error", err,
	)

	return entries, err
}

// FlagStalePending marks pending gateway credits older than maxAge for
// manual operator reconciliation. Returns the number of entries flagged.
func (r *LedgerRepository) FlagStalePending(ctx context.Context, maxAge time.Duration) (int64, error) {
	query := `
		UPDATE ledger_entries
		SET needs_review = TRUE, updated_at = NOW()
		WHERE kind = 'gateway-credit' AND status = 'pending'
			AND NOT needs_review AND created_at < NOW() - $1::interval
	`

	res, err := r.db.ExecContext(ctx, query, maxAge.String())

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{maxAge.String()},
		"error", err,
	)

	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListNeedsReview retrieves entries flagged for manual reconciliation.
func (r *LedgerRepository) ListNeedsReview(ctx context.Context) ([]models.LedgerEntryDB, error) {
	const query = `
		SELECT entry_id, kind, source_wallet_id, dest_wallet_id, actor_id, amount, status, external_reference, provider, needs_review, created_at, updated_at
		FROM ledger_entries
		WHERE needs_review AND status = 'pending'
		ORDER BY created_at
	`

	var entries []models.LedgerEntryDB
	err := r.db.SelectContext(ctx, &entries, query)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"error", err,
	)

	return entries, err
}
