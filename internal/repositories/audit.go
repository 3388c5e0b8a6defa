package repositories

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/chamapesa/chama-wallet/internal/logger"
	"github.com/chamapesa/chama-wallet/internal/models"
	"github.com/chamapesa/chama-wallet/internal/tx"
)

// AuditRepository appends immutable audit log rows. Rows are written in
// the same transaction as the mutation they record.
type AuditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert writes an audit entry.
func (r *AuditRepository) Insert(ctx context.Context, entry *models.AuditEntryDB) error {
	query := `
		INSERT INTO audit_log (audit_id, actor_id, chama_id, action, old_value, new_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`

	executor := tx.Executor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		entry.AuditID, entry.ActorID, entry.ChamaID, entry.Action, entry.OldValue, entry.NewValue)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{entry.AuditID, entry.ActorID, entry.ChamaID, entry.Action},
		"error", err,
	)

	return err
}
