package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/chamapesa/chama-wallet/internal/logger"
	"github.com/chamapesa/chama-wallet/internal/models"
	"github.com/chamapesa/chama-wallet/internal/tx"
)

// ScheduleRepository stores the merry-go-round rotation per chama.
type ScheduleRepository struct {
	db *sqlx.DB
}

func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// List retrieves the rotation in position order.
func (r *ScheduleRepository) List(ctx context.Context, chamaID uuid.UUID) ([]models.TurnMemberDB, error) {
	return r.list(ctx, chamaID, false)
}

// ListForUpdate retrieves the rotation under row locks. Advance and
// lock-all go through this so schedule mutations are serialized per chama.
func (r *ScheduleRepository) ListForUpdate(ctx context.Context, chamaID uuid.UUID) ([]models.TurnMemberDB, error) {
	return r.list(ctx, chamaID, true)
}

func (r *ScheduleRepository) list(ctx context.Context, chamaID uuid.UUID, lock bool) ([]models.TurnMemberDB, error) {
	query := `
		SELECT chama_id, member_id, position, withdrawal_locked, created_at, updated_at
		FROM turn_schedule
		WHERE chama_id = $1
		ORDER BY position
	`
	if lock {
		query += ` FOR UPDATE`
	}

	executor := tx.Executor(ctx, r.db)

	var members []models.TurnMemberDB
	err := sqlx.SelectContext(ctx, executor, &members, query, chamaID)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{chamaID},
		"error", err,
	)

	return members, err
}

// SetLocked flips one member's withdrawal lock.
func (r *ScheduleRepository) SetLocked(ctx context.Context, chamaID, memberID uuid.UUID, locked bool) error {
	query := `
		UPDATE turn_schedule
		SET withdrawal_locked = $3, updated_at = NOW()
		WHERE chama_id = $1 AND member_id = $2
	`

	executor := tx.Executor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query, chamaID, memberID, locked)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{chamaID, memberID, locked},
		"error", err,
	)

	return err
}

// LockAll locks every member in the chama's rotation.
func (r *ScheduleRepository) LockAll(ctx context.Context, chamaID uuid.UUID) error {
	query := `
		UPDATE turn_schedule
		SET withdrawal_locked = TRUE, updated_at = NOW()
		WHERE chama_id = $1
	`

	executor := tx.Executor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query, chamaID)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{chamaID},
		"error", err,
	)

	return err
}

// Append adds a member at the end of the rotation, locked.
func (r *ScheduleRepository) Append(ctx context.Context, chamaID, memberID uuid.UUID) error {
	query := `
		INSERT INTO turn_schedule (chama_id, member_id, position, withdrawal_locked, created_at, updated_at)
		SELECT $1, $2, COALESCE(MAX(position), 0) + 1, TRUE, NOW(), NOW()
		FROM turn_schedule
		WHERE chama_id = $1
		ON CONFLICT (chama_id, member_id) DO NOTHING
	`

	executor := tx.Executor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query, chamaID, memberID)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{chamaID, memberID},
		"error", err,
	)

	return err
}

// IsLocked reports whether a member's MGR withdrawals are locked.
// A member absent from the rotation is locked.
func (r *ScheduleRepository) IsLocked(ctx context.Context, chamaID, memberID uuid.UUID) (bool, error) {
	query := `
		SELECT withdrawal_locked
		FROM turn_schedule
		WHERE chama_id = $1 AND member_id = $2
	`

	executor := tx.Executor(ctx, r.db)

	var locked bool
	err := sqlx.GetContext(ctx, executor, &locked, query, chamaID, memberID)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{chamaID, memberID},
		"error", err,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return true, nil
		}
		return false, err
	}
	return locked, nil
}
