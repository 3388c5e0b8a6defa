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

// ErrContributionNotPending is returned when a transition races with a
// concurrent verify/reject and loses.
var ErrContributionNotPending = errors.New("contribution is not pending")

// ContributionRepository stores member contribution claims.
type ContributionRepository struct {
	db *sqlx.DB
}

func NewContributionRepository(db *sqlx.DB) *ContributionRepository {
	return &ContributionRepository{db: db}
}

// Insert writes a new pending contribution.
func (r *ContributionRepository) Insert(ctx context.Context, c *models.ContributionDB) error {
	query := `
		INSERT INTO contributions
			(contribution_id, chama_id, member_id, amount, payment_method, external_reference, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`

	executor := tx.Executor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		c.ContributionID, c.ChamaID, c.MemberID, c.Amount,
		c.PaymentMethod, c.ExternalReference, c.Status, c.Notes)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{c.ContributionID, c.ChamaID, c.MemberID, c.Amount, c.Status},
		"error", err,
	)

	return err
}

// GetForUpdate retrieves a contribution under a row lock so concurrent
// verify/reject attempts are serialized. Returns nil when absent.
func (r *ContributionRepository) GetForUpdate(ctx context.Context, contributionID uuid.UUID) (*models.ContributionDB, error) {
	query := `
		SELECT contribution_id, chama_id, member_id, amount, payment_method, external_reference, status, verifier_id, notes, created_at, updated_at
		FROM contributions
		WHERE contribution_id = $1
		FOR UPDATE
	`

	executor := tx.Executor(ctx, r.db)

	var c models.ContributionDB
	err := sqlx.GetContext(ctx, executor, &c, query, contributionID)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{contributionID},
		"error", err,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// SetStatus transitions a pending contribution to verified or rejected.
func (r *ContributionRepository) SetStatus(ctx context.Context, contributionID uuid.UUID, status models.ContributionStatus, verifierID uuid.UUID, notes string) error {
	query := `
		UPDATE contributions
		SET status = $2, verifier_id = $3, notes = $4, updated_at = NOW()
		WHERE contribution_id = $1 AND status = 'pending'
	`

	executor := tx.Executor(ctx, r.db)
	res, err := executor.ExecContext(ctx, query, contributionID, status, verifierID, notes)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{contributionID, status, verifierID},
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
		return ErrContributionNotPending
	}
	return nil
}

// List retrieves contributions for a chama, optionally narrowed to one
// member and/or one status.
func (r *ContributionRepository) List(ctx context.Context, chamaID uuid.UUID, memberID *uuid.UUID, status *models.ContributionStatus) ([]models.ContributionDB, error) {
	query := `
		SELECT contribution_id, chama_id, member_id, amount, payment_method, external_reference, status, verifier_id, notes, created_at, updated_at
		FROM contributions
		WHERE chama_id = $1
			AND ($2::uuid IS NULL OR member_id = $2)
			AND ($3::text IS NULL OR status = $3)
		ORDER BY created_at DESC
	`

	var contributions []models.ContributionDB
	err := r.db.SelectContext(ctx, &contributions, query, chamaID, memberID, status)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{chamaID, memberID, status},
		"error", err,
	)

	return contributions, err
}
