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

// ErrRoleNotFound is returned when a member holds no role in the chama.
var ErrRoleNotFound = errors.New("role assignment not found")

// RoleReadRepository looks up role assignments.
type RoleReadRepository struct {
	db *sqlx.DB
}

func NewRoleReadRepository(db *sqlx.DB) *RoleReadRepository {
	return &RoleReadRepository{db: db}
}

// GetRole returns the member's role in a chama.
func (r *RoleReadRepository) GetRole(ctx context.Context, chamaID, memberID uuid.UUID) (models.Role, error) {
	query := `
		SELECT role
		FROM role_assignments
		WHERE chama_id = $1 AND member_id = $2
	`

	executor := tx.Executor(ctx, r.db)

	var role models.Role
	err := sqlx.GetContext(ctx, executor, &role, query, chamaID, memberID)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{chamaID, memberID},
		"result", role,
		"error", err,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrRoleNotFound
		}
		return "", err
	}
	return role, nil
}

// RoleWriteRepository mutates role assignments.
type RoleWriteRepository struct {
	db *sqlx.DB
}

func NewRoleWriteRepository(db *sqlx.DB) *RoleWriteRepository {
	return &RoleWriteRepository{db: db}
}

// SetRole upserts the member's role in a chama and returns the previous
// role, empty when the member had none.
func (r *RoleWriteRepository) SetRole(ctx context.Context, chamaID, memberID uuid.UUID, role models.Role) (models.Role, error) {
	query := `
		INSERT INTO role_assignments (chama_id, member_id, role, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (chama_id, member_id)
		DO UPDATE SET role = EXCLUDED.role, updated_at = NOW()
		RETURNING (SELECT role FROM role_assignments WHERE chama_id = $1 AND member_id = $2)
	`

	executor := tx.Executor(ctx, r.db)

	var previous sql.NullString
	err := sqlx.GetContext(ctx, executor, &previous, query, chamaID, memberID, role)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{chamaID, memberID, role},
		"result", previous.String,
		"error", err,
	)

	if err != nil {
		return "", err
	}
	return models.Role(previous.String), nil
}
