package tx

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/chamapesa/chama-wallet/internal/logger"
)

// contextKey is an unexported type for keys in context
type contextKey struct{}

var txKey = contextKey{}

// setTxToContext stores a transaction in the context
func setTxToContext(ctx context.Context, t *sqlx.Tx) context.Context {
	return context.WithValue(ctx, txKey, t)
}

// FromContext retrieves the transaction from the context. Returns nil if not present.
func FromContext(ctx context.Context) *sqlx.Tx {
	t, _ := ctx.Value(txKey).(*sqlx.Tx)
	return t
}

// Executor returns the context transaction if one is open, otherwise the db itself.
func Executor(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if t := FromContext(ctx); t != nil {
		return t
	}
	return db
}

// Manager hands services a Run method bound to one database.
type Manager struct {
	db *sqlx.DB
}

func NewManager(db *sqlx.DB) *Manager {
	return &Manager{db: db}
}

// Run executes fn inside a transaction carried through the context.
func (m *Manager) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return Run(ctx, m.db, fn)
}

// Run executes fn inside a database transaction carried through the context.
// If the context already holds a transaction, fn joins it and commit/rollback
// is left to the outer Run call.
func Run(ctx context.Context, db *sqlx.DB, fn func(ctx context.Context) error) error {
	if FromContext(ctx) != nil {
		return fn(ctx)
	}

	t, err := db.BeginTxx(ctx, nil)
	if err != nil {
		logger.Log.Errorw("failed to begin transaction", "error", err)
		return err
	}

	defer func() {
		if rec := recover(); rec != nil {
			t.Rollback()
			panic(rec)
		}
	}()

	if err := fn(setTxToContext(ctx, t)); err != nil {
		if rbErr := t.Rollback(); rbErr != nil {
			logger.Log.Errorw("failed to rollback transaction", "error", rbErr)
		}
		return err
	}

	if err := t.Commit(); err != nil {
		logger.Log.Errorw("failed to commit transaction", "error", err)
		return err
	}
	return nil
}
