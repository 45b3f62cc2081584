package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// LockRepository takes PostgreSQL advisory locks.
type LockRepository struct {
	db *sqlx.DB
}

// NewLockRepository constructs a LockRepository.
func NewLockRepository(db *sqlx.DB) *LockRepository {
	return &LockRepository{db: db}
}

// AcquireTx blocks until the transaction-scoped advisory lock for key is held.
// The lock is released when the transaction ends.
func (r *LockRepository) AcquireTx(ctx context.Context, exec sqlx.ExtContext, key int64) error {
	if exec == nil {
		exec = r.db
	}
	if _, err := exec.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, key); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}
	return nil
}
