package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-analytics-api/internal/models"
)

// TestRepository manages exam sittings keyed by code.
type TestRepository struct {
	db *sqlx.DB
}

// NewTestRepository constructs a TestRepository.
func NewTestRepository(db *sqlx.DB) *TestRepository {
	return &TestRepository{db: db}
}

func (r *TestRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Upsert inserts the test or overwrites every attribute of an existing one.
func (r *TestRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, test *models.Test) error {
	const query = `INSERT INTO tests (code, test_date, test_type, institution_id, batch_id)
VALUES (:code, :test_date, :test_type, :institution_id, :batch_id)
ON CONFLICT (code) DO UPDATE
SET test_date = EXCLUDED.test_date,
    test_type = EXCLUDED.test_type,
    institution_id = EXCLUDED.institution_id,
    batch_id = EXCLUDED.batch_id`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, test); err != nil {
		return fmt.Errorf("upsert test: %w", err)
	}
	return nil
}

// ExistsByCode reports whether a test with the code is stored.
func (r *TestRepository) ExistsByCode(ctx context.Context, exec sqlx.ExtContext, code string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM tests WHERE code = $1)`
	var exists bool
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query, code); err != nil {
		return false, fmt.Errorf("check test code: %w", err)
	}
	return exists, nil
}
