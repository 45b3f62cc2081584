package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-analytics-api/internal/models"
)

// BatchRepository manages batches scoped to an institution.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository constructs a BatchRepository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

func (r *BatchRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// GetOrCreate returns the batch identified by (name, institution), inserting it when absent.
func (r *BatchRepository) GetOrCreate(ctx context.Context, exec sqlx.ExtContext, name string, institutionID int64) (*models.Batch, error) {
	const query = `INSERT INTO batches (name, institution_id) VALUES ($1, $2)
ON CONFLICT (name, institution_id) DO UPDATE SET name = EXCLUDED.name
RETURNING id, name, institution_id`
	var batch models.Batch
	if err := sqlx.GetContext(ctx, r.exec(exec), &batch, query, name, institutionID); err != nil {
		return nil, fmt.Errorf("get or create batch: %w", err)
	}
	return &batch, nil
}
