package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-analytics-api/internal/models"
)

// InstitutionRepository manages institutions.
type InstitutionRepository struct {
	db *sqlx.DB
}

// NewInstitutionRepository constructs an InstitutionRepository.
func NewInstitutionRepository(db *sqlx.DB) *InstitutionRepository {
	return &InstitutionRepository{db: db}
}

func (r *InstitutionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// GetOrCreate returns the institution with the given name, inserting it when absent.
func (r *InstitutionRepository) GetOrCreate(ctx context.Context, exec sqlx.ExtContext, name string) (*models.Institution, error) {
	const query = `INSERT INTO institutions (name) VALUES ($1)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING id, name`
	var institution models.Institution
	if err := sqlx.GetContext(ctx, r.exec(exec), &institution, query, name); err != nil {
		return nil, fmt.Errorf("get or create institution: %w", err)
	}
	return &institution, nil
}
