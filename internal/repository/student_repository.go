package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-analytics-api/internal/models"
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

func (r *StudentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// GetOrCreate inserts the student when its id is unknown. Existing rows are left untouched.
// It reports whether a row was created.
func (r *StudentRepository) GetOrCreate(ctx context.Context, exec sqlx.ExtContext, student *models.Student) (bool, error) {
	const query = `INSERT INTO students (id, name, class, section, external_id)
VALUES (:id, :name, :class, :section, :external_id)
ON CONFLICT (id) DO NOTHING`
	res, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, student)
	if err != nil {
		return false, fmt.Errorf("get or create student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get or create student rows affected: %w", err)
	}
	return affected > 0, nil
}
