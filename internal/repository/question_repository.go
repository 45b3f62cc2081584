package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-analytics-api/internal/models"
)

// QuestionRepository manages answer-key questions.
type QuestionRepository struct {
	db *sqlx.DB
}

// NewQuestionRepository constructs a QuestionRepository.
func NewQuestionRepository(db *sqlx.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

func (r *QuestionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Upsert stores the question keyed by (test, number), replacing its answer and subject.
func (r *QuestionRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, question *models.Question) error {
	const query = `INSERT INTO questions (test_code, question_number, correct_option, subject_tag)
VALUES (:test_code, :question_number, :correct_option, :subject_tag)
ON CONFLICT (test_code, question_number) DO UPDATE
SET correct_option = EXCLUDED.correct_option,
    subject_tag = EXCLUDED.subject_tag`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, question); err != nil {
		return fmt.Errorf("upsert question: %w", err)
	}
	return nil
}

// Get returns the question for a test and number.
func (r *QuestionRepository) Get(ctx context.Context, testCode string, number int) (*models.Question, error) {
	const query = `SELECT id, test_code, question_number, correct_option, subject_tag FROM questions WHERE test_code = $1 AND question_number = $2`
	var question models.Question
	if err := r.db.GetContext(ctx, &question, query, testCode, number); err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	return &question, nil
}
