package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-analytics-api/internal/models"
)

// ResponseRepository manages per-question student responses.
type ResponseRepository struct {
	db *sqlx.DB
}

// NewResponseRepository constructs a ResponseRepository.
func NewResponseRepository(db *sqlx.DB) *ResponseRepository {
	return &ResponseRepository{db: db}
}

func (r *ResponseRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// UpsertBatch writes responses in one statement. Conflicting rows get the new selected option
// and are reset to unscored. Keys must be unique within the batch.
func (r *ResponseRepository) UpsertBatch(ctx context.Context, exec sqlx.ExtContext, responses []models.StudentResponse) error {
	if len(responses) == 0 {
		return nil
	}
	query := `INSERT INTO student_responses (student_id, test_code, question_number, selected_option, is_correct, score_awarded)
VALUES ` + bulkValues(len(responses), "", "", "", "", "", "") + `
ON CONFLICT (student_id, test_code, question_number) DO UPDATE
SET selected_option = EXCLUDED.selected_option,
    is_correct = EXCLUDED.is_correct,
    score_awarded = EXCLUDED.score_awarded`

	args := make([]interface{}, 0, len(responses)*6)
	for _, resp := range responses {
		args = append(args, resp.StudentID, resp.TestCode, resp.QuestionNumber, resp.SelectedOption, resp.IsCorrect, resp.ScoreAwarded)
	}
	if _, err := r.exec(exec).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert student responses: %w", err)
	}
	return nil
}

// ListKeyed returns every stored response left-joined to its question.
func (r *ResponseRepository) ListKeyed(ctx context.Context, exec sqlx.ExtContext) ([]models.KeyedResponse, error) {
	const query = `SELECT r.student_id, r.test_code, r.question_number, r.selected_option, r.is_correct, r.score_awarded,
       q.correct_option, q.subject_tag
FROM student_responses r
LEFT JOIN questions q ON q.test_code = r.test_code AND q.question_number = r.question_number
ORDER BY r.test_code ASC, r.student_id ASC, r.question_number ASC`
	var rows []models.KeyedResponse
	if err := sqlx.SelectContext(ctx, r.exec(exec), &rows, query); err != nil {
		return nil, fmt.Errorf("list keyed responses: %w", err)
	}
	return rows, nil
}

// UpdateScores writes correctness and score for the given responses.
func (r *ResponseRepository) UpdateScores(ctx context.Context, exec sqlx.ExtContext, responses []models.StudentResponse) error {
	if len(responses) == 0 {
		return nil
	}
	query := `UPDATE student_responses AS r
SET is_correct = v.is_correct, score_awarded = v.score_awarded
FROM (VALUES ` + bulkValues(len(responses), "::bigint", "::text", "::int", "::boolean", "::double precision") + `)
AS v(student_id, test_code, question_number, is_correct, score_awarded)
WHERE r.student_id = v.student_id AND r.test_code = v.test_code AND r.question_number = v.question_number`

	args := make([]interface{}, 0, len(responses)*5)
	for _, resp := range responses {
		args = append(args, resp.StudentID, resp.TestCode, resp.QuestionNumber, resp.IsCorrect, resp.ScoreAwarded)
	}
	if _, err := r.exec(exec).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update response scores: %w", err)
	}
	return nil
}
