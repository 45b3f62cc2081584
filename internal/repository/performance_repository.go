package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-analytics-api/internal/models"
)

// PerformanceRepository manages derived per-test and per-subject totals.
type PerformanceRepository struct {
	db *sqlx.DB
}

// NewPerformanceRepository constructs a PerformanceRepository.
func NewPerformanceRepository(db *sqlx.DB) *PerformanceRepository {
	return &PerformanceRepository{db: db}
}

func (r *PerformanceRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// UpsertTestTotals stores totals keyed by (student, test) and clears their rank.
func (r *PerformanceRepository) UpsertTestTotals(ctx context.Context, exec sqlx.ExtContext, rows []models.StudentTestPerformance) error {
	if len(rows) == 0 {
		return nil
	}
	query := `INSERT INTO student_test_performances (student_id, test_code, total_score)
VALUES ` + bulkValues(len(rows), "", "", "") + `
ON CONFLICT (student_id, test_code) DO UPDATE
SET total_score = EXCLUDED.total_score,
    rank = NULL`

	args := make([]interface{}, 0, len(rows)*3)
	for _, row := range rows {
		args = append(args, row.StudentID, row.TestCode, row.TotalScore)
	}
	if _, err := r.exec(exec).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert test performances: %w", err)
	}
	return nil
}

// UpsertSubjectTotals stores totals keyed by (student, test, subject) and clears their rank.
func (r *PerformanceRepository) UpsertSubjectTotals(ctx context.Context, exec sqlx.ExtContext, rows []models.StudentSubjectPerformance) error {
	if len(rows) == 0 {
		return nil
	}
	query := `INSERT INTO student_subject_performances (student_id, test_code, subject_tag, subject_score)
VALUES ` + bulkValues(len(rows), "", "", "", "") + `
ON CONFLICT (student_id, test_code, subject_tag) DO UPDATE
SET subject_score = EXCLUDED.subject_score,
    subject_rank = NULL`

	args := make([]interface{}, 0, len(rows)*4)
	for _, row := range rows {
		args = append(args, row.StudentID, row.TestCode, row.SubjectTag, row.SubjectScore)
	}
	if _, err := r.exec(exec).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert subject performances: %w", err)
	}
	return nil
}

// PruneSubjectTotals deletes subject rows whose (student, test, subject) no longer has a tagged response.
func (r *PerformanceRepository) PruneSubjectTotals(ctx context.Context, exec sqlx.ExtContext) (int64, error) {
	const query = `DELETE FROM student_subject_performances sp
WHERE NOT EXISTS (
    SELECT 1 FROM student_responses r
    JOIN questions q ON q.test_code = r.test_code AND q.question_number = r.question_number
    WHERE r.student_id = sp.student_id AND r.test_code = sp.test_code AND q.subject_tag = sp.subject_tag
)`
	res, err := r.exec(exec).ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("prune subject performances: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune subject performances rows affected: %w", err)
	}
	return affected, nil
}

// ListTestStandings returns totals grouped by test, best score first, ties by student id.
func (r *PerformanceRepository) ListTestStandings(ctx context.Context, exec sqlx.ExtContext) ([]models.StudentTestPerformance, error) {
	const query = `SELECT student_id, test_code, total_score, rank FROM student_test_performances
ORDER BY test_code ASC, total_score DESC, student_id ASC`
	var rows []models.StudentTestPerformance
	if err := sqlx.SelectContext(ctx, r.exec(exec), &rows, query); err != nil {
		return nil, fmt.Errorf("list test standings: %w", err)
	}
	return rows, nil
}

// ListSubjectStandings returns subject totals grouped by (test, subject), best score first.
func (r *PerformanceRepository) ListSubjectStandings(ctx context.Context, exec sqlx.ExtContext) ([]models.StudentSubjectPerformance, error) {
	const query = `SELECT student_id, test_code, subject_tag, subject_score, subject_rank FROM student_subject_performances
ORDER BY test_code ASC, subject_tag ASC, subject_score DESC, student_id ASC`
	var rows []models.StudentSubjectPerformance
	if err := sqlx.SelectContext(ctx, r.exec(exec), &rows, query); err != nil {
		return nil, fmt.Errorf("list subject standings: %w", err)
	}
	return rows, nil
}

// UpdateTestRanks writes ranks for (student, test) rows.
func (r *PerformanceRepository) UpdateTestRanks(ctx context.Context, exec sqlx.ExtContext, updates []models.RankUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	query := `UPDATE student_test_performances AS p
SET rank = v.rank
FROM (VALUES ` + bulkValues(len(updates), "::bigint", "::text", "::int") + `) AS v(student_id, test_code, rank)
WHERE p.student_id = v.student_id AND p.test_code = v.test_code`

	args := make([]interface{}, 0, len(updates)*3)
	for _, u := range updates {
		args = append(args, u.StudentID, u.TestCode, u.Rank)
	}
	if _, err := r.exec(exec).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update test ranks: %w", err)
	}
	return nil
}

// UpdateSubjectRanks writes ranks for (student, test, subject) rows.
func (r *PerformanceRepository) UpdateSubjectRanks(ctx context.Context, exec sqlx.ExtContext, updates []models.RankUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	query := `UPDATE student_subject_performances AS p
SET subject_rank = v.rank
FROM (VALUES ` + bulkValues(len(updates), "::bigint", "::text", "::text", "::int") + `) AS v(student_id, test_code, subject_tag, rank)
WHERE p.student_id = v.student_id AND p.test_code = v.test_code AND p.subject_tag = v.subject_tag`

	args := make([]interface{}, 0, len(updates)*4)
	for _, u := range updates {
		args = append(args, u.StudentID, u.TestCode, u.SubjectTag, u.Rank)
	}
	if _, err := r.exec(exec).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update subject ranks: %w", err)
	}
	return nil
}
