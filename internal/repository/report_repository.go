package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-analytics-api/internal/models"
)

// ReportRepository exposes read-only queries over the scored tables.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Leaderboard dense-ranks students by their summed total over the filtered tests.
// A non-positive PageSize returns every row.
func (r *ReportRepository) Leaderboard(ctx context.Context, filter models.ReportFilter) ([]models.LeaderboardEntry, int, error) {
	f := newReportFilter(filter, testSubjectCond)

	countQuery := fmt.Sprintf("SELECT COUNT(DISTINCT s.id) %s WHERE %s", performanceFrom, f.where())
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, f.args...); err != nil {
		return nil, 0, fmt.Errorf("count leaderboard: %w", err)
	}

	query := fmt.Sprintf(`SELECT DENSE_RANK() OVER (ORDER BY SUM(p.total_score) DESC) AS rank,
       s.id AS student_id, s.name AS student_name, s.class AS student_class, s.section,
       COUNT(p.test_code) AS tests_taken, SUM(p.total_score) AS total_score
%s WHERE %s
GROUP BY s.id, s.name, s.class, s.section
ORDER BY rank ASC, s.id ASC%s`, performanceFrom, f.where(), limitClause(filter.Page, filter.PageSize))

	var entries []models.LeaderboardEntry
	if err := r.db.SelectContext(ctx, &entries, query, f.args...); err != nil {
		return nil, 0, fmt.Errorf("list leaderboard: %w", err)
	}
	return entries, total, nil
}

// SubjectLeaderboard returns stored subject ranks for the filtered tests.
func (r *ReportRepository) SubjectLeaderboard(ctx context.Context, filter models.ReportFilter) ([]models.SubjectLeaderboardEntry, int, error) {
	f := newReportFilter(filter, rowSubjectCond)

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", subjectPerformanceFrom, f.where())
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, f.args...); err != nil {
		return nil, 0, fmt.Errorf("count subject leaderboard: %w", err)
	}

	query := fmt.Sprintf(`SELECT sp.subject_rank, s.id AS student_id, s.name AS student_name, sp.test_code, sp.subject_tag, sp.subject_score
%s WHERE %s
ORDER BY sp.test_code ASC, sp.subject_tag ASC, sp.subject_rank ASC NULLS LAST, s.id ASC%s`,
		subjectPerformanceFrom, f.where(), limitClause(filter.Page, filter.PageSize))

	var entries []models.SubjectLeaderboardEntry
	if err := r.db.SelectContext(ctx, &entries, query, f.args...); err != nil {
		return nil, 0, fmt.Errorf("list subject leaderboard: %w", err)
	}
	return entries, total, nil
}

// DashboardCounts returns response-level counters for the filtered tests.
func (r *ReportRepository) DashboardCounts(ctx context.Context, filter models.ReportFilter) (*models.DashboardCounts, error) {
	f := newReportFilter(filter, responseSubjectCond)
	query := fmt.Sprintf(`SELECT COUNT(DISTINCT r.test_code) AS tests_conducted,
       COUNT(DISTINCT r.student_id) AS students,
       COUNT(*) AS responses,
       COUNT(*) FILTER (WHERE r.selected_option > 0) AS attempted,
       COUNT(*) FILTER (WHERE r.is_correct AND r.selected_option > 0) AS correct
%s WHERE %s`, responseFrom, f.where())

	var counts models.DashboardCounts
	if err := r.db.GetContext(ctx, &counts, query, f.args...); err != nil {
		return nil, fmt.Errorf("query dashboard counts: %w", err)
	}
	return &counts, nil
}

// TotalScores returns every (student, test) total for the filtered tests, highest first.
func (r *ReportRepository) TotalScores(ctx context.Context, filter models.ReportFilter) ([]float64, error) {
	f := newReportFilter(filter, testSubjectCond)
	query := fmt.Sprintf("SELECT p.total_score %s WHERE %s ORDER BY p.total_score DESC", performanceFrom, f.where())

	var scores []float64
	if err := r.db.SelectContext(ctx, &scores, query, f.args...); err != nil {
		return nil, fmt.Errorf("list total scores: %w", err)
	}
	return scores, nil
}

// StudentPercentages averages each student's total as a percentage of the test maximum
// (four points per question). Tests without questions are ignored.
func (r *ReportRepository) StudentPercentages(ctx context.Context, filter models.ReportFilter) ([]models.StudentPercentage, error) {
	f := newReportFilter(filter, testSubjectCond)
	query := fmt.Sprintf(`SELECT s.id AS student_id, s.name AS student_name,
       AVG(p.total_score / (qc.question_count * 4.0) * 100) AS percentage
%s
JOIN (SELECT test_code, COUNT(*) AS question_count FROM questions GROUP BY test_code) qc ON qc.test_code = p.test_code
WHERE %s
GROUP BY s.id, s.name
ORDER BY percentage DESC, s.id ASC`, performanceFrom, f.where())

	var rows []models.StudentPercentage
	if err := r.db.SelectContext(ctx, &rows, query, f.args...); err != nil {
		return nil, fmt.Errorf("list student percentages: %w", err)
	}
	return rows, nil
}

// QuestionMatrix counts responses per (subject, question) for the filtered tests.
// Responses without a question or subject tag are left out.
func (r *ReportRepository) QuestionMatrix(ctx context.Context, filter models.ReportFilter) ([]models.QuestionMatrixCounts, error) {
	f := newReportFilter(filter, matrixSubjectCond)
	query := fmt.Sprintf(`SELECT r.question_number, q.subject_tag,
       COUNT(*) AS total,
       COUNT(*) FILTER (WHERE r.selected_option > 0) AS attempted,
       COUNT(*) FILTER (WHERE r.is_correct AND r.selected_option > 0) AS correct,
       COUNT(*) FILTER (WHERE NOT r.is_correct AND r.selected_option > 0) AS incorrect
%s
JOIN questions q ON q.test_code = r.test_code AND q.question_number = r.question_number
WHERE %s AND q.subject_tag IS NOT NULL
GROUP BY q.subject_tag, r.question_number
ORDER BY q.subject_tag ASC, r.question_number ASC`, responseFrom, f.where())

	var rows []models.QuestionMatrixCounts
	if err := r.db.SelectContext(ctx, &rows, query, f.args...); err != nil {
		return nil, fmt.Errorf("list question matrix: %w", err)
	}
	return rows, nil
}

// OptionCounts returns how many responses selected each option for a question.
func (r *ReportRepository) OptionCounts(ctx context.Context, testCode string, number int) ([]models.OptionCount, error) {
	const query = `SELECT selected_option, COUNT(*) AS total FROM student_responses
WHERE test_code = $1 AND question_number = $2
GROUP BY selected_option ORDER BY selected_option ASC`
	var rows []models.OptionCount
	if err := r.db.SelectContext(ctx, &rows, query, testCode, number); err != nil {
		return nil, fmt.Errorf("list option counts: %w", err)
	}
	return rows, nil
}

// FilterOptions lists distinct values for every report filter dimension.
func (r *ReportRepository) FilterOptions(ctx context.Context) (*models.FilterOptions, error) {
	opts := &models.FilterOptions{}
	lookups := []struct {
		name  string
		query string
		dest  *[]string
	}{
		{"institutions", `SELECT name FROM institutions ORDER BY name`, &opts.Institutions},
		{"batches", `SELECT DISTINCT name FROM batches ORDER BY name`, &opts.Batches},
		{"classes", `SELECT DISTINCT class FROM students WHERE class <> '' ORDER BY class`, &opts.Classes},
		{"sections", `SELECT DISTINCT section FROM students WHERE section IS NOT NULL AND section <> '' ORDER BY section`, &opts.Sections},
		{"test types", `SELECT DISTINCT test_type FROM tests WHERE test_type <> '' ORDER BY test_type`, &opts.TestTypes},
		{"test codes", `SELECT code FROM tests ORDER BY code`, &opts.TestCodes},
		{"subjects", `SELECT DISTINCT subject_tag FROM questions WHERE subject_tag IS NOT NULL ORDER BY subject_tag`, &opts.Subjects},
	}
	for _, lookup := range lookups {
		values := []string{}
		if err := r.db.SelectContext(ctx, &values, lookup.query); err != nil {
			return nil, fmt.Errorf("list %s: %w", lookup.name, err)
		}
		*lookup.dest = values
	}
	return opts, nil
}

func limitClause(page, size int) string {
	if size <= 0 {
		return ""
	}
	if page < 1 {
		page = 1
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", size, (page-1)*size)
}
