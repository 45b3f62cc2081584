package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-analytics-api/internal/models"
)

func TestPerformanceRepositoryUpsertTestTotals(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewPerformanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO student_test_performances (student_id, test_code, total_score) VALUES ($1, $2, $3) ON CONFLICT (student_id, test_code) DO UPDATE SET total_score = EXCLUDED.total_score, rank = NULL")).
		WithArgs(int64(1), "T1", 3.0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpsertTestTotals(context.Background(), nil, []models.StudentTestPerformance{{StudentID: 1, TestCode: "T1", TotalScore: 3}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPerformanceRepositoryUpsertSubjectTotals(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewPerformanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO student_subject_performances (student_id, test_code, subject_tag, subject_score) VALUES ($1, $2, $3, $4), ($5, $6, $7, $8)")).
		WithArgs(int64(1), "T1", "Math", 3.0, int64(1), "T1", "Physics", 0.0).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.UpsertSubjectTotals(context.Background(), nil, []models.StudentSubjectPerformance{
		{StudentID: 1, TestCode: "T1", SubjectTag: "Math", SubjectScore: 3},
		{StudentID: 1, TestCode: "T1", SubjectTag: "Physics"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPerformanceRepositoryPruneSubjectTotals(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewPerformanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_subject_performances sp WHERE NOT EXISTS")).
		WillReturnResult(sqlmock.NewResult(0, 2))

	pruned, err := repo.PruneSubjectTotals(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pruned)
}

func TestPerformanceRepositoryListTestStandings(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewPerformanceRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "test_code", "total_score", "rank"}).
		AddRow(2, "T1", 8.0, nil).
		AddRow(1, "T1", 3.0, 2)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id, test_code, total_score, rank FROM student_test_performances ORDER BY test_code ASC, total_score DESC, student_id ASC")).
		WillReturnRows(rows)

	standings, err := repo.ListTestStandings(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, standings, 2)
	assert.Nil(t, standings[0].Rank)
	assert.Equal(t, 2, *standings[1].Rank)
}

func TestPerformanceRepositoryUpdateRanks(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewPerformanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_test_performances AS p SET rank = v.rank FROM (VALUES ($1::bigint, $2::text, $3::int), ($4::bigint, $5::text, $6::int))")).
		WithArgs(int64(2), "T1", 1, int64(1), "T1", 2).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_subject_performances AS p SET subject_rank = v.rank")).
		WithArgs(int64(1), "T1", "Math", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	require.NoError(t, repo.UpdateTestRanks(ctx, nil, []models.RankUpdate{
		{StudentID: 2, TestCode: "T1", Rank: 1},
		{StudentID: 1, TestCode: "T1", Rank: 2},
	}))
	require.NoError(t, repo.UpdateSubjectRanks(ctx, nil, []models.RankUpdate{{StudentID: 1, TestCode: "T1", SubjectTag: "Math", Rank: 1}}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
