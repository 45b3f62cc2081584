package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-analytics-api/internal/dto"
	"github.com/noah-isme/exam-analytics-api/internal/models"
	appErrors "github.com/noah-isme/exam-analytics-api/pkg/errors"
)

type reportRepoStub struct {
	mu          sync.Mutex
	calls       map[string]int
	lastFilter  models.ReportFilter
	leaderboard []models.LeaderboardEntry
	scores      []float64
	counts      models.DashboardCounts
	percentages []models.StudentPercentage
	options     []models.OptionCount
	matrix      []models.QuestionMatrixCounts
	err         error
}

func (s *reportRepoStub) record(name string, filter models.ReportFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[name]++
	s.lastFilter = filter
}

func (s *reportRepoStub) Leaderboard(ctx context.Context, filter models.ReportFilter) ([]models.LeaderboardEntry, int, error) {
	s.record("leaderboard", filter)
	return s.leaderboard, len(s.leaderboard), s.err
}

func (s *reportRepoStub) SubjectLeaderboard(ctx context.Context, filter models.ReportFilter) ([]models.SubjectLeaderboardEntry, int, error) {
	s.record("subject_leaderboard", filter)
	return []models.SubjectLeaderboardEntry{{StudentID: 1, TestCode: "T1", SubjectTag: "Math", SubjectScore: 8, SubjectRank: intPtr(1)}}, 1, s.err
}

func (s *reportRepoStub) DashboardCounts(ctx context.Context, filter models.ReportFilter) (*models.DashboardCounts, error) {
	s.record("dashboard", filter)
	counts := s.counts
	return &counts, s.err
}

func (s *reportRepoStub) TotalScores(ctx context.Context, filter models.ReportFilter) ([]float64, error) {
	s.record("scores", filter)
	return s.scores, s.err
}

func (s *reportRepoStub) StudentPercentages(ctx context.Context, filter models.ReportFilter) ([]models.StudentPercentage, error) {
	s.record("risk", filter)
	return s.percentages, s.err
}

func (s *reportRepoStub) OptionCounts(ctx context.Context, testCode string, number int) ([]models.OptionCount, error) {
	s.record("options", models.ReportFilter{TestCode: testCode})
	return s.options, s.err
}

func (s *reportRepoStub) QuestionMatrix(ctx context.Context, filter models.ReportFilter) ([]models.QuestionMatrixCounts, error) {
	s.record("matrix", filter)
	return s.matrix, s.err
}

func (s *reportRepoStub) FilterOptions(ctx context.Context) (*models.FilterOptions, error) {
	s.record("filters", models.ReportFilter{})
	return &models.FilterOptions{TestCodes: []string{"T1"}}, s.err
}

type questionReaderStub struct {
	question *models.Question
}

func (s questionReaderStub) Get(ctx context.Context, testCode string, number int) (*models.Question, error) {
	if s.question == nil {
		return nil, sql.ErrNoRows
	}
	return s.question, nil
}

// mapCacheRepo is a JSON round-tripping in-memory cache.
type mapCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func (r *mapCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, ok := r.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *mapCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if r.entries == nil {
		r.entries = make(map[string][]byte)
	}
	r.entries[key] = raw
	return nil
}

func (r *mapCacheRepo) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	deleted := 0
	for key := range r.entries {
		if strings.HasPrefix(key, prefix) {
			delete(r.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

func newReportServiceForTest(repo *reportRepoStub, question *models.Question, cacheRepo CacheRepository) *ReportService {
	var cache *CacheService
	if cacheRepo != nil {
		cache = NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	}
	return NewReportService(ReportServiceParams{
		Repo:      repo,
		Questions: questionReaderStub{question: question},
		Cache:     cache,
	})
}

func TestReportServiceLeaderboardNormalisesFilters(t *testing.T) {
	repo := &reportRepoStub{leaderboard: []models.LeaderboardEntry{{Rank: 1, StudentID: 1001, StudentName: "Asha", TotalScore: 12}}}
	svc := newReportServiceForTest(repo, nil, nil)

	entries, pagination, hit, err := svc.Leaderboard(context.Background(), dto.ReportQuery{
		Institution: "All Institutions",
		Batch:       " 2024-A ",
		TestType:    "ALL",
		From:        "2024-03-01",
		To:          "2024-03-31",
	})
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, entries, 1)
	assert.Equal(t, models.Pagination{Page: 1, PageSize: defaultReportPageSize, TotalCount: 1}, *pagination)

	filter := repo.lastFilter
	assert.Empty(t, filter.Institution)
	assert.Equal(t, "2024-A", filter.Batch)
	assert.Empty(t, filter.TestType)
	require.NotNil(t, filter.DateFrom)
	assert.Equal(t, "2024-03-31", filter.DateTo.Format("2006-01-02"))
}

func TestReportServiceRejectsInvalidFilters(t *testing.T) {
	svc := newReportServiceForTest(&reportRepoStub{}, nil, nil)

	_, _, _, err := svc.Leaderboard(context.Background(), dto.ReportQuery{From: "03/01/2024"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)

	_, _, _, err = svc.Leaderboard(context.Background(), dto.ReportQuery{From: "2024-04-01", To: "2024-03-01"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServiceServesFromCache(t *testing.T) {
	repo := &reportRepoStub{leaderboard: []models.LeaderboardEntry{{Rank: 1, StudentID: 1001, TotalScore: 12}}}
	cacheRepo := &mapCacheRepo{}
	svc := newReportServiceForTest(repo, nil, cacheRepo)
	query := dto.ReportQuery{Batch: "2024-A"}

	_, _, hit, err := svc.Leaderboard(context.Background(), query)
	require.NoError(t, err)
	assert.False(t, hit)

	entries, _, hit, err := svc.Leaderboard(context.Background(), query)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int64(1001), entries[0].StudentID)
	assert.Equal(t, 1, repo.calls["leaderboard"])

	_, err = cacheRepo.DeleteByPattern(context.Background(), reportCachePattern)
	require.NoError(t, err)
	_, _, hit, err = svc.Leaderboard(context.Background(), query)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, repo.calls["leaderboard"])
}

func TestReportServiceWrapsRepositoryErrors(t *testing.T) {
	svc := newReportServiceForTest(&reportRepoStub{err: sql.ErrConnDone}, nil, nil)

	_, _, err := svc.Filters(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestBuildDashboard(t *testing.T) {
	counts := models.DashboardCounts{TestsConducted: 2, Students: 12, Responses: 200, Attempted: 150, Correct: 90}
	scores := []float64{40, 36, 30, 28, 20, 18, 16, 12, 8, 4, 0, -4}

	summary := BuildDashboard(counts, scores)
	assert.Equal(t, 60.0, summary.AccuracyPercent)
	assert.Equal(t, 75.0, summary.AttemptRate)
	assert.Equal(t, 17.33, summary.AverageTotalScore)
	assert.Equal(t, 40.0, summary.TopDecileAverage)
	assert.Equal(t, -4.0, summary.LowDecileAverage)

	// 25 students: the decile truncates to 2 rather than rounding up to 3.
	wide := make([]float64, 25)
	for i := range wide {
		wide[i] = float64(100 - i*4)
	}
	summary = BuildDashboard(counts, wide)
	assert.Equal(t, 98.0, summary.TopDecileAverage)
	assert.Equal(t, 6.0, summary.LowDecileAverage)

	single := BuildDashboard(counts, []float64{12})
	assert.Equal(t, 12.0, single.TopDecileAverage)
	assert.Equal(t, 12.0, single.LowDecileAverage)

	empty := BuildDashboard(models.DashboardCounts{}, nil)
	assert.Zero(t, empty.AccuracyPercent)
	assert.Zero(t, empty.TopDecileAverage)
}

func TestBuildRiskBreakdown(t *testing.T) {
	breakdown := BuildRiskBreakdown([]models.StudentPercentage{
		{StudentID: 1, Percentage: 85},
		{StudentID: 2, Percentage: 70},
		{StudentID: 3, Percentage: 40},
		{StudentID: 4, Percentage: 39.994},
		{StudentID: 5, Percentage: -12.5},
	})

	assert.Equal(t, 5, breakdown.Total)
	require.Len(t, breakdown.Buckets, 3)
	assert.Equal(t, models.RiskSafe, breakdown.Buckets[0].Band)
	assert.Equal(t, 1, breakdown.Buckets[0].Count)
	assert.Equal(t, 2, breakdown.Buckets[1].Count)
	assert.Equal(t, 2, breakdown.Buckets[2].Count)
	assert.Equal(t, 39.99, breakdown.Buckets[2].Students[0].Percentage)
}

func TestReportServiceQuestionDetail(t *testing.T) {
	repo := &reportRepoStub{options: []models.OptionCount{
		{Option: 0, Count: 2},
		{Option: 1, Count: 5},
		{Option: 2, Count: 2},
		{Option: 4, Count: 1},
	}}
	question := &models.Question{TestCode: "T1", QuestionNumber: 3, CorrectOption: 1, SubjectTag: strPtr("Math")}
	svc := newReportServiceForTest(repo, question, nil)

	detail, _, err := svc.QuestionDetail(context.Background(), dto.QuestionDetailQuery{TestCode: "T1", QuestionNumber: 3})
	require.NoError(t, err)
	assert.Equal(t, 10, detail.Responses)
	assert.Equal(t, 2, detail.Unattempted)
	assert.Equal(t, map[string]int{"A": 5, "B": 2, "C": 0, "D": 1}, detail.Distribution)
	assert.Equal(t, 50.0, detail.CorrectPercent)
	assert.Equal(t, 80.0, detail.AttemptedPercent)
}

func TestReportServiceQuestionDetailNotFound(t *testing.T) {
	svc := newReportServiceForTest(&reportRepoStub{}, nil, nil)

	_, _, err := svc.QuestionDetail(context.Background(), dto.QuestionDetailQuery{TestCode: "T1", QuestionNumber: 1})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)

	_, _, err = svc.QuestionDetail(context.Background(), dto.QuestionDetailQuery{TestCode: "T1"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestReportServiceExportLeaderboard(t *testing.T) {
	repo := &reportRepoStub{leaderboard: []models.LeaderboardEntry{
		{Rank: 1, StudentID: 1002, StudentName: "Bilal", StudentClass: "10", Section: strPtr("B"), TestsTaken: 2, TotalScore: 24},
		{Rank: 2, StudentID: 1001, StudentName: "Asha", StudentClass: "10", TestsTaken: 2, TotalScore: 15.5},
	}}
	svc := newReportServiceForTest(repo, nil, nil)

	file, err := svc.ExportLeaderboard(context.Background(), dto.ExportQuery{ReportQuery: dto.ReportQuery{Page: 3, PageSize: 1}, Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))
	assert.Contains(t, string(file.Data), "1,1002,Bilal,10,B,2,24")
	assert.Contains(t, string(file.Data), "2,1001,Asha,10,,2,15.5")
	assert.Zero(t, repo.lastFilter.PageSize, "exports are not paginated")

	file, err = svc.ExportLeaderboard(context.Background(), dto.ExportQuery{Format: "pdf"})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Data), "%PDF"))

	_, err = svc.ExportLeaderboard(context.Background(), dto.ExportQuery{Format: "xlsx"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestBuildScoreDistribution(t *testing.T) {
	dist := BuildScoreDistribution([]float64{640, 600, 551, 500, 420, 400, 301, 120})

	assert.Equal(t, 8, dist.Total)
	require.Len(t, dist.Bands, 5)
	want := []models.ScoreBand{
		{Above: 600, Count: 1, Percentage: 12.5},
		{Above: 550, Count: 3, Percentage: 37.5},
		{Above: 500, Count: 3, Percentage: 37.5},
		{Above: 400, Count: 5, Percentage: 62.5},
		{Above: 300, Count: 7, Percentage: 87.5},
	}
	assert.Equal(t, want, dist.Bands)

	empty := BuildScoreDistribution(nil)
	assert.Zero(t, empty.Total)
	require.Len(t, empty.Bands, 5)
	assert.Zero(t, empty.Bands[0].Percentage)
}

func TestBuildReadiness(t *testing.T) {
	readiness := BuildReadiness([]float64{512, 400, 399.5, 120, -8, 455})

	assert.Equal(t, readinessThreshold, readiness.Threshold)
	assert.Equal(t, 6, readiness.Total)
	assert.Equal(t, 3, readiness.Qualified)
	assert.Equal(t, 50.0, readiness.Percentage)

	assert.Zero(t, BuildReadiness(nil).Percentage)
}

func TestBuildQuestionMatrix(t *testing.T) {
	rows := BuildQuestionMatrix([]models.QuestionMatrixCounts{
		{QuestionNumber: 1, SubjectTag: "Math", Total: 4, Attempted: 3, Correct: 2, Incorrect: 1},
		{QuestionNumber: 2, SubjectTag: "Math", Total: 4, Attempted: 0},
	})

	require.Len(t, rows, 2)
	assert.Equal(t, models.QuestionMatrixRow{
		QuestionNumber: 1, Subject: "Math", Total: 4, Attempted: 3, Correct: 2, Incorrect: 1, Accuracy: 66.67,
	}, rows[0])
	assert.Zero(t, rows[1].Accuracy)
	assert.NotNil(t, BuildQuestionMatrix(nil))
}

func TestReportServiceScoreDistributionAndReadinessCacheSeparately(t *testing.T) {
	repo := &reportRepoStub{scores: []float64{610, 420, 380}}
	svc := newReportServiceForTest(repo, nil, &mapCacheRepo{})
	query := dto.ReportQuery{StudentClass: "12", Page: 3}

	dist, hit, err := svc.ScoreDistribution(context.Background(), query)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 3, dist.Total)
	assert.Equal(t, 1, dist.Bands[0].Count)
	assert.Zero(t, repo.lastFilter.PageSize)
	assert.Equal(t, "12", repo.lastFilter.StudentClass)

	readiness, hit, err := svc.Readiness(context.Background(), query)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, readiness.Qualified)
	assert.Equal(t, 66.67, readiness.Percentage)

	_, hit, err = svc.Readiness(context.Background(), query)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 2, repo.calls["scores"])
}

func TestReportServiceQuestionMatrixFiltersByMonth(t *testing.T) {
	repo := &reportRepoStub{matrix: []models.QuestionMatrixCounts{
		{QuestionNumber: 7, SubjectTag: "Physics", Total: 10, Attempted: 8, Correct: 6, Incorrect: 2},
	}}
	svc := newReportServiceForTest(repo, nil, nil)

	rows, hit, err := svc.QuestionMatrix(context.Background(), dto.ReportQuery{
		TestType: "Mock",
		Month:    "2024-03",
		Subject:  "All Subjects",
	})
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, rows, 1)
	assert.Equal(t, 75.0, rows[0].Accuracy)

	filter := repo.lastFilter
	assert.Equal(t, "Mock", filter.TestType)
	assert.Empty(t, filter.Subject)
	require.NotNil(t, filter.Month)
	assert.Equal(t, "2024-03-01", filter.Month.Format("2006-01-02"))

	_, _, err = svc.QuestionMatrix(context.Background(), dto.ReportQuery{Month: "March 2024"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestReportCacheKeySeparatesMonths(t *testing.T) {
	march := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	april := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	assert.NotEqual(t,
		reportCacheKey("question_matrix", models.ReportFilter{Month: &march}),
		reportCacheKey("question_matrix", models.ReportFilter{Month: &april}))
}
