package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/exam-analytics-api/internal/dto"
	"github.com/noah-isme/exam-analytics-api/internal/models"
	appErrors "github.com/noah-isme/exam-analytics-api/pkg/errors"
)

const (
	reportCachePrefix = "reports:"

	defaultReportPageSize = 20

	riskSafeAbove   = 70.0
	riskAtRiskBelow = 40.0

	readinessThreshold = 400.0

	// decileShare truncates, with a floor of one student.
	decileShare = 0.10
)

var scoreBandThresholds = []float64{600, 550, 500, 400, 300}

type reportRepository interface {
	Leaderboard(ctx context.Context, filter models.ReportFilter) ([]models.LeaderboardEntry, int, error)
	SubjectLeaderboard(ctx context.Context, filter models.ReportFilter) ([]models.SubjectLeaderboardEntry, int, error)
	DashboardCounts(ctx context.Context, filter models.ReportFilter) (*models.DashboardCounts, error)
	TotalScores(ctx context.Context, filter models.ReportFilter) ([]float64, error)
	StudentPercentages(ctx context.Context, filter models.ReportFilter) ([]models.StudentPercentage, error)
	OptionCounts(ctx context.Context, testCode string, number int) ([]models.OptionCount, error)
	QuestionMatrix(ctx context.Context, filter models.ReportFilter) ([]models.QuestionMatrixCounts, error)
	FilterOptions(ctx context.Context) (*models.FilterOptions, error)
}

type questionReader interface {
	Get(ctx context.Context, testCode string, number int) (*models.Question, error)
}

// ReportServiceParams groups constructor dependencies.
type ReportServiceParams struct {
	Repo      reportRepository
	Questions questionReader
	Exporter  *ExportService
	Cache     *CacheService
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	CacheTTL  time.Duration
}

// ReportService serves read-side views over the scored tables.
type ReportService struct {
	repo      reportRepository
	questions questionReader
	exporter  *ExportService
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	ttl       time.Duration
	group     singleflight.Group
}

// NewReportService constructs a ReportService.
func NewReportService(params ReportServiceParams) *ReportService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	exporter := params.Exporter
	if exporter == nil {
		exporter = NewExportService(nil, nil, logger)
	}
	return &ReportService{
		repo:      params.Repo,
		questions: params.Questions,
		exporter:  exporter,
		cache:     params.Cache,
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
		ttl:       params.CacheTTL,
	}
}

type pagedLeaderboard struct {
	Entries []models.LeaderboardEntry `json:"entries"`
	Total   int                       `json:"total"`
}

type pagedSubjectLeaderboard struct {
	Entries []models.SubjectLeaderboardEntry `json:"entries"`
	Total   int                              `json:"total"`
}

// Leaderboard returns one page of the overall leaderboard and whether it came from cache.
func (s *ReportService) Leaderboard(ctx context.Context, query dto.ReportQuery) ([]models.LeaderboardEntry, *models.Pagination, bool, error) {
	filter, err := s.buildFilter(query)
	if err != nil {
		return nil, nil, false, err
	}
	page, hit, err := loadCached(ctx, s, "leaderboard", filter, func(ctx context.Context) (pagedLeaderboard, error) {
		entries, total, err := s.repo.Leaderboard(ctx, filter)
		return pagedLeaderboard{Entries: entries, Total: total}, err
	})
	if err != nil {
		return nil, nil, false, err
	}
	return page.Entries, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: page.Total}, hit, nil
}

// SubjectLeaderboard returns stored subject ranks.
func (s *ReportService) SubjectLeaderboard(ctx context.Context, query dto.ReportQuery) ([]models.SubjectLeaderboardEntry, *models.Pagination, bool, error) {
	filter, err := s.buildFilter(query)
	if err != nil {
		return nil, nil, false, err
	}
	page, hit, err := loadCached(ctx, s, "subject_leaderboard", filter, func(ctx context.Context) (pagedSubjectLeaderboard, error) {
		entries, total, err := s.repo.SubjectLeaderboard(ctx, filter)
		return pagedSubjectLeaderboard{Entries: entries, Total: total}, err
	})
	if err != nil {
		return nil, nil, false, err
	}
	return page.Entries, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: page.Total}, hit, nil
}

// Dashboard computes the headline cards for the filtered tests.
func (s *ReportService) Dashboard(ctx context.Context, query dto.ReportQuery) (*models.DashboardSummary, bool, error) {
	filter, err := s.buildFilter(query)
	if err != nil {
		return nil, false, err
	}
	filter.Page, filter.PageSize = 0, 0
	summary, hit, err := loadCached(ctx, s, "dashboard", filter, func(ctx context.Context) (*models.DashboardSummary, error) {
		counts, err := s.repo.DashboardCounts(ctx, filter)
		if err != nil {
			return nil, err
		}
		scores, err := s.repo.TotalScores(ctx, filter)
		if err != nil {
			return nil, err
		}
		return BuildDashboard(*counts, scores), nil
	})
	if err != nil {
		return nil, false, err
	}
	return summary, hit, nil
}

// Risk buckets students by average percentage.
func (s *ReportService) Risk(ctx context.Context, query dto.ReportQuery) (*models.RiskBreakdown, bool, error) {
	filter, err := s.buildFilter(query)
	if err != nil {
		return nil, false, err
	}
	filter.Page, filter.PageSize = 0, 0
	breakdown, hit, err := loadCached(ctx, s, "risk", filter, func(ctx context.Context) (*models.RiskBreakdown, error) {
		rows, err := s.repo.StudentPercentages(ctx, filter)
		if err != nil {
			return nil, err
		}
		return BuildRiskBreakdown(rows), nil
	})
	if err != nil {
		return nil, false, err
	}
	return breakdown, hit, nil
}

// ScoreDistribution counts (student, test) totals above each score band threshold.
func (s *ReportService) ScoreDistribution(ctx context.Context, query dto.ReportQuery) (*models.ScoreDistribution, bool, error) {
	filter, err := s.buildFilter(query)
	if err != nil {
		return nil, false, err
	}
	filter.Page, filter.PageSize = 0, 0
	return loadCached(ctx, s, "score_distribution", filter, func(ctx context.Context) (*models.ScoreDistribution, error) {
		scores, err := s.repo.TotalScores(ctx, filter)
		if err != nil {
			return nil, err
		}
		return BuildScoreDistribution(scores), nil
	})
}

// Readiness reports the share of (student, test) totals at or above the qualifying score.
func (s *ReportService) Readiness(ctx context.Context, query dto.ReportQuery) (*models.Readiness, bool, error) {
	filter, err := s.buildFilter(query)
	if err != nil {
		return nil, false, err
	}
	filter.Page, filter.PageSize = 0, 0
	return loadCached(ctx, s, "readiness", filter, func(ctx context.Context) (*models.Readiness, error) {
		scores, err := s.repo.TotalScores(ctx, filter)
		if err != nil {
			return nil, err
		}
		return BuildReadiness(scores), nil
	})
}

// QuestionMatrix returns per-question attempt and accuracy counters grouped by subject.
func (s *ReportService) QuestionMatrix(ctx context.Context, query dto.ReportQuery) ([]models.QuestionMatrixRow, bool, error) {
	filter, err := s.buildFilter(query)
	if err != nil {
		return nil, false, err
	}
	filter.Page, filter.PageSize = 0, 0
	return loadCached(ctx, s, "question_matrix", filter, func(ctx context.Context) ([]models.QuestionMatrixRow, error) {
		rows, err := s.repo.QuestionMatrix(ctx, filter)
		if err != nil {
			return nil, err
		}
		return BuildQuestionMatrix(rows), nil
	})
}

// QuestionDetail describes the option distribution of a question.
func (s *ReportService) QuestionDetail(ctx context.Context, query dto.QuestionDetailQuery) (*models.QuestionDetail, bool, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid question query")
	}
	key := models.ReportFilter{TestCode: query.TestCode, Page: query.QuestionNumber}
	detail, hit, err := loadCached(ctx, s, "question", key, func(ctx context.Context) (*models.QuestionDetail, error) {
		question, err := s.questions.Get(ctx, query.TestCode, query.QuestionNumber)
		if err != nil {
			return nil, err
		}
		counts, err := s.repo.OptionCounts(ctx, query.TestCode, query.QuestionNumber)
		if err != nil {
			return nil, err
		}
		return BuildQuestionDetail(*question, counts), nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "question not found")
		}
		return nil, false, err
	}
	return detail, hit, nil
}

// Filters lists the values available to report filters.
func (s *ReportService) Filters(ctx context.Context) (*models.FilterOptions, bool, error) {
	return loadCached(ctx, s, "filters", models.ReportFilter{}, s.repo.FilterOptions)
}

// ExportLeaderboard renders the full filtered leaderboard.
func (s *ReportService) ExportLeaderboard(ctx context.Context, query dto.ExportQuery) (*dto.ExportFile, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export query")
	}
	filter, err := s.buildFilter(query.ReportQuery)
	if err != nil {
		return nil, err
	}
	filter.Page, filter.PageSize = 0, 0

	start := time.Now()
	entries, _, err := s.repo.Leaderboard(ctx, filter)
	s.metrics.ObserveDBQuery("leaderboard_export", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leaderboard")
	}
	file, err := s.exporter.Leaderboard(entries, query.Format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render leaderboard")
	}
	return file, nil
}

// loadCached returns the cached value for (kind, filter) or loads it once across concurrent callers.
func loadCached[T any](ctx context.Context, s *ReportService, kind string, filter models.ReportFilter, load func(context.Context) (T, error)) (T, bool, error) {
	key := reportCacheKey(kind, filter)

	var cached T
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, true, nil
	}

	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		start := time.Now()
		value, err := load(ctx)
		s.metrics.ObserveDBQuery(kind, time.Since(start))
		if err != nil {
			return value, err
		}
		_ = s.cache.Set(ctx, key, value, s.ttl)
		return value, nil
	})
	if err != nil {
		var zero T
		var appErr *appErrors.Error
		if errors.As(err, &appErr) || errors.Is(err, sql.ErrNoRows) {
			return zero, false, err
		}
		s.logger.Error("report query failed", zap.String("report", kind), zap.Error(err))
		return zero, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to load %s report", kind))
	}
	return result.(T), false, nil
}

func reportCacheKey(kind string, f models.ReportFilter) string {
	date := func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format("2006-01-02")
	}
	return fmt.Sprintf("%s%s:%s|%s|%s|%s|%s|%s|%s|%s|%s|%s|%d|%d", reportCachePrefix, kind,
		f.Institution, f.Batch, f.StudentClass, f.Section, f.TestType, f.TestCode, f.Subject,
		date(f.DateFrom), date(f.DateTo), date(f.Month), f.Page, f.PageSize)
}

// normalizeFilterValue treats blank values and "all" placeholders as unset.
func normalizeFilterValue(value string) string {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(strings.ToLower(value), "all") {
		return ""
	}
	return value
}

func (s *ReportService) buildFilter(query dto.ReportQuery) (models.ReportFilter, error) {
	if err := s.validator.Struct(query); err != nil {
		return models.ReportFilter{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report filters")
	}
	filter := models.ReportFilter{
		Institution:  normalizeFilterValue(query.Institution),
		Batch:        normalizeFilterValue(query.Batch),
		StudentClass: normalizeFilterValue(query.StudentClass),
		Section:      normalizeFilterValue(query.Section),
		TestType:     normalizeFilterValue(query.TestType),
		TestCode:     normalizeFilterValue(query.TestCode),
		Subject:      normalizeFilterValue(query.Subject),
		Page:         query.Page,
		PageSize:     query.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = defaultReportPageSize
	}
	if query.From != "" {
		from, _ := time.Parse("2006-01-02", query.From)
		filter.DateFrom = &from
	}
	if query.To != "" {
		to, _ := time.Parse("2006-01-02", query.To)
		filter.DateTo = &to
	}
	if query.Month != "" {
		month, _ := time.Parse("2006-01", query.Month)
		filter.Month = &month
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateFrom.After(*filter.DateTo) {
		return models.ReportFilter{}, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	return filter, nil
}

// BuildDashboard derives the dashboard cards from raw counters and totals sorted high to low.
func BuildDashboard(counts models.DashboardCounts, scores []float64) *models.DashboardSummary {
	summary := &models.DashboardSummary{
		TestsConducted: counts.TestsConducted,
		Students:       counts.Students,
	}
	if counts.Attempted > 0 {
		summary.AccuracyPercent = round2(float64(counts.Correct) / float64(counts.Attempted) * 100)
	}
	if counts.Responses > 0 {
		summary.AttemptRate = round2(float64(counts.Attempted) / float64(counts.Responses) * 100)
	}
	if len(scores) == 0 {
		return summary
	}
	summary.AverageTotalScore = round2(mean(scores))
	decile := int(float64(len(scores)) * decileShare)
	if decile < 1 {
		decile = 1
	}
	summary.TopDecileAverage = round2(mean(scores[:decile]))
	summary.LowDecileAverage = round2(mean(scores[len(scores)-decile:]))
	return summary
}

// BuildScoreDistribution counts scores strictly above each band threshold.
func BuildScoreDistribution(scores []float64) *models.ScoreDistribution {
	dist := &models.ScoreDistribution{Total: len(scores), Bands: make([]models.ScoreBand, 0, len(scoreBandThresholds))}
	for _, threshold := range scoreBandThresholds {
		band := models.ScoreBand{Above: threshold}
		for _, score := range scores {
			if score > threshold {
				band.Count++
			}
		}
		if dist.Total > 0 {
			band.Percentage = round2(float64(band.Count) / float64(dist.Total) * 100)
		}
		dist.Bands = append(dist.Bands, band)
	}
	return dist
}

// BuildReadiness counts scores at or above the qualifying total.
func BuildReadiness(scores []float64) *models.Readiness {
	readiness := &models.Readiness{Threshold: readinessThreshold, Total: len(scores)}
	for _, score := range scores {
		if score >= readinessThreshold {
			readiness.Qualified++
		}
	}
	if readiness.Total > 0 {
		readiness.Percentage = round2(float64(readiness.Qualified) / float64(readiness.Total) * 100)
	}
	return readiness
}

// BuildQuestionMatrix adds accuracy (correct over attempted) to each question row.
func BuildQuestionMatrix(counts []models.QuestionMatrixCounts) []models.QuestionMatrixRow {
	rows := make([]models.QuestionMatrixRow, 0, len(counts))
	for _, c := range counts {
		row := models.QuestionMatrixRow{
			QuestionNumber: c.QuestionNumber,
			Subject:        c.SubjectTag,
			Total:          c.Total,
			Attempted:      c.Attempted,
			Correct:        c.Correct,
			Incorrect:      c.Incorrect,
		}
		if c.Attempted > 0 {
			row.Accuracy = round2(float64(c.Correct) / float64(c.Attempted) * 100)
		}
		rows = append(rows, row)
	}
	return rows
}

// BuildRiskBreakdown assigns students to safe (>70), medium (40 to 70) and at-risk (<40) bands.
func BuildRiskBreakdown(rows []models.StudentPercentage) *models.RiskBreakdown {
	buckets := map[string]*models.RiskBucket{
		models.RiskSafe:   {Band: models.RiskSafe, Students: []models.StudentPercentage{}},
		models.RiskMedium: {Band: models.RiskMedium, Students: []models.StudentPercentage{}},
		models.RiskAtRisk: {Band: models.RiskAtRisk, Students: []models.StudentPercentage{}},
	}
	for _, row := range rows {
		row.Percentage = round2(row.Percentage)
		band := models.RiskMedium
		switch {
		case row.Percentage > riskSafeAbove:
			band = models.RiskSafe
		case row.Percentage < riskAtRiskBelow:
			band = models.RiskAtRisk
		}
		buckets[band].Students = append(buckets[band].Students, row)
		buckets[band].Count++
	}
	return &models.RiskBreakdown{
		Total: len(rows),
		Buckets: []models.RiskBucket{
			*buckets[models.RiskSafe],
			*buckets[models.RiskMedium],
			*buckets[models.RiskAtRisk],
		},
	}
}

var optionLabels = map[int]string{1: "A", 2: "B", 3: "C", 4: "D"}

// BuildQuestionDetail summarises option counts for a question. Options 1 to 4 map to A to D.
func BuildQuestionDetail(question models.Question, counts []models.OptionCount) *models.QuestionDetail {
	detail := &models.QuestionDetail{
		TestCode:       question.TestCode,
		QuestionNumber: question.QuestionNumber,
		CorrectOption:  question.CorrectOption,
		SubjectTag:     question.SubjectTag,
		Distribution:   map[string]int{"A": 0, "B": 0, "C": 0, "D": 0},
	}
	correct := 0
	for _, c := range counts {
		detail.Responses += c.Count
		if c.Option == 0 {
			detail.Unattempted += c.Count
			continue
		}
		if label, ok := optionLabels[c.Option]; ok {
			detail.Distribution[label] += c.Count
		}
		if c.Option == question.CorrectOption {
			correct += c.Count
		}
	}
	if detail.Responses > 0 {
		detail.CorrectPercent = round2(float64(correct) / float64(detail.Responses) * 100)
		detail.AttemptedPercent = round2(float64(detail.Responses-detail.Unattempted) / float64(detail.Responses) * 100)
	}
	return detail
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
