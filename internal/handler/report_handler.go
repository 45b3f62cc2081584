package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-analytics-api/internal/dto"
	"github.com/noah-isme/exam-analytics-api/internal/middleware"
	"github.com/noah-isme/exam-analytics-api/internal/models"
	appErrors "github.com/noah-isme/exam-analytics-api/pkg/errors"
	"github.com/noah-isme/exam-analytics-api/pkg/response"
)

type reportProvider interface {
	Leaderboard(ctx context.Context, query dto.ReportQuery) ([]models.LeaderboardEntry, *models.Pagination, bool, error)
	SubjectLeaderboard(ctx context.Context, query dto.ReportQuery) ([]models.SubjectLeaderboardEntry, *models.Pagination, bool, error)
	Dashboard(ctx context.Context, query dto.ReportQuery) (*models.DashboardSummary, bool, error)
	Risk(ctx context.Context, query dto.ReportQuery) (*models.RiskBreakdown, bool, error)
	ScoreDistribution(ctx context.Context, query dto.ReportQuery) (*models.ScoreDistribution, bool, error)
	Readiness(ctx context.Context, query dto.ReportQuery) (*models.Readiness, bool, error)
	QuestionMatrix(ctx context.Context, query dto.ReportQuery) ([]models.QuestionMatrixRow, bool, error)
	QuestionDetail(ctx context.Context, query dto.QuestionDetailQuery) (*models.QuestionDetail, bool, error)
	Filters(ctx context.Context) (*models.FilterOptions, bool, error)
	ExportLeaderboard(ctx context.Context, query dto.ExportQuery) (*dto.ExportFile, error)
}

// ReportHandler exposes read-side views over scored exams.
type ReportHandler struct {
	reports reportProvider
}

// NewReportHandler constructs handler.
func NewReportHandler(reports reportProvider) *ReportHandler {
	return &ReportHandler{reports: reports}
}

func bindReportQuery(c *gin.Context) (dto.ReportQuery, bool) {
	var query dto.ReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return query, false
	}
	middleware.SetFilters(c, query)
	return query, true
}

// Leaderboard godoc
// @Summary Overall leaderboard
// @Description Dense rank over summed total scores of the filtered tests.
// @Tags Reports
// @Produce json
// @Param institution query string false "Institution name"
// @Param batch query string false "Batch name"
// @Param student_class query string false "Student class"
// @Param section query string false "Section"
// @Param test_type query string false "Test type"
// @Param test_code query string false "Test code"
// @Param subject query string false "Subject tag"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.LeaderboardResponse
// @Failure 400 {object} response.Envelope
// @Router /reports/leaderboard [get]
func (h *ReportHandler) Leaderboard(c *gin.Context) {
	query, ok := bindReportQuery(c)
	if !ok {
		return
	}
	entries, pagination, hit, err := h.reports.Leaderboard(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, entries, pagination, middleware.ExtractMeta(c))
}

// ExportLeaderboard godoc
// @Summary Export overall leaderboard
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string true "csv or pdf"
// @Param batch query string false "Batch name"
// @Param test_type query string false "Test type"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /reports/leaderboard/export [get]
func (h *ReportHandler) ExportLeaderboard(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	file, err := h.reports.ExportLeaderboard(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

// SubjectLeaderboard godoc
// @Summary Subject leaderboard
// @Description Stored subject ranks per test and subject tag.
// @Tags Reports
// @Produce json
// @Param test_code query string false "Test code"
// @Param subject query string false "Subject tag"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /reports/subjects/leaderboard [get]
func (h *ReportHandler) SubjectLeaderboard(c *gin.Context) {
	query, ok := bindReportQuery(c)
	if !ok {
		return
	}
	entries, pagination, hit, err := h.reports.SubjectLeaderboard(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, entries, pagination, middleware.ExtractMeta(c))
}

// Dashboard godoc
// @Summary Dashboard cards
// @Tags Reports
// @Produce json
// @Param batch query string false "Batch name"
// @Param test_type query string false "Test type"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /reports/dashboard [get]
func (h *ReportHandler) Dashboard(c *gin.Context) {
	query, ok := bindReportQuery(c)
	if !ok {
		return
	}
	summary, hit, err := h.reports.Dashboard(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}

// Risk godoc
// @Summary Student risk bands
// @Tags Reports
// @Produce json
// @Param batch query string false "Batch name"
// @Param test_type query string false "Test type"
// @Success 200 {object} response.Envelope
// @Router /reports/risk [get]
func (h *ReportHandler) Risk(c *gin.Context) {
	query, ok := bindReportQuery(c)
	if !ok {
		return
	}
	breakdown, hit, err := h.reports.Risk(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, breakdown, nil, middleware.ExtractMeta(c))
}

// ScoreDistribution godoc
// @Summary Score band distribution
// @Description Count and share of (student, test) totals above 600, 550, 500, 400 and 300.
// @Tags Reports
// @Produce json
// @Param batch query string false "Batch name"
// @Param student_class query string false "Student class"
// @Param test_type query string false "Test type"
// @Param test_code query string false "Test code"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reports/score-distribution [get]
func (h *ReportHandler) ScoreDistribution(c *gin.Context) {
	query, ok := bindReportQuery(c)
	if !ok {
		return
	}
	dist, hit, err := h.reports.ScoreDistribution(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, dist, nil, middleware.ExtractMeta(c))
}

// Readiness godoc
// @Summary Qualifying score readiness
// @Description Share of (student, test) totals at or above 400.
// @Tags Reports
// @Produce json
// @Param student_class query string false "Student class"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reports/neet-readiness [get]
func (h *ReportHandler) Readiness(c *gin.Context) {
	query, ok := bindReportQuery(c)
	if !ok {
		return
	}
	readiness, hit, err := h.reports.Readiness(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, readiness, nil, middleware.ExtractMeta(c))
}

// QuestionMatrix godoc
// @Summary Question analytics matrix
// @Description Total, attempted, correct, incorrect and accuracy per question and subject.
// @Tags Reports
// @Produce json
// @Param test_type query string false "Test type"
// @Param month query string false "Month (YYYY-MM)"
// @Param test_code query string false "Test code"
// @Param subject query string false "Subject tag"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reports/qndm [get]
func (h *ReportHandler) QuestionMatrix(c *gin.Context) {
	query, ok := bindReportQuery(c)
	if !ok {
		return
	}
	rows, hit, err := h.reports.QuestionMatrix(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, rows, nil, middleware.ExtractMeta(c))
}

// QuestionDetail godoc
// @Summary Question answer distribution
// @Tags Reports
// @Produce json
// @Param test_code query string true "Test code"
// @Param question_number query int true "Question number"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/questions/detail [get]
func (h *ReportHandler) QuestionDetail(c *gin.Context) {
	var query dto.QuestionDetailQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	detail, hit, err := h.reports.QuestionDetail(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, detail, nil, middleware.ExtractMeta(c))
}

// Filters godoc
// @Summary Available filter values
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/filters [get]
func (h *ReportHandler) Filters(c *gin.Context) {
	options, hit, err := h.reports.Filters(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, options, nil, middleware.ExtractMeta(c))
}
