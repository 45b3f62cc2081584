package dto

import "github.com/noah-isme/exam-analytics-api/internal/models"

// ReportQuery captures the shared filters of report endpoints.
// Empty values and values starting with "all" do not filter.
type ReportQuery struct {
	Institution  string `form:"institution" json:"institution,omitempty"`
	Batch        string `form:"batch" json:"batch,omitempty"`
	StudentClass string `form:"student_class" json:"student_class,omitempty"`
	Section      string `form:"section" json:"section,omitempty"`
	TestType     string `form:"test_type" json:"test_type,omitempty"`
	TestCode     string `form:"test_code" json:"test_code,omitempty"`
	Subject      string `form:"subject" json:"subject,omitempty"`
	From         string `form:"from" json:"from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	To           string `form:"to" json:"to,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Month        string `form:"month" json:"month,omitempty" validate:"omitempty,datetime=2006-01"`
	Page         int    `form:"page" json:"page,omitempty" validate:"omitempty,min=1"`
	PageSize     int    `form:"page_size" json:"page_size,omitempty" validate:"omitempty,min=1,max=200"`
}

// ExportQuery selects the leaderboard export format.
type ExportQuery struct {
	ReportQuery
	Format string `form:"format" validate:"required,oneof=csv pdf"`
}

// QuestionDetailQuery identifies a single question.
type QuestionDetailQuery struct {
	TestCode       string `form:"test_code" validate:"required"`
	QuestionNumber int    `form:"question_number" validate:"required,min=1"`
}

// LeaderboardResponse documents the leaderboard payload.
type LeaderboardResponse struct {
	Data       []models.LeaderboardEntry `json:"data"`
	Pagination models.Pagination         `json:"pagination"`
}

// ExportFile is a rendered report ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}
