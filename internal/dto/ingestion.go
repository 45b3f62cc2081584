package dto

import "github.com/noah-isme/exam-analytics-api/internal/models"

// Multipart field names of the ingestion upload.
const (
	ResponsesField = "sr_file"
	AnswerKeyField = "ak_file"
)

// IngestionResponse documents the ingestion endpoint body.
type IngestionResponse struct {
	Status  string                   `json:"status" example:"success"`
	Message string                   `json:"message" example:"All data loaded successfully."`
	RunID   string                   `json:"run_id,omitempty"`
	Summary *models.IngestionSummary `json:"summary,omitempty"`
}
