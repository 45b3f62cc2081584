package models

import "time"

// IngestionSummary counts what one ingestion run processed.
type IngestionSummary struct {
	ResponseRows        int `json:"response_rows"`
	ResponseRowsSkipped int `json:"response_rows_skipped"`
	MalformedRecords    int `json:"malformed_records"`
	Institutions        int `json:"institutions"`
	Batches             int `json:"batches"`
	StudentsCreated     int `json:"students_created"`
	Tests               int `json:"tests"`
	Responses           int `json:"responses"`
	AnswerKeyRows       int `json:"answer_key_rows"`
	AnswerKeySkipped    int `json:"answer_key_skipped"`
	Questions           int `json:"questions"`
	ResponsesRescored   int `json:"responses_rescored"`
	TestPerformances    int `json:"test_performances"`
	SubjectPerformances int `json:"subject_performances"`
	StaleSubjectsPruned int `json:"stale_subjects_pruned"`
	RanksUpdated        int `json:"ranks_updated"`
	SubjectRanksUpdated int `json:"subject_ranks_updated"`
}

// IngestionResult is the outcome of a committed ingestion run.
type IngestionResult struct {
	RunID      string           `json:"run_id"`
	Message    string           `json:"message"`
	Summary    IngestionSummary `json:"summary"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}
