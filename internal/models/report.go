package models

import "time"

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// ReportFilter scopes read-side queries. Empty fields do not filter.
// Month holds the first day of the calendar month a test date must fall in.
type ReportFilter struct {
	Institution  string
	Batch        string
	StudentClass string
	Section      string
	TestType     string
	TestCode     string
	Subject      string
	DateFrom     *time.Time
	DateTo       *time.Time
	Month        *time.Time
	Page         int
	PageSize     int
}

// LeaderboardEntry is one student's overall standing over the filtered tests.
type LeaderboardEntry struct {
	Rank         int     `db:"rank" json:"rank"`
	StudentID    int64   `db:"student_id" json:"student_id"`
	StudentName  string  `db:"student_name" json:"student_name"`
	StudentClass string  `db:"student_class" json:"student_class"`
	Section      *string `db:"section" json:"section,omitempty"`
	TestsTaken   int     `db:"tests_taken" json:"tests_taken"`
	TotalScore   float64 `db:"total_score" json:"total_score"`
}

// SubjectLeaderboardEntry is a stored subject rank row.
type SubjectLeaderboardEntry struct {
	SubjectRank  *int    `db:"subject_rank" json:"subject_rank,omitempty"`
	StudentID    int64   `db:"student_id" json:"student_id"`
	StudentName  string  `db:"student_name" json:"student_name"`
	TestCode     string  `db:"test_code" json:"test_code"`
	SubjectTag   string  `db:"subject_tag" json:"subject_tag"`
	SubjectScore float64 `db:"subject_score" json:"subject_score"`
}

// DashboardCounts holds raw counters behind the dashboard cards.
type DashboardCounts struct {
	TestsConducted int `db:"tests_conducted"`
	Students       int `db:"students"`
	Responses      int `db:"responses"`
	Attempted      int `db:"attempted"`
	Correct        int `db:"correct"`
}

// DashboardSummary is the computed dashboard card set.
type DashboardSummary struct {
	TestsConducted    int     `json:"tests_conducted"`
	Students          int     `json:"students"`
	AccuracyPercent   float64 `json:"accuracy_percent"`
	AttemptRate       float64 `json:"attempt_rate_percent"`
	AverageTotalScore float64 `json:"average_total_score"`
	TopDecileAverage  float64 `json:"top_10_percent_average"`
	LowDecileAverage  float64 `json:"bottom_10_percent_average"`
}

// StudentPercentage is a student's average score as a share of the maximum attainable score.
type StudentPercentage struct {
	StudentID   int64   `db:"student_id" json:"student_id"`
	StudentName string  `db:"student_name" json:"student_name"`
	Percentage  float64 `db:"percentage" json:"percentage"`
}

// Risk bucket names.
const (
	RiskSafe   = "safe"
	RiskMedium = "medium"
	RiskAtRisk = "at_risk"
)

// RiskBucket aggregates students falling into one band.
type RiskBucket struct {
	Band     string              `json:"band"`
	Count    int                 `json:"count"`
	Students []StudentPercentage `json:"students"`
}

// RiskBreakdown groups students by average percentage.
type RiskBreakdown struct {
	Total   int          `json:"total"`
	Buckets []RiskBucket `json:"buckets"`
}

// OptionCount is the number of responses choosing one option.
type OptionCount struct {
	Option int `db:"selected_option" json:"option"`
	Count  int `db:"total" json:"count"`
}

// QuestionDetail describes how a question was answered.
type QuestionDetail struct {
	TestCode         string         `json:"test_code"`
	QuestionNumber   int            `json:"question_number"`
	CorrectOption    int            `json:"correct_option"`
	SubjectTag       *string        `json:"subject_tag,omitempty"`
	Responses        int            `json:"responses"`
	Unattempted      int            `json:"unattempted"`
	Distribution     map[string]int `json:"distribution"`
	CorrectPercent   float64        `json:"correct_percent"`
	AttemptedPercent float64        `json:"attempted_percent"`
}

// FilterOptions lists the distinct values available to report filters.
type FilterOptions struct {
	Institutions []string `json:"institutions"`
	Batches      []string `json:"batches"`
	Classes      []string `json:"classes"`
	Sections     []string `json:"sections"`
	TestTypes    []string `json:"test_types"`
	TestCodes    []string `json:"test_codes"`
	Subjects     []string `json:"subjects"`
}

// ScoreBand counts performances whose total exceeds a threshold.
type ScoreBand struct {
	Above      float64 `json:"above"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// ScoreDistribution buckets (student, test) totals against fixed thresholds.
type ScoreDistribution struct {
	Total int         `json:"total"`
	Bands []ScoreBand `json:"bands"`
}

// Readiness is the share of performances at or above the qualifying total.
type Readiness struct {
	Threshold  float64 `json:"threshold"`
	Total      int     `json:"total"`
	Qualified  int     `json:"qualified"`
	Percentage float64 `json:"percentage"`
}

// QuestionMatrixCounts holds raw response counters for one question.
type QuestionMatrixCounts struct {
	QuestionNumber int    `db:"question_number"`
	SubjectTag     string `db:"subject_tag"`
	Total          int    `db:"total"`
	Attempted      int    `db:"attempted"`
	Correct        int    `db:"correct"`
	Incorrect      int    `db:"incorrect"`
}

// QuestionMatrixRow is one row of the question analytics matrix.
type QuestionMatrixRow struct {
	QuestionNumber int     `json:"question_number"`
	Subject        string  `json:"subject"`
	Total          int     `json:"total_count"`
	Attempted      int     `json:"attempted"`
	Correct        int     `json:"correct"`
	Incorrect      int     `json:"incorrect"`
	Accuracy       float64 `json:"accuracy"`
}
