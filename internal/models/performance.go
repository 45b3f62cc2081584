package models

// StudentTestPerformance is the total score of a student on a test and its dense rank.
type StudentTestPerformance struct {
	StudentID  int64   `db:"student_id" json:"student_id"`
	TestCode   string  `db:"test_code" json:"test_code"`
	TotalScore float64 `db:"total_score" json:"total_score"`
	Rank       *int    `db:"rank" json:"rank,omitempty"`
}

// StudentSubjectPerformance is the subject score of a student on a test and its dense rank.
type StudentSubjectPerformance struct {
	StudentID    int64   `db:"student_id" json:"student_id"`
	TestCode     string  `db:"test_code" json:"test_code"`
	SubjectTag   string  `db:"subject_tag" json:"subject_tag"`
	SubjectScore float64 `db:"subject_score" json:"subject_score"`
	SubjectRank  *int    `db:"subject_rank" json:"subject_rank,omitempty"`
}

// RankUpdate is a rank assignment for a performance row.
type RankUpdate struct {
	StudentID  int64  `db:"student_id"`
	TestCode   string `db:"test_code"`
	SubjectTag string `db:"subject_tag"`
	Rank       int    `db:"rank"`
}
