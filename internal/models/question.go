package models

// Question carries the answer key for one question number of a test.
// CorrectOption 0 means the question has no valid answer.
type Question struct {
	ID             int64   `db:"id" json:"id"`
	TestCode       string  `db:"test_code" json:"test_code"`
	QuestionNumber int     `db:"question_number" json:"question_number"`
	CorrectOption  int     `db:"correct_option" json:"correct_option"`
	SubjectTag     *string `db:"subject_tag" json:"subject_tag,omitempty"`
}
