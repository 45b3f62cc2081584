package models

// Scoring constants applied per response.
const (
	ScoreCorrect    = 4.0
	ScoreIncorrect  = -1.0
	ScoreUnanswered = 0.0
)

// StudentResponse is the selected option of one student for one question of a test.
// SelectedOption 0 means unattempted.
type StudentResponse struct {
	StudentID      int64   `db:"student_id" json:"student_id"`
	TestCode       string  `db:"test_code" json:"test_code"`
	QuestionNumber int     `db:"question_number" json:"question_number"`
	SelectedOption int     `db:"selected_option" json:"selected_option"`
	IsCorrect      bool    `db:"is_correct" json:"is_correct"`
	ScoreAwarded   float64 `db:"score_awarded" json:"score_awarded"`
}

// KeyedResponse is a stored response joined to its question, when one exists.
type KeyedResponse struct {
	StudentResponse
	CorrectOption *int    `db:"correct_option" json:"correct_option,omitempty"`
	SubjectTag    *string `db:"subject_tag" json:"subject_tag,omitempty"`
}

// HasQuestion reports whether the response matched a question row.
func (r KeyedResponse) HasQuestion() bool {
	return r.CorrectOption != nil
}
