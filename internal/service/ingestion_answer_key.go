package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-analytics-api/internal/models"
)

// Answer key columns are positional.
const (
	akQuestionNumber = iota
	akTestCode
	akSubjectTag
	akCorrectOption
	akColumns
)

type questionStore interface {
	Upsert(ctx context.Context, exec sqlx.ExtContext, question *models.Question) error
}

// AnswerKeyLoader merges answer key records into questions.
type AnswerKeyLoader struct {
	tests     testStore
	questions questionStore
	logger    *zap.Logger
}

// NewAnswerKeyLoader constructs an AnswerKeyLoader.
func NewAnswerKeyLoader(tests testStore, questions questionStore, logger *zap.Logger) *AnswerKeyLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnswerKeyLoader{tests: tests, questions: questions, logger: logger}
}

// ParseAnswerKeyRecord converts a positional record into a question.
// It returns a reason string when the record must be skipped.
func ParseAnswerKeyRecord(record []string) (*models.Question, string) {
	if len(record) < akColumns {
		return nil, "missing columns"
	}
	number, err := strconv.Atoi(strings.TrimSpace(record[akQuestionNumber]))
	if err != nil {
		return nil, "invalid question number"
	}
	if number <= 0 {
		return nil, "non-positive question number"
	}
	code := strings.TrimSpace(record[akTestCode])
	if code == "" {
		return nil, "missing test code"
	}
	correct, err := ParseOption(record[akCorrectOption])
	if err != nil || correct < 0 {
		return nil, "invalid correct option"
	}
	return &models.Question{
		TestCode:       code,
		QuestionNumber: number,
		CorrectOption:  correct,
		SubjectTag:     optionalString(strings.TrimSpace(record[akSubjectTag])),
	}, ""
}

// Load upserts one question per valid record. records[0] is the header and is ignored.
// Records referencing unknown tests are skipped; store failures abort the load.
func (l *AnswerKeyLoader) Load(ctx context.Context, exec sqlx.ExtContext, records [][]string, summary *models.IngestionSummary) error {
	if len(records) == 0 {
		return nil
	}
	known := make(map[string]bool)

	for i, record := range records[1:] {
		line := i + 2
		summary.AnswerKeyRows++

		question, reason := ParseAnswerKeyRecord(record)
		if question == nil {
			l.logger.Warn("skipping answer key row", zap.Int("row", line), zap.String("reason", reason), zap.Strings("record", record))
			summary.AnswerKeySkipped++
			continue
		}

		exists, cached := known[question.TestCode]
		if !cached {
			var err error
			exists, err = l.tests.ExistsByCode(ctx, exec, question.TestCode)
			if err != nil {
				return err
			}
			known[question.TestCode] = exists
		}
		if !exists {
			l.logger.Warn("skipping answer key row for unknown test",
				zap.Int("row", line), zap.String("test_code", question.TestCode), zap.Int("question", question.QuestionNumber))
			summary.AnswerKeySkipped++
			continue
		}

		if err := l.questions.Upsert(ctx, exec, question); err != nil {
			return err
		}
		summary.Questions++
	}
	return nil
}
