package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-analytics-api/internal/models"
	"github.com/noah-isme/exam-analytics-api/pkg/csvreader"
)

// Response sheet column names.
const (
	colInstitution = "Institution"
	colBatch       = "Batch"
	colStudentID   = "sturecid"
	colStudentName = "sname"
	colClass       = "class"
	colSection     = "sec"
	colExternalID  = "claid"
	colTestCode    = "testid"
	colExamDate    = "exdate"
	colSubject     = "subject"
	answerPrefix   = "a"

	examDateLayout    = "2-1-2006"
	testTypeSeparator = " - "
)

type institutionStore interface {
	GetOrCreate(ctx context.Context, exec sqlx.ExtContext, name string) (*models.Institution, error)
}

type batchStore interface {
	GetOrCreate(ctx context.Context, exec sqlx.ExtContext, name string, institutionID int64) (*models.Batch, error)
}

type studentStore interface {
	GetOrCreate(ctx context.Context, exec sqlx.ExtContext, student *models.Student) (bool, error)
}

type testStore interface {
	Upsert(ctx context.Context, exec sqlx.ExtContext, test *models.Test) error
	ExistsByCode(ctx context.Context, exec sqlx.ExtContext, code string) (bool, error)
}

type responseStore interface {
	UpsertBatch(ctx context.Context, exec sqlx.ExtContext, responses []models.StudentResponse) error
	ListKeyed(ctx context.Context, exec sqlx.ExtContext) ([]models.KeyedResponse, error)
	UpdateScores(ctx context.Context, exec sqlx.ExtContext, responses []models.StudentResponse) error
}

// ResponseRow is the typed form of one response sheet record. Answers[i] holds question i+1.
type ResponseRow struct {
	Institution string
	Batch       string
	StudentID   string
	StudentName string
	Class       string
	Section     string
	ExternalID  string
	TestCode    string
	ExamDate    string
	Subject     string
	Answers     []string
}

// DecodeResponseRow maps a header-keyed record onto a ResponseRow with maxQuestions answers.
// Absent columns read as blank.
func DecodeResponseRow(row csvreader.Row, maxQuestions int) ResponseRow {
	decoded := ResponseRow{
		Institution: strings.TrimSpace(row.Get(colInstitution)),
		Batch:       strings.TrimSpace(row.Get(colBatch)),
		StudentID:   strings.TrimSpace(row.Get(colStudentID)),
		StudentName: strings.TrimSpace(row.Get(colStudentName)),
		Class:       strings.TrimSpace(row.Get(colClass)),
		Section:     strings.TrimSpace(row.Get(colSection)),
		ExternalID:  strings.TrimSpace(row.Get(colExternalID)),
		TestCode:    strings.TrimSpace(row.Get(colTestCode)),
		ExamDate:    strings.TrimSpace(row.Get(colExamDate)),
		Subject:     row.Get(colSubject),
		Answers:     make([]string, maxQuestions),
	}
	for i := range decoded.Answers {
		decoded.Answers[i] = row.Get(answerPrefix + strconv.Itoa(i+1))
	}
	return decoded
}

// missingFields lists the identity columns a row cannot be resolved without.
func (r ResponseRow) missingFields() []string {
	var missing []string
	if r.Institution == "" {
		missing = append(missing, colInstitution)
	}
	if r.Batch == "" {
		missing = append(missing, colBatch)
	}
	if r.StudentID == "" {
		missing = append(missing, colStudentID)
	}
	if r.TestCode == "" {
		missing = append(missing, colTestCode)
	}
	return missing
}

// ParseTestType returns the part of a composite subject field before the first " - ".
func ParseTestType(subject string) string {
	head, _, _ := strings.Cut(subject, testTypeSeparator)
	return strings.TrimSpace(head)
}

// ParseExamDate parses a DD-MM-YYYY date. Blank input yields nil without error.
func ParseExamDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(examDateLayout, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// ParseOption reads an integer that may be written as a float ("2.0").
// The fractional part is truncated.
func ParseOption(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value > math.MaxInt32 || value < math.MinInt32 {
		return 0, fmt.Errorf("option %q out of range", raw)
	}
	return int(value), nil
}

// ParseStudentID reads a positive numeric student record id, tolerating a ".0" suffix.
func ParseStudentID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		value, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || value != math.Trunc(value) || value > math.MaxInt64 {
			return 0, fmt.Errorf("invalid student id %q", raw)
		}
		id = int64(value)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid student id %q", raw)
	}
	return id, nil
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

type responseKey struct {
	studentID int64
	testCode  string
	question  int
}

// EntityResolver turns response sheet rows into institutions, batches, students, tests
// and unscored responses.
type EntityResolver struct {
	institutions institutionStore
	batches      batchStore
	students     studentStore
	tests        testStore
	responses    responseStore
	maxQuestions int
	batchSize    int
	logger       *zap.Logger
}

// NewEntityResolver constructs an EntityResolver.
func NewEntityResolver(institutions institutionStore, batches batchStore, students studentStore, tests testStore, responses responseStore, maxQuestions, batchSize int, logger *zap.Logger) *EntityResolver {
	if maxQuestions <= 0 {
		maxQuestions = defaultMaxQuestions
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntityResolver{
		institutions: institutions,
		batches:      batches,
		students:     students,
		tests:        tests,
		responses:    responses,
		maxQuestions: maxQuestions,
		batchSize:    batchSize,
		logger:       logger,
	}
}

// Resolve processes rows in order. Rows lacking identity fields are skipped with a warning.
// Students keep their first-seen attributes; tests take the attributes of the last row naming them.
func (r *EntityResolver) Resolve(ctx context.Context, exec sqlx.ExtContext, rows []csvreader.Row, summary *models.IngestionSummary) error {
	institutions := make(map[string]*models.Institution)
	batches := make(map[string]*models.Batch)
	seenStudents := make(map[int64]struct{})

	testOrder := make([]string, 0)
	tests := make(map[string]*models.Test)

	responseOrder := make([]responseKey, 0)
	responses := make(map[responseKey]models.StudentResponse)

	for i, raw := range rows {
		line := i + 2
		row := DecodeResponseRow(raw, r.maxQuestions)
		summary.ResponseRows++

		if missing := row.missingFields(); len(missing) > 0 {
			r.logger.Warn("skipping response row with missing fields", zap.Int("row", line), zap.Strings("missing", missing))
			summary.ResponseRowsSkipped++
			continue
		}
		id, err := ParseStudentID(row.StudentID)
		if err != nil {
			r.logger.Warn("skipping response row with invalid student id", zap.Int("row", line), zap.String("sturecid", row.StudentID))
			summary.ResponseRowsSkipped++
			continue
		}

		institution, ok := institutions[row.Institution]
		if !ok {
			institution, err = r.institutions.GetOrCreate(ctx, exec, row.Institution)
			if err != nil {
				return err
			}
			institutions[row.Institution] = institution
			summary.Institutions++
		}

		batchKey := fmt.Sprintf("%d/%s", institution.ID, row.Batch)
		batch, ok := batches[batchKey]
		if !ok {
			batch, err = r.batches.GetOrCreate(ctx, exec, row.Batch, institution.ID)
			if err != nil {
				return err
			}
			batches[batchKey] = batch
			summary.Batches++
		}

		if _, seen := seenStudents[id]; !seen {
			created, err := r.students.GetOrCreate(ctx, exec, &models.Student{
				ID:         id,
				Name:       row.StudentName,
				Class:      row.Class,
				Section:    optionalString(row.Section),
				ExternalID: optionalString(row.ExternalID),
			})
			if err != nil {
				return err
			}
			if created {
				summary.StudentsCreated++
			}
			seenStudents[id] = struct{}{}
		}

		testDate, err := ParseExamDate(row.ExamDate)
		if err != nil {
			r.logger.Warn("invalid exam date, expected DD-MM-YYYY; test date left empty",
				zap.Int("row", line), zap.String("test_code", row.TestCode), zap.String("exdate", row.ExamDate))
		}
		if _, ok := tests[row.TestCode]; !ok {
			testOrder = append(testOrder, row.TestCode)
		}
		tests[row.TestCode] = &models.Test{
			Code:          row.TestCode,
			TestDate:      testDate,
			TestType:      ParseTestType(row.Subject),
			InstitutionID: institution.ID,
			BatchID:       batch.ID,
		}

		for q, answer := range row.Answers {
			selected, err := ParseOption(answer)
			if err != nil || selected < 0 {
				r.logger.Warn("invalid selected option, treated as unattempted",
					zap.Int("row", line), zap.String("test_code", row.TestCode), zap.Int("question", q+1), zap.String("value", answer))
				selected = 0
			}
			key := responseKey{studentID: id, testCode: row.TestCode, question: q + 1}
			if _, ok := responses[key]; !ok {
				responseOrder = append(responseOrder, key)
			}
			responses[key] = models.StudentResponse{
				StudentID:      id,
				TestCode:       row.TestCode,
				QuestionNumber: q + 1,
				SelectedOption: selected,
			}
		}
	}

	for _, code := range testOrder {
		if err := r.tests.Upsert(ctx, exec, tests[code]); err != nil {
			return err
		}
	}
	summary.Tests = len(testOrder)

	batch := make([]models.StudentResponse, 0, r.batchSize)
	for _, key := range responseOrder {
		batch = append(batch, responses[key])
		if len(batch) == r.batchSize {
			if err := r.responses.UpsertBatch(ctx, exec, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := r.responses.UpsertBatch(ctx, exec, batch); err != nil {
		return err
	}
	summary.Responses = len(responseOrder)
	return nil
}
