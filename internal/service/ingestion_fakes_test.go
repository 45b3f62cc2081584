package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-analytics-api/internal/models"
	appErrors "github.com/noah-isme/exam-analytics-api/pkg/errors"
)

var errStoreDown = errors.New("store down")

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

type questionKey struct {
	testCode string
	number   int
}

// memoryDB mimics the relational tables the pipeline writes to.
type memoryDB struct {
	institutions map[string]*models.Institution
	batches      map[string]*models.Batch
	students     map[int64]models.Student
	tests        map[string]models.Test
	questions    map[questionKey]models.Question
	responses    map[responseKey]models.StudentResponse
	testPerf     map[testKey]models.StudentTestPerformance
	subjectPerf  map[subjectKey]models.StudentSubjectPerformance
	nextID       int64
	lockedKeys   []int64
	failOn       string
}

func newMemoryDB() *memoryDB {
	return &memoryDB{
		institutions: make(map[string]*models.Institution),
		batches:      make(map[string]*models.Batch),
		students:     make(map[int64]models.Student),
		tests:        make(map[string]models.Test),
		questions:    make(map[questionKey]models.Question),
		responses:    make(map[responseKey]models.StudentResponse),
		testPerf:     make(map[testKey]models.StudentTestPerformance),
		subjectPerf:  make(map[subjectKey]models.StudentSubjectPerformance),
	}
}

func (m *memoryDB) fail(op string) error {
	if m.failOn == op {
		return errStoreDown
	}
	return nil
}

func (m *memoryDB) params() IngestionServiceParams {
	return IngestionServiceParams{
		Locker:       memLocker{m},
		Institutions: memInstitutions{m},
		Batches:      memBatches{m},
		Students:     memStudents{m},
		Tests:        memTests{m},
		Questions:    memQuestions{m},
		Responses:    memResponses{m},
		Performances: memPerformances{m},
	}
}

func (m *memoryDB) response(studentID int64, testCode string, number int) models.StudentResponse {
	return m.responses[responseKey{studentID: studentID, testCode: testCode, question: number}]
}

func (m *memoryDB) total(studentID int64, testCode string) models.StudentTestPerformance {
	return m.testPerf[testKey{studentID: studentID, testCode: testCode}]
}

func (m *memoryDB) subject(studentID int64, testCode, subject string) (models.StudentSubjectPerformance, bool) {
	row, ok := m.subjectPerf[subjectKey{studentID: studentID, testCode: testCode, subject: subject}]
	return row, ok
}

type memLocker struct{ db *memoryDB }

func (l memLocker) AcquireTx(ctx context.Context, exec sqlx.ExtContext, key int64) error {
	if err := l.db.fail("lock"); err != nil {
		return err
	}
	l.db.lockedKeys = append(l.db.lockedKeys, key)
	return nil
}

type memInstitutions struct{ db *memoryDB }

func (s memInstitutions) GetOrCreate(ctx context.Context, exec sqlx.ExtContext, name string) (*models.Institution, error) {
	if existing, ok := s.db.institutions[name]; ok {
		return existing, nil
	}
	s.db.nextID++
	inst := &models.Institution{ID: s.db.nextID, Name: name}
	s.db.institutions[name] = inst
	return inst, nil
}

type memBatches struct{ db *memoryDB }

func (s memBatches) GetOrCreate(ctx context.Context, exec sqlx.ExtContext, name string, institutionID int64) (*models.Batch, error) {
	key := fmt.Sprintf("%d/%s", institutionID, name)
	if existing, ok := s.db.batches[key]; ok {
		return existing, nil
	}
	s.db.nextID++
	batch := &models.Batch{ID: s.db.nextID, Name: name, InstitutionID: institutionID}
	s.db.batches[key] = batch
	return batch, nil
}

type memStudents struct{ db *memoryDB }

func (s memStudents) GetOrCreate(ctx context.Context, exec sqlx.ExtContext, student *models.Student) (bool, error) {
	if err := s.db.fail("students"); err != nil {
		return false, err
	}
	if _, ok := s.db.students[student.ID]; ok {
		return false, nil
	}
	s.db.students[student.ID] = *student
	return true, nil
}

type memTests struct{ db *memoryDB }

func (s memTests) Upsert(ctx context.Context, exec sqlx.ExtContext, test *models.Test) error {
	s.db.tests[test.Code] = *test
	return nil
}

func (s memTests) ExistsByCode(ctx context.Context, exec sqlx.ExtContext, code string) (bool, error) {
	_, ok := s.db.tests[code]
	return ok, nil
}

type memQuestions struct{ db *memoryDB }

func (s memQuestions) Upsert(ctx context.Context, exec sqlx.ExtContext, question *models.Question) error {
	if err := s.db.fail("questions"); err != nil {
		return err
	}
	s.db.questions[questionKey{testCode: question.TestCode, number: question.QuestionNumber}] = *question
	return nil
}

type memResponses struct{ db *memoryDB }

func (s memResponses) UpsertBatch(ctx context.Context, exec sqlx.ExtContext, responses []models.StudentResponse) error {
	for _, resp := range responses {
		s.db.responses[responseKey{studentID: resp.StudentID, testCode: resp.TestCode, question: resp.QuestionNumber}] = resp
	}
	return nil
}

func (s memResponses) ListKeyed(ctx context.Context, exec sqlx.ExtContext) ([]models.KeyedResponse, error) {
	keyed := make([]models.KeyedResponse, 0, len(s.db.responses))
	for _, resp := range s.db.responses {
		row := models.KeyedResponse{StudentResponse: resp}
		if q, ok := s.db.questions[questionKey{testCode: resp.TestCode, number: resp.QuestionNumber}]; ok {
			correct := q.CorrectOption
			row.CorrectOption = &correct
			row.SubjectTag = q.SubjectTag
		}
		keyed = append(keyed, row)
	}
	sort.Slice(keyed, func(i, j int) bool {
		a, b := keyed[i], keyed[j]
		if a.TestCode != b.TestCode {
			return a.TestCode < b.TestCode
		}
		if a.StudentID != b.StudentID {
			return a.StudentID < b.StudentID
		}
		return a.QuestionNumber < b.QuestionNumber
	})
	return keyed, nil
}

func (s memResponses) UpdateScores(ctx context.Context, exec sqlx.ExtContext, responses []models.StudentResponse) error {
	if err := s.db.fail("scores"); err != nil {
		return err
	}
	return s.UpsertBatch(ctx, exec, responses)
}

type memPerformances struct{ db *memoryDB }

func (s memPerformances) UpsertTestTotals(ctx context.Context, exec sqlx.ExtContext, rows []models.StudentTestPerformance) error {
	if err := s.db.fail("totals"); err != nil {
		return err
	}
	for _, row := range rows {
		row.Rank = nil
		s.db.testPerf[testKey{studentID: row.StudentID, testCode: row.TestCode}] = row
	}
	return nil
}

func (s memPerformances) UpsertSubjectTotals(ctx context.Context, exec sqlx.ExtContext, rows []models.StudentSubjectPerformance) error {
	for _, row := range rows {
		row.SubjectRank = nil
		s.db.subjectPerf[subjectKey{studentID: row.StudentID, testCode: row.TestCode, subject: row.SubjectTag}] = row
	}
	return nil
}

func (s memPerformances) PruneSubjectTotals(ctx context.Context, exec sqlx.ExtContext) (int64, error) {
	live := make(map[subjectKey]struct{})
	for _, resp := range s.db.responses {
		q, ok := s.db.questions[questionKey{testCode: resp.TestCode, number: resp.QuestionNumber}]
		if !ok || q.SubjectTag == nil {
			continue
		}
		live[subjectKey{studentID: resp.StudentID, testCode: resp.TestCode, subject: *q.SubjectTag}] = struct{}{}
	}
	var pruned int64
	for key := range s.db.subjectPerf {
		if _, ok := live[key]; !ok {
			delete(s.db.subjectPerf, key)
			pruned++
		}
	}
	return pruned, nil
}

func (s memPerformances) ListTestStandings(ctx context.Context, exec sqlx.ExtContext) ([]models.StudentTestPerformance, error) {
	rows := make([]models.StudentTestPerformance, 0, len(s.db.testPerf))
	for _, row := range s.db.testPerf {
		rows = append(rows, row)
	}
	return rows, nil
}

func (s memPerformances) ListSubjectStandings(ctx context.Context, exec sqlx.ExtContext) ([]models.StudentSubjectPerformance, error) {
	rows := make([]models.StudentSubjectPerformance, 0, len(s.db.subjectPerf))
	for _, row := range s.db.subjectPerf {
		rows = append(rows, row)
	}
	return rows, nil
}

func (s memPerformances) UpdateTestRanks(ctx context.Context, exec sqlx.ExtContext, updates []models.RankUpdate) error {
	for _, update := range updates {
		key := testKey{studentID: update.StudentID, testCode: update.TestCode}
		row := s.db.testPerf[key]
		rank := update.Rank
		row.Rank = &rank
		s.db.testPerf[key] = row
	}
	return nil
}

func (s memPerformances) UpdateSubjectRanks(ctx context.Context, exec sqlx.ExtContext, updates []models.RankUpdate) error {
	for _, update := range updates {
		key := subjectKey{studentID: update.StudentID, testCode: update.TestCode, subject: update.SubjectTag}
		row := s.db.subjectPerf[key]
		rank := update.Rank
		row.SubjectRank = &rank
		s.db.subjectPerf[key] = row
	}
	return nil
}

type memArchive struct {
	saved map[string][]byte
}

func (a *memArchive) Save(filename string, data []byte) (string, error) {
	if a.saved == nil {
		a.saved = make(map[string][]byte)
	}
	a.saved[filename] = data
	return filename, nil
}

type memCacheRepo struct {
	patterns []string
}

func (r *memCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	return appErrors.ErrCacheMiss
}

func (r *memCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (r *memCacheRepo) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	r.patterns = append(r.patterns, pattern)
	return 0, nil
}
