package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-analytics-api/internal/models"
)

type performanceStore interface {
	UpsertTestTotals(ctx context.Context, exec sqlx.ExtContext, rows []models.StudentTestPerformance) error
	UpsertSubjectTotals(ctx context.Context, exec sqlx.ExtContext, rows []models.StudentSubjectPerformance) error
	PruneSubjectTotals(ctx context.Context, exec sqlx.ExtContext) (int64, error)
	ListTestStandings(ctx context.Context, exec sqlx.ExtContext) ([]models.StudentTestPerformance, error)
	ListSubjectStandings(ctx context.Context, exec sqlx.ExtContext) ([]models.StudentSubjectPerformance, error)
	UpdateTestRanks(ctx context.Context, exec sqlx.ExtContext, updates []models.RankUpdate) error
	UpdateSubjectRanks(ctx context.Context, exec sqlx.ExtContext, updates []models.RankUpdate) error
}

type testKey struct {
	studentID int64
	testCode  string
}

type subjectKey struct {
	studentID int64
	testCode  string
	subject   string
}

// Aggregate sums awarded scores per (student, test) and per (student, test, subject).
// Every response counts towards its test total. Only responses whose question carries a
// subject tag count towards a subject total. Output keeps first-seen order.
func Aggregate(keyed []models.KeyedResponse) ([]models.StudentTestPerformance, []models.StudentSubjectPerformance) {
	totals := make([]models.StudentTestPerformance, 0)
	totalIndex := make(map[testKey]int)
	subjects := make([]models.StudentSubjectPerformance, 0)
	subjectIndex := make(map[subjectKey]int)

	for _, resp := range keyed {
		tk := testKey{studentID: resp.StudentID, testCode: resp.TestCode}
		idx, ok := totalIndex[tk]
		if !ok {
			idx = len(totals)
			totalIndex[tk] = idx
			totals = append(totals, models.StudentTestPerformance{StudentID: resp.StudentID, TestCode: resp.TestCode})
		}
		totals[idx].TotalScore += resp.ScoreAwarded

		if !resp.HasQuestion() || resp.SubjectTag == nil {
			continue
		}
		sk := subjectKey{studentID: resp.StudentID, testCode: resp.TestCode, subject: *resp.SubjectTag}
		idx, ok = subjectIndex[sk]
		if !ok {
			idx = len(subjects)
			subjectIndex[sk] = idx
			subjects = append(subjects, models.StudentSubjectPerformance{StudentID: resp.StudentID, TestCode: resp.TestCode, SubjectTag: *resp.SubjectTag})
		}
		subjects[idx].SubjectScore += resp.ScoreAwarded
	}
	return totals, subjects
}

// Aggregator rebuilds the derived performance tables from scored responses.
type Aggregator struct {
	responses    responseStore
	performances performanceStore
	batchSize    int
	logger       *zap.Logger
}

// NewAggregator constructs an Aggregator.
func NewAggregator(responses responseStore, performances performanceStore, batchSize int, logger *zap.Logger) *Aggregator {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{responses: responses, performances: performances, batchSize: batchSize, logger: logger}
}

// Aggregate upserts every total with its rank cleared and removes subject rows that no
// longer have any tagged response.
func (a *Aggregator) Aggregate(ctx context.Context, exec sqlx.ExtContext, summary *models.IngestionSummary) error {
	keyed, err := a.responses.ListKeyed(ctx, exec)
	if err != nil {
		return err
	}
	totals, subjects := Aggregate(keyed)

	for start := 0; start < len(totals); start += a.batchSize {
		if err := a.performances.UpsertTestTotals(ctx, exec, totals[start:minInt(start+a.batchSize, len(totals))]); err != nil {
			return err
		}
	}
	for start := 0; start < len(subjects); start += a.batchSize {
		if err := a.performances.UpsertSubjectTotals(ctx, exec, subjects[start:minInt(start+a.batchSize, len(subjects))]); err != nil {
			return err
		}
	}
	pruned, err := a.performances.PruneSubjectTotals(ctx, exec)
	if err != nil {
		return err
	}

	summary.TestPerformances = len(totals)
	summary.SubjectPerformances = len(subjects)
	summary.StaleSubjectsPruned = int(pruned)
	if pruned > 0 {
		a.logger.Info("pruned stale subject performances", zap.Int64("count", pruned))
	}
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
