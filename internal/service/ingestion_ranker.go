package service

import (
	"context"
	"sort"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-analytics-api/internal/models"
)

// DenseRank ranks scores sorted in descending order. Equal scores share a rank and the next
// distinct score takes the previous rank plus one.
func DenseRank(scores []float64) []int {
	ranks := make([]int, len(scores))
	rank := 0
	for i, score := range scores {
		if i == 0 || score != scores[i-1] {
			rank++
		}
		ranks[i] = rank
	}
	return ranks
}

type rankedRow struct {
	group     string
	studentID int64
	testCode  string
	subject   string
	score     float64
	stored    *int
}

// rankChanges orders rows by (group, score desc, student id) and returns the rows whose stored
// rank differs from their dense rank within the group.
func rankChanges(rows []rankedRow) []models.RankUpdate {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].group != rows[j].group {
			return rows[i].group < rows[j].group
		}
		if rows[i].score != rows[j].score {
			return rows[i].score > rows[j].score
		}
		return rows[i].studentID < rows[j].studentID
	})

	updates := make([]models.RankUpdate, 0)
	for start := 0; start < len(rows); {
		end := start
		for end < len(rows) && rows[end].group == rows[start].group {
			end++
		}
		group := rows[start:end]
		scores := make([]float64, len(group))
		for i, row := range group {
			scores[i] = row.score
		}
		for i, rank := range DenseRank(scores) {
			row := group[i]
			if row.stored != nil && *row.stored == rank {
				continue
			}
			updates = append(updates, models.RankUpdate{StudentID: row.studentID, TestCode: row.testCode, SubjectTag: row.subject, Rank: rank})
		}
		start = end
	}
	return updates
}

// RankTests computes rank updates for overall performances, grouped per test.
func RankTests(rows []models.StudentTestPerformance) []models.RankUpdate {
	ranked := make([]rankedRow, len(rows))
	for i, row := range rows {
		ranked[i] = rankedRow{group: row.TestCode, studentID: row.StudentID, testCode: row.TestCode, score: row.TotalScore, stored: row.Rank}
	}
	return rankChanges(ranked)
}

// RankSubjects computes rank updates for subject performances, grouped per (test, subject).
func RankSubjects(rows []models.StudentSubjectPerformance) []models.RankUpdate {
	ranked := make([]rankedRow, len(rows))
	for i, row := range rows {
		ranked[i] = rankedRow{
			group:     row.TestCode + "\x00" + row.SubjectTag,
			studentID: row.StudentID,
			testCode:  row.TestCode,
			subject:   row.SubjectTag,
			score:     row.SubjectScore,
			stored:    row.SubjectRank,
		}
	}
	return rankChanges(ranked)
}

// Ranker assigns dense ranks within each test and each (test, subject) pair.
type Ranker struct {
	performances performanceStore
	batchSize    int
	logger       *zap.Logger
}

// NewRanker constructs a Ranker.
func NewRanker(performances performanceStore, batchSize int, logger *zap.Logger) *Ranker {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ranker{performances: performances, batchSize: batchSize, logger: logger}
}

// Rank persists changed ranks only.
func (r *Ranker) Rank(ctx context.Context, exec sqlx.ExtContext, summary *models.IngestionSummary) error {
	standings, err := r.performances.ListTestStandings(ctx, exec)
	if err != nil {
		return err
	}
	updates := RankTests(standings)
	for start := 0; start < len(updates); start += r.batchSize {
		if err := r.performances.UpdateTestRanks(ctx, exec, updates[start:minInt(start+r.batchSize, len(updates))]); err != nil {
			return err
		}
	}
	summary.RanksUpdated = len(updates)

	subjectStandings, err := r.performances.ListSubjectStandings(ctx, exec)
	if err != nil {
		return err
	}
	subjectUpdates := RankSubjects(subjectStandings)
	for start := 0; start < len(subjectUpdates); start += r.batchSize {
		if err := r.performances.UpdateSubjectRanks(ctx, exec, subjectUpdates[start:minInt(start+r.batchSize, len(subjectUpdates))]); err != nil {
			return err
		}
	}
	summary.SubjectRanksUpdated = len(subjectUpdates)

	r.logger.Debug("ranks assigned", zap.Int("tests", len(updates)), zap.Int("subjects", len(subjectUpdates)))
	return nil
}
