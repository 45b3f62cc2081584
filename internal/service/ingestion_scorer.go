package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-analytics-api/internal/models"
)

// ScoreResponse applies the fixed marking scheme: unattempted 0, correct +4, incorrect -1.
func ScoreResponse(selected, correct int) (bool, float64) {
	isCorrect := selected == correct
	switch {
	case selected == 0:
		return isCorrect, models.ScoreUnanswered
	case isCorrect:
		return true, models.ScoreCorrect
	default:
		return false, models.ScoreIncorrect
	}
}

// ResponseScorer recomputes correctness for every stored response that has a question.
type ResponseScorer struct {
	responses responseStore
	batchSize int
	logger    *zap.Logger
}

// NewResponseScorer constructs a ResponseScorer.
func NewResponseScorer(responses responseStore, batchSize int, logger *zap.Logger) *ResponseScorer {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResponseScorer{responses: responses, batchSize: batchSize, logger: logger}
}

// RescoreChanged returns the responses whose stored score differs from the recomputed one.
// Responses without a question keep their unscored state.
func RescoreChanged(keyed []models.KeyedResponse) []models.StudentResponse {
	changed := make([]models.StudentResponse, 0)
	for _, resp := range keyed {
		if !resp.HasQuestion() {
			continue
		}
		isCorrect, score := ScoreResponse(resp.SelectedOption, *resp.CorrectOption)
		if resp.IsCorrect == isCorrect && resp.ScoreAwarded == score {
			continue
		}
		updated := resp.StudentResponse
		updated.IsCorrect = isCorrect
		updated.ScoreAwarded = score
		changed = append(changed, updated)
	}
	return changed
}

// Score persists changed scores in batches. A single pass is sufficient since the score
// depends only on the selected and correct options.
func (s *ResponseScorer) Score(ctx context.Context, exec sqlx.ExtContext, summary *models.IngestionSummary) error {
	keyed, err := s.responses.ListKeyed(ctx, exec)
	if err != nil {
		return err
	}
	changed := RescoreChanged(keyed)
	for start := 0; start < len(changed); start += s.batchSize {
		if err := s.responses.UpdateScores(ctx, exec, changed[start:minInt(start+s.batchSize, len(changed))]); err != nil {
			return err
		}
	}
	summary.ResponsesRescored = len(changed)
	s.logger.Debug("responses scored", zap.Int("total", len(keyed)), zap.Int("changed", len(changed)))
	return nil
}
