package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-analytics-api/internal/models"
	"github.com/noah-isme/exam-analytics-api/pkg/csvreader"
	appErrors "github.com/noah-isme/exam-analytics-api/pkg/errors"
)

const (
	defaultMaxQuestions = 180
	defaultBatchSize    = 500
	// MaxBatchSize keeps the widest bulk statement (6 binds per row) under the 65535 Postgres parameter limit.
	MaxBatchSize = 5000

	// IngestionSuccessMessage is reported when every phase committed.
	IngestionSuccessMessage = "All data loaded successfully."

	reportCachePattern = reportCachePrefix + "*"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type ingestionLocker interface {
	AcquireTx(ctx context.Context, exec sqlx.ExtContext, key int64) error
}

// UploadArchiver stores raw upload payloads.
type UploadArchiver interface {
	Save(filename string, data []byte) (string, error)
}

// IngestionConfig tunes the pipeline.
type IngestionConfig struct {
	MaxQuestions   int
	BatchSize      int
	LockKey        int64
	ArchiveEnabled bool
}

// IngestionInput carries the raw uploads of one run.
type IngestionInput struct {
	Responses     []byte
	ResponsesName string
	AnswerKey     []byte
	AnswerKeyName string
	UploadedBy    string
}

// IngestionServiceParams groups constructor dependencies.
type IngestionServiceParams struct {
	DB           txProvider
	Locker       ingestionLocker
	Institutions institutionStore
	Batches      batchStore
	Students     studentStore
	Tests        testStore
	Questions    questionStore
	Responses    responseStore
	Performances performanceStore
	Cache        *CacheService
	Metrics      *MetricsService
	Archive      UploadArchiver
	Logger       *zap.Logger
	Config       IngestionConfig
}

// IngestionService runs the ingestion pipeline inside a single transaction.
type IngestionService struct {
	db         txProvider
	locker     ingestionLocker
	resolver   *EntityResolver
	loader     *AnswerKeyLoader
	scorer     *ResponseScorer
	aggregator *Aggregator
	ranker     *Ranker
	cache      *CacheService
	metrics    *MetricsService
	archive    UploadArchiver
	logger     *zap.Logger
	cfg        IngestionConfig
	now        func() time.Time
}

// NewIngestionService wires the pipeline phases.
func NewIngestionService(params IngestionServiceParams) *IngestionService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := params.Config
	if cfg.MaxQuestions <= 0 {
		cfg.MaxQuestions = defaultMaxQuestions
	}
	switch {
	case cfg.BatchSize <= 0:
		cfg.BatchSize = defaultBatchSize
	case cfg.BatchSize > MaxBatchSize:
		logger.Warn("ingestion batch size clamped", zap.Int("requested", cfg.BatchSize), zap.Int("max", MaxBatchSize))
		cfg.BatchSize = MaxBatchSize
	}
	return &IngestionService{
		db:         params.DB,
		locker:     params.Locker,
		resolver:   NewEntityResolver(params.Institutions, params.Batches, params.Students, params.Tests, params.Responses, cfg.MaxQuestions, cfg.BatchSize, logger),
		loader:     NewAnswerKeyLoader(params.Tests, params.Questions, logger),
		scorer:     NewResponseScorer(params.Responses, cfg.BatchSize, logger),
		aggregator: NewAggregator(params.Responses, params.Performances, cfg.BatchSize, logger),
		ranker:     NewRanker(params.Performances, cfg.BatchSize, logger),
		cache:      params.Cache,
		metrics:    params.Metrics,
		archive:    params.Archive,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

type ingestionPhase struct {
	name string
	run  func(ctx context.Context, exec sqlx.ExtContext, summary *models.IngestionSummary) error
}

// Ingest parses both uploads and runs every phase. Malformed uploads fail before any write;
// any later failure rolls the whole run back.
func (s *IngestionService) Ingest(ctx context.Context, input IngestionInput) (result *models.IngestionResult, err error) {
	runID := uuid.NewString()
	logger := s.logger.With(zap.String("run_id", runID))
	started := s.now()
	summary := models.IngestionSummary{}

	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		s.metrics.RecordIngestion(status, time.Since(started), summary)
	}()

	if len(input.Responses) == 0 {
		return nil, appErrors.Clone(appErrors.ErrMalformedInput, "SR.csv is empty or unreadable after upload.")
	}
	if len(input.AnswerKey) == 0 {
		return nil, appErrors.Clone(appErrors.ErrMalformedInput, "AK.csv is empty or unreadable after upload.")
	}
	table, err := csvreader.ReadTable(input.Responses)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrMalformedInput, "SR.csv is empty or has no header row.")
	}
	records, err := csvreader.ReadRecords(input.AnswerKey)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrMalformedInput, "AK.csv is empty or unreadable after upload.")
	}
	summary.MalformedRecords = table.Skipped + records.Skipped
	if summary.MalformedRecords > 0 {
		logger.Warn("malformed csv records skipped", zap.Int("count", summary.MalformedRecords))
	}

	logger.Info("ingestion started",
		zap.String("responses_file", input.ResponsesName),
		zap.String("answer_key_file", input.AnswerKeyName),
		zap.String("uploaded_by", input.UploadedBy),
		zap.Int("response_rows", len(table.Rows)),
		zap.Int("answer_key_rows", len(records.Lines)-1))

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		logger.Error("begin ingestion transaction", zap.Error(err))
		return nil, appErrors.WrapAs(err, appErrors.ErrIngestionFailed, "")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	phases := []ingestionPhase{
		{name: "lock", run: func(ctx context.Context, exec sqlx.ExtContext, _ *models.IngestionSummary) error {
			return s.locker.AcquireTx(ctx, exec, s.cfg.LockKey)
		}},
		{name: "resolve", run: func(ctx context.Context, exec sqlx.ExtContext, summary *models.IngestionSummary) error {
			return s.resolver.Resolve(ctx, exec, table.Rows, summary)
		}},
		{name: "answer_key", run: func(ctx context.Context, exec sqlx.ExtContext, summary *models.IngestionSummary) error {
			return s.loader.Load(ctx, exec, records.Lines, summary)
		}},
		{name: "score", run: s.scorer.Score},
		{name: "aggregate", run: s.aggregator.Aggregate},
		{name: "rank", run: s.ranker.Rank},
	}
	for _, phase := range phases {
		phaseStart := time.Now()
		if err = phase.run(ctx, tx, &summary); err != nil {
			logger.Error("ingestion phase failed, rolling back", zap.String("phase", phase.name), zap.Error(err))
			return nil, appErrors.WrapAs(err, appErrors.ErrIngestionFailed, "")
		}
		s.metrics.ObservePhase(phase.name, time.Since(phaseStart))
		logger.Debug("ingestion phase complete", zap.String("phase", phase.name), zap.Duration("elapsed", time.Since(phaseStart)))
	}

	if err = tx.Commit(); err != nil {
		logger.Error("commit ingestion transaction", zap.Error(err))
		return nil, appErrors.WrapAs(err, appErrors.ErrIngestionFailed, "")
	}

	finished := s.now()
	logger.Info("ingestion committed",
		zap.Int("responses", summary.Responses),
		zap.Int("questions", summary.Questions),
		zap.Int("rescored", summary.ResponsesRescored),
		zap.Int("rows_skipped", summary.ResponseRowsSkipped+summary.AnswerKeySkipped),
		zap.Duration("elapsed", finished.Sub(started)))

	if s.cache.Enabled() {
		if cacheErr := s.cache.Invalidate(ctx, reportCachePattern); cacheErr != nil {
			logger.Warn("report cache invalidation failed", zap.Error(cacheErr))
		}
	}
	s.archiveUploads(logger, runID, started, input)

	return &models.IngestionResult{
		RunID:      runID,
		Message:    IngestionSuccessMessage,
		Summary:    summary,
		StartedAt:  started,
		FinishedAt: finished,
	}, nil
}

func (s *IngestionService) archiveUploads(logger *zap.Logger, runID string, at time.Time, input IngestionInput) {
	if !s.cfg.ArchiveEnabled || s.archive == nil {
		return
	}
	dir := filepath.Join(at.UTC().Format("2006-01-02"), runID)
	files := []struct {
		name string
		data []byte
	}{
		{name: "SR.csv", data: input.Responses},
		{name: "AK.csv", data: input.AnswerKey},
	}
	for _, file := range files {
		path := filepath.Join(dir, file.name)
		if _, err := s.archive.Save(path, file.data); err != nil {
			logger.Warn("archive upload failed", zap.String("path", path), zap.Error(err))
		}
	}
}
