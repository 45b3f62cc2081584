package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-analytics-api/internal/handler"
	"github.com/noah-isme/exam-analytics-api/internal/repository"
	"github.com/noah-isme/exam-analytics-api/internal/service"
	"github.com/noah-isme/exam-analytics-api/pkg/cache"
	"github.com/noah-isme/exam-analytics-api/pkg/config"
	"github.com/noah-isme/exam-analytics-api/pkg/database"
	"github.com/noah-isme/exam-analytics-api/pkg/jobs"
	"github.com/noah-isme/exam-analytics-api/pkg/storage"
)

// Container holds the long-lived dependencies shared by the server and the CLI.
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	DB        *sqlx.DB
	Redis     *redis.Client
	Metrics   *service.MetricsService
	Cache     *service.CacheService
	Ingestion *service.IngestionService
	Reports   *service.ReportService
	Tokens    *service.TokenService
	Archive   *storage.Archive

	archiver  *service.QueuedArchiver
	cacheRepo *repository.CacheRepository
}

// New connects to Postgres and Redis and wires the services.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.MigrateOnStart {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate schema: %w", err)
		}
		logger.Info("schema migrated")
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		// Reports still work uncached.
		logger.Warn("redis unavailable, report cache disabled", zap.Error(err))
		redisClient = nil
	}

	c := &Container{Config: cfg, Logger: logger, DB: db, Redis: redisClient}
	c.Metrics = service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		c.cacheRepo = repository.NewCacheRepository(redisClient, logger)
		cacheRepo = c.cacheRepo
	}
	c.Cache = service.NewCacheService(cacheRepo, c.Metrics, cfg.Reports.CacheTTL, logger, redisClient != nil)

	var archive service.UploadArchiver
	if cfg.Ingestion.ArchiveEnabled {
		c.Archive, err = storage.NewArchive(cfg.Ingestion.ArchiveDir)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.archiver = service.NewQueuedArchiver(c.Archive, jobs.QueueConfig{Workers: 1, BufferSize: 16, Logger: logger})
		c.archiver.Start(context.Background())
		archive = c.archiver
	}

	validate := validator.New()
	questions := repository.NewQuestionRepository(db)
	c.Ingestion = service.NewIngestionService(service.IngestionServiceParams{
		DB:           db,
		Locker:       repository.NewLockRepository(db),
		Institutions: repository.NewInstitutionRepository(db),
		Batches:      repository.NewBatchRepository(db),
		Students:     repository.NewStudentRepository(db),
		Tests:        repository.NewTestRepository(db),
		Questions:    questions,
		Responses:    repository.NewResponseRepository(db),
		Performances: repository.NewPerformanceRepository(db),
		Cache:        c.Cache,
		Metrics:      c.Metrics,
		Archive:      archive,
		Logger:       logger,
		Config: service.IngestionConfig{
			MaxQuestions:   cfg.Ingestion.MaxQuestions,
			BatchSize:      cfg.Ingestion.BatchSize,
			LockKey:        cfg.Ingestion.LockKey,
			ArchiveEnabled: cfg.Ingestion.ArchiveEnabled,
		},
	})
	c.Reports = service.NewReportService(service.ReportServiceParams{
		Repo:      repository.NewReportRepository(db),
		Questions: questions,
		Exporter:  service.NewExportService(nil, nil, logger),
		Cache:     c.Cache,
		Metrics:   c.Metrics,
		Validator: validate,
		Logger:    logger,
		CacheTTL:  cfg.Reports.CacheTTL,
	})
	c.Tokens = service.NewTokenService(service.TokenConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Expiry: cfg.JWT.Expiration,
	}, validate, logger)

	return c, nil
}

// Router builds the HTTP surface over the container's services.
func (c *Container) Router() *gin.Engine {
	routerCfg := handler.RouterConfig{
		APIPrefix:      c.Config.APIPrefix,
		AllowedOrigins: c.Config.CORS.AllowedOrigins,
		EnableDocs:     c.Config.Env != config.EnvProduction,
		EnableReports:  c.Config.Reports.Enabled,
		Logger:         c.Logger,
		Metrics:        c.Metrics,
		Ingestion:      handler.NewIngestionHandler(c.Ingestion, c.Config.Ingestion.MaxUploadBytes, c.Logger),
		Reports:        handler.NewReportHandler(c.Reports),
	}
	ops := handler.NewMetricsHandler(c.Metrics, c.DB, c.Logger)
	if c.cacheRepo != nil {
		ops = ops.WithCache(c.cacheRepo)
	}
	routerCfg.Ops = ops
	if c.Config.Auth.Enabled {
		routerCfg.Tokens = c.Tokens
	}
	return handler.NewRouter(routerCfg)
}

// Close flushes pending archive writes and releases connections.
func (c *Container) Close() {
	if c.archiver != nil {
		c.archiver.Stop()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("close redis", zap.Error(err))
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.Logger.Warn("close postgres", zap.Error(err))
		}
	}
}
