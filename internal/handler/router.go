package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-analytics-api/internal/middleware"
	"github.com/noah-isme/exam-analytics-api/internal/models"
	"github.com/noah-isme/exam-analytics-api/internal/service"
	"github.com/noah-isme/exam-analytics-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/exam-analytics-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/exam-analytics-api/pkg/middleware/requestid"
)

// LegacyIngestionPath is the upload URL kept for existing clients.
const LegacyIngestionPath = "/load-all-data/"

// RouterConfig wires handlers into the HTTP surface.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	EnableReports  bool
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	// Tokens, when set, protects ingestion with an ADMIN bearer token.
	Tokens    middleware.TokenValidator
	Ingestion *IngestionHandler
	Reports   *ReportHandler
	Ops       *MetricsHandler
}

// NewRouter builds the gin engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(cfg.Logger))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(cfg.Metrics))

	if cfg.Ops != nil {
		r.GET("/health", cfg.Ops.Health)
		r.GET("/ready", cfg.Ops.Ready)
		r.GET("/metrics", cfg.Ops.Prometheus)
	}
	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	if cfg.Ingestion != nil {
		guards := []gin.HandlerFunc{}
		if cfg.Tokens != nil {
			guards = append(guards, middleware.JWT(cfg.Tokens), middleware.RequireRoles(models.RoleAdmin))
		}
		registerIngestion(api, "/ingestion/upload", cfg.Ingestion, guards)
		registerIngestion(&r.RouterGroup, LegacyIngestionPath, cfg.Ingestion, guards)
	}

	if cfg.EnableReports && cfg.Reports != nil {
		reports := api.Group("/reports", middleware.WithResponseMeta())
		reports.GET("/leaderboard", cfg.Reports.Leaderboard)
		reports.GET("/leaderboard/export", cfg.Reports.ExportLeaderboard)
		reports.GET("/subjects/leaderboard", cfg.Reports.SubjectLeaderboard)
		reports.GET("/dashboard", cfg.Reports.Dashboard)
		reports.GET("/risk", cfg.Reports.Risk)
		reports.GET("/score-distribution", cfg.Reports.ScoreDistribution)
		reports.GET("/neet-readiness", cfg.Reports.Readiness)
		reports.GET("/qndm", cfg.Reports.QuestionMatrix)
		reports.GET("/questions/detail", cfg.Reports.QuestionDetail)
		reports.GET("/filters", cfg.Reports.Filters)
	}

	return r
}

var nonPostMethods = []string{
	http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodHead,
}

// registerIngestion mounts the upload handler for POST and a 405 body for every other method.
func registerIngestion(routes *gin.RouterGroup, path string, h *IngestionHandler, guards []gin.HandlerFunc) {
	routes.POST(path, append(guards, h.Upload)...)
	routes.Match(nonPostMethods, path, h.MethodNotAllowed)
}
