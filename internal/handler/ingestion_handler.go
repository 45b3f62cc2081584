package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-analytics-api/internal/dto"
	"github.com/noah-isme/exam-analytics-api/internal/models"
	"github.com/noah-isme/exam-analytics-api/internal/service"
	appErrors "github.com/noah-isme/exam-analytics-api/pkg/errors"
	"github.com/noah-isme/exam-analytics-api/pkg/logger"
	"github.com/noah-isme/exam-analytics-api/pkg/response"
)

type ingestionRunner interface {
	Ingest(ctx context.Context, input service.IngestionInput) (*models.IngestionResult, error)
}

// IngestionHandler accepts the response sheet and answer key uploads.
type IngestionHandler struct {
	ingestion      ingestionRunner
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewIngestionHandler constructs the handler. maxUploadBytes caps the whole request body.
func NewIngestionHandler(ingestion ingestionRunner, maxUploadBytes int64, logger *zap.Logger) *IngestionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestionHandler{ingestion: ingestion, maxUploadBytes: maxUploadBytes, logger: logger}
}

// Upload godoc
// @Summary Ingest exam responses and answer key
// @Description Loads SR.csv and AK.csv, scores every response and recomputes totals and ranks in one transaction.
// @Tags Ingestion
// @Accept multipart/form-data
// @Produce json
// @Param sr_file formData file true "Student responses (SR.csv)"
// @Param ak_file formData file true "Answer key (AK.csv)"
// @Success 200 {object} dto.IngestionResponse
// @Failure 400 {object} response.StatusBody
// @Failure 401 {object} response.StatusBody
// @Failure 405 {object} response.StatusBody
// @Failure 500 {object} response.StatusBody
// @Security BearerAuth
// @Router /ingestion/upload [post]
func (h *IngestionHandler) Upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	responses, responsesName, err := h.readUpload(c, dto.ResponsesField, "SR.csv")
	if err != nil {
		response.StatusError(c, err)
		return
	}
	answerKey, answerKeyName, err := h.readUpload(c, dto.AnswerKeyField, "AK.csv")
	if err != nil {
		response.StatusError(c, err)
		return
	}

	result, err := h.ingestion.Ingest(c.Request.Context(), service.IngestionInput{
		Responses:     responses,
		ResponsesName: responsesName,
		AnswerKey:     answerKey,
		AnswerKeyName: answerKeyName,
		UploadedBy:    actorFromContext(c),
	})
	if err != nil {
		response.StatusError(c, err)
		return
	}

	response.Success(c, response.StatusBody{
		Message: result.Message,
		RunID:   result.RunID,
		Summary: result.Summary,
	})
}

// MethodNotAllowed answers any non-POST request to an ingestion route.
func (h *IngestionHandler) MethodNotAllowed(c *gin.Context) {
	response.StatusError(c, appErrors.ErrMethodNotAllowed)
}

func (h *IngestionHandler) readUpload(c *gin.Context, field, label string) ([]byte, string, error) {
	header, err := c.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", appErrors.Clone(appErrors.ErrMalformedInput, fmt.Sprintf("Upload exceeds the %d byte limit.", tooLarge.Limit))
		}
		logger.FromContext(c, h.logger).Info("ingestion upload rejected", zap.String("field", field), zap.Error(err))
		return nil, "", appErrors.Clone(appErrors.ErrMissingFile, label+" file is missing from the request.")
	}
	data, err := readUploadBody(header.Open)
	if err != nil {
		logger.FromContext(c, h.logger).Error("ingestion upload unreadable", zap.String("field", field), zap.Error(err))
		return nil, "", err
	}
	return data, header.Filename, nil
}

// readUploadBody drains an uploaded part. Read failures map to INGESTION_FAILED.
func readUploadBody(open func() (multipart.File, error)) ([]byte, error) {
	file, err := open()
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrIngestionFailed, "")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrIngestionFailed, "")
	}
	return data, nil
}
