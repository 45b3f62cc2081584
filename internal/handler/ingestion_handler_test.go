package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-analytics-api/internal/dto"
	"github.com/noah-isme/exam-analytics-api/internal/models"
	"github.com/noah-isme/exam-analytics-api/internal/service"
	appErrors "github.com/noah-isme/exam-analytics-api/pkg/errors"
	"github.com/noah-isme/exam-analytics-api/pkg/response"
)

type ingestionRunnerMock struct {
	input  service.IngestionInput
	result *models.IngestionResult
	err    error
	calls  int
}

func (m *ingestionRunnerMock) Ingest(ctx context.Context, input service.IngestionInput) (*models.IngestionResult, error) {
	m.calls++
	m.input = input
	return m.result, m.err
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for field, content := range files {
		part, err := writer.CreateFormFile(field, field+".csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func newIngestionRouter(runner *ingestionRunnerMock, limit int64, tokens *service.TokenService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := RouterConfig{APIPrefix: "/api/v1", Ingestion: NewIngestionHandler(runner, limit, nil)}
	if tokens != nil {
		cfg.Tokens = tokens
	}
	return NewRouter(cfg)
}

func decodeStatusBody(t *testing.T, w *httptest.ResponseRecorder) response.StatusBody {
	t.Helper()
	var body response.StatusBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestIngestionHandlerUploadSuccess(t *testing.T) {
	runner := &ingestionRunnerMock{result: &models.IngestionResult{
		RunID:   "run-1",
		Message: service.IngestionSuccessMessage,
		Summary: models.IngestionSummary{Responses: 3, Questions: 3},
	}}
	router := newIngestionRouter(runner, 1<<20, nil)

	for _, path := range []string{"/api/v1/ingestion/upload", LegacyIngestionPath} {
		body, contentType := multipartBody(t, map[string]string{dto.ResponsesField: "sr-data", dto.AnswerKeyField: "ak-data"})
		req := httptest.NewRequest(http.MethodPost, path, body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), `"status":"success"`)
		assert.Contains(t, w.Body.String(), `"message":"All data loaded successfully."`)
		assert.Contains(t, w.Body.String(), `"run_id":"run-1"`)
		assert.Contains(t, w.Body.String(), `"responses":3`)
	}
	assert.Equal(t, 2, runner.calls)
	assert.Equal(t, "sr-data", string(runner.input.Responses))
	assert.Equal(t, "ak_file.csv", runner.input.AnswerKeyName)
	assert.Equal(t, "anonymous", runner.input.UploadedBy)
}

func TestIngestionHandlerMissingFiles(t *testing.T) {
	cases := []struct {
		name    string
		files   map[string]string
		message string
	}{
		{name: "no responses", files: map[string]string{dto.AnswerKeyField: "ak"}, message: "SR.csv file is missing from the request."},
		{name: "no answer key", files: map[string]string{dto.ResponsesField: "sr"}, message: "AK.csv file is missing from the request."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runner := &ingestionRunnerMock{}
			router := newIngestionRouter(runner, 1<<20, nil)
			body, contentType := multipartBody(t, tc.files)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/ingestion/upload", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, response.StatusBody{Status: "error", Message: tc.message}, decodeStatusBody(t, w))
			assert.Zero(t, runner.calls)
		})
	}
}

func TestIngestionHandlerRejectsOversizedUpload(t *testing.T) {
	runner := &ingestionRunnerMock{}
	router := newIngestionRouter(runner, 512, nil)
	body, contentType := multipartBody(t, map[string]string{dto.ResponsesField: strings.Repeat("x", 4096), dto.AnswerKeyField: "ak"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingestion/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error", decodeStatusBody(t, w).Status)
	assert.Zero(t, runner.calls)
}

func TestIngestionHandlerMethodNotAllowed(t *testing.T) {
	router := newIngestionRouter(&ingestionRunnerMock{}, 1<<20, nil)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(method, LegacyIngestionPath, nil))
		require.Equal(t, http.StatusMethodNotAllowed, w.Code, method)
		assert.Equal(t, response.StatusBody{Status: "error", Message: "Only POST requests are allowed."}, decodeStatusBody(t, w))
	}
}

func TestIngestionHandlerHidesPipelineErrors(t *testing.T) {
	runner := &ingestionRunnerMock{err: appErrors.Wrap(errors.New("pq: deadlock detected"),
		appErrors.ErrIngestionFailed.Code, appErrors.ErrIngestionFailed.Status, appErrors.ErrIngestionFailed.Message)}
	router := newIngestionRouter(runner, 1<<20, nil)
	body, contentType := multipartBody(t, map[string]string{dto.ResponsesField: "sr", dto.AnswerKeyField: "ak"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingestion/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "deadlock")
}

func TestIngestionHandlerRequiresAdminTokenWhenProtected(t *testing.T) {
	tokens := service.NewTokenService(service.TokenConfig{Secret: "secret", Issuer: "exam-analytics-api", Expiry: time.Hour}, nil, nil)
	runner := &ingestionRunnerMock{result: &models.IngestionResult{RunID: "run-2", Message: service.IngestionSuccessMessage}}
	router := newIngestionRouter(runner, 1<<20, tokens)

	send := func(token string) *httptest.ResponseRecorder {
		body, contentType := multipartBody(t, map[string]string{dto.ResponsesField: "sr", dto.AnswerKeyField: "ak"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/ingestion/upload", body)
		req.Header.Set("Content-Type", contentType)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, send("").Code)

	admin, _, err := tokens.Issue(dto.IssueTokenRequest{Subject: "ops-bot", Role: string(models.RoleAdmin)})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, send(admin).Code)
	assert.Equal(t, "ops-bot", runner.input.UploadedBy)
}

type brokenUpload struct {
	*strings.Reader
}

func (brokenUpload) Read(p []byte) (int, error) {
	return 0, errors.New("unexpected EOF in temp file")
}

func (brokenUpload) Close() error {
	return nil
}

func TestReadUploadBodyMapsIOFailuresToInternalError(t *testing.T) {
	cases := map[string]func() (multipart.File, error){
		"open fails": func() (multipart.File, error) { return nil, errors.New("temp file removed") },
		"read fails": func() (multipart.File, error) { return brokenUpload{strings.NewReader("")}, nil },
	}
	for name, open := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := readUploadBody(open)
			require.Error(t, err)

			appErr := appErrors.FromError(err)
			assert.Equal(t, appErrors.ErrIngestionFailed.Code, appErr.Code)
			assert.Equal(t, http.StatusInternalServerError, appErr.Status)
		})
	}

	data, err := readUploadBody(func() (multipart.File, error) { return nopUpload{strings.NewReader("a,b\n")}, nil })
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))
}

type nopUpload struct {
	*strings.Reader
}

func (nopUpload) Close() error {
	return nil
}
