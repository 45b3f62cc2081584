package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/exam-analytics-api/pkg/errors"
)

func TestStatusErrorHidesInternalDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	StatusError(c, appErrors.Wrap(errors.New("pq: deadlock detected"), appErrors.ErrIngestionFailed.Code, appErrors.ErrIngestionFailed.Status, appErrors.ErrIngestionFailed.Message))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body StatusBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, StatusFailure, body.Status)
	assert.NotContains(t, body.Message, "deadlock")
}

func TestSuccessForcesStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Success(c, StatusBody{Message: "All data loaded successfully."})

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success","message":"All data loaded successfully."}`, w.Body.String())
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestAttachmentSetsDisposition(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Attachment(c, "leaderboard.csv", "text/csv", []byte("rank\n1\n"))

	assert.Equal(t, `attachment; filename="leaderboard.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "rank\n1\n", w.Body.String())
}
