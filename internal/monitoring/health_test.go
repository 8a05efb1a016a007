package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spacesedan/narratives/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getHealth(t *testing.T, h *Health) HealthResponse {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	h.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthBeforeFirstCycle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHealth(":0", logging.Discard())

	resp := getHealth(t, h)
	assert.Equal(t, STATUS_STARTING, resp.Status)
	assert.Nil(t, resp.LastCycle)
	assert.Zero(t, resp.Cycles)
}

func TestHealthReportsLastCycle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHealth(":0", logging.Discard())

	h.CycleStarted()
	assert.True(t, getHealth(t, h).Running)

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	h.CycleFinished(CycleStatus{
		CycleID:    "abc",
		StartedAt:  start,
		FinishedAt: start.Add(3 * time.Second),
		Items:      42,
		Narratives: 2,
		Fallback:   true,
	})

	resp := getHealth(t, h)
	assert.Equal(t, STATUS_OK, resp.Status)
	assert.False(t, resp.Running)
	assert.EqualValues(t, 1, resp.Cycles)
	require.NotNil(t, resp.LastCycle)
	assert.Equal(t, "abc", resp.LastCycle.CycleID)
	assert.Equal(t, 42, resp.LastCycle.Items)
	assert.Equal(t, 2, resp.LastCycle.Narratives)
	assert.True(t, resp.LastCycle.Fallback)
}

func TestHealthDegradedOnCycleError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHealth(":0", logging.Discard())
	h.CycleFinished(CycleStatus{CycleID: "x", Error: "collect failed"})

	assert.Equal(t, STATUS_DEGRADED, getHealth(t, h).Status)
}
