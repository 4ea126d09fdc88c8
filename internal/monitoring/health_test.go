package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getHealth(t *testing.T, h *HealthChecker) (int, HealthStatus) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var status HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	return rec.Code, status
}

func TestHealthChecker_DegradedBeforeFirstPoll(t *testing.T) {
	h := NewHealthChecker()

	code, status := getHealth(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", status.Status)
	assert.False(t, status.IsConnected)
}

func TestHealthChecker_HealthyAfterPoll(t *testing.T) {
	h := NewHealthChecker()
	h.RecordPoll(40e9)

	code, status := getHealth(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", status.Status)
	assert.True(t, status.IsConnected)
	assert.Equal(t, 40e9, status.LastTotalOI)
}

func TestHealthChecker_UnhealthyOnErrors(t *testing.T) {
	h := NewHealthChecker()
	h.RecordPoll(40e9)
	h.RecordError("tts failed")

	code, status := getHealth(t, h)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, []string{"tts failed"}, status.Errors)
}

func TestHealthChecker_DegradedAfterDisconnect(t *testing.T) {
	h := NewHealthChecker()
	h.RecordPoll(40e9)
	h.RecordDisconnect()

	code, status := getHealth(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", status.Status)
}

func TestHealthChecker_ErrorsCappedAtFive(t *testing.T) {
	h := NewHealthChecker()
	h.RecordPoll(40e9)
	for i := 0; i < 8; i++ {
		h.RecordError("err")
	}

	_, status := getHealth(t, h)
	assert.Len(t, status.Errors, 5)
}

func TestHealthChecker_PollClearsErrors(t *testing.T) {
	h := NewHealthChecker()
	h.RecordError("boom")
	h.RecordPoll(40e9)

	code, status := getHealth(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", status.Status)
	assert.Empty(t, status.Errors)
}

func TestHealthChecker_DisconnectedWithErrorsWritesSingleStatus(t *testing.T) {
	h := NewHealthChecker()
	h.RecordDisconnect()
	h.RecordError("poll failed")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var status HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, "unhealthy", status.Status)
}
