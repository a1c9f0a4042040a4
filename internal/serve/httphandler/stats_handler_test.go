package httphandler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hatchpay/offramp-backend/internal/verification"
)

func Test_StatsHandler_ServeHTTP(t *testing.T) {
	engineMock := &MockVerificationEngine{}
	engineMock.On("Stats").Return(verification.Stats{
		Runs:              12,
		Processed:         7,
		Errors:            1,
		Uptime:            90 * time.Second,
		LastRunAt:         time.Date(2025, 4, 1, 12, 30, 0, 0, time.UTC),
		LastRunDurationMs: 245,
		IsRunning:         true,
		ActivePollers:     3,
	}).Once()

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rr := httptest.NewRecorder()
	StatsHandler{Engine: engineMock}.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{
		"runs": 12,
		"processed": 7,
		"errors": 1,
		"uptime": 90000000000,
		"lastRunAt": "2025-04-01T12:30:00Z",
		"lastRunDurationMs": 245,
		"isRunning": true,
		"activePollers": 3
	}`, rr.Body.String())
	engineMock.AssertExpectations(t)
}
