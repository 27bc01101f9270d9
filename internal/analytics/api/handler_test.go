package analytics_api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"sooicy-orders/internal/analytics"
	"sooicy-orders/internal/database/testdb"
	"sooicy-orders/internal/logger"
	"sooicy-orders/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) http.Handler {
	h := NewHandler(analytics.NewService(testdb.New(t)), logger.NewNopLogger())
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestDashboardStatsOnEmptyStore(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Success bool                     `json:"success"`
		Data    analytics.DashboardStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Zero(t, body.Data.TotalOrders)
	assert.True(t, body.Data.TotalRevenue.IsZero())
}

func TestSalesAnalyticsDays(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/analytics?days=7", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data analytics.SalesAnalytics `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data.DailySales, 8)
}

func TestSalesAnalyticsRejectsBadDays(t *testing.T) {
	for _, q := range []string{"abc", "0", "-3"} {
		rec := httptest.NewRecorder()
		newRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/analytics?days="+q, nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		var body utils.APIResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.False(t, body.Success)
	}
}
