package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestGinMiddleware_RecordsRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/api/runs/:id", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/runs/run-1", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.GreaterOrEqual(t, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/runs/:id", "404")), float64(1))
	assert.NotZero(t, testutil.CollectAndCount(httpRequestDuration))
}

func TestGinMiddleware_Unmatched(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())

	req := httptest.NewRequest(http.MethodGet, "/nope", http.NoBody)
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.GreaterOrEqual(t, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "unmatched", "404")), float64(1))
}

func TestRegisterScanMetrics_Idempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		RegisterScanMetrics()
		RegisterScanMetrics()
	})
}
