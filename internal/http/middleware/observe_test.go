package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/microlearn-backend/internal/observability"
	"github.com/yungbote/microlearn-backend/internal/platform/ctxutil"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
)

func TestObservePropagatesIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Observe(logger.Nop(), nil))
	var seen *ctxutil.Request
	r.GET("/lessons/:id", func(c *gin.Context) {
		seen = ctxutil.FromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/lessons/"+uuid.NewString(), nil)
	req.Header.Set(HeaderRequestID, "req-1")
	req.Header.Set(HeaderTraceID, "trace-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "req-1", rec.Header().Get(HeaderRequestID))
	assert.Equal(t, "trace-1", rec.Header().Get(HeaderTraceID))
	require.NotNil(t, seen)
	assert.Equal(t, "trace-1", seen.TraceID)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lessons/x", nil))
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
	assert.NotEmpty(t, rec.Header().Get(HeaderTraceID))
	assert.NotEqual(t, rec.Header().Get(HeaderRequestID), rec.Header().Get(HeaderTraceID))
}

func TestObserveRecordsRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.NewMetrics()
	r := gin.New()
	r.Use(Observe(logger.Nop(), m))
	r.GET("/lessons/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/lessons/"+uuid.NewString(), nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var series int
	inflight := -1.0
	for _, f := range families {
		switch f.GetName() {
		case "microlearn_api_requests_total":
			series = len(f.GetMetric())
		case "microlearn_api_inflight_requests":
			inflight = f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.Equal(t, 2, series, "one series per route template plus unknown")
	assert.Zero(t, inflight)

	n, err := testutil.GatherAndCount(m.Registry(), "microlearn_api_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
