package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusMiddleware_UsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(PrometheusMiddleware())
	router.GET("/embeddings/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	counter := APIRequestsTotal.WithLabelValues(http.MethodGet, "/embeddings/:id", "200")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"a", "b"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/embeddings/"+id, nil))
	}
	assert.Equal(t, before+2, testutil.ToFloat64(counter))

	metricsCounter := APIRequestsTotal.WithLabelValues(http.MethodGet, "/metrics", "200")
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Zero(t, testutil.ToFloat64(metricsCounter))
}

func TestPrometheusMiddleware_Unmatched(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(PrometheusMiddleware())

	counter := APIRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "404")
	before := testutil.ToFloat64(counter)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestRecordEmbedding(t *testing.T) {
	counter := EmbeddingRequestsTotal.WithLabelValues("test-model", "QUOTA_EXCEEDED")
	before := testutil.ToFloat64(counter)
	RecordEmbedding("test-model", "QUOTA_EXCEEDED", 0.2)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
