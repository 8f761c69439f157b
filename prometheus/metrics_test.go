package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/opticshop/optics/pkg/config"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordStatusCategories(t *testing.T) {
	before := testutil.ToFloat64(StatusCodeCategoryCounter.WithLabelValues("4xx", "GET", "/api/x"))
	RecordStatus(404, "GET", "/api/x")
	RecordStatus(302, "GET", "/api/x")
	after := testutil.ToFloat64(StatusCodeCategoryCounter.WithLabelValues("4xx", "GET", "/api/x"))
	assert.Equal(t, before+1, after)
}

func TestRecordOperation(t *testing.T) {
	before := testutil.ToFloat64(EntityOperationsCounter.WithLabelValues("customer", "create"))
	RecordOperation("customer", "create")
	assert.Equal(t, before+1, testutil.ToFloat64(EntityOperationsCounter.WithLabelValues("customer", "create")))
}

func TestInitMetricsExposesPrefixedNames(t *testing.T) {
	InitMetrics(&config.Config{Metrics: config.MetricsConfig{Prefix: "optics"}})
	defer TrackDBOperation("query")(time.Now())
	RecordAuthError("invalid_token")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "optics_auth_errors_total"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
