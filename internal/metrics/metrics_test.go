package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCanonicalPath(t *testing.T) {
	assert.Equal(t, "/", canonicalPath(""))
	assert.Equal(t, "/auth/me", canonicalPath("/auth/me"))
	assert.Equal(t, "/orders/:id", canonicalPath("/orders/65f0c0ffee0000000000abcd/status"))
	assert.Equal(t, "/admin/users", canonicalPath("/admin/users/42/balance"))
	assert.Equal(t, "/services/:id", canonicalPath("/services/7?x=1"))
}

func TestRecordersAndHandler(t *testing.T) {
	before := testutil.ToFloat64(sessionEvents.WithLabelValues("cleared", "unauthorized"))
	RecordSessionEvent("cleared", "unauthorized")
	assert.Equal(t, before+1, testutil.ToFloat64(sessionEvents.WithLabelValues("cleared", "unauthorized")))

	done := Begin("get")
	done("/dashboard", http.StatusOK)
	ObserveAPICall("GET", "/auth/me", 0, 0)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "storefront_http_requests_total"))
	assert.True(t, strings.Contains(body, `storefront_api_calls_total{method="GET",path="/auth/me",status="error"}`))
}
