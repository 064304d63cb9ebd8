package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerMetricsExposition(t *testing.T) {
	m := NewServerMetrics("orders", prometheus.NewRegistry())
	m.OrdersCreated.WithLabelValues("created").Inc()
	m.Verifications.WithLabelValues("client", "signature_invalid").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersCreated.WithLabelValues("created")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Verifications.WithLabelValues("client", "signature_invalid")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "homechef_orders_orders_created_total")
}

func TestRegistriesAreIndependent(t *testing.T) {
	assert.NotPanics(t, func() {
		NewServerMetrics("orders", prometheus.NewRegistry())
		NewServerMetrics("orders", prometheus.NewRegistry())
	})
}
