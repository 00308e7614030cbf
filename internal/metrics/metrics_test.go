package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.SaleRecorded("CASH")
	m.SaleRecorded("CASH")
	m.SaleRecorded("UPI")
	m.SaleCancelled()
	m.PartialCommit("record_sale")
	m.DayClosed("auto")
	m.StockClamped()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.salesRecorded.WithLabelValues("CASH")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.salesRecorded.WithLabelValues("UPI")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.salesCancelled))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.partialCommits.WithLabelValues("record_sale")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.daysClosed.WithLabelValues("auto")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stockClamped))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.SaleRecorded("CASH")
	m.SaleCancelled()
	m.ObserveRequest(http.MethodGet, "/healthz", 200, time.Millisecond)
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.SaleRecorded("CREDIT")
	m.ObserveRequest(http.MethodPost, "/api/v1/bills", 201, 5*time.Millisecond)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	text := string(body)
	assert.True(t, strings.Contains(text, `kirana_sales_recorded_total{payment_mode="CREDIT"} 1`))
	assert.True(t, strings.Contains(text, "kirana_http_request_duration_seconds_bucket"))
}
