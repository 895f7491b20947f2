package observability

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsForTesting_Independent(t *testing.T) {
	m1 := NewMetricsForTesting()
	m2 := NewMetricsForTesting()

	m1.PipelineRuns.WithLabelValues("fallback").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m1.PipelineRuns.WithLabelValues("fallback")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m2.PipelineRuns.WithLabelValues("fallback")))
}

func TestHandler(t *testing.T) {
	m := NewMetricsForTesting()
	m.PlaybackStarts.WithLabelValues("nepali").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `climatelens_playback_starts_total{language="nepali"} 1`)
}
