package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spratt/internal/domain/transcription"
)

func TestCollector(t *testing.T) {
	// Arrange
	c := New()

	// Act
	c.ObserveRequest("recordings-ingest", 200, 30*time.Millisecond)
	c.ObserveRequest("recordings-ingest", 200, 10*time.Millisecond)
	c.RecordingIngested()
	c.ObserveTranscription(transcription.ResultCompleted, 2)
	c.ObserveTranscription(transcription.ResultRetry, 0)

	// Assert
	assert.Equal(t, 2.0, testutil.ToFloat64(c.requests.WithLabelValues("recordings-ingest", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ingested))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transcriptions.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transcriptions.WithLabelValues("retry")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.actions))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "spratt_server_actions_extracted_total 2")
}
