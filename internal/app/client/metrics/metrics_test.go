package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spratt/internal/app/client/syncer"
)

func TestCollector_Observe(t *testing.T) {
	c := New()

	c.ObserveStatus(syncer.Status{State: syncer.StatePending, PendingCount: 3})
	c.ObservePass(syncer.Result{Synced: 2, Failed: 1})
	c.ObservePass(syncer.Result{Synced: 1})

	assert.Equal(t, 3.0, testutil.ToFloat64(c.staged))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.passes))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.uploads.WithLabelValues("synced")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.uploads.WithLabelValues("failed")))
}

func TestCollector_Handler(t *testing.T) {
	c := New()
	c.ObserveStatus(syncer.Status{PendingCount: 5})

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "spratt_client_staged_records 5")
}
