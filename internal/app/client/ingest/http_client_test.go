package ingest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spratt/internal/app/client/staging"
	"spratt/internal/utils/logger"
)

func testRecording() staging.StagedRecording {
	return staging.StagedRecording{
		ID:           "0190a1b2-local",
		OwnerID:      "user-1",
		Audio:        staging.NewBlob("audio/webm", []byte("opus-bytes")),
		CapturedAtMs: 1700000000000,
		Status:       staging.StatusUploading,
		Metadata:     staging.Metadata{staging.MetaDurationMs: "4200"},
	}
}

func TestClient_Ingest(t *testing.T) {
	// Arrange
	var (
		gotBody    []byte
		gotHeaders http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/recordings", r.URL.Path)
		gotHeaders = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "Ok",
			"data": map[string]string{
				"id":                   "srv-1",
				"client_recording_id":  "0190a1b2-local",
				"storage_key":          "ab/cd/abcd",
				"transcription_status": "pending",
			},
		})
	}))
	defer srv.Close()

	client := New(srv.URL, logger.NewDiscard())
	client.SetToken("secret-token")

	// Act
	receipt, err := client.Ingest(context.Background(), testRecording())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, Receipt{
		ID:                  "srv-1",
		ClientRecordingID:   "0190a1b2-local",
		StorageKey:          "ab/cd/abcd",
		TranscriptionStatus: "pending",
	}, receipt)
	assert.Equal(t, []byte("opus-bytes"), gotBody)
	assert.Equal(t, "audio/webm", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "Bearer secret-token", gotHeaders.Get("Authorization"))
	assert.Equal(t, "0190a1b2-local", gotHeaders.Get(HeaderClientRecordingID))
	assert.Equal(t, "1700000000000", gotHeaders.Get(HeaderCapturedAt))
	assert.JSONEq(t, `{"duration_ms":"4200"}`, gotHeaders.Get(HeaderMetadata))
}

func TestClient_IngestFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error with problem detail",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/problem+json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"title":"Internal Server Error","detail":"object store unavailable"}`))
			},
		},
		{
			name: "error envelope with ok status code",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"status":"Error","error":"quota exceeded"}`))
			},
		},
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := New(srv.URL, logger.NewDiscard()).Ingest(context.Background(), testRecording())

			assert.ErrorIs(t, err, ErrRemoteIngest)
		})
	}
}

func TestClient_IngestUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, logger.NewDiscard()).Ingest(context.Background(), testRecording())

	assert.ErrorIs(t, err, ErrRemoteIngest)
}

func TestClient_HealthCheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "healthy", status: http.StatusOK},
		{name: "unhealthy", status: http.StatusServiceUnavailable, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v1/health", r.URL.Path)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := New(srv.URL, logger.NewDiscard()).HealthCheck(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClient_LoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			var creds credentials
			require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
			assert.Equal(t, "alice", creds.Login)
			_, _ = w.Write([]byte(`{"status":"Ok","token":"tok-1"}`))
		case "/api/v1/recordings":
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"status":"Ok","data":[{"id":"srv-1","transcription_status":"completed"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := New(srv.URL, logger.NewDiscard())

	token, err := client.Login(context.Background(), "alice", "password")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	recordings, err := client.ListRecordings(context.Background())
	require.NoError(t, err)
	require.Len(t, recordings, 1)
	assert.Equal(t, "completed", recordings[0].TranscriptionStatus)
}

func TestClient_LoginRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"Error","error":"Invalid credentials"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, logger.NewDiscard()).Login(context.Background(), "alice", "bad")

	assert.ErrorIs(t, err, ErrServer)
}

func TestClient_DecideAction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/actions/act-1/decision", r.URL.Path)
		var req struct {
			Decision string `json:"decision"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "approved", req.Decision)
		_, _ = w.Write([]byte(`{"status":"Ok"}`))
	}))
	defer srv.Close()

	err := New(srv.URL, logger.NewDiscard()).DecideAction(context.Background(), "act-1", "approved")

	assert.NoError(t, err)
}
