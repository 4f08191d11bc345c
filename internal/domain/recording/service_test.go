package recording

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"spratt/internal/utils/logger"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, rec Recording) (Recording, bool, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(Recording), args.Bool(1), args.Error(2)
}

func (m *MockRepository) List(ctx context.Context, userID int) ([]Recording, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]Recording), args.Error(1)
}

func (m *MockRepository) Get(ctx context.Context, userID int, id string) (Recording, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(Recording), args.Error(1)
}

// memoryBlobs сохраняет содержимое в памяти
type memoryBlobs struct {
	puts [][]byte
	err  error
}

func (b *memoryBlobs) Put(_ context.Context, r io.Reader) (string, int64, error) {
	if b.err != nil {
		return "", 0, b.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	b.puts = append(b.puts, data)
	return "key-" + string(data), int64(len(data)), nil
}

func validRequest(audio string) IngestRequest {
	return IngestRequest{
		UserID:            9,
		ClientRecordingID: "0190a1b2-local",
		MimeType:          "audio/webm",
		CapturedAt:        time.UnixMilli(1700000000000),
		Metadata:          map[string]string{"duration_ms": "4200"},
		Audio:             strings.NewReader(audio),
	}
}

func TestService_Ingest_New(t *testing.T) {
	// Arrange
	repo := new(MockRepository)
	blobs := &memoryBlobs{}
	woken := 0
	service := NewService(repo, blobs, logger.NewDiscard(), WithIngestHook(func() { woken++ }))

	repo.On("Create", mock.Anything, mock.MatchedBy(func(rec Recording) bool {
		return rec.UserID == 9 &&
			rec.ClientRecordingID == "0190a1b2-local" &&
			rec.StorageKey == "key-opus" &&
			rec.SizeBytes == 4 &&
			rec.TranscriptionStatus == TranscriptionPending &&
			rec.CapturedAt.Equal(time.UnixMilli(1700000000000)) &&
			rec.ID != ""
	})).Return(Recording{ID: "r1", TranscriptionStatus: TranscriptionPending}, true, nil)

	// Act
	rec, err := service.Ingest(context.Background(), validRequest("opus"))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "r1", rec.ID)
	assert.Equal(t, 1, woken)
	assert.Equal(t, [][]byte{[]byte("opus")}, blobs.puts)
	repo.AssertExpectations(t)
}

func TestService_Ingest_Duplicate(t *testing.T) {
	repo := new(MockRepository)
	woken := 0
	service := NewService(repo, &memoryBlobs{}, logger.NewDiscard(), WithIngestHook(func() { woken++ }))

	existing := Recording{ID: "r1", TranscriptionStatus: TranscriptionCompleted}
	repo.On("Create", mock.Anything, mock.Anything).Return(existing, false, nil)

	rec, err := service.Ingest(context.Background(), validRequest("opus"))

	require.NoError(t, err)
	assert.Equal(t, existing, rec)
	assert.Zero(t, woken)
}

func TestService_Ingest_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *IngestRequest)
		wantErr error
	}{
		{name: "no owner", mutate: func(r *IngestRequest) { r.UserID = 0 }, wantErr: ErrInvalidInput},
		{name: "no client id", mutate: func(r *IngestRequest) { r.ClientRecordingID = "" }, wantErr: ErrInvalidInput},
		{name: "long client id", mutate: func(r *IngestRequest) { r.ClientRecordingID = strings.Repeat("x", 129) }, wantErr: ErrInvalidInput},
		{name: "not audio", mutate: func(r *IngestRequest) { r.MimeType = "text/plain" }, wantErr: ErrInvalidInput},
		{name: "nil body", mutate: func(r *IngestRequest) { r.Audio = nil }, wantErr: ErrEmptyAudio},
		{name: "empty body", mutate: func(r *IngestRequest) { r.Audio = bytes.NewReader(nil) }, wantErr: ErrEmptyAudio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			blobs := &memoryBlobs{}
			service := NewService(repo, blobs, logger.NewDiscard())

			req := validRequest("opus")
			tt.mutate(&req)

			_, err := service.Ingest(context.Background(), req)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, blobs.puts)
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestService_Ingest_BlobStoreError(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, &memoryBlobs{err: errors.New("disk full")}, logger.NewDiscard())

	_, err := service.Ingest(context.Background(), validRequest("opus"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_Get(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, &memoryBlobs{}, logger.NewDiscard())

	_, err := service.Get(context.Background(), 9, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)

	id := "0190a1b2-c3d4-7e5f-8a9b-0c1d2e3f4a5b"
	repo.On("Get", mock.Anything, 9, id).Return(Recording{ID: id}, nil)

	rec, err := service.Get(context.Background(), 9, id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
}
