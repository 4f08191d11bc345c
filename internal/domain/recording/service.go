package recording

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

const maxClientIDLen = 128

type Servicer interface {
	Ingest(ctx context.Context, req IngestRequest) (Recording, error)
	List(ctx context.Context, userID int) ([]Recording, error)
	Get(ctx context.Context, userID int, id string) (Recording, error)
}

type Service struct {
	repo  Repository
	blobs BlobStore
	wake  func()
	log   *slog.Logger
}

type Option func(*Service)

// WithIngestHook вызывается после сохранения новой записи, например чтобы разбудить воркер расшифровки
func WithIngestHook(fn func()) Option {
	return func(s *Service) {
		s.wake = fn
	}
}

func NewService(repo Repository, blobs BlobStore, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:  repo,
		blobs: blobs,
		wake:  func() {},
		log:   log.With("component", "recording_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest сохраняет аудио и создает запись. Повторная отправка той же клиентской записи
// возвращает уже принятую запись.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (Recording, error) {
	if err := validate(req); err != nil {
		return Recording{}, err
	}

	audio := bufio.NewReader(req.Audio)
	if _, err := audio.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return Recording{}, ErrEmptyAudio
		}
		return Recording{}, fmt.Errorf("read audio: %w", err)
	}

	key, size, err := s.blobs.Put(ctx, audio)
	if err != nil {
		return Recording{}, fmt.Errorf("store audio: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Recording{}, fmt.Errorf("generate id: %w", err)
	}

	capturedAt := req.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}

	rec, created, err := s.repo.Create(ctx, Recording{
		ID:                  id.String(),
		UserID:              req.UserID,
		ClientRecordingID:   req.ClientRecordingID,
		StorageKey:          key,
		MimeType:            req.MimeType,
		SizeBytes:           size,
		CapturedAt:          capturedAt.UTC(),
		Metadata:            req.Metadata,
		TranscriptionStatus: TranscriptionPending,
	})
	if err != nil {
		return Recording{}, fmt.Errorf("save recording: %w", err)
	}

	if !created {
		s.log.Info("duplicate ingest", "recording_id", rec.ID, "client_recording_id", req.ClientRecordingID)
		return rec, nil
	}

	s.log.Info("recording ingested",
		"recording_id", rec.ID,
		"user_id", rec.UserID,
		"size_bytes", size,
		"mime_type", rec.MimeType,
	)
	s.wake()

	return rec, nil
}

func (s *Service) List(ctx context.Context, userID int) ([]Recording, error) {
	return s.repo.List(ctx, userID)
}

func (s *Service) Get(ctx context.Context, userID int, id string) (Recording, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Recording{}, ErrNotFound
	}
	return s.repo.Get(ctx, userID, id)
}

func validate(req IngestRequest) error {
	switch {
	case req.UserID <= 0:
		return fmt.Errorf("%w: missing owner", ErrInvalidInput)
	case req.ClientRecordingID == "":
		return fmt.Errorf("%w: missing client recording id", ErrInvalidInput)
	case len(req.ClientRecordingID) > maxClientIDLen:
		return fmt.Errorf("%w: client recording id too long", ErrInvalidInput)
	case !strings.HasPrefix(req.MimeType, "audio/"):
		return fmt.Errorf("%w: unsupported content type %q", ErrInvalidInput, req.MimeType)
	case req.Audio == nil:
		return ErrEmptyAudio
	}
	return nil
}
