package transcription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"spratt/internal/domain/action"
)

const (
	DefaultPollInterval = 10 * time.Second
	DefaultMaxAttempts  = 3
	DefaultStaleAfter   = 10 * time.Minute
	DefaultRetryDelay   = 30 * time.Second
)

// Result итог обработки одной записи
type Result string

const (
	ResultCompleted Result = "completed"
	ResultRetry     Result = "retry"
	ResultFailed    Result = "failed"
)

type Config struct {
	PollInterval time.Duration
	MaxAttempts  int
	StaleAfter   time.Duration
	RetryDelay   time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = DefaultStaleAfter
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	return c
}

// Observer получает результат каждой обработанной записи
type Observer func(result Result, actions int)

// Worker расшифровывает принятые записи и извлекает из них действия
type Worker struct {
	queue       Queue
	blobs       BlobOpener
	transcriber Transcriber
	cfg         Config
	observe     Observer
	wake        chan struct{}
	now         func() time.Time
	log         *slog.Logger
}

func NewWorker(queue Queue, blobs BlobOpener, transcriber Transcriber, cfg Config, log *slog.Logger) *Worker {
	return &Worker{
		queue:       queue,
		blobs:       blobs,
		transcriber: transcriber,
		cfg:         cfg.withDefaults(),
		observe:     func(Result, int) {},
		wake:        make(chan struct{}, 1),
		now:         time.Now,
		log:         log.With("component", "transcription_worker"),
	}
}

func (w *Worker) SetObserver(fn Observer) {
	w.observe = fn
}

// Wake просит воркер проверить очередь, не дожидаясь таймера
func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run обрабатывает очередь до отмены ctx
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("transcription worker started",
		"poll_interval", w.cfg.PollInterval,
		"max_attempts", w.cfg.MaxAttempts,
	)

	if n, err := w.queue.ResetStale(ctx, w.cfg.StaleAfter); err != nil {
		w.log.Error("failed to reset stale recordings", "error", err)
	} else if n > 0 {
		w.log.Info("stale recordings returned to queue", "count", n)
	}

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		w.Drain(ctx)

		select {
		case <-ctx.Done():
			w.log.Info("transcription worker stopped")
			return nil
		case <-ticker.C:
		case <-w.wake:
		}
	}
}

// Drain обрабатывает записи, пока очередь не опустеет. Возвращает число обработанных.
func (w *Worker) Drain(ctx context.Context) int {
	processed := 0
	for ctx.Err() == nil {
		job, err := w.queue.Claim(ctx)
		if errors.Is(err, ErrNoJob) {
			return processed
		}
		if err != nil {
			w.log.Error("failed to claim recording", "error", err)
			return processed
		}

		w.process(ctx, job)
		processed++
	}
	return processed
}

func (w *Worker) process(ctx context.Context, job Job) {
	log := w.log.With("recording_id", job.RecordingID, "attempt", job.Attempts)

	transcript, err := w.transcribe(ctx, job)
	if err != nil {
		w.handleFailure(ctx, log, job, err)
		return
	}

	drafts := action.Extract(transcript)
	if err := w.queue.Complete(ctx, job, transcript, drafts); err != nil {
		w.handleFailure(ctx, log, job, fmt.Errorf("save transcript: %w", err))
		return
	}

	log.Info("recording transcribed", "chars", len(transcript), "actions", len(drafts))
	w.observe(ResultCompleted, len(drafts))
}

func (w *Worker) transcribe(ctx context.Context, job Job) (string, error) {
	audio, err := w.blobs.Open(ctx, job.StorageKey)
	if err != nil {
		return "", fmt.Errorf("open audio: %w", err)
	}
	defer audio.Close()

	text, err := w.transcriber.Transcribe(ctx, audio, job.MimeType)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return text, nil
}

func (w *Worker) handleFailure(ctx context.Context, log *slog.Logger, job Job, cause error) {
	if job.Attempts >= w.cfg.MaxAttempts {
		log.Error("transcription failed, giving up", "error", cause)
		if err := w.queue.Fail(ctx, job, cause.Error()); err != nil {
			log.Error("failed to mark recording failed", "error", err)
		}
		w.observe(ResultFailed, 0)
		return
	}

	retryAt := w.now().Add(w.cfg.RetryDelay * time.Duration(job.Attempts))
	log.Warn("transcription failed, will retry", "error", cause, "retry_at", retryAt)
	if err := w.queue.Retry(ctx, job, cause.Error(), retryAt); err != nil {
		log.Error("failed to requeue recording", "error", err)
	}
	w.observe(ResultRetry, 0)
}
