package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/exp/slog"

	"spratt/internal/domain/action"
	"spratt/internal/domain/recording"
	"spratt/internal/domain/transcription"
)

// TranscriptionQueue очередь расшифровки на таблице recordings.
// Конкурентные воркеры не получают одну и ту же запись благодаря FOR UPDATE SKIP LOCKED.
type TranscriptionQueue struct {
	db  *Storage
	log *slog.Logger
}

func NewTranscriptionQueue(db *Storage, log *slog.Logger) *TranscriptionQueue {
	return &TranscriptionQueue{
		db:  db,
		log: log.With("component", "transcription_queue"),
	}
}

func (q *TranscriptionQueue) Claim(ctx context.Context) (transcription.Job, error) {
	var job transcription.Job
	err := q.db.Pool().QueryRow(ctx,
		`UPDATE recordings
         SET transcription_status = $1, attempts = attempts + 1, updated_at = NOW()
         WHERE id = (
             SELECT id FROM recordings
             WHERE transcription_status = $2 AND next_attempt_at <= NOW()
             ORDER BY created_at
             FOR UPDATE SKIP LOCKED
             LIMIT 1
         )
         RETURNING id::text, user_id, storage_key, mime_type, attempts`,
		string(recording.TranscriptionProcessing), string(recording.TranscriptionPending)).
		Scan(&job.RecordingID, &job.UserID, &job.StorageKey, &job.MimeType, &job.Attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return job, transcription.ErrNoJob
		}
		return job, fmt.Errorf("claim recording: %w", err)
	}
	return job, nil
}

func (q *TranscriptionQueue) Complete(ctx context.Context, job transcription.Job, transcript string, drafts []action.Draft) error {
	return pgx.BeginFunc(ctx, q.db.Pool(), func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE recordings
             SET transcription = $2, transcription_status = $3, last_error = NULL, updated_at = NOW()
             WHERE id = $1::uuid AND transcription_status = $4`,
			job.RecordingID, transcript,
			string(recording.TranscriptionCompleted), string(recording.TranscriptionProcessing))
		if err != nil {
			return fmt.Errorf("update recording: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("recording %s is no longer processing", job.RecordingID)
		}

		if len(drafts) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, d := range drafts {
			id, err := uuid.NewV7()
			if err != nil {
				return fmt.Errorf("generate action id: %w", err)
			}
			metadata := d.Metadata
			if metadata == nil {
				metadata = map[string]string{}
			}
			batch.Queue(
				`INSERT INTO actions (id, recording_id, user_id, action_type, title, description, status, metadata)
                 VALUES ($1, $2::uuid, $3, $4, $5, $6, $7, $8)`,
				id.String(), job.RecordingID, job.UserID, string(d.Type), d.Title, d.Description,
				string(action.StatusPending), metadata)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert actions: %w", err)
		}
		return nil
	})
}

func (q *TranscriptionQueue) Retry(ctx context.Context, job transcription.Job, cause string, at time.Time) error {
	_, err := q.db.Pool().Exec(ctx,
		`UPDATE recordings
         SET transcription_status = $2, last_error = $3, next_attempt_at = $4, updated_at = NOW()
         WHERE id = $1::uuid`,
		job.RecordingID, string(recording.TranscriptionPending), cause, at)
	if err != nil {
		return fmt.Errorf("requeue recording: %w", err)
	}
	return nil
}

func (q *TranscriptionQueue) Fail(ctx context.Context, job transcription.Job, cause string) error {
	_, err := q.db.Pool().Exec(ctx,
		`UPDATE recordings
         SET transcription_status = $2, last_error = $3, updated_at = NOW()
         WHERE id = $1::uuid`,
		job.RecordingID, string(recording.TranscriptionFailed), cause)
	if err != nil {
		return fmt.Errorf("fail recording: %w", err)
	}
	return nil
}

func (q *TranscriptionQueue) ResetStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := q.db.Pool().Exec(ctx,
		`UPDATE recordings
         SET transcription_status = $1, updated_at = NOW()
         WHERE transcription_status = $2 AND updated_at < $3`,
		string(recording.TranscriptionPending), string(recording.TranscriptionProcessing),
		time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("reset stale recordings: %w", err)
	}
	return tag.RowsAffected(), nil
}
