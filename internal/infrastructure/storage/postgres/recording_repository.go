package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"golang.org/x/exp/slog"

	"spratt/internal/domain/recording"
)

const recordingColumns = `id::text, user_id, client_recording_id, storage_key, mime_type, size_bytes,
       captured_at, metadata, transcription_status, COALESCE(transcription, ''), attempts,
       COALESCE(last_error, ''), created_at, updated_at`

type RecordingRepository struct {
	db  *Storage
	log *slog.Logger
}

func NewRecordingRepository(db *Storage, log *slog.Logger) *RecordingRepository {
	return &RecordingRepository{
		db:  db,
		log: log.With("component", "recording_repository"),
	}
}

func (r *RecordingRepository) Create(ctx context.Context, rec recording.Recording) (recording.Recording, bool, error) {
	metadata := rec.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	row := r.db.Pool().QueryRow(ctx,
		`INSERT INTO recordings (id, user_id, client_recording_id, storage_key, mime_type, size_bytes,
                                 captured_at, metadata, transcription_status)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
         ON CONFLICT (user_id, client_recording_id) DO NOTHING
         RETURNING `+recordingColumns,
		rec.ID, rec.UserID, rec.ClientRecordingID, rec.StorageKey, rec.MimeType, rec.SizeBytes,
		rec.CapturedAt, metadata, string(rec.TranscriptionStatus))

	saved, err := scanRecording(row)
	if err == nil {
		return saved, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return recording.Recording{}, false, fmt.Errorf("insert recording: %w", err)
	}

	existing, err := scanRecording(r.db.Pool().QueryRow(ctx,
		`SELECT `+recordingColumns+` FROM recordings WHERE user_id = $1 AND client_recording_id = $2`,
		rec.UserID, rec.ClientRecordingID))
	if err != nil {
		return recording.Recording{}, false, fmt.Errorf("select existing recording: %w", err)
	}

	return existing, false, nil
}

func (r *RecordingRepository) List(ctx context.Context, userID int) ([]recording.Recording, error) {
	rows, err := r.db.Pool().Query(ctx,
		`SELECT `+recordingColumns+` FROM recordings WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("query recordings: %w", err)
	}
	defer rows.Close()

	var result []recording.Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		result = append(result, rec)
	}

	return result, rows.Err()
}

func (r *RecordingRepository) Get(ctx context.Context, userID int, id string) (recording.Recording, error) {
	rec, err := scanRecording(r.db.Pool().QueryRow(ctx,
		`SELECT `+recordingColumns+` FROM recordings WHERE id = $1::uuid AND user_id = $2`,
		id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return recording.Recording{}, recording.ErrNotFound
		}
		return recording.Recording{}, fmt.Errorf("select recording: %w", err)
	}
	return rec, nil
}

func scanRecording(row pgx.Row) (recording.Recording, error) {
	var (
		rec    recording.Recording
		status string
	)
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.ClientRecordingID,
		&rec.StorageKey,
		&rec.MimeType,
		&rec.SizeBytes,
		&rec.CapturedAt,
		&rec.Metadata,
		&status,
		&rec.Transcription,
		&rec.Attempts,
		&rec.LastError,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	rec.TranscriptionStatus = recording.TranscriptionStatus(status)
	return rec, err
}
