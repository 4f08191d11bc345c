package staging

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/exp/slog"
)

const (
	interruptedError = "interrupted"
	syncLeaseName    = "sync"
)

const selectColumns = `id, owner_id, audio, mime_type, captured_at, status, retry_count, last_error, metadata`

// Store локальное хранилище записей на SQLite
type Store struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

// Open открывает (или создает) базу по указанному пути
func Open(path string, log *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	// SQLite сам сериализует запись, одно соединение исключает "database is locked"
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	s := &Store{
		db:  db,
		log: log.With("component", "staging_store"),
		now: time.Now,
	}

	if err := s.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: init tables: %v", ErrStorageUnavailable, err)
	}

	return s, nil
}

func (s *Store) initTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS staged_recordings (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			owner_id TEXT NOT NULL,
			audio BLOB NOT NULL,
			mime_type TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			captured_at INTEGER NOT NULL,
			status TEXT NOT NULL,
			retry_count INTEGER NOT NULL DEFAULT 0,
			last_error TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}'
		);

		CREATE INDEX IF NOT EXISTS idx_staged_status ON staged_recordings(status);
		CREATE INDEX IF NOT EXISTS idx_staged_captured_at ON staged_recordings(captured_at);

		CREATE TABLE IF NOT EXISTS sync_lease (
			name TEXT PRIMARY KEY,
			holder TEXT NOT NULL,
			expires_at INTEGER NOT NULL
		);
	`)

	return err
}

// Stage сохраняет новую запись в статусе pending и возвращает ее идентификатор
func (s *Store) Stage(ctx context.Context, blob Blob, ownerID string, meta Metadata) (string, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", fmt.Errorf("%w: empty owner id", ErrInvalidRecording)
	}
	if blob.IsEmpty() {
		return "", fmt.Errorf("%w: empty audio", ErrInvalidRecording)
	}
	if !strings.HasPrefix(blob.MimeType, "audio/") {
		return "", fmt.Errorf("%w: mime type %q is not audio", ErrInvalidRecording, blob.MimeType)
	}

	mimeType, raw := encodeBlob(blob)

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}

	capturedAt := s.now().UnixMilli()
	if v, ok := meta[MetaCapturedAt]; ok {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms > 0 {
			capturedAt = ms
		}
	}

	if meta == nil {
		meta = Metadata{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO staged_recordings (id, owner_id, audio, mime_type, size_bytes, captured_at, status, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id.String(), ownerID, raw, mimeType, len(raw), capturedAt, StatusPending, string(metaJSON))
	if err != nil {
		s.log.Error("failed to stage recording", "owner_id", ownerID, "error", err)
		return "", fmt.Errorf("stage recording: %w", err)
	}

	s.log.Debug("recording staged", "id", id.String(), "bytes", len(raw), "mime_type", mimeType)
	return id.String(), nil
}

// ListPending возвращает записи в статусе pending в порядке добавления
func (s *Store) ListPending(ctx context.Context) ([]StagedRecording, error) {
	return s.query(ctx, `SELECT `+selectColumns+` FROM staged_recordings WHERE status = ? ORDER BY seq`, StatusPending)
}

// ListUnsynced возвращает все записи, ожидающие отправки: pending и failed
func (s *Store) ListUnsynced(ctx context.Context) ([]StagedRecording, error) {
	return s.query(ctx, `SELECT `+selectColumns+` FROM staged_recordings WHERE status IN (?, ?) ORDER BY seq`,
		StatusPending, StatusFailed)
}

// List возвращает все записи хранилища
func (s *Store) List(ctx context.Context) ([]StagedRecording, error) {
	return s.query(ctx, `SELECT `+selectColumns+` FROM staged_recordings ORDER BY seq`)
}

func (s *Store) Get(ctx context.Context, id string) (*StagedRecording, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM staged_recordings WHERE id = ?`, id)

	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get staged recording: %w", err)
	}

	return &rec, nil
}

// MarkStatus переводит запись в новый статус.
// Если передана причина, увеличивает retry_count и сохраняет текст ошибки.
func (s *Store) MarkStatus(ctx context.Context, id string, status Status, cause error) error {
	if !status.Valid() || status == StatusPending {
		return fmt.Errorf("%w: -> %s", ErrInvalidTransition, status)
	}

	var (
		res sql.Result
		err error
	)
	if cause != nil {
		res, err = s.db.ExecContext(ctx, `
			UPDATE staged_recordings
			SET status = ?, retry_count = retry_count + 1, last_error = ?
			WHERE id = ?
		`, status, cause.Error(), id)
	} else {
		res, err = s.db.ExecContext(ctx, `UPDATE staged_recordings SET status = ? WHERE id = ?`, status, id)
	}
	if err != nil {
		s.log.Error("failed to mark status", "id", id, "status", status, "error", err)
		return fmt.Errorf("mark status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark status: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// Complete отмечает запись как загруженную и удаляет ее в одной транзакции
func (s *Store) Complete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE staged_recordings SET status = ? WHERE id = ?`, StatusUploaded, id)
	if err != nil {
		return fmt.Errorf("mark uploaded: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark uploaded: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM staged_recordings WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete uploaded: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// Remove удаляет запись. Отсутствие записи ошибкой не считается.
func (s *Store) Remove(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM staged_recordings WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove staged recording: %w", err)
	}
	return nil
}

func (s *Store) Usage(ctx context.Context) (Usage, error) {
	var u Usage
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(size_bytes), 0)
		FROM staged_recordings
	`, StatusPending, StatusFailed).Scan(&u.Count, &u.PendingCount, &u.FailedCount, &u.TotalBytes)
	if err != nil {
		return Usage{}, fmt.Errorf("usage: %w", err)
	}

	return u, nil
}

// AcquireLease берет или продлевает общую для всех процессов блокировку синхронизации.
// Чужая блокировка перехватывается только после истечения срока.
func (s *Store) AcquireLease(ctx context.Context, holder string, ttl time.Duration) (bool, error) {
	now := s.now().UnixMilli()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_lease (name, holder, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET holder = excluded.holder, expires_at = excluded.expires_at
		WHERE sync_lease.holder = excluded.holder OR sync_lease.expires_at <= ?
	`, syncLeaseName, holder, now+ttl.Milliseconds(), now)
	if err != nil {
		return false, fmt.Errorf("acquire sync lease: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquire sync lease: %w", err)
	}

	return n > 0, nil
}

// ReleaseLease снимает блокировку, если она все еще принадлежит holder
func (s *Store) ReleaseLease(ctx context.Context, holder string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sync_lease WHERE name = ? AND holder = ?`, syncLeaseName, holder)
	if err != nil {
		return fmt.Errorf("release sync lease: %w", err)
	}
	return nil
}

// RecoverInterrupted переводит зависшие в uploading записи в failed.
// Вызывается только под блокировкой синхронизации; inFlight - записи, которые
// этот процесс выгружает прямо сейчас.
func (s *Store) RecoverInterrupted(ctx context.Context, inFlight ...string) (int, error) {
	query := `
		UPDATE staged_recordings
		SET status = ?, retry_count = retry_count + 1, last_error = ?
		WHERE status = ?`
	args := []interface{}{StatusFailed, interruptedError, StatusUploading}
	if len(inFlight) > 0 {
		query += ` AND id NOT IN (?` + strings.Repeat(`, ?`, len(inFlight)-1) + `)`
		for _, id := range inFlight {
			args = append(args, id)
		}
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("recover interrupted: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("recover interrupted: %w", err)
	}
	if n > 0 {
		s.log.Warn("interrupted uploads moved to failed", "count", n)
	}

	return int(n), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) query(ctx context.Context, query string, args ...interface{}) ([]StagedRecording, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query staged recordings: %w", err)
	}
	defer rows.Close()

	var records []StagedRecording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("scan staged recording: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate staged recordings: %w", err)
	}

	return records, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecording(row scanner) (StagedRecording, error) {
	var (
		rec      StagedRecording
		raw      []byte
		mimeType string
		status   string
		metaJSON string
	)

	if err := row.Scan(&rec.ID, &rec.OwnerID, &raw, &mimeType, &rec.CapturedAtMs,
		&status, &rec.RetryCount, &rec.LastError, &metaJSON); err != nil {
		return StagedRecording{}, err
	}

	rec.Status = Status(status)
	rec.Audio = decodeBlob(mimeType, raw)

	if err := json.Unmarshal([]byte(metaJSON), &rec.Metadata); err != nil {
		return StagedRecording{}, fmt.Errorf("parse metadata: %w", err)
	}
	if rec.Metadata == nil {
		rec.Metadata = Metadata{}
	}

	return rec, nil
}
