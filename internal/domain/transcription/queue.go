package transcription

import (
	"context"
	"errors"
	"io"
	"time"

	"spratt/internal/domain/action"
)

var ErrNoJob = errors.New("no pending recordings")

// Job запись, взятая в работу. Attempts уже учитывает текущую попытку.
type Job struct {
	RecordingID string
	UserID      int
	StorageKey  string
	MimeType    string
	Attempts    int
}

// Queue очередь расшифровки поверх таблицы записей
type Queue interface {
	// Claim забирает самую старую готовую запись и переводит ее в processing. ErrNoJob, если брать нечего.
	Claim(ctx context.Context) (Job, error)
	// Complete сохраняет расшифровку и найденные действия одной транзакцией
	Complete(ctx context.Context, job Job, transcript string, drafts []action.Draft) error
	// Retry возвращает запись в pending не раньше at
	Retry(ctx context.Context, job Job, cause string, at time.Time) error
	// Fail окончательно помечает запись failed
	Fail(ctx context.Context, job Job, cause string) error
	// ResetStale возвращает в pending записи, зависшие в processing дольше olderThan
	ResetStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, mimeType string) (string, error)
}

type BlobOpener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
