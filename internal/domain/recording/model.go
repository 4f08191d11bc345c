package recording

import (
	"io"
	"time"
)

type TranscriptionStatus string

const (
	TranscriptionPending    TranscriptionStatus = "pending"
	TranscriptionProcessing TranscriptionStatus = "processing"
	TranscriptionCompleted  TranscriptionStatus = "completed"
	TranscriptionFailed     TranscriptionStatus = "failed"
)

// Recording принятая сервером запись
type Recording struct {
	ID                  string
	UserID              int
	ClientRecordingID   string
	StorageKey          string
	MimeType            string
	SizeBytes           int64
	CapturedAt          time.Time
	Metadata            map[string]string
	TranscriptionStatus TranscriptionStatus
	Transcription       string
	Attempts            int
	LastError           string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IngestRequest входящая запись от клиента. Audio читается один раз.
type IngestRequest struct {
	UserID            int
	ClientRecordingID string
	MimeType          string
	CapturedAt        time.Time
	Metadata          map[string]string
	Audio             io.Reader
}
