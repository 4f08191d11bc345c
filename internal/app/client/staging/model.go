package staging

import (
	"bytes"
	"fmt"
	"io"
	"time"
)

// Ключи метаданных, которые заполняет клиент при записи
const (
	MetaDurationMs = "duration_ms"
	MetaSource     = "source"
	MetaFileName   = "file_name"
	MetaCapturedAt = "captured_at_ms"
)

// Status состояние локальной записи
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusUploaded  Status = "uploaded"
	StatusFailed    Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusUploading, StatusUploaded, StatusFailed:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// Metadata произвольные атрибуты, собранные в момент записи
type Metadata map[string]string

// Blob аудиоданные вместе с типом содержимого.
// Сырые байты наружу отдаются только копией.
type Blob struct {
	MimeType string
	data     []byte
}

func NewBlob(mimeType string, data []byte) Blob {
	cp := make([]byte, len(data))
	copy(cp, data)
	return Blob{MimeType: mimeType, data: cp}
}

// ReadBlob вычитывает поток целиком
func ReadBlob(r io.Reader, mimeType string) (Blob, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Blob{}, fmt.Errorf("read blob: %w", err)
	}
	return Blob{MimeType: mimeType, data: data}, nil
}

func (b Blob) Reader() io.Reader {
	return bytes.NewReader(b.data)
}

func (b Blob) Bytes() []byte {
	cp := make([]byte, len(b.data))
	copy(cp, b.data)
	return cp
}

func (b Blob) Size() int64 {
	return int64(len(b.data))
}

func (b Blob) IsEmpty() bool {
	return len(b.data) == 0
}

// encodeBlob и decodeBlob - единственная граница между Blob и тем, что лежит в БД
func encodeBlob(b Blob) (string, []byte) {
	return b.MimeType, b.data
}

func decodeBlob(mimeType string, raw []byte) Blob {
	return Blob{MimeType: mimeType, data: raw}
}

// StagedRecording локально сохраненная запись, еще не подтвержденная сервером
type StagedRecording struct {
	ID           string
	OwnerID      string
	Audio        Blob
	CapturedAtMs int64
	Status       Status
	RetryCount   int
	LastError    string
	Metadata     Metadata
}

func (r StagedRecording) MimeType() string {
	return r.Audio.MimeType
}

func (r StagedRecording) CapturedAt() time.Time {
	return time.UnixMilli(r.CapturedAtMs)
}

// Usage агрегаты по хранилищу
type Usage struct {
	Count        int   `json:"count"`
	PendingCount int   `json:"pending_count"`
	FailedCount  int   `json:"failed_count"`
	TotalBytes   int64 `json:"total_bytes"`
}
