package recording

import (
	"time"

	"spratt/internal/domain/recording"
)

type ingestInput struct {
	ClientRecordingID string `header:"X-Client-Recording-ID" required:"true" maxLength:"128" doc:"Идентификатор записи на клиенте"`
	CapturedAt        int64  `header:"X-Captured-At" doc:"Время записи, мс с эпохи"`
	Metadata          string `header:"X-Recording-Metadata" doc:"Метаданные записи, JSON объект строк"`
	ContentType       string `header:"Content-Type" doc:"Тип аудио"`
	RawBody           []byte
}

type ingestOutput struct {
	Body ingestResponse
}

type ingestResponse struct {
	Status string  `json:"status"`
	Data   Receipt `json:"data"`
}

// Receipt подтверждение приема записи
type Receipt struct {
	ID                  string `json:"id"`
	ClientRecordingID   string `json:"client_recording_id"`
	StorageKey          string `json:"storage_key"`
	TranscriptionStatus string `json:"transcription_status"`
}

type listOutput struct {
	Body listResponse
}

type listResponse struct {
	Status string      `json:"status"`
	Data   []Recording `json:"data"`
}

type findInput struct {
	ID string `path:"id" doc:"ID записи"`
}

type findOutput struct {
	Body findResponse
}

type findResponse struct {
	Status string    `json:"status"`
	Data   Recording `json:"data"`
}

type Recording struct {
	ID                  string            `json:"id"`
	ClientRecordingID   string            `json:"client_recording_id"`
	StorageKey          string            `json:"storage_key"`
	MimeType            string            `json:"mime_type"`
	SizeBytes           int64             `json:"size_bytes"`
	CapturedAt          time.Time         `json:"captured_at"`
	TranscriptionStatus string            `json:"transcription_status"`
	Transcription       string            `json:"transcription,omitempty"`
	Attempts            int               `json:"attempts"`
	LastError           string            `json:"last_error,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
}

func toDTO(r recording.Recording) Recording {
	return Recording{
		ID:                  r.ID,
		ClientRecordingID:   r.ClientRecordingID,
		StorageKey:          r.StorageKey,
		MimeType:            r.MimeType,
		SizeBytes:           r.SizeBytes,
		CapturedAt:          r.CapturedAt,
		TranscriptionStatus: string(r.TranscriptionStatus),
		Transcription:       r.Transcription,
		Attempts:            r.Attempts,
		LastError:           r.LastError,
		Metadata:            r.Metadata,
		CreatedAt:           r.CreatedAt,
	}
}
