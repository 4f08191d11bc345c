package recording

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"spratt/internal/app/server/api/http/middleware/auth"
	"spratt/internal/domain/recording"
)

const DefaultMaxBodyBytes = 50 << 20

type Handler struct {
	service      recording.Servicer
	maxBodyBytes int64
	log          *slog.Logger
	middleware   huma.Middlewares
}

func NewHandler(service recording.Servicer, maxBodyBytes int64, log *slog.Logger, mws huma.Middlewares) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &Handler{
		service:      service,
		maxBodyBytes: maxBodyBytes,
		log:          log,
		middleware:   mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.ingestOp(), h.ingest)
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.findOp(), h.find)
}

func (h *Handler) ingest(ctx context.Context, input *ingestInput) (*ingestOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	var metadata map[string]string
	if input.Metadata != "" {
		if err := json.Unmarshal([]byte(input.Metadata), &metadata); err != nil {
			return nil, huma.Error400BadRequest("X-Recording-Metadata must be a JSON object of strings")
		}
	}

	var capturedAt time.Time
	if input.CapturedAt > 0 {
		capturedAt = time.UnixMilli(input.CapturedAt)
	}

	rec, err := h.service.Ingest(ctx, recording.IngestRequest{
		UserID:            userID,
		ClientRecordingID: input.ClientRecordingID,
		MimeType:          input.ContentType,
		CapturedAt:        capturedAt,
		Metadata:          metadata,
		Audio:             bytes.NewReader(input.RawBody),
	})
	if err != nil {
		switch {
		case errors.Is(err, recording.ErrInvalidInput), errors.Is(err, recording.ErrEmptyAudio):
			return nil, huma.Error400BadRequest(err.Error())
		default:
			h.log.Error("ingest failed", "user_id", userID, "client_recording_id", input.ClientRecordingID, "error", err)
			return nil, huma.Error500InternalServerError("ingest failed")
		}
	}

	return &ingestOutput{
		Body: ingestResponse{
			Status: "Ok",
			Data: Receipt{
				ID:                  rec.ID,
				ClientRecordingID:   rec.ClientRecordingID,
				StorageKey:          rec.StorageKey,
				TranscriptionStatus: string(rec.TranscriptionStatus),
			},
		},
	}, nil
}

func (h *Handler) list(ctx context.Context, _ *struct{}) (*listOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	recs, err := h.service.List(ctx, userID)
	if err != nil {
		h.log.Error("list recordings failed", "user_id", userID, "error", err)
		return nil, huma.Error500InternalServerError("list recordings failed")
	}

	data := make([]Recording, 0, len(recs))
	for _, r := range recs {
		data = append(data, toDTO(r))
	}

	return &listOutput{Body: listResponse{Status: "Ok", Data: data}}, nil
}

func (h *Handler) find(ctx context.Context, input *findInput) (*findOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	rec, err := h.service.Get(ctx, userID, input.ID)
	if err != nil {
		if errors.Is(err, recording.ErrNotFound) {
			return nil, huma.Error404NotFound("recording not found")
		}
		h.log.Error("find recording failed", "user_id", userID, "recording_id", input.ID, "error", err)
		return nil, huma.Error500InternalServerError("find recording failed")
	}

	return &findOutput{Body: findResponse{Status: "Ok", Data: toDTO(rec)}}, nil
}
