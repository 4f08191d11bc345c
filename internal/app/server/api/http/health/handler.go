package health

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

const pingTimeout = 2 * time.Second

// Pinger проверяет доступность зависимости
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	db            Pinger
	transcription bool
	log           *slog.Logger
	middleware    huma.Middlewares
}

// NewHandler transcription сообщает, запущен ли воркер расшифровки
func NewHandler(db Pinger, transcription bool, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		db:            db,
		transcription: transcription,
		log:           log,
		middleware:    middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.healthCheckOp(), h.healthCheck)
}

func (h *Handler) healthCheck(ctx context.Context, _ *Input) (*Output, error) {
	h.log.Debug("health check request received")

	resp := Response{Status: "OK", Transcription: "disabled"}
	if h.transcription {
		resp.Transcription = "enabled"
	}

	if h.db == nil {
		return &Output{Body: resp}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.log.Error("database ping failed", "error", err)
		return nil, huma.Error503ServiceUnavailable("database unavailable")
	}

	resp.Database = "OK"
	return &Output{Body: resp}, nil
}
