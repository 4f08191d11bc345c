package action

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"spratt/internal/app/server/api/http/middleware/auth"
	"spratt/internal/domain/action"
)

type Handler struct {
	service    action.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service action.Servicer, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.decideOp(), h.decide)
}

func (h *Handler) list(ctx context.Context, input *listInput) (*listOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	actions, err := h.service.List(ctx, userID, input.Status)
	if err != nil {
		if errors.Is(err, action.ErrInvalidStatus) {
			return nil, huma.Error400BadRequest(err.Error())
		}
		h.log.Error("list actions failed", "user_id", userID, "error", err)
		return nil, huma.Error500InternalServerError("list actions failed")
	}

	data := make([]Action, 0, len(actions))
	for _, a := range actions {
		data = append(data, toDTO(a))
	}

	return &listOutput{Body: listResponse{Status: "Ok", Data: data}}, nil
}

func (h *Handler) decide(ctx context.Context, input *decideInput) (*decideOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	a, err := h.service.Decide(ctx, userID, input.ID, input.Body.Decision)
	if err != nil {
		switch {
		case errors.Is(err, action.ErrNotFound):
			return nil, huma.Error404NotFound("action not found")
		case errors.Is(err, action.ErrAlreadyDecided):
			return nil, huma.Error409Conflict(err.Error())
		case errors.Is(err, action.ErrInvalidStatus):
			return nil, huma.Error400BadRequest(err.Error())
		default:
			h.log.Error("decide action failed", "user_id", userID, "action_id", input.ID, "error", err)
			return nil, huma.Error500InternalServerError("decide action failed")
		}
	}

	return &decideOutput{Body: decideResponse{Status: "Ok", Data: toDTO(a)}}, nil
}
