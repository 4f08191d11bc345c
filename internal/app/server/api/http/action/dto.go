package action

import (
	"time"

	"spratt/internal/domain/action"
)

type listInput struct {
	Status string `query:"status" enum:"pending,approved,rejected" doc:"Фильтр по статусу"`
}

type listOutput struct {
	Body listResponse
}

type listResponse struct {
	Status string   `json:"status"`
	Data   []Action `json:"data"`
}

type decideInput struct {
	ID   string `path:"id" doc:"ID действия"`
	Body struct {
		Decision string `json:"decision" enum:"approved,rejected" doc:"Решение пользователя"`
	}
}

type decideOutput struct {
	Body decideResponse
}

type decideResponse struct {
	Status string `json:"status"`
	Data   Action `json:"data"`
}

type Action struct {
	ID          string            `json:"id"`
	RecordingID string            `json:"recording_id"`
	ActionType  string            `json:"action_type"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      string            `json:"status"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	DecidedAt   *time.Time        `json:"decided_at,omitempty"`
}

func toDTO(a action.Action) Action {
	return Action{
		ID:          a.ID,
		RecordingID: a.RecordingID,
		ActionType:  string(a.Type),
		Title:       a.Title,
		Description: a.Description,
		Status:      string(a.Status),
		Metadata:    a.Metadata,
		CreatedAt:   a.CreatedAt,
		DecidedAt:   a.DecidedAt,
	}
}
