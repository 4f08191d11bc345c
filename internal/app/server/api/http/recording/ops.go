package recording

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) ingestOp() huma.Operation {
	return huma.Operation{
		OperationID:  "recordings-ingest",
		Method:       http.MethodPost,
		Path:         "/api/v1/recordings",
		Summary:      "Принять запись",
		Description:  "Тело запроса содержит аудио. Повторная отправка с тем же X-Client-Recording-ID возвращает уже принятую запись.",
		Tags:         []string{"recordings"},
		Security:     []map[string][]string{{"bearer": {}}},
		MaxBodyBytes: h.maxBodyBytes,
		Middlewares:  h.middleware,
	}
}

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "recordings-list",
		Method:      http.MethodGet,
		Path:        "/api/v1/recordings",
		Summary:     "Список записей пользователя",
		Tags:        []string{"recordings"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) findOp() huma.Operation {
	return huma.Operation{
		OperationID: "recordings-find",
		Method:      http.MethodGet,
		Path:        "/api/v1/recordings/{id}",
		Summary:     "Получить запись с расшифровкой",
		Tags:        []string{"recordings"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
