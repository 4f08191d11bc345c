package action

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "actions-list",
		Method:      http.MethodGet,
		Path:        "/api/v1/actions",
		Summary:     "Действия, извлеченные из расшифровок",
		Tags:        []string{"actions"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) decideOp() huma.Operation {
	return huma.Operation{
		OperationID: "actions-decide",
		Method:      http.MethodPost,
		Path:        "/api/v1/actions/{id}/decision",
		Summary:     "Одобрить или отклонить действие",
		Description: "Решение принимается один раз, только для действия в статусе pending.",
		Tags:        []string{"actions"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
