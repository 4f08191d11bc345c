package health

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) healthCheckOp() huma.Operation {
	return huma.Operation{
		OperationID: "server-health",
		Method:      http.MethodGet,
		Path:        "/api/v1/health",
		Summary:     "Состояние сервера приема записей",
		Description: "Клиенты опрашивают этот адрес, чтобы понять, есть ли связь. 503, если база недоступна и записи принять нельзя.",
		Tags:        []string{"service"},
		Middlewares: h.middleware,
	}
}
