package metrics

import (
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// Observer получает итог каждого запроса
type Observer interface {
	ObserveRequest(operation string, code int, elapsed time.Duration)
}

type Metrics struct {
	observer Observer
}

func New(observer Observer) *Metrics {
	return &Metrics{observer: observer}
}

func (m *Metrics) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		start := time.Now()

		next(ctx)

		operation := "unknown"
		if op := ctx.Operation(); op != nil {
			operation = op.OperationID
		}
		m.observer.ObserveRequest(operation, ctx.Status(), time.Since(start))
	}
}
