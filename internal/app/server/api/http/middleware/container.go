package middleware

import "github.com/danielgtaylor/huma/v2"

// Container накапливает middleware для очередного обработчика
type Container struct {
	items huma.Middlewares
}

func NewContainer() *Container {
	return &Container{}
}

func (c *Container) Add(mw ...func(huma.Context, func(huma.Context))) {
	c.items = append(c.items, mw...)
}

// GetAllAndClear отдает накопленные middleware и очищает контейнер
func (c *Container) GetAllAndClear() huma.Middlewares {
	items := c.items
	c.items = nil
	return items
}
