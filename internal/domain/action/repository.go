package action

import "context"

// Repository хранилище действий. Decide меняет статус только у действия в pending
// и возвращает ErrNotFound, если такого нет.
type Repository interface {
	List(ctx context.Context, userID int, status Status) ([]Action, error)
	Get(ctx context.Context, userID int, id string) (Action, error)
	Decide(ctx context.Context, userID int, id string, status Status) (Action, error)
}
