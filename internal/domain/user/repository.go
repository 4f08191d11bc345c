package user

import (
	"context"
	"time"
)

type Repository interface {
	// Create возвращает ErrLoginTaken, если логин уже есть
	Create(ctx context.Context, login, passwordHash string) (int, error)
	// FindByLogin возвращает ErrNotFound
	FindByLogin(ctx context.Context, login string) (User, error)
	TouchLogin(ctx context.Context, id int, at time.Time) error
}
