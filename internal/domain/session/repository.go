package session

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidSession = errors.New("invalid session")

// Repository хранилище сессий. Validate возвращает ErrInvalidSession для неизвестного
// или просроченного токена.
type Repository interface {
	Create(ctx context.Context, userID int, tokenHash string, expiresAt time.Time) error
	Validate(ctx context.Context, tokenHash string) (int, error)
	DeleteExpired(ctx context.Context) (int64, error)
}
