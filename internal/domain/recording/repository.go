package recording

import (
	"context"
	"io"
)

// Repository хранилище записей.
// Create не создает дубликат по (UserID, ClientRecordingID): вернет существующую запись и created=false.
type Repository interface {
	Create(ctx context.Context, rec Recording) (saved Recording, created bool, err error)
	List(ctx context.Context, userID int) ([]Recording, error)
	Get(ctx context.Context, userID int, id string) (Recording, error)
}

// BlobStore хранилище аудио, адресуемое по содержимому
type BlobStore interface {
	Put(ctx context.Context, r io.Reader) (key string, size int64, err error)
}
