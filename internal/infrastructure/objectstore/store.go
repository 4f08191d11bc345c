package objectstore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/exp/slog"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid object key")
)

// Store хранит аудио на диске по ключу blake2b-256 от содержимого.
// Раскладка: {root}/{key[0:2]}/{key[2:4]}/{key}
type Store struct {
	root string
	log  *slog.Logger
}

func New(root string, log *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, "tmp"), 0750); err != nil {
		return nil, fmt.Errorf("create object store: %w", err)
	}
	return &Store{
		root: root,
		log:  log.With("component", "object_store"),
	}, nil
}

// Put сохраняет содержимое и возвращает его ключ. Одинаковое содержимое хранится один раз.
func (s *Store) Put(ctx context.Context, r io.Reader) (string, int64, error) {
	tmp, err := os.CreateTemp(filepath.Join(s.root, "tmp"), "upload-*")
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	h, err := blake2b.New256(nil)
	if err != nil {
		tmp.Close()
		return "", 0, err
	}

	size, err := io.Copy(io.MultiWriter(tmp, h), contextReader{ctx: ctx, r: r})
	if err != nil {
		tmp.Close()
		return "", 0, fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", 0, fmt.Errorf("sync object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, fmt.Errorf("close object: %w", err)
	}

	key := hex.EncodeToString(h.Sum(nil))
	dst := s.path(key)

	if _, err := os.Stat(dst); err == nil {
		s.log.Debug("object already stored", "key", key)
		return key, size, nil
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0750); err != nil {
		return "", 0, fmt.Errorf("create object dir: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", 0, fmt.Errorf("move object: %w", err)
	}

	s.log.Debug("object stored", "key", key, "size", size)
	return key, size, nil
}

// Open открывает объект по ключу
func (s *Store) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if !validKey(key) {
		return nil, ErrInvalidKey
	}

	f, err := os.Open(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, err
	}
	return f, nil
}

func (s *Store) Exists(key string) bool {
	if !validKey(key) {
		return false
	}
	_, err := os.Stat(s.path(key))
	return err == nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.root, key[0:2], key[2:4], key)
}

func validKey(key string) bool {
	if len(key) != blake2b.Size256*2 {
		return false
	}
	_, err := hex.DecodeString(key)
	return err == nil
}

// contextReader прерывает копирование при отмене ctx
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
