package recording

import "errors"

var (
	ErrNotFound     = errors.New("recording not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrEmptyAudio   = errors.New("empty audio")
)
