package staging

import "errors"

var (
	ErrStorageUnavailable = errors.New("local staging storage unavailable")
	ErrNotFound           = errors.New("staged recording not found")
	ErrInvalidTransition  = errors.New("invalid staged recording status transition")
	ErrInvalidRecording   = errors.New("invalid staged recording")
)
