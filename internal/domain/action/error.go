package action

import "errors"

var (
	ErrNotFound       = errors.New("action not found")
	ErrInvalidStatus  = errors.New("invalid action status")
	ErrAlreadyDecided = errors.New("action already decided")
)
