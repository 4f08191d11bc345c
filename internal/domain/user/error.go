package user

import "errors"

var (
	ErrNotFound     = errors.New("user not found")
	ErrInvalidAuth  = errors.New("wrong login or password")
	ErrInvalidInput = errors.New("invalid credentials format")
	ErrLoginTaken   = errors.New("login is already registered")
)
