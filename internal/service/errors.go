package service

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrWindowClosed     = errors.New("too close to showtime")
	ErrAlreadyCancelled = errors.New("booking already cancelled")
	ErrStoreFailure     = errors.New("store failure")
)
