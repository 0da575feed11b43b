package cache

import "errors"

var (
	ErrInvalidConfig = errors.New("cache: invalid configuration")
	ErrNoCommit      = errors.New("cache: mutation has no commit function")
	ErrClosed        = errors.New("cache: store closed")
)
