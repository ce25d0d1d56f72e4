package status

import "errors"

var (
	ErrNotFound                = errors.New("queue: not found")
	ErrUnauthorized            = errors.New("queue: actor not allowed")
	ErrInvalidTransition       = errors.New("queue: invalid transition")
	ErrInvalidServiceSelection = errors.New("queue: invalid service selection")
	ErrStorageUnavailable      = errors.New("queue: storage unavailable")
)
