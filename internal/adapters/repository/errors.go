package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("record not found")
	ErrUnavailable   = errors.New("store unavailable")
	ErrCorruptRecord = errors.New("corrupt record")
	ErrUnknownDriver = errors.New("unknown store driver")
)
