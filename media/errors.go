package media

import "errors"

// Sentinel errors for item loading and player control.
var (
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
	ErrTooLarge         = errors.New("media exceeds size limit")
	ErrEmptyMedia       = errors.New("media is empty")
	ErrInvalidMedia     = errors.New("media length cannot be determined")
	ErrClosed           = errors.New("player is closed")
)
