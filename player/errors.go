package player

import "errors"

// Sentinel errors for the playback controller.
var (
	ErrClosed        = errors.New("player is closed")
	ErrNoURL         = errors.New("no stream URL configured")
	ErrUnknownFormat = errors.New("unsupported config file format")
)
