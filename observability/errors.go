package observability

import "errors"

// ErrUnknownObserver is returned by GetObserver for names nothing registered.
var ErrUnknownObserver = errors.New("unknown observer")
