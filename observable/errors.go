package observable

import "errors"

// Sentinel errors for the notifier.
var (
	ErrNotObservable = errors.New("property is not observable")
	ErrUnknownHandle = errors.New("unknown installation handle")
)
