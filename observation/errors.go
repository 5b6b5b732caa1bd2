package observation

import "errors"

// Sentinel errors returned by Register.
var (
	ErrNilObject     = errors.New("observed object is nil")
	ErrEmptyProperty = errors.New("property name is empty")
	ErrNilCallback   = errors.New("callback is nil")
	ErrInstallFailed = errors.New("host observation install failed")
	ErrClosed        = errors.New("registry is closed")
)
