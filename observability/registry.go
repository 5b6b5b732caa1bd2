package observability

import (
	"fmt"
	"log/slog"
	"sync"
)

// named holds the observers a config file can select by name.
var named = struct {
	sync.RWMutex
	byName map[string]Observer
}{
	byName: map[string]Observer{
		"noop": NoOpObserver{},
		"slog": NewSlogObserver(slog.Default()),
	},
}

// GetObserver resolves an observer by name. "noop" and "slog" are always
// present; other names fail with ErrUnknownObserver.
func GetObserver(name string) (Observer, error) {
	named.RLock()
	defer named.RUnlock()

	if obs, ok := named.byName[name]; ok {
		return obs, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownObserver, name)
}

// RegisterObserver adds or replaces a named observer.
func RegisterObserver(name string, observer Observer) {
	named.Lock()
	defer named.Unlock()

	named.byName[name] = observer
}
