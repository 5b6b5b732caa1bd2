// Package observable is an in-process notification host for the observation
// registry. Observed types embed Base and call Changed after mutating a
// property; the Notifier forwards the change to every dispatcher installed for
// that object and property.
package observable

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/audioplayer/observation"
)

// Describer is implemented by objects that publish a fixed set of observable
// property names. Install refuses properties outside that set.
type Describer interface {
	Properties() []string
}

type key struct {
	id       uuid.UUID
	property string
}

type installation struct {
	key        key
	dispatcher observation.Dispatcher
}

// Notifier implements observation.Host for objects living in this process.
type Notifier struct {
	mu    sync.RWMutex
	next  observation.Handle
	byID  map[observation.Handle]installation
	byKey map[key][]observation.Handle
}

var _ observation.Host = (*Notifier)(nil)

// NewNotifier returns an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{
		byID:  make(map[observation.Handle]installation),
		byKey: make(map[key][]observation.Handle),
	}
}

// Install records d as a listener for property on obj.
func (n *Notifier) Install(obj observation.Object, property string, d observation.Dispatcher) (observation.Handle, error) {
	desc, ok := obj.(Describer)
	if !ok {
		return 0, fmt.Errorf("%w: %T declares no properties", ErrNotObservable, obj)
	}
	if !slices.Contains(desc.Properties(), property) {
		return 0, fmt.Errorf("%w: %s", ErrNotObservable, property)
	}

	k := key{id: obj.ObservationID(), property: property}

	n.mu.Lock()
	defer n.mu.Unlock()

	n.next++
	h := n.next
	n.byID[h] = installation{key: k, dispatcher: d}
	n.byKey[k] = append(n.byKey[k], h)

	return h, nil
}

// Uninstall removes the installation identified by h.
func (n *Notifier) Uninstall(h observation.Handle) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	inst, ok := n.byID[h]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	delete(n.byID, h)

	handles := slices.DeleteFunc(n.byKey[inst.key], func(x observation.Handle) bool { return x == h })
	if len(handles) == 0 {
		delete(n.byKey, inst.key)
	} else {
		n.byKey[inst.key] = handles
	}

	return nil
}

// Changed reports that property on obj has a new value. Dispatchers are called
// in installation order on the calling goroutine, without the notifier lock.
func (n *Notifier) Changed(obj observation.Object, property string) {
	k := key{id: obj.ObservationID(), property: property}

	n.mu.RLock()
	handles := n.byKey[k]
	targets := make([]observation.Dispatcher, 0, len(handles))
	for _, h := range handles {
		targets = append(targets, n.byID[h].dispatcher)
	}
	n.mu.RUnlock()

	for _, d := range targets {
		d.Dispatch(obj, property)
	}
}

// Installed returns the number of live installations.
func (n *Notifier) Installed() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.byID)
}

// InstalledFor returns the number of live installations for property on obj.
func (n *Notifier) InstalledFor(obj observation.Object, property string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.byKey[key{id: obj.ObservationID(), property: property}])
}
