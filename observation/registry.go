package observation

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/audioplayer/observability"
)

// Registry event types.
const (
	EventRegister  observability.EventType = "observation.register"
	EventInstall   observability.EventType = "observation.install"
	EventUninstall observability.EventType = "observation.uninstall"
	EventDispatch  observability.EventType = "observation.dispatch"
	EventDrop      observability.EventType = "observation.drop"
	EventError     observability.EventType = "observation.error"
)

type subscription struct {
	handle    Handle
	callbacks []Callback
}

// Option configures a Registry.
type Option func(*Registry)

// WithObserver routes registry events to o. The default discards them.
func WithObserver(o observability.Observer) Option {
	return func(r *Registry) {
		if o != nil {
			r.observer = o
		}
	}
}

// Registry maps (object, property) pairs to callbacks and keeps exactly one
// host installation per pair. It is safe for concurrent use.
type Registry struct {
	id       string
	host     Host
	observer observability.Observer
	metrics  metrics

	mu     sync.Mutex
	subs   map[uuid.UUID]map[string]*subscription
	closed bool
}

var _ Dispatcher = (*Registry)(nil)

// New creates a registry that installs observations with host.
func New(host Host, opts ...Option) *Registry {
	r := &Registry{
		id:       uuid.Must(uuid.NewV7()).String(),
		host:     host,
		observer: observability.NoOpObserver{},
		subs:     make(map[uuid.UUID]map[string]*subscription),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// ID returns the registry's unique identifier, used to correlate events.
func (r *Registry) ID() string {
	return r.id
}

// Register queues cb for changes of property on obj. The first callback for a
// pair installs the host observation; if that fails nothing is recorded and
// the returned error wraps both ErrInstallFailed and the host error.
// Registering the same callback twice queues it twice. A nil object, typed
// nil pointers included, is rejected with ErrNilObject.
func (r *Registry) Register(obj Object, property string, cb Callback) error {
	id, ok := identify(obj)
	switch {
	case !ok:
		return ErrNilObject
	case property == "":
		return ErrEmptyProperty
	case cb == nil:
		return ErrNilCallback
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}

	props := r.subs[id]
	sub := props[property]
	installed := false

	if sub == nil {
		handle, err := r.host.Install(obj, property, r)
		if err != nil {
			r.mu.Unlock()
			r.emit(EventError, observability.LevelWarning, "observation.Register", map[string]any{
				"object":   id.String(),
				"property": property,
				"error":    err.Error(),
			})
			return fmt.Errorf("%w: %s: %w", ErrInstallFailed, property, err)
		}

		if props == nil {
			props = make(map[string]*subscription)
			r.subs[id] = props
		}
		sub = &subscription{handle: handle}
		props[property] = sub
		installed = true
		r.metrics.installations.Add(1)
	}

	sub.callbacks = append(sub.callbacks, cb)
	queued := len(sub.callbacks)
	r.metrics.callbacks.Add(1)
	r.mu.Unlock()

	if installed {
		r.emit(EventInstall, observability.LevelVerbose, "observation.Register", map[string]any{
			"object":   id.String(),
			"property": property,
		})
	}
	r.emit(EventRegister, observability.LevelVerbose, "observation.Register", map[string]any{
		"object":    id.String(),
		"property":  property,
		"callbacks": queued,
	})

	return nil
}

// DeregisterProperty drops every callback for property on obj and uninstalls
// the host observation. Unknown pairs are ignored.
func (r *Registry) DeregisterProperty(obj Object, property string) {
	id, ok := identify(obj)
	if !ok {
		return
	}

	r.mu.Lock()
	props, ok := r.subs[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	sub, ok := props[property]
	if !ok {
		r.mu.Unlock()
		return
	}

	delete(props, property)
	if len(props) == 0 {
		delete(r.subs, id)
	}
	err := r.uninstall(sub)
	r.mu.Unlock()

	r.reportUninstall("observation.DeregisterProperty", id, property, err)
}

// Deregister drops every callback on obj, uninstalling one host observation
// per property. Unknown objects are ignored.
func (r *Registry) Deregister(obj Object) {
	id, ok := identify(obj)
	if !ok {
		return
	}

	r.mu.Lock()
	props, ok := r.subs[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.subs, id)

	errs := make(map[string]error, len(props))
	for property, sub := range props {
		errs[property] = r.uninstall(sub)
	}
	r.mu.Unlock()

	for property, err := range errs {
		r.reportUninstall("observation.Deregister", id, property, err)
	}
}

// DeregisterAll removes every registration, leaving the registry as if newly
// created.
func (r *Registry) DeregisterAll() {
	r.mu.Lock()
	removed := r.drain()
	r.mu.Unlock()

	for _, rm := range removed {
		r.reportUninstall("observation.DeregisterAll", rm.id, rm.property, rm.err)
	}
}

// Close deregisters everything and rejects further registrations. It is safe
// to call more than once.
func (r *Registry) Close() error {
	r.mu.Lock()
	r.closed = true
	removed := r.drain()
	r.mu.Unlock()

	for _, rm := range removed {
		r.reportUninstall("observation.Close", rm.id, rm.property, rm.err)
	}
	return nil
}

// Dispatch delivers a change of property on obj to the queued callbacks in
// registration order. Notifications for pairs with no callbacks, including
// ones racing a deregistration, are dropped silently.
//
// Callbacks run without the registry lock held, so they may register or
// deregister freely.
func (r *Registry) Dispatch(obj Object, property string) {
	id, ok := identify(obj)
	if !ok {
		return
	}

	r.mu.Lock()
	var callbacks []Callback
	if sub, ok := r.subs[id][property]; ok {
		callbacks = slices.Clone(sub.callbacks)
	}
	r.mu.Unlock()

	if len(callbacks) == 0 {
		r.metrics.dropped.Add(1)
		r.emit(EventDrop, observability.LevelVerbose, "observation.Dispatch", map[string]any{
			"object":   id.String(),
			"property": property,
		})
		return
	}

	r.metrics.dispatched.Add(1)
	r.emit(EventDispatch, observability.LevelVerbose, "observation.Dispatch", map[string]any{
		"object":    id.String(),
		"property":  property,
		"callbacks": len(callbacks),
	})

	for _, cb := range callbacks {
		cb(obj)
		r.metrics.invoked.Add(1)
	}
}

// Observing reports whether any callback is queued for property on obj.
func (r *Registry) Observing(obj Object, property string) bool {
	return r.Callbacks(obj, property) > 0
}

// Callbacks returns the number of callbacks queued for property on obj.
func (r *Registry) Callbacks(obj Object, property string) int {
	id, ok := identify(obj)
	if !ok {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if sub, ok := r.subs[id][property]; ok {
		return len(sub.callbacks)
	}
	return 0
}

// Metrics returns a snapshot of the registry counters.
func (r *Registry) Metrics() MetricsSnapshot {
	return r.metrics.snapshot()
}

// identify returns obj's ID. A nil interface, a typed nil pointer whose
// ObservationID panics and an object reporting uuid.Nil all yield false.
func identify(obj Object) (id uuid.UUID, ok bool) {
	if obj == nil {
		return uuid.Nil, false
	}
	defer func() {
		if recover() != nil {
			id, ok = uuid.Nil, false
		}
	}()
	id = obj.ObservationID()
	return id, id != uuid.Nil
}

type removal struct {
	id       uuid.UUID
	property string
	err      error
}

// drain uninstalls and forgets every subscription. Caller holds r.mu.
func (r *Registry) drain() []removal {
	var removed []removal
	for id, props := range r.subs {
		for property, sub := range props {
			removed = append(removed, removal{id: id, property: property, err: r.uninstall(sub)})
		}
	}
	clear(r.subs)
	return removed
}

// uninstall releases one host installation. Caller holds r.mu.
func (r *Registry) uninstall(sub *subscription) error {
	r.metrics.installations.Add(-1)
	r.metrics.callbacks.Add(-int64(len(sub.callbacks)))
	return r.host.Uninstall(sub.handle)
}

func (r *Registry) reportUninstall(source string, id uuid.UUID, property string, err error) {
	if err != nil {
		r.emit(EventError, observability.LevelWarning, source, map[string]any{
			"object":   id.String(),
			"property": property,
			"error":    err.Error(),
		})
		return
	}
	r.emit(EventUninstall, observability.LevelVerbose, source, map[string]any{
		"object":   id.String(),
		"property": property,
	})
}

func (r *Registry) emit(typ observability.EventType, level observability.Level, source string, data map[string]any) {
	data["registry"] = r.id
	r.observer.OnEvent(context.Background(), observability.NewEvent(typ, level, source, data))
}
