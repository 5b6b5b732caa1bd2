//go:build mpv

// Package mpvhost backs the observation registry with libmpv property
// observation. It requires cgo and libmpv, so it only builds with -tags mpv.
//
//	inst, err := mpvhost.NewInstance()
//	host := mpvhost.NewHost(inst)
//	reg := observation.New(host)
//	go host.Run(ctx)
package mpvhost

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/supersonic-app/go-mpv"

	"github.com/tailored-agentic-units/audioplayer/observation"
)

// Common mpv property names.
const (
	PropertyPause    = "pause"
	PropertyTimePos  = "time-pos"
	PropertyDuration = "duration"
	PropertyIdle     = "idle-active"
)

// waitTimeout is how long Run blocks in mpv between context checks, in seconds.
const waitTimeout = 0.2

var (
	ErrForeignObject = errors.New("object is not this host's mpv instance")
	ErrUnknownHandle = errors.New("unknown observation handle")
)

// Instance is an initialized mpv handle with an observation identity.
type Instance struct {
	id  uuid.UUID
	mpv *mpv.Mpv
}

// NewInstance creates and initializes an audio-only mpv handle.
func NewInstance() (*Instance, error) {
	m := mpv.Create()

	m.SetOptionString("idle", "yes")
	m.SetOptionString("video", "no")
	m.SetOptionString("audio-display", "no")
	m.SetOptionString("terminal", "no")

	if err := m.Initialize(); err != nil {
		return nil, fmt.Errorf("error initializing mpv: %w", err)
	}

	return &Instance{id: uuid.Must(uuid.NewV7()), mpv: m}, nil
}

func (i *Instance) ObservationID() uuid.UUID {
	return i.id
}

// Load replaces whatever is playing with url.
func (i *Instance) Load(url string) error {
	return i.mpv.Command([]string{"loadfile", url, "replace"})
}

func (i *Instance) SetPaused(paused bool) error {
	return i.mpv.SetProperty(PropertyPause, mpv.FORMAT_FLAG, paused)
}

// Property returns the string form of an mpv property.
func (i *Instance) Property(name string) string {
	return i.mpv.GetPropertyString(name)
}

// Close stops playback and destroys the handle.
func (i *Instance) Close() {
	i.mpv.Command([]string{"stop"})
	i.mpv.TerminateDestroy()
}

type target struct {
	obj        observation.Object
	property   string
	dispatcher observation.Dispatcher
}

// Host installs observations on one Instance. mpv reply userdata carries the
// handle so property-change events route back to their pair.
type Host struct {
	inst *Instance

	mu      sync.Mutex
	next    uint64
	targets map[uint64]target
}

func NewHost(inst *Instance) *Host {
	return &Host{
		inst:    inst,
		targets: make(map[uint64]target),
	}
}

// Install implements observation.Host.
func (h *Host) Install(obj observation.Object, property string, d observation.Dispatcher) (observation.Handle, error) {
	if obj.ObservationID() != h.inst.id {
		return 0, ErrForeignObject
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	if err := h.inst.mpv.ObserveProperty(h.next, property, mpv.FORMAT_NODE); err != nil {
		return 0, fmt.Errorf("observe %s: %w", property, err)
	}
	h.targets[h.next] = target{obj: obj, property: property, dispatcher: d}

	return observation.Handle(h.next), nil
}

// Uninstall implements observation.Host.
func (h *Host) Uninstall(handle observation.Handle) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uint64(handle)
	if _, ok := h.targets[id]; !ok {
		return ErrUnknownHandle
	}
	delete(h.targets, id)

	return h.inst.mpv.UnobserveProperty(id)
}

// Run pumps mpv events until ctx is done, dispatching property changes to
// their registries.
func (h *Host) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		e := h.inst.mpv.WaitEvent(waitTimeout)
		if e == nil || e.Event_Id != mpv.EVENT_PROPERTY_CHANGE {
			continue
		}

		h.mu.Lock()
		t, ok := h.targets[e.Reply_Userdata]
		h.mu.Unlock()

		if ok {
			t.dispatcher.Dispatch(t.obj, t.property)
		}
	}
}
