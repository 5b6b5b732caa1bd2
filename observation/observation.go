// Package observation bridges a host's property-change notifications to Go
// callbacks.
//
// A Registry keeps, per observed object and property name, an ordered list of
// callbacks. The first callback for a pair installs exactly one observation
// with the Host; later callbacks only join the list. When the host reports a
// change the registry fans it out to every queued callback in registration
// order. Removing the last callback for a pair uninstalls the host
// observation, and Close removes everything so no installation outlives the
// registry.
//
//	reg := observation.New(notifier)
//	defer reg.Close()
//
//	err := reg.Register(item, "status", func(obj observation.Object) {
//	    log.Println("status changed")
//	})
//
// Objects are identified by ObservationID, never by value, and the registry
// does not retain them.
package observation

import "github.com/google/uuid"

// Object is something whose properties can be observed. The ID must be stable
// for the lifetime of the object and unique across objects.
type Object interface {
	ObservationID() uuid.UUID
}

// Callback runs when an observed property changes. It receives the object the
// host reported the change for.
type Callback func(obj Object)

// Handle identifies one host installation. Its meaning is private to the Host
// that issued it.
type Handle uint64

// Dispatcher is the receiving end of a host installation.
type Dispatcher interface {
	Dispatch(obj Object, property string)
}

// Host is the notification mechanism the registry installs observations with.
// Implementations must not hold internal locks while calling Dispatch.
type Host interface {
	// Install asks the host to call d.Dispatch whenever property changes on
	// obj. It fails when the property cannot be observed.
	Install(obj Object, property string, d Dispatcher) (Handle, error)
	// Uninstall removes an installation made by Install.
	Uninstall(h Handle) error
}
