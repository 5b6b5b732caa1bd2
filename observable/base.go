package observable

import (
	"github.com/google/uuid"

	"github.com/tailored-agentic-units/audioplayer/observation"
)

// Base gives an observed type its identity and a notifier to publish through.
// Embed it by value and initialise it with NewBase.
type Base struct {
	id       uuid.UUID
	notifier *Notifier
}

// NewBase assigns a fresh UUIDv7 identity. A nil notifier makes Publish a
// no-op.
func NewBase(n *Notifier) Base {
	return Base{
		id:       uuid.Must(uuid.NewV7()),
		notifier: n,
	}
}

// ObservationID implements observation.Object.
func (b Base) ObservationID() uuid.UUID {
	return b.id
}

// Notifier returns the notifier the object publishes through.
func (b Base) Notifier() *Notifier {
	return b.notifier
}

// Publish reports a change of property on self, which must be the object
// embedding b.
func (b Base) Publish(self observation.Object, property string) {
	if b.notifier != nil {
		b.notifier.Changed(self, property)
	}
}
