package observation

import "sync/atomic"

// MetricsSnapshot is a point-in-time copy of a registry's counters.
type MetricsSnapshot struct {
	Installations int64 // active host installations
	Callbacks     int64 // queued callbacks across all pairs
	Dispatched    int64 // notifications delivered to at least one callback
	Invoked       int64 // individual callback invocations
	Dropped       int64 // notifications for unknown pairs
}

type metrics struct {
	installations atomic.Int64
	callbacks     atomic.Int64
	dispatched    atomic.Int64
	invoked       atomic.Int64
	dropped       atomic.Int64
}

func (m *metrics) snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Installations: m.installations.Load(),
		Callbacks:     m.callbacks.Load(),
		Dispatched:    m.dispatched.Load(),
		Invoked:       m.invoked.Load(),
		Dropped:       m.dropped.Load(),
	}
}
