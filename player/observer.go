package player

import "github.com/tailored-agentic-units/audioplayer/observability"

// Controller events.
const (
	EventPlay   observability.EventType = "player.play"
	EventStop   observability.EventType = "player.stop"
	EventToggle observability.EventType = "player.toggle"
	EventError  observability.EventType = "player.error"
)

// Events reporting observed property changes.
const (
	EventPlayerStatus      observability.EventType = "player.status"
	EventPlayerCurrentTime observability.EventType = "player.currentTime"
	EventPlayerRate        observability.EventType = "player.rate"
	EventPlayerTime        observability.EventType = "player.time"
	EventDidPlayToEnd      observability.EventType = "player.didPlayToEnd"

	EventItemStatus         observability.EventType = "item.status"
	EventItemDuration       observability.EventType = "item.duration"
	EventItemLoadedRanges   observability.EventType = "item.loadedTimeRanges"
	EventItemBufferEmpty    observability.EventType = "item.playbackBufferEmpty"
	EventItemBufferFull     observability.EventType = "item.playbackBufferFull"
	EventItemLikelyToKeepUp observability.EventType = "item.playbackLikelyToKeepUp"
)
