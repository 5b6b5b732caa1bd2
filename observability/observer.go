// Package observability carries structured events out of the observation
// registry, the media engine and the playback controller. Components never log
// directly; they hand an Event to an Observer, which decides where it goes.
package observability

import (
	"context"
	"log/slog"
	"time"
)

// Level is the severity of an Event. Values follow the OTel SeverityNumber
// ranges so events can be forwarded without translation.
type Level int

const (
	LevelVerbose Level = 5  // DEBUG range
	LevelInfo    Level = 9  // INFO range
	LevelWarning Level = 13 // WARN range
	LevelError   Level = 17 // ERROR range
)

// String returns the severity text for the level.
func (l Level) String() string {
	switch {
	case l <= 4:
		return "TRACE"
	case l <= 8:
		return "DEBUG"
	case l <= 12:
		return "INFO"
	case l <= 16:
		return "WARN"
	case l <= 20:
		return "ERROR"
	default:
		return "FATAL"
	}
}

// SlogLevel maps the level onto the slog level used when the event is logged.
func (l Level) SlogLevel() slog.Level {
	switch {
	case l <= 8:
		return slog.LevelDebug
	case l <= 12:
		return slog.LevelInfo
	case l <= 16:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// EventType names an event. Packages declare their own constants, e.g.
// "observation.install" or "item.status".
type EventType string

// Event is a single observable occurrence.
type Event struct {
	Type      EventType
	Level     Level
	Timestamp time.Time
	Source    string
	Data      map[string]any
}

// NewEvent stamps an event with the current time.
func NewEvent(typ EventType, level Level, source string, data map[string]any) Event {
	return Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    source,
		Data:      data,
	}
}

// Observer receives events.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, event Event)

func (f ObserverFunc) OnEvent(ctx context.Context, event Event) {
	f(ctx, event)
}
