package analytics

import (
	"fmt"
	"time"

	"github.com/cardarena/arena/src/domain/shared"
)

// EventType defines the category of analytics event.
type EventType string

const (
	EventTypeIdentify EventType = "identify"
	EventTypeTrack    EventType = "track"
)

// EventName defines specific event names.
type EventName string

const (
	EventNameBattleWon  EventName = "battle_won"
	EventNameBattleLost EventName = "battle_lost"
	EventNameBattleDraw EventName = "battle_draw"
)

// Context represents metadata attached to every event.
type Context struct {
	Direct  bool
	Library LibraryInfo
}

// LibraryInfo captures client library information.
type LibraryInfo struct {
	Name    string
	Version string
}

// AppInfo describes the application.
type AppInfo struct {
	Name    string
	Version string
}

// Event is the domain aggregate for analytics events.
type Event struct {
	Type       EventType
	UserID     shared.PlayerID
	Name       EventName
	Context    Context
	App        *AppInfo
	Properties map[string]any
	Timestamp  time.Time
}

// NewIdentifyEvent creates an identity event.
func NewIdentifyEvent(userID shared.PlayerID, ctx Context, timestamp time.Time) (*Event, error) {
	if err := userID.Validate(); err != nil {
		return nil, err
	}
	if timestamp.IsZero() {
		return nil, fmt.Errorf("%w: timestamp cannot be zero", ErrInvalidEvent)
	}
	return &Event{
		Type:      EventTypeIdentify,
		UserID:    userID,
		Context:   ctx,
		Timestamp: timestamp,
	}, nil
}

// NewTrackEvent creates a tracking event with optional metadata.
func NewTrackEvent(userID shared.PlayerID, name EventName, ctx Context, timestamp time.Time) (*Event, error) {
	if err := userID.Validate(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: event name cannot be empty", ErrInvalidEvent)
	}
	if timestamp.IsZero() {
		return nil, fmt.Errorf("%w: timestamp cannot be zero", ErrInvalidEvent)
	}
	return &Event{
		Type:      EventTypeTrack,
		UserID:    userID,
		Name:      name,
		Context:   ctx,
		Timestamp: timestamp,
	}, nil
}

// WithAppInfo attaches application metadata.
func (e *Event) WithAppInfo(name, version string) *Event {
	e.App = &AppInfo{
		Name:    name,
		Version: version,
	}
	return e
}

// WithProperty sets one event property.
func (e *Event) WithProperty(key string, value any) *Event {
	if e.Properties == nil {
		e.Properties = make(map[string]any)
	}
	e.Properties[key] = value
	return e
}

// Validate ensures the event is well-formed.
func (e *Event) Validate() error {
	if e.Type == "" {
		return fmt.Errorf("%w: event type is required", ErrInvalidEvent)
	}
	if err := e.UserID.Validate(); err != nil {
		return err
	}
	if e.Type == EventTypeTrack && e.Name == "" {
		return fmt.Errorf("%w: track events require a name", ErrInvalidEvent)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp is required", ErrInvalidEvent)
	}
	return nil
}
