package anova

import "github.com/anicoll/anova-integration/internal/pkg/model"

type EventType string

const (
	EventCookStarted  EventType = "cook_started"
	EventCookEnded    EventType = "cook_ended"
	EventNameChanged  EventType = "name_changed"
	EventStateUpdated EventType = "state_updated"
)

// Event is raised by an Oven. Cook is set for EventCookStarted, Name for EventNameChanged.
type Event struct {
	Type     EventType
	DeviceID string
	Cook     *model.Cook
	Name     string
}

type EventHandler func(Event)

// CommandOutcome reports how a command settled. Err is nil when the oven accepted it.
type CommandOutcome struct {
	RequestID string
	Command   model.Command
	DeviceID  string
	Err       error
}

type OutcomeHandler func(CommandOutcome)

type DiscoveryHandler func(*Oven)
