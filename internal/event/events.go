package event

import "git.netflux.io/rob/backdrop/internal/domain"

type Name string

const (
	EventNameConnectionStateChanged Name = "connection_state_changed"
	EventNameImageSelected          Name = "image_selected"
	EventNameConfigRejected         Name = "config_rejected"
)

// Event represents something which happened in the application.
type Event interface {
	name() Name
}

// ConnectionStateChangedEvent is emitted when the subscription connection of
// a group changes state.
type ConnectionStateChangedEvent struct {
	Group string
	State domain.ConnectionState
}

func (e ConnectionStateChangedEvent) name() Name {
	return EventNameConnectionStateChanged
}

// ImageSelectedEvent is emitted when a group selects a new image for its
// display surfaces.
type ImageSelectedEvent struct {
	Group string
	Image domain.SelectedImage
}

func (e ImageSelectedEvent) name() Name {
	return EventNameImageSelected
}

// ConfigRejectedEvent is emitted when a configuration update for a group is
// rejected. The previous configuration stays in effect.
type ConfigRejectedEvent struct {
	Group string
	Err   error
}

func (e ConfigRejectedEvent) name() Name {
	return EventNameConfigRejected
}
