package event_test

import (
	"testing"

	"git.netflux.io/rob/backdrop/internal/domain"
	"git.netflux.io/rob/backdrop/internal/event"
	"git.netflux.io/rob/backdrop/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus(t *testing.T) {
	bus := event.NewBus(testhelpers.NewTestLogger(t))

	ch1 := bus.Register(event.EventNameConnectionStateChanged)
	ch2 := bus.Register(event.EventNameConnectionStateChanged)
	ch3 := bus.Register(event.EventNameImageSelected)

	evt := event.ConnectionStateChangedEvent{Group: "default", State: domain.ConnectionStateSubscribed}

	go func() {
		bus.Send(evt)
		bus.Send(evt)
	}()

	assert.Equal(t, evt, (<-ch1).(event.ConnectionStateChangedEvent))
	assert.Equal(t, evt, (<-ch1).(event.ConnectionStateChangedEvent))

	assert.Equal(t, evt, (<-ch2).(event.ConnectionStateChangedEvent))
	assert.Equal(t, evt, (<-ch2).(event.ConnectionStateChangedEvent))

	select {
	case <-ch3:
		require.Fail(t, "ch3 should not receive connection events")
	default:
	}

	bus.Deregister(ch1)

	_, ok := <-ch1
	assert.False(t, ok)

	bus.Send(evt)
	assert.Equal(t, evt, (<-ch2).(event.ConnectionStateChangedEvent))
}

func TestBusDropsWhenConsumerIsSlow(t *testing.T) {
	bus := event.NewBus(testhelpers.NewNopLogger())
	ch := bus.Register(event.EventNameImageSelected)

	for range 100 {
		bus.Send(event.ImageSelectedEvent{Group: "default", Image: domain.SelectedImage{URL: "a.png"}})
	}

	assert.Len(t, ch, cap(ch))
}
