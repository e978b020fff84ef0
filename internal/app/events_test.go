package app

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"git.netflux.io/rob/backdrop/internal/domain"
	"git.netflux.io/rob/backdrop/internal/event"
	"git.netflux.io/rob/backdrop/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func TestLogEventsDeregistersOnExit(t *testing.T) {
	var busLog syncBuffer
	bus := event.NewBus(slog.New(slog.NewTextHandler(&busLog, nil)))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	require.NoError(t, logEvents(ctx, bus, testhelpers.NewNopLogger()))

	// Groups keep publishing while they shut down. With no consumer left,
	// nothing can back up.
	for range 100 {
		bus.Send(event.ConnectionStateChangedEvent{Group: "test", State: domain.ConnectionStateIdle})
		bus.Send(event.ImageSelectedEvent{Group: "test", Image: domain.SelectedImage{URL: "a.png"}})
	}

	assert.NotContains(t, busLog.String(), "Event dropped")
}
