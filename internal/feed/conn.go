// Package feed maintains the subscription to the remote image service.
package feed

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"
	"git.netflux.io/rob/backdrop/internal/domain"
	"git.netflux.io/rob/backdrop/internal/protocol"
	"git.netflux.io/rob/backdrop/internal/shortid"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	defaultHealthTimeout   = 3 * time.Second // default bound of health checks and visits
	defaultShutdownTimeout = 5 * time.Second // default grace period for streams to close
)

// OnEventFunc is invoked once per received image, in receive order.
type OnEventFunc func(domain.ImageRecord)

// Conn manages one logical subscription session to the image service.
//
// At most one stream is active at any time. Retrying after a failure is the
// caller's responsibility, Conn never reconnects on its own.
type Conn struct {
	id              shortid.ID
	httpClient      connect.HTTPClient
	streamClient    *connect.Client[protocol.SubscribeRequest, protocol.SubscribeResponse]
	visitClient     *connect.Client[protocol.VisitRequest, protocol.VisitResponse]
	healthClient    *connect.Client[healthpb.HealthCheckRequest, healthpb.HealthCheckResponse]
	healthTimeout   time.Duration
	shutdownTimeout time.Duration
	onStateChange   func(domain.ConnectionState)
	now             func() time.Time
	logger          *slog.Logger
	wg              sync.WaitGroup

	// mutable state

	mu         sync.Mutex
	state      domain.ConnectionState
	categories domain.CategorySet
	generation int // incremented each time the current stream is superseded
	cancel     context.CancelFunc
	closed     bool
}

// NewConnParams contains the parameters for building a new Conn.
type NewConnParams struct {
	HTTPClient      connect.HTTPClient
	BaseURL         string        // e.g. http://localhost:8980
	GRPC            bool          // use the gRPC protocol instead of connect
	APIToken        string        // optional bearer token
	HealthTimeout   time.Duration // defaults to 3 seconds
	ShutdownTimeout time.Duration // defaults to 5 seconds
	// OnStateChange is called, with the connection locked, after every state
	// transition. It must not block or call back into the Conn.
	OnStateChange func(domain.ConnectionState)
	Now           func() time.Time // defaults to time.Now
	Logger        *slog.Logger
}

// NewConn builds a new, idle Conn. No network activity happens until
// [Conn.CheckHealth] or [Conn.Subscribe] is called.
func NewConn(params NewConnParams) *Conn {
	var opts []connect.ClientOption
	if params.GRPC {
		opts = append(opts, connect.WithGRPC())
	}
	if params.APIToken != "" {
		opts = append(opts, connect.WithInterceptors(authInterceptor{apiToken: params.APIToken}))
	}
	jsonOpts := append([]connect.ClientOption{connect.WithCodec(protocol.Codec{})}, opts...)

	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	now := params.Now
	if now == nil {
		now = time.Now
	}

	id := shortid.New()

	return &Conn{
		id:         id,
		httpClient: httpClient,
		streamClient: connect.NewClient[protocol.SubscribeRequest, protocol.SubscribeResponse](
			httpClient,
			params.BaseURL+protocol.SubscribeImagesProcedure,
			jsonOpts...,
		),
		visitClient: connect.NewClient[protocol.VisitRequest, protocol.VisitResponse](
			httpClient,
			params.BaseURL+protocol.VisitProcedure,
			jsonOpts...,
		),
		healthClient: connect.NewClient[healthpb.HealthCheckRequest, healthpb.HealthCheckResponse](
			httpClient,
			params.BaseURL+protocol.HealthCheckProcedure,
			opts...,
		),
		healthTimeout:   cmp.Or(params.HealthTimeout, defaultHealthTimeout),
		shutdownTimeout: cmp.Or(params.ShutdownTimeout, defaultShutdownTimeout),
		onStateChange:   params.OnStateChange,
		now:             now,
		logger:          params.Logger.With("conn_id", id.String()),
	}
}

// CheckHealth probes the health endpoint of the image service. It returns
// false on any transport error, or if the service is not serving.
//
// The call is bounded by the health timeout, regardless of ctx.
func (c *Conn) CheckHealth(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	resp, err := c.healthClient.CallUnary(ctx, connect.NewRequest(&healthpb.HealthCheckRequest{Service: protocol.ServiceName}))
	if err != nil {
		c.logger.Warn("Health check failed", "err", &domain.TransportError{Op: "health check", Err: err})
		return false
	}

	if status := resp.Msg.GetStatus(); status != healthpb.HealthCheckResponse_SERVING {
		c.logger.Warn("Image service is not serving", "status", status.String())
		return false
	}

	return true
}

// NeedsRestart returns true if the active category set differs from
// categories, or if the connection is not currently subscribed.
func (c *Conn) NeedsRestart(categories domain.CategorySet) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.needsRestart(categories)
}

func (c *Conn) needsRestart(categories domain.CategorySet) bool {
	return !c.categories.Equal(categories) || c.state != domain.ConnectionStateSubscribed
}

// Subscribe ensures a stream for exactly categories is open, delivering each
// received image to onEvent.
//
// It is a no-op if such a stream is already subscribed. Otherwise any prior
// stream is torn down and a new one is opened asynchronously: Subscribe never
// blocks on the network. Calling Subscribe after Close is a no-op.
func (c *Conn) Subscribe(categories domain.CategorySet, onEvent OnEventFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		c.logger.Debug("Subscribe called on closed connection")
		return
	}

	if !c.needsRestart(categories) {
		c.logger.Debug("Already subscribed", "categories", categories)
		return
	}

	c.teardown()
	if categories.IsEmpty() {
		c.categories = categories
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.categories = categories
	gen := c.generation
	c.setState(domain.ConnectionStateConnecting)

	c.logger.Info("Subscribing to images", "categories", categories, "generation", gen)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()

		c.runStream(ctx, gen, categories, onEvent)
	}()
}

// teardown cancels the current stream, if any. It must be called with the
// mutex held.
func (c *Conn) teardown() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++

	if c.state == domain.ConnectionStateSubscribed || c.state == domain.ConnectionStateConnecting {
		c.setState(domain.ConnectionStateIdle)
	}
}

// runStream reads the subscription stream until it ends.
//
// Messages are pulled one at a time: the next message is requested from the
// transport only after the previous image has been delivered to onEvent.
func (c *Conn) runStream(ctx context.Context, gen int, categories domain.CategorySet, onEvent OnEventFunc) {
	stream, err := c.streamClient.CallServerStream(ctx, connect.NewRequest(protocol.CategorySetToRequest(categories)))
	if err != nil {
		c.streamEnded(gen, &domain.TransportError{Op: "subscribe", Err: err})
		return
	}
	defer stream.Close() //nolint:errcheck

	for stream.Receive() {
		msg := stream.Msg()

		// Any message, ready or not, proves the stream is established.
		c.markSubscribed(gen)

		if msg.Image == nil {
			continue
		}

		rec, err := protocol.RecordFromEvent(msg.Image, c.now())
		if err != nil {
			c.logger.Warn("Dropping invalid image event", "err", err)
			continue
		}

		if !c.isCurrent(gen) {
			return
		}

		onEvent(rec)
	}

	if err := stream.Err(); err != nil {
		c.streamEnded(gen, &domain.TransportError{Op: "receive", Err: err})
	} else {
		c.streamEnded(gen, nil)
	}
}

func (c *Conn) isCurrent(gen int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return gen == c.generation
}

func (c *Conn) markSubscribed(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || c.state != domain.ConnectionStateConnecting {
		return
	}

	c.logger.Info("Subscribed to images", "categories", c.categories)
	c.setState(domain.ConnectionStateSubscribed)
}

func (c *Conn) streamEnded(gen int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		// Superseded by a newer stream or torn down, which already moved the
		// state along.
		return
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn("Image stream failed", "err", err)
	} else {
		c.logger.Info("Image stream completed")
	}

	c.cancel = nil
	c.setState(domain.ConnectionStateFailed)
}

// MarkFailed tears down any active stream and moves the connection to the
// failed state, typically after a failed health check.
func (c *Conn) MarkFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++
	c.setState(domain.ConnectionStateFailed)
}

// setState must be called with the mutex held. Illegal transitions are
// refused.
func (c *Conn) setState(next domain.ConnectionState) {
	if next == c.state {
		return
	}

	if !c.state.CanTransitionTo(next) {
		c.logger.Error("Refusing illegal connection state transition", "from", c.state, "to", next)
		return
	}

	c.logger.Debug("Connection state changed", "from", c.state, "to", next)
	c.state = next

	if c.onStateChange != nil {
		c.onStateChange(next)
	}
}

// State returns the current connection state.
func (c *Conn) State() domain.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Categories returns the category set of the current or last stream.
func (c *Conn) Categories() domain.CategorySet {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.categories
}

// Visit notifies the image service that url was visited. It returns
// immediately; the response is only logged.
func (c *Conn) Visit(url string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), c.healthTimeout)
		defer cancel()

		resp, err := c.visitClient.CallUnary(ctx, connect.NewRequest(&protocol.VisitRequest{URL: url}))
		if err != nil {
			c.logger.Warn("Visit failed", "url", url, "err", &domain.TransportError{Op: "visit", Err: err})
			return
		}

		c.logger.Info("Visit acknowledged", "url", url, "ok", resp.Msg.OK)
	}()
}

// Close tears down the active stream and waits for in-flight calls to finish,
// at most for the shutdown grace period. It is safe to call more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++
	c.setState(domain.ConnectionStateIdle)
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(c.shutdownTimeout):
		c.logger.Warn("Timed out waiting for connection to close", "timeout", c.shutdownTimeout)
	}

	if closer, ok := c.httpClient.(interface{ CloseIdleConnections() }); ok {
		closer.CloseIdleConnections()
	}

	return nil
}
