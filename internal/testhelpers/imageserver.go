package testhelpers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"connectrpc.com/connect"
	"git.netflux.io/rob/backdrop/internal/domain"
	"git.netflux.io/rob/backdrop/internal/protocol"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ImageServer is an in-process fake of the remote image service.
type ImageServer struct {
	server *httptest.Server

	mu             sync.Mutex
	serving        bool
	sendReady      bool
	nextID         int
	streams        map[int]*fakeStream
	requests       []domain.CategorySet
	visits         []string
	healthRequests []*healthpb.HealthCheckRequest
}

type fakeStream struct {
	categories domain.CategorySet
	eventsC    chan *protocol.ImageEvent
	done       chan struct{}
	stopOnce   sync.Once
}

func (fs *fakeStream) stop() {
	fs.stopOnce.Do(func() { close(fs.done) })
}

// ImageServerParams holds the parameters for [NewImageServer].
type ImageServerParams struct {
	// HTTP2 serves over TLS with HTTP/2 enabled, which the gRPC protocol
	// requires.
	HTTP2 bool
	// SkipReady suppresses the ready message at the start of each stream.
	SkipReady bool
}

// NewImageServer starts a fake image service which reports itself as
// serving. It is closed when the test finishes.
func NewImageServer(t testing.TB, params ImageServerParams) *ImageServer {
	t.Helper()

	s := &ImageServer{
		serving:   true,
		sendReady: !params.SkipReady,
		streams:   make(map[int]*fakeStream),
	}

	mux := http.NewServeMux()
	mux.Handle(protocol.HealthCheckProcedure, connect.NewUnaryHandler(protocol.HealthCheckProcedure, s.check))
	mux.Handle(
		protocol.SubscribeImagesProcedure,
		connect.NewServerStreamHandler(protocol.SubscribeImagesProcedure, s.subscribe, connect.WithCodec(protocol.Codec{})),
	)
	mux.Handle(
		protocol.VisitProcedure,
		connect.NewUnaryHandler(protocol.VisitProcedure, s.visit, connect.WithCodec(protocol.Codec{})),
	)

	s.server = httptest.NewUnstartedServer(mux)
	if params.HTTP2 {
		s.server.EnableHTTP2 = true
		s.server.StartTLS()
	} else {
		s.server.Start()
	}

	t.Cleanup(func() {
		s.CloseStreams()
		s.server.Close()
	})

	return s
}

// URL returns the base URL of the server.
func (s *ImageServer) URL() string {
	return s.server.URL
}

// Client returns an HTTP client configured to talk to the server.
func (s *ImageServer) Client() *http.Client {
	return s.server.Client()
}

// SetServing sets the status returned by health checks.
func (s *ImageServer) SetServing(serving bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.serving = serving
}

// Publish sends an image event to every active stream.
func (s *ImageServer) Publish(ctx context.Context, evt *protocol.ImageEvent) {
	s.mu.Lock()
	streams := make([]*fakeStream, 0, len(s.streams))
	for _, stream := range s.streams {
		streams = append(streams, stream)
	}
	s.mu.Unlock()

	for _, stream := range streams {
		select {
		case stream.eventsC <- evt:
		case <-stream.done:
		case <-ctx.Done():
			return
		}
	}
}

// PublishRecord sends the wire form of rec to every active stream.
func (s *ImageServer) PublishRecord(ctx context.Context, rec domain.ImageRecord) {
	s.Publish(ctx, protocol.RecordToEvent(rec))
}

// CloseStreams completes every active stream from the server side.
func (s *ImageServer) CloseStreams() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, stream := range s.streams {
		stream.stop()
		delete(s.streams, id)
	}
}

// ActiveStreams returns the category sets of the streams currently open.
func (s *ImageServer) ActiveStreams() []domain.CategorySet {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.CategorySet, 0, len(s.streams))
	for _, stream := range s.streams {
		out = append(out, stream.categories)
	}
	return out
}

// SubscribeRequests returns the category sets of every subscribe request
// received so far, in order.
func (s *ImageServer) SubscribeRequests() []domain.CategorySet {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]domain.CategorySet(nil), s.requests...)
}

// Visits returns the URLs of every visit received so far, in order.
func (s *ImageServer) Visits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.visits...)
}

// HealthRequests returns every health check request received so far.
func (s *ImageServer) HealthRequests() []*healthpb.HealthCheckRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*healthpb.HealthCheckRequest(nil), s.healthRequests...)
}

func (s *ImageServer) check(_ context.Context, req *connect.Request[healthpb.HealthCheckRequest]) (*connect.Response[healthpb.HealthCheckResponse], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.healthRequests = append(s.healthRequests, req.Msg)

	status := healthpb.HealthCheckResponse_NOT_SERVING
	if s.serving {
		status = healthpb.HealthCheckResponse_SERVING
	}

	return connect.NewResponse(&healthpb.HealthCheckResponse{Status: status}), nil
}

func (s *ImageServer) subscribe(
	ctx context.Context,
	req *connect.Request[protocol.SubscribeRequest],
	stream *connect.ServerStream[protocol.SubscribeResponse],
) error {
	categories, _ := protocol.RequestToCategorySet(req.Msg)
	fs := &fakeStream{
		categories: categories,
		eventsC:    make(chan *protocol.ImageEvent),
		done:       make(chan struct{}),
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.streams[id] = fs
	s.requests = append(s.requests, categories)
	sendReady := s.sendReady
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.streams, id)
		s.mu.Unlock()
		fs.stop()
	}()

	if sendReady {
		if err := stream.Send(&protocol.SubscribeResponse{Ready: &protocol.Ready{}}); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-fs.done:
			return nil
		case evt := <-fs.eventsC:
			if err := stream.Send(&protocol.SubscribeResponse{Image: evt}); err != nil {
				return err
			}
		}
	}
}

func (s *ImageServer) visit(_ context.Context, req *connect.Request[protocol.VisitRequest]) (*connect.Response[protocol.VisitResponse], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.visits = append(s.visits, req.Msg.URL)

	return connect.NewResponse(&protocol.VisitResponse{OK: true}), nil
}
