package httphelpers

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"git.netflux.io/rob/backdrop/internal/config"
	"golang.org/x/net/http2"
)

const dialTimeout = 5 * time.Second

// ClientParams holds the parameters for building an HTTP client.
type ClientParams struct {
	TLS                bool
	InsecureSkipVerify bool
	// HTTP2 forces HTTP/2, which is required by the gRPC protocol. Without
	// TLS this means h2c with prior knowledge.
	HTTP2 bool
}

// NewClient creates an HTTP client suitable for talking to the image service.
func NewClient(params ClientParams) (*http.Client, error) {
	if params.TLS {
		return newTLSClient(params.InsecureSkipVerify)
	}

	if params.HTTP2 {
		return &http.Client{
			Transport: &http2.Transport{
				AllowHTTP: true,
				DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
					d := net.Dialer{Timeout: dialTimeout}
					return d.DialContext(ctx, network, addr)
				},
			},
		}, nil
	}

	return &http.Client{Transport: &http.Transport{DialContext: (&net.Dialer{Timeout: dialTimeout}).DialContext}}, nil
}

// newTLSClient creates a new HTTP/2 client with the given TLS configuration.
//
// The connection is not tested up front: the image service may legitimately
// be unavailable when the client is built.
func newTLSClient(tlsSkipVerify bool) (*http.Client, error) {
	tlsConfig := &tls.Config{
		MinVersion:         config.TLSMinVersion,
		InsecureSkipVerify: tlsSkipVerify,
		NextProtos:         []string{"h2"},
	}

	transport := &http.Transport{
		TLSClientConfig: tlsConfig,
		DialContext:     (&net.Dialer{Timeout: dialTimeout}).DialContext,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("configure HTTP/2 transport: %w", err)
	}

	// No client timeout: subscription streams are long-lived. Unary calls are
	// bounded by their contexts.
	return &http.Client{Transport: transport}, nil
}
