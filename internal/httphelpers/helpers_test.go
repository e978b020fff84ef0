package httphelpers_test

import (
	"net/http"
	"testing"

	"git.netflux.io/rob/backdrop/internal/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"
)

func TestNewClient(t *testing.T) {
	testCases := []struct {
		name          string
		params        httphelpers.ClientParams
		wantTransport func(*testing.T, http.RoundTripper)
	}{
		{
			name:   "plaintext HTTP/1.1",
			params: httphelpers.ClientParams{},
			wantTransport: func(t *testing.T, rt http.RoundTripper) {
				_, ok := rt.(*http.Transport)
				assert.True(t, ok)
			},
		},
		{
			name:   "h2c",
			params: httphelpers.ClientParams{HTTP2: true},
			wantTransport: func(t *testing.T, rt http.RoundTripper) {
				tr, ok := rt.(*http2.Transport)
				require.True(t, ok)
				assert.True(t, tr.AllowHTTP)
			},
		},
		{
			name:   "TLS",
			params: httphelpers.ClientParams{TLS: true, InsecureSkipVerify: true},
			wantTransport: func(t *testing.T, rt http.RoundTripper) {
				tr, ok := rt.(*http.Transport)
				require.True(t, ok)
				assert.True(t, tr.TLSClientConfig.InsecureSkipVerify)
				assert.Contains(t, tr.TLSClientConfig.NextProtos, "h2")
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client, err := httphelpers.NewClient(tc.params)
			require.NoError(t, err)
			tc.wantTransport(t, client.Transport)
		})
	}
}
