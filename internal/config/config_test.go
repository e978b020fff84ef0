package config_test

import (
	"testing"
	"time"

	"git.netflux.io/rob/backdrop/internal/config"
	"git.netflux.io/rob/backdrop/internal/domain"
	"git.netflux.io/rob/backdrop/internal/ptr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer(t *testing.T) {
	testCases := []struct {
		name        string
		server      config.Server
		wantAddr    string
		wantBaseURL string
	}{
		{
			name:        "plaintext",
			server:      config.Server{Host: "localhost", Port: 8980},
			wantAddr:    "localhost:8980",
			wantBaseURL: "http://localhost:8980",
		},
		{
			name:        "TLS",
			server:      config.Server{Host: "images.example.com", Port: 443, TLS: true},
			wantAddr:    "images.example.com:443",
			wantBaseURL: "https://images.example.com:443",
		},
		{
			name:        "IPv6",
			server:      config.Server{Host: "::1", Port: 8980},
			wantAddr:    "[::1]:8980",
			wantBaseURL: "http://[::1]:8980",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantAddr, tc.server.Addr())
			assert.Equal(t, tc.wantBaseURL, tc.server.BaseURL())
		})
	}
}

func TestGroup(t *testing.T) {
	g := config.Group{
		Random:                 true,
		Slideshow:              config.Slideshow{PauseSeconds: ptr.New(7)},
		RefreshIntervalSeconds: ptr.New(45),
		Categories:             []string{"porn", "Normal", "nope"},
	}

	assert.Equal(t, domain.SelectionModeRandom, g.SelectionMode())
	assert.Equal(t, 7*time.Second, g.SlideshowPause())
	assert.Equal(t, 45*time.Second, g.RefreshInterval())
	assert.True(t, g.CategorySet().Equal(domain.NewCategorySet(domain.CategoryNormal, domain.CategoryPorn)))

	g.Random = false
	assert.Equal(t, domain.SelectionModeSequential, g.SelectionMode())
}

func TestGroupUnsetIntervals(t *testing.T) {
	var g config.Group
	assert.Equal(t, config.DefaultSlideshowPauseSeconds*time.Second, g.SlideshowPause())
	assert.Equal(t, config.DefaultRefreshIntervalSeconds*time.Second, g.RefreshInterval())

	config.SetGroupDefaults(&g, 0)
	assert.Equal(t, ptr.New(config.DefaultSlideshowPauseSeconds), g.Slideshow.PauseSeconds)
	require.NoError(t, config.ValidateGroup(g, 0))

	g.RefreshIntervalSeconds = ptr.New(0)
	config.SetGroupDefaults(&g, 0)
	assert.Equal(t, ptr.New(0), g.RefreshIntervalSeconds)
	require.ErrorContains(t, config.ValidateGroup(g, 0), "groups[0].refreshIntervalSeconds: must be at least 1")
}
