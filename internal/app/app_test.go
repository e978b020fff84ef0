package app_test

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"git.netflux.io/rob/backdrop/internal/app"
	"git.netflux.io/rob/backdrop/internal/config"
	"git.netflux.io/rob/backdrop/internal/domain"
	"git.netflux.io/rob/backdrop/internal/group"
	"git.netflux.io/rob/backdrop/internal/ptr"
	"git.netflux.io/rob/backdrop/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 5 * time.Second
	tick    = 10 * time.Millisecond
)

func hostPort(t *testing.T, srv *testhelpers.ImageServer) (string, int) {
	t.Helper()

	u, err := url.Parse(srv.URL())
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	return host, port
}

func writeConfig(t *testing.T, path, host string, port int, categories string) {
	t.Helper()

	contents := fmt.Sprintf(`
server:
  host: %s
  port: %d
  protocol: connect
groups:
  - name: Go files
    editorGroup: "*.go"
    files: [a.png]
    refreshIntervalSeconds: 1
    slideshow:
      enabled: true
      pauseSeconds: 1
    categories: %s
`, host, port, categories)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

type runResult struct {
	groups  []*group.Group
	reloadC chan struct{}
	cancel  context.CancelFunc
	doneC   chan error
}

func startApp(t *testing.T, srv *testhelpers.ImageServer, configService *config.Service) runResult {
	t.Helper()

	cfg, err := configService.ReadOrCreateConfig()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	startedC := make(chan []*group.Group, 1)
	reloadC := make(chan struct{})
	doneC := make(chan error, 1)
	exitedC := make(chan struct{})
	t.Cleanup(func() {
		cancel()
		<-exitedC
	})

	go func() {
		defer close(exitedC)

		doneC <- app.Run(ctx, app.RunParams{
			ConfigService:  configService,
			Config:         cfg,
			HTTPClient:     srv.Client(),
			ReloadC:        reloadC,
			OnStarted:      func(groups []*group.Group) { startedC <- groups },
			StatusInterval: 50 * time.Millisecond,
			BuildInfo:      domain.BuildInfo{Version: "0.0.1"},
			Logger:         testhelpers.NewTestLogger(t),
		})
	}()

	select {
	case groups := <-startedC:
		return runResult{groups: groups, reloadC: reloadC, cancel: cancel, doneC: doneC}
	case err := <-doneC:
		require.FailNow(t, "app exited early", "err: %v", err)
	case <-time.After(waitFor):
		require.FailNow(t, "timed out waiting for app to start")
	}

	return runResult{}
}

func TestRun(t *testing.T) {
	srv := testhelpers.NewImageServer(t, testhelpers.ImageServerParams{})
	host, port := hostPort(t, srv)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, configPath, host, port, "[normal]")
	res := startApp(t, srv, config.NewServiceWithPath(configPath))

	require.Len(t, res.groups, 1)
	g := res.groups[0]
	assert.Equal(t, "Go files", g.Name())
	assert.True(t, g.Matches("main.go"))

	require.Eventually(t, func() bool {
		status := g.Status()
		return status.State == domain.ConnectionStateSubscribed && status.Current.URL == "a.png"
	}, waitFor, tick)
	assert.Equal(t, 1, g.Status().Surfaces)

	res.cancel()
	select {
	case err := <-res.doneC:
		require.NoError(t, err)
	case <-time.After(waitFor):
		require.FailNow(t, "timed out waiting for app to exit")
	}

	require.Eventually(t, func() bool { return len(srv.ActiveStreams()) == 0 }, waitFor, tick)
	assert.Equal(t, domain.ConnectionStateIdle, g.Status().State)
	assert.False(t, g.Status().SlideshowRunning)
}

func TestRunReload(t *testing.T) {
	srv := testhelpers.NewImageServer(t, testhelpers.ImageServerParams{})
	host, port := hostPort(t, srv)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, configPath, host, port, "[normal]")
	res := startApp(t, srv, config.NewServiceWithPath(configPath))

	g := res.groups[0]
	require.Eventually(t, func() bool { return g.Status().State == domain.ConnectionStateSubscribed }, waitFor, tick)

	writeConfig(t, configPath, host, port, "[normal, porn]")
	res.reloadC <- struct{}{}

	require.EventuallyWithT(t, func(c *assert.CollectT) {
		streams := srv.ActiveStreams()
		require.Len(c, streams, 1)
		assert.Equal(c, domain.NewCategorySet(domain.CategoryNormal, domain.CategoryPorn), streams[0])
	}, waitFor, tick)

	// An invalid file is rejected as a whole and the running configuration
	// stays in effect.
	require.NoError(t, os.WriteFile(configPath, []byte("cache: {capacity: many}"), 0644))
	res.reloadC <- struct{}{}

	assert.Never(t, func() bool { return len(srv.ActiveStreams()) != 1 }, 100*time.Millisecond, tick)
	assert.Equal(t, domain.NewCategorySet(domain.CategoryNormal, domain.CategoryPorn), g.Status().Enabled)
}

func TestRunInvalidGroup(t *testing.T) {
	srv := testhelpers.NewImageServer(t, testhelpers.ImageServerParams{})

	err := app.Run(t.Context(), app.RunParams{
		Config: config.Config{
			Server: config.Server{Host: "localhost", Port: 8980, Protocol: config.ProtocolConnect},
			Cache:  config.Cache{Capacity: 30, LowWaterMark: 6},
			Groups: []config.Group{{Name: "bad", Slideshow: config.Slideshow{PauseSeconds: ptr.New(0)}}},
		},
		HTTPClient: srv.Client(),
		Logger:     testhelpers.NewTestLogger(t),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `new group "bad": groups[0].slideshow.pauseSeconds: must be at least 1`)
}
