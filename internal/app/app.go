// Package app wires the configured groups together and runs them.
package app

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"connectrpc.com/connect"
	"git.netflux.io/rob/backdrop/internal/config"
	"git.netflux.io/rob/backdrop/internal/display"
	"git.netflux.io/rob/backdrop/internal/domain"
	"git.netflux.io/rob/backdrop/internal/event"
	"git.netflux.io/rob/backdrop/internal/feed"
	"git.netflux.io/rob/backdrop/internal/group"
	"git.netflux.io/rob/backdrop/internal/httphelpers"
	"golang.org/x/sync/errgroup"
)

const defaultStatusInterval = time.Minute

// RunParams holds the parameters for running the application.
type RunParams struct {
	ConfigService *config.Service
	Config        config.Config
	// HTTPClient overrides the client built from the server configuration.
	HTTPClient connect.HTTPClient
	// ReloadC triggers a reload of the configuration file when it receives.
	ReloadC <-chan struct{}
	// OnStarted is called once every group has started, with the groups in
	// configuration order. It may be nil.
	OnStarted      func([]*group.Group)
	StatusInterval time.Duration // defaults to one minute
	BuildInfo      domain.BuildInfo
	Logger         *slog.Logger
}

// Run starts every configured group, and blocks until ctx is cancelled.
func Run(ctx context.Context, params RunParams) (err error) {
	logger := params.Logger
	cfg := params.Config

	httpClient := params.HTTPClient
	if httpClient == nil {
		if httpClient, err = NewHTTPClient(cfg.Server); err != nil {
			return err
		}
	}

	bus := event.NewBus(logger.With("component", "event_bus"))

	groups := make([]*group.Group, 0, len(cfg.Groups))
	defer func() {
		for _, g := range groups {
			err = errors.Join(err, g.Close())
		}
	}()

	for i, groupCfg := range cfg.Groups {
		name := groupCfg.Name
		conn := NewConn(cfg.Server, httpClient, func(s domain.ConnectionState) {
			bus.Send(event.ConnectionStateChangedEvent{Group: name, State: s})
		}, logger.With("component", "feed", "group", name))

		g, err := group.New(group.NewParams{
			Config: groupCfg,
			Index:  i,
			Cache:  cfg.Cache,
			Conn:   conn,
			Bus:    bus,
			Logger: logger.With("component", "group"),
		})
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("new group %q: %w", name, err)
		}
		groups = append(groups, g)

		g.Register("log", display.LogSurface{Logger: logger.With("component", "display", "group", name)})
	}

	logger.Info("Starting", "version", params.BuildInfo.Version, "groups", len(groups), "server", cfg.Server.BaseURL())

	for _, g := range groups {
		g.Start()
	}

	if params.OnStarted != nil {
		params.OnStarted(slices.Clone(groups))
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return logEvents(ctx, bus, logger) })
	eg.Go(func() error {
		return logStatus(ctx, groups, cmp.Or(params.StatusInterval, defaultStatusInterval), logger)
	})
	eg.Go(func() error {
		return handleReloads(ctx, params.ReloadC, params.ConfigService, groups, logger)
	})

	return eg.Wait()
}

// NewHTTPClient builds the HTTP client for the configured server. The gRPC
// protocol requires HTTP/2.
func NewHTTPClient(server config.Server) (connect.HTTPClient, error) {
	client, err := httphelpers.NewClient(httphelpers.ClientParams{
		TLS:                server.TLS,
		InsecureSkipVerify: server.InsecureSkipVerify,
		HTTP2:              server.Protocol == config.ProtocolGRPC,
	})
	if err != nil {
		return nil, fmt.Errorf("new HTTP client: %w", err)
	}

	return client, nil
}

// NewConn builds a connection to the configured server.
func NewConn(
	server config.Server,
	httpClient connect.HTTPClient,
	onStateChange func(domain.ConnectionState),
	logger *slog.Logger,
) *feed.Conn {
	return feed.NewConn(feed.NewConnParams{
		HTTPClient:      httpClient,
		BaseURL:         server.BaseURL(),
		GRPC:            server.Protocol == config.ProtocolGRPC,
		APIToken:        server.APIToken,
		HealthTimeout:   server.HealthTimeout(),
		ShutdownTimeout: server.ShutdownTimeout(),
		OnStateChange:   onStateChange,
		Logger:          logger,
	})
}

func logEvents(ctx context.Context, bus *event.Bus, logger *slog.Logger) error {
	stateC := bus.Register(event.EventNameConnectionStateChanged)
	selectedC := bus.Register(event.EventNameImageSelected)
	rejectedC := bus.Register(event.EventNameConfigRejected)
	defer func() {
		bus.Deregister(stateC)
		bus.Deregister(selectedC)
		bus.Deregister(rejectedC)
	}()

	for {
		var evt event.Event
		select {
		case <-ctx.Done():
			return nil
		case evt = <-stateC:
		case evt = <-selectedC:
		case evt = <-rejectedC:
		}

		switch evt := evt.(type) {
		case event.ConnectionStateChangedEvent:
			if evt.State == domain.ConnectionStateFailed {
				logger.Warn("Not connected to image service", "group", evt.Group)
			} else {
				logger.Info("Connection state changed", "group", evt.Group, "state", evt.State)
			}
		case event.ImageSelectedEvent:
			logger.Debug("Image selected", "group", evt.Group, "url", evt.Image.URL)
		case event.ConfigRejectedEvent:
			logger.Error("Configuration rejected", "group", evt.Group, "err", evt.Err)
		}
	}
}

func logStatus(ctx context.Context, groups []*group.Group, interval time.Duration, logger *slog.Logger) error {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			for _, g := range groups {
				status := g.Status()
				logger.Info(
					"Group status",
					"group", status.Name,
					"state", status.State,
					"categories", status.Enabled,
					"cache_sizes", status.CacheSizes,
					"received", status.Received,
					"dropped", status.Dropped,
					"surfaces", status.Surfaces,
					"slideshow", status.SlideshowRunning,
				)
			}
		}
	}
}

func handleReloads(
	ctx context.Context,
	reloadC <-chan struct{},
	configService *config.Service,
	groups []*group.Group,
	logger *slog.Logger,
) error {
	if reloadC == nil || configService == nil {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-reloadC:
			reload(configService, groups, logger)
		}
	}
}

// reload re-reads the configuration file and applies it to the running
// groups, matched by name. Adding or removing groups requires a restart.
func reload(configService *config.Service, groups []*group.Group, logger *slog.Logger) {
	logger.Info("Reloading configuration", "path", configService.Path())

	cfg, err := configService.ReadOrCreateConfig()
	if err != nil {
		logger.Error("Configuration reload failed, keeping current configuration", "err", err)
		return
	}

	for _, g := range groups {
		i := slices.IndexFunc(cfg.Groups, func(gc config.Group) bool { return gc.Name == g.Name() })
		if i < 0 {
			logger.Warn("Group removed from configuration, restart required", "group", g.Name())
			continue
		}

		// Rejections are reported on the event bus.
		_ = g.Apply(cfg.Groups[i])
	}

	for _, gc := range cfg.Groups {
		if !slices.ContainsFunc(groups, func(g *group.Group) bool { return g.Name() == gc.Name }) {
			logger.Warn("Group added to configuration, restart required", "group", gc.Name)
		}
	}
}
