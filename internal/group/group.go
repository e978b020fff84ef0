// Package group ties together everything one group of editors needs to show
// a live background: the subscription, the caches, the selector and the
// schedulers.
package group

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"git.netflux.io/rob/backdrop/internal/config"
	"git.netflux.io/rob/backdrop/internal/display"
	"git.netflux.io/rob/backdrop/internal/domain"
	"git.netflux.io/rob/backdrop/internal/event"
	"git.netflux.io/rob/backdrop/internal/imagefile"
	"git.netflux.io/rob/backdrop/internal/multiplexer"
	"git.netflux.io/rob/backdrop/internal/scheduler"
	"git.netflux.io/rob/backdrop/internal/selector"
)

// Connection is the subscription connection owned by a group.
type Connection interface {
	scheduler.Connection

	Visit(url string)
	State() domain.ConnectionState
	Close() error
}

// Status is a snapshot of the state of a group.
type Status struct {
	Name             string
	State            domain.ConnectionState
	Enabled          domain.CategorySet
	CacheSizes       map[domain.Category]int
	Received         uint64
	Dropped          uint64
	Surfaces         int
	SlideshowRunning bool
	Current          domain.SelectedImage
}

// Group is a single configuration group.
//
// Apply, Start and Close are serialized on a mutex which the scheduler tasks
// never take, so stopping a scheduler from any of them cannot deadlock.
type Group struct {
	name      string
	index     int
	conn      Connection
	mux       *multiplexer.Multiplexer
	selector  *selector.Selector
	refresh   *scheduler.Refresh
	slideshow *scheduler.Slideshow
	surfaces  *display.Registry
	bus       *event.Bus
	logger    *slog.Logger

	mu      sync.Mutex
	cfg     config.Group
	started bool
	closed  bool

	currentMu sync.Mutex
	current   domain.SelectedImage
}

// NewParams contains the parameters for building a new Group.
type NewParams struct {
	Config config.Group // defaults must already be set
	Index  int          // position of the group in the configuration file
	Cache  config.Cache
	Conn   Connection
	Bus    *event.Bus
	IntN   func(int) int // optional random source for the selector
	Logger *slog.Logger
}

// New validates the configuration and builds a stopped Group.
func New(params NewParams) (*Group, error) {
	if err := config.ValidateGroup(params.Config, params.Index); err != nil {
		return nil, err
	}

	logger := params.Logger.With("group", params.Config.Name)

	g := &Group{
		name:     params.Config.Name,
		index:    params.Index,
		conn:     params.Conn,
		surfaces: display.NewRegistry(),
		bus:      params.Bus,
		logger:   logger,
		cfg:      params.Config,
	}

	g.mux = multiplexer.New(multiplexer.NewParams{
		Capacity: params.Cache.Capacity,
		Enabled:  params.Config.CategorySet(),
		Logger:   logger,
	})
	g.selector = selector.New(selector.NewParams{
		Sources:      g.mux,
		LowWaterMark: params.Cache.LowWaterMark,
		IntN:         params.IntN,
		Logger:       logger,
	})
	g.selector.Configure(params.Config.Files, params.Config.SelectionMode())
	g.refresh = scheduler.NewRefresh(scheduler.RefreshParams{
		Conn:       params.Conn,
		Categories: g.mux.Enabled,
		OnEvent:    g.mux.OnEvent,
		Interval:   params.Config.RefreshInterval(),
		Logger:     logger,
	})
	g.slideshow = scheduler.NewSlideshow(scheduler.SlideshowParams{
		Source:  g.selector,
		OnImage: g.show,
		Pause:   params.Config.SlideshowPause(),
		Logger:  logger,
	})

	g.probeFiles(params.Config.Files)

	return g, nil
}

// Name returns the name of the group.
func (g *Group) Name() string {
	return g.name
}

// Start starts the refresh scheduler, and the slideshow if enabled. It is a
// no-op if the group is already started or closed.
func (g *Group) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started || g.closed {
		return
	}
	g.started = true

	g.logger.Info("Starting group", "categories", g.mux.Enabled(), "slideshow", g.cfg.Slideshow.Enabled)

	g.refresh.Start()
	if g.cfg.Slideshow.Enabled {
		g.slideshow.Start()
	}
}

// Apply replaces the configuration of the group.
//
// The new configuration is validated first: if it is rejected, a
// [domain.ConfigurationError] is returned and the previous configuration
// stays in effect.
func (g *Group) Apply(cfg config.Group) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	config.SetGroupDefaults(&cfg, g.index)

	err := config.ValidateGroup(cfg, g.index)
	if cfg.Name != g.name {
		err = errors.Join(err, &domain.ConfigurationError{
			Field:  fmt.Sprintf("groups[%d].name", g.index),
			Reason: "cannot rename group " + g.name,
		})
	}
	if err != nil {
		g.logger.Warn("Configuration rejected", "err", err)
		g.bus.Send(event.ConfigRejectedEvent{Group: g.name, Err: err})
		return err
	}

	if g.closed {
		g.cfg = cfg
		return nil
	}

	if !slices.Equal(cfg.Files, g.cfg.Files) {
		g.probeFiles(cfg.Files)
	}

	categoriesChanged := g.mux.SetEnabled(cfg.CategorySet())
	g.selector.Configure(cfg.Files, cfg.SelectionMode())
	g.refresh.SetInterval(cfg.RefreshInterval())
	g.slideshow.SetInterval(cfg.SlideshowPause())
	g.cfg = cfg

	g.logger.Info("Configuration applied", "categories", cfg.CategorySet(), "mode", cfg.SelectionMode(), "slideshow", cfg.Slideshow.Enabled)

	if !g.started {
		return nil
	}

	if categoriesChanged {
		if cfg.CategorySet().IsEmpty() {
			// Nothing requested: drop the stream, refresh ticks are skipped.
			g.conn.Subscribe(domain.CategorySet(0), g.mux.OnEvent)
		}

		// Restart to refresh the subscription right away.
		g.refresh.Stop()
		g.refresh.Start()
	}

	if cfg.Slideshow.Enabled {
		g.slideshow.Start()
	} else {
		g.slideshow.Stop()
	}

	return nil
}

// Config returns the configuration currently applied.
func (g *Group) Config() config.Group {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.cfg
}

// Matches returns true if fileName matches one of the ';'-separated
// wildcard patterns of the group's editor group.
func (g *Group) Matches(fileName string) bool {
	g.mu.Lock()
	patterns := g.cfg.EditorGroup
	g.mu.Unlock()

	base := filepath.Base(fileName)
	for pattern := range strings.SplitSeq(patterns, ";") {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		if ok, err := filepath.Match(pattern, base); err != nil {
			g.logger.Warn("Invalid editor group pattern", "pattern", pattern, "err", err)
		} else if ok {
			return true
		}
	}

	return false
}

// Register adds a display surface to the group.
func (g *Group) Register(id string, s display.Surface) {
	g.surfaces.Register(id, s)

	g.currentMu.Lock()
	current := g.current
	g.currentMu.Unlock()

	if !current.IsZero() {
		s.Show(current.URL)
	}
}

// Unregister removes a display surface from the group.
func (g *Group) Unregister(id string) {
	if !g.surfaces.Unregister(id) {
		g.logger.Debug("Surface not registered", "id", id)
	}
}

// LoadNext selects the next image and shows it on every registered surface.
// It returns false if no image is available yet.
func (g *Group) LoadNext() (domain.SelectedImage, bool) {
	img, ok := g.selector.Next()
	if !ok {
		return img, false
	}

	g.show(img)

	return img, true
}

// VisitCurrent notifies the image service that the current image was
// visited, and returns its info URL. It returns false if nothing is shown.
func (g *Group) VisitCurrent() (string, bool) {
	g.currentMu.Lock()
	current := g.current
	g.currentMu.Unlock()

	if current.IsZero() {
		return "", false
	}

	g.conn.Visit(current.URL)

	return current.InfoURL, true
}

// Status returns a snapshot of the state of the group.
func (g *Group) Status() Status {
	stats := g.mux.Stats()

	g.currentMu.Lock()
	current := g.current
	g.currentMu.Unlock()

	return Status{
		Name:             g.name,
		State:            g.conn.State(),
		Enabled:          g.mux.Enabled(),
		CacheSizes:       stats.Sizes,
		Received:         stats.Received,
		Dropped:          stats.Dropped,
		Surfaces:         g.surfaces.Len(),
		SlideshowRunning: g.slideshow.Running(),
		Current:          current,
	}
}

// Close stops the schedulers and closes the connection.
func (g *Group) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}
	g.closed = true

	g.slideshow.Stop()
	g.refresh.Stop()

	if err := g.conn.Close(); err != nil {
		return err
	}

	g.logger.Info("Group closed")

	return nil
}

func (g *Group) show(img domain.SelectedImage) {
	g.currentMu.Lock()
	g.current = img
	g.currentMu.Unlock()

	n := g.surfaces.Show(img.URL)
	g.logger.Debug("Image selected", "url", img.URL, "surfaces", n)

	g.bus.Send(event.ImageSelectedEvent{Group: g.name, Image: img})
}

// probeFiles logs a warning for each static file which is not a readable
// image. The files are kept: they may be URLs, or become readable later.
func (g *Group) probeFiles(files []string) {
	for _, path := range files {
		if strings.Contains(path, "://") {
			continue
		}

		info, err := imagefile.Probe(path)
		if err != nil {
			g.logger.Warn("Static file is not a readable image", "path", path, "err", err)
			continue
		}

		g.logger.Debug("Static file probed", "path", path, "format", info.Format, "width", info.Width, "height", info.Height)
	}
}
