package config

import (
	"crypto/tls"
	"net"
	"strconv"
	"time"

	"git.netflux.io/rob/backdrop/internal/domain"
	"git.netflux.io/rob/backdrop/internal/ptr"
)

// TLSMinVersion is the minimum TLS version accepted from the image service.
const TLSMinVersion = tls.VersionTLS12

// Defaults.
const (
	DefaultHost                   = "localhost"
	DefaultPort                   = 8980
	DefaultProtocol               = ProtocolGRPC
	DefaultHealthTimeoutSeconds   = 3
	DefaultShutdownTimeoutSeconds = 5
	DefaultCacheCapacity          = 30
	DefaultLowWaterMark           = 6
	DefaultSlideshowPauseSeconds  = 3
	DefaultRefreshIntervalSeconds = 30
	DefaultEditorGroup            = "*"
)

// Protocol is the RPC protocol spoken to the image service.
type Protocol string

const (
	ProtocolGRPC    Protocol = "grpc"
	ProtocolConnect Protocol = "connect"
)

// LogFile holds the configuration for the log file.
type LogFile struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// Server holds the configuration for the remote image service.
type Server struct {
	Host                   string   `yaml:"host,omitempty"`
	Port                   int      `yaml:"port,omitempty"`
	TLS                    bool     `yaml:"tls"`
	InsecureSkipVerify     bool     `yaml:"insecureSkipVerify,omitempty"`
	Protocol               Protocol `yaml:"protocol,omitempty"`
	APIToken               string   `yaml:"apiToken,omitempty"`
	HealthTimeoutSeconds   int      `yaml:"healthTimeoutSeconds,omitempty"`
	ShutdownTimeoutSeconds int      `yaml:"shutdownTimeoutSeconds,omitempty"`
}

// Addr returns the host:port address of the server.
func (s Server) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// BaseURL returns the base URL of the server.
func (s Server) BaseURL() string {
	scheme := "http://"
	if s.TLS {
		scheme = "https://"
	}
	return scheme + s.Addr()
}

// HealthTimeout returns the health check timeout.
func (s Server) HealthTimeout() time.Duration {
	return time.Duration(s.HealthTimeoutSeconds) * time.Second
}

// ShutdownTimeout returns the grace period for closing connections.
func (s Server) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

// Cache holds the sizing of the per-category image caches.
type Cache struct {
	Capacity     int `yaml:"capacity,omitempty"`
	LowWaterMark int `yaml:"lowWaterMark"`
}

// Slideshow holds the slideshow configuration of a group.
type Slideshow struct {
	Enabled bool `yaml:"enabled"`
	// PauseSeconds is nil when unset. An explicit zero is invalid.
	PauseSeconds *int `yaml:"pauseSeconds,omitempty"`
}

// Group holds the configuration of one group of editors sharing a
// background.
type Group struct {
	Name                   string    `yaml:"name"`
	EditorGroup            string    `yaml:"editorGroup,omitempty"`
	Random                 bool      `yaml:"random"`
	Slideshow              Slideshow `yaml:"slideshow"`
	RefreshIntervalSeconds *int      `yaml:"refreshIntervalSeconds,omitempty"` // nil when unset
	Files                  []string  `yaml:"files,omitempty"`
	Categories             []string  `yaml:"categories,omitempty"`
}

// SelectionMode returns the selection mode of the group.
func (g Group) SelectionMode() domain.SelectionMode {
	if g.Random {
		return domain.SelectionModeRandom
	}
	return domain.SelectionModeSequential
}

// CategorySet returns the enabled categories. Unknown names are ignored,
// validation reports them.
func (g Group) CategorySet() domain.CategorySet {
	var set domain.CategorySet
	for _, name := range g.Categories {
		if c, ok := domain.ParseCategory(name); ok {
			set = set.With(c)
		}
	}
	return set
}

// SlideshowPause returns the pause between two slides, or the default if
// unset.
func (g Group) SlideshowPause() time.Duration {
	return time.Duration(ptr.ValueOr(g.Slideshow.PauseSeconds, DefaultSlideshowPauseSeconds)) * time.Second
}

// RefreshInterval returns the interval between two subscription refreshes.
func (g Group) RefreshInterval() time.Duration {
	return time.Duration(ptr.ValueOr(g.RefreshIntervalSeconds, DefaultRefreshIntervalSeconds)) * time.Second
}

// Config holds the configuration for the application.
type Config struct {
	LogFile LogFile `yaml:"logfile"`
	Server  Server  `yaml:"server"`
	Cache   Cache   `yaml:"cache"`
	Groups  []Group `yaml:"groups"`
}
