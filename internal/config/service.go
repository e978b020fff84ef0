package config

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"git.netflux.io/rob/backdrop/internal/domain"
	"git.netflux.io/rob/backdrop/internal/ptr"
	"gopkg.in/yaml.v3"
)

// Service provides configuration services.
type Service struct {
	configPath  string
	appStateDir string
}

// ConfigDirFunc is a function that returns the user configuration directory.
type ConfigDirFunc func() (string, error)

// NewDefaultService creates a new service with the default configuration file
// location.
func NewDefaultService() (*Service, error) {
	return NewService(os.UserConfigDir)
}

// NewService creates a new service with provided ConfigDirFunc.
//
// The app config directory is created if it does not exist.
func NewService(configDirFunc ConfigDirFunc) (*Service, error) {
	configDir, err := configDirFunc()
	if err != nil {
		return nil, fmt.Errorf("user config dir: %w", err)
	}

	appConfigDir, err := createAppConfigDir(configDir)
	if err != nil {
		return nil, fmt.Errorf("app config dir: %w", err)
	}

	return &Service{
		configPath:  filepath.Join(appConfigDir, "config.yaml"),
		appStateDir: appStateDir(),
	}, nil
}

// NewServiceWithPath creates a new service which reads the configuration from
// an explicit file path.
func NewServiceWithPath(path string) *Service {
	return &Service{configPath: path, appStateDir: appStateDir()}
}

// ReadOrCreateConfig reads the configuration from the file at the given path or
// creates it with default values.
func (s *Service) ReadOrCreateConfig() (cfg Config, _ error) {
	if _, err := os.Stat(s.Path()); os.IsNotExist(err) {
		return s.createConfig()
	} else if err != nil {
		return cfg, fmt.Errorf("stat: %w", err)
	}

	return s.readConfig()
}

func (s *Service) readConfig() (cfg Config, _ error) {
	contents, err := os.ReadFile(s.Path())
	if err != nil {
		return cfg, fmt.Errorf("read file: %w", err)
	}

	return s.Parse(contents)
}

// Parse decodes, defaults and validates a YAML configuration.
func (s *Service) Parse(contents []byte) (cfg Config, _ error) {
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return cfg, &domain.ConfigurationError{Field: "config", Reason: err.Error()}
	}

	s.setDefaults(&cfg)

	if err := Validate(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (s *Service) createConfig() (cfg Config, _ error) {
	if err := os.MkdirAll(filepath.Dir(s.Path()), 0744); err != nil {
		return cfg, fmt.Errorf("mkdir: %w", err)
	}

	cfg.Groups = []Group{{Name: "All editors", Categories: []string{domain.CategoryNormal.String()}}}
	s.setDefaults(&cfg)

	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return cfg, fmt.Errorf("marshal: %w", err)
	}

	if err = os.WriteFile(s.Path(), yamlBytes, 0644); err != nil {
		return cfg, fmt.Errorf("write file: %w", err)
	}

	return cfg, nil
}

// Path returns the path of the configuration file.
func (s *Service) Path() string {
	return s.configPath
}

func (s *Service) setDefaults(cfg *Config) {
	if cfg.LogFile.Enabled && cfg.LogFile.Path == "" && s.appStateDir != "" {
		cfg.LogFile.Path = filepath.Join(s.appStateDir, domain.AppName+".log")
	}

	cfg.Server.Host = cmp.Or(strings.TrimSpace(cfg.Server.Host), DefaultHost)
	cfg.Server.Port = cmp.Or(cfg.Server.Port, DefaultPort)
	cfg.Server.Protocol = cmp.Or(cfg.Server.Protocol, DefaultProtocol)
	cfg.Server.HealthTimeoutSeconds = cmp.Or(cfg.Server.HealthTimeoutSeconds, DefaultHealthTimeoutSeconds)
	cfg.Server.ShutdownTimeoutSeconds = cmp.Or(cfg.Server.ShutdownTimeoutSeconds, DefaultShutdownTimeoutSeconds)

	if cfg.Cache.Capacity == 0 {
		cfg.Cache.Capacity = DefaultCacheCapacity
		if cfg.Cache.LowWaterMark == 0 {
			cfg.Cache.LowWaterMark = DefaultLowWaterMark
		}
	}

	for i := range cfg.Groups {
		SetGroupDefaults(&cfg.Groups[i], i)
	}
}

// SetGroupDefaults fills in the unset fields of the group at index i. An
// explicit zero interval is kept, so that validation rejects it.
func SetGroupDefaults(g *Group, i int) {
	if strings.TrimSpace(g.Name) == "" {
		g.Name = fmt.Sprintf("Group %d", i+1)
	}
	g.EditorGroup = cmp.Or(strings.TrimSpace(g.EditorGroup), DefaultEditorGroup)
	if g.Slideshow.PauseSeconds == nil {
		g.Slideshow.PauseSeconds = ptr.New(DefaultSlideshowPauseSeconds)
	}
	if g.RefreshIntervalSeconds == nil {
		g.RefreshIntervalSeconds = ptr.New(DefaultRefreshIntervalSeconds)
	}
}

// Validate checks the whole configuration. Every problem found is returned,
// joined, as a *domain.ConfigurationError.
func Validate(cfg Config) error {
	var err error

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		err = errors.Join(err, invalid("server.port", "must be between 1 and 65535"))
	}
	if cfg.Server.Protocol != ProtocolGRPC && cfg.Server.Protocol != ProtocolConnect {
		err = errors.Join(err, invalid("server.protocol", "must be grpc or connect"))
	}
	if cfg.Server.HealthTimeoutSeconds < 1 {
		err = errors.Join(err, invalid("server.healthTimeoutSeconds", "must be at least 1"))
	}
	if cfg.Server.ShutdownTimeoutSeconds < 1 {
		err = errors.Join(err, invalid("server.shutdownTimeoutSeconds", "must be at least 1"))
	}
	if cfg.Cache.Capacity < 1 {
		err = errors.Join(err, invalid("cache.capacity", "must be at least 1"))
	}
	if cfg.Cache.LowWaterMark < 0 || cfg.Cache.LowWaterMark >= cfg.Cache.Capacity {
		err = errors.Join(err, invalid("cache.lowWaterMark", "must be between 0 and capacity-1"))
	}

	names := make(map[string]struct{})
	for i, g := range cfg.Groups {
		if _, ok := names[g.Name]; ok {
			err = errors.Join(err, invalid(groupField(i, "name"), "duplicate group name "+strconv.Quote(g.Name)))
		}
		names[g.Name] = struct{}{}

		err = errors.Join(err, ValidateGroup(g, i))
	}

	return err
}

// ValidateGroup checks a single group, at index i.
func ValidateGroup(g Group, i int) error {
	var err error

	if strings.TrimSpace(g.Name) == "" {
		err = errors.Join(err, invalid(groupField(i, "name"), "must not be empty"))
	}
	if g.Slideshow.PauseSeconds != nil && *g.Slideshow.PauseSeconds < 1 {
		err = errors.Join(err, invalid(groupField(i, "slideshow.pauseSeconds"), "must be at least 1"))
	}
	if g.RefreshIntervalSeconds != nil && *g.RefreshIntervalSeconds < 1 {
		err = errors.Join(err, invalid(groupField(i, "refreshIntervalSeconds"), "must be at least 1"))
	}
	for _, name := range g.Categories {
		if _, ok := domain.ParseCategory(name); !ok {
			err = errors.Join(err, invalid(groupField(i, "categories"), "unknown category "+strconv.Quote(name)))
		}
	}

	return err
}

func groupField(i int, field string) string {
	return fmt.Sprintf("groups[%d].%s", i, field)
}

func invalid(field, reason string) error {
	return &domain.ConfigurationError{Field: field, Reason: reason}
}
