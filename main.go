package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"syscall"

	"git.netflux.io/rob/backdrop/internal/app"
	"git.netflux.io/rob/backdrop/internal/config"
	"git.netflux.io/rob/backdrop/internal/domain"
	"github.com/urfave/cli/v3"
)

var (
	// version is the version of the application.
	version string
	// commit is the commit hash of the application.
	commit string
	// date is the date of the build.
	date string
)

var errNotServing = errors.New("image service is not serving")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	var exitCode int
	if err := run(ctx, os.Stdout, os.Stderr, os.Args); err != nil {
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		exitCode = 1
	}

	cancel()
	os.Exit(exitCode)
}

func run(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	cmd := &cli.Command{
		Name:      domain.AppName,
		Usage:     "Live image feed for editor backgrounds",
		Version:   buildInfo().Version,
		Writer:    stdout,
		ErrWriter: stderr,
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run every configured group until interrupted",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:    "debug",
						Usage:   "Enable debug logging",
						Sources: cli.EnvVars("DEBUG"),
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return runApp(ctx, c.String("config"), c.Bool("debug"), stderr)
				},
			},
			{
				Name:  "health",
				Usage: "Check the health of the image service",
				Flags: serverFlags(),
				Action: func(ctx context.Context, c *cli.Command) error {
					return checkHealth(ctx, c, stdout, stderr)
				},
			},
			{
				Name:      "visit",
				Usage:     "Notify the image service that an image was visited",
				ArgsUsage: "URL",
				Flags:     serverFlags(),
				Action: func(_ context.Context, c *cli.Command) error {
					return visit(c, stdout, stderr)
				},
			},
			{
				Name:  "config",
				Usage: "Inspect the configuration",
				Commands: []*cli.Command{
					{
						Name:  "path",
						Usage: "Print the path of the configuration file",
						Flags: []cli.Flag{configFlag()},
						Action: func(_ context.Context, c *cli.Command) error {
							configService, err := newConfigService(c.String("config"))
							if err != nil {
								return err
							}

							_, err = fmt.Fprintln(stdout, configService.Path())
							return err
						},
					},
				},
			},
		},
	}

	return cmd.Run(ctx, args)
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "config",
		Usage: "Path to the configuration file",
	}
}

func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "host",
			Usage: "Host of the image service",
			Value: config.DefaultHost,
		},
		&cli.StringFlag{
			Name:  "port",
			Usage: "Port of the image service",
			Value: strconv.Itoa(config.DefaultPort),
		},
		&cli.BoolFlag{
			Name:  "tls",
			Usage: "Connect using TLS",
		},
		&cli.BoolFlag{
			Name:  "tls-skip-verify",
			Usage: "Skip TLS certificate verification",
		},
		&cli.StringFlag{
			Name:  "protocol",
			Usage: "RPC protocol, grpc or connect",
			Value: string(config.DefaultProtocol),
		},
		&cli.StringFlag{
			Name:    "api-token",
			Usage:   "API token of the image service",
			Sources: cli.EnvVars("BACKDROP_API_TOKEN"),
		},
	}
}

func newConfigService(path string) (*config.Service, error) {
	if path != "" {
		return config.NewServiceWithPath(path), nil
	}

	configService, err := config.NewDefaultService()
	if err != nil {
		return nil, fmt.Errorf("build config service: %w", err)
	}

	return configService, nil
}

func runApp(ctx context.Context, configPath string, debug bool, stderr io.Writer) error {
	configService, err := newConfigService(configPath)
	if err != nil {
		return err
	}

	cfg, err := configService.ReadOrCreateConfig()
	if err != nil {
		return fmt.Errorf("read or create config: %w", err)
	}

	logger, closeLog, err := buildLogger(cfg.LogFile, debug, stderr)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer closeLog()

	reloadC := make(chan struct{}, 1)
	hupC := make(chan os.Signal, 1)
	signal.Notify(hupC, syscall.SIGHUP)
	defer signal.Stop(hupC)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hupC:
				select {
				case reloadC <- struct{}{}:
				default:
				}
			}
		}
	}()

	return app.Run(ctx, app.RunParams{
		ConfigService: configService,
		Config:        cfg,
		ReloadC:       reloadC,
		BuildInfo:     buildInfo(),
		Logger:        logger,
	})
}

// serverFromFlags builds and validates the server configuration from the
// command line flags.
func serverFromFlags(c *cli.Command) (config.Server, error) {
	port, err := strconv.Atoi(c.String("port"))
	if err != nil {
		return config.Server{}, &domain.ConfigurationError{Field: "port", Reason: "must be a number"}
	}

	cfg := config.Config{
		Server: config.Server{
			Host:                   c.String("host"),
			Port:                   port,
			TLS:                    c.Bool("tls"),
			InsecureSkipVerify:     c.Bool("tls-skip-verify"),
			Protocol:               config.Protocol(c.String("protocol")),
			APIToken:               c.String("api-token"),
			HealthTimeoutSeconds:   config.DefaultHealthTimeoutSeconds,
			ShutdownTimeoutSeconds: config.DefaultShutdownTimeoutSeconds,
		},
		Cache: config.Cache{Capacity: config.DefaultCacheCapacity, LowWaterMark: config.DefaultLowWaterMark},
	}
	if err := config.Validate(cfg); err != nil {
		return config.Server{}, err
	}

	return cfg.Server, nil
}

func checkHealth(ctx context.Context, c *cli.Command, stdout, stderr io.Writer) error {
	server, err := serverFromFlags(c)
	if err != nil {
		return err
	}

	httpClient, err := app.NewHTTPClient(server)
	if err != nil {
		return err
	}

	conn := app.NewConn(server, httpClient, nil, cliLogger(stderr))
	defer conn.Close() //nolint:errcheck

	if !conn.CheckHealth(ctx) {
		_, _ = fmt.Fprintln(stdout, "NOT_SERVING")
		return errNotServing
	}

	_, err = fmt.Fprintln(stdout, "SERVING")
	return err
}

func visit(c *cli.Command, stdout, stderr io.Writer) error {
	url := c.Args().First()
	if url == "" {
		return errors.New("missing URL argument")
	}

	server, err := serverFromFlags(c)
	if err != nil {
		return err
	}

	httpClient, err := app.NewHTTPClient(server)
	if err != nil {
		return err
	}

	conn := app.NewConn(server, httpClient, nil, cliLogger(stderr))
	conn.Visit(url)

	// Close waits for the in-flight visit.
	if err := conn.Close(); err != nil {
		return err
	}

	_, err = fmt.Fprintln(stdout, "OK")
	return err
}

func cliLogger(stderr io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// buildLogger returns a logger writing to the configured log file, or to
// stderr.
func buildLogger(cfg config.LogFile, debug bool, stderr io.Writer) (*slog.Logger, func(), error) {
	var handlerOpts slog.HandlerOptions
	if debug {
		handlerOpts.Level = slog.LevelDebug
	}

	if !cfg.Enabled || cfg.Path == "" {
		return slog.New(slog.NewTextHandler(stderr, &handlerOpts)), func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, nil, fmt.Errorf("mkdir: %w", err)
	}

	fptr, err := os.OpenFile(cfg.Path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	return slog.New(slog.NewTextHandler(fptr, &handlerOpts)), func() { _ = fptr.Close() }, nil
}

// buildInfo returns the build information of the binary.
func buildInfo() domain.BuildInfo {
	info := domain.BuildInfo{Version: cmp.Or(version, "devel"), Commit: commit, Date: date}

	if bi, ok := debug.ReadBuildInfo(); ok {
		info.GoVersion = bi.GoVersion
		if version == "" && bi.Main.Version != "" {
			info.Version = bi.Main.Version
		}
	}

	return info
}
