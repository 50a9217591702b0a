package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/blobtier-go/internal/infra/buildinfo"
	"github.com/yndnr/blobtier-go/internal/infra/confloader"
	"github.com/yndnr/blobtier-go/internal/infra/shutdown"
	"github.com/yndnr/blobtier-go/internal/server/config"
	"github.com/yndnr/blobtier-go/internal/server/httpserver"
	"github.com/yndnr/blobtier-go/internal/storage/memory"
	"github.com/yndnr/blobtier-go/internal/telemetry/logger"
	"github.com/yndnr/blobtier-go/internal/telemetry/metric"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "blobtier-server",
		Usage:   "Two-tier blob cache over HTTP",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				EnvVars: []string{"BLOBTIER_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "HTTP listen address (overrides server.http.addr)",
			},
			&cli.StringFlag{
				Name:  "base-path",
				Usage: "Cache base directory (overrides storage.base_path)",
			},
			&cli.StringFlag{
				Name:  "namespace",
				Usage: "Cache namespace (overrides storage.namespace)",
			},
			&cli.BoolFlag{
				Name:  "check-config",
				Usage: "Validate the configuration and exit",
			},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	loader, cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.Bool("check-config") {
		fmt.Fprintln(c.App.Writer, "configuration ok")
		return nil
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slogLogger := log.Slog()

	info := buildinfo.Get()
	log.Info("starting blobtier-server",
		"version", info.Version,
		"commit", info.Commit,
		"go", info.GoVersion,
		"config", loader.FilePath(),
		"config_summary", config.Sanitize(cfg))

	reg := metric.Global()

	var eviction []memory.EvictionSource
	if cfg.Eviction.Signal != "" {
		sig, err := config.ParseSignal(cfg.Eviction.Signal)
		if err != nil {
			return fmt.Errorf("eviction signal: %w", err)
		}
		src := memory.NewSignalSource(sig)
		defer src.Stop()
		eviction = append(eviction, src)
	}

	cache, err := openCache(cfg, reg, eviction, slogLogger)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}

	var limiter *httpserver.RateLimiter
	if cfg.Server.RateLimit.Enabled {
		limiter = httpserver.NewRateLimiter(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst)
	}

	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Routes:      cache.routes,
		Metrics:     reg,
		RateLimiter: limiter,
		AdminToken:  cfg.Server.Admin.Token,
		EnableAudit: true,
		Logger:      slogLogger,
	})

	httpCfg := cfg.Server.HTTP
	tlsConfig, certWatcher, err := serverTLS(httpCfg, slogLogger)
	if err != nil {
		cache.Close()
		return fmt.Errorf("tls: %w", err)
	}

	local, err := adminSocket(cfg.Server.Admin, cache, reg, slogLogger)
	if err != nil {
		cache.Close()
		return fmt.Errorf("admin socket: %w", err)
	}

	srv := httpserver.New(httpserver.Config{
		Addr:         httpCfg.Addr,
		TLSConfig:    tlsConfig,
		ReadTimeout:  httpCfg.ReadTimeout,
		WriteTimeout: httpCfg.WriteTimeout,
		IdleTimeout:  httpCfg.IdleTimeout,
		Logger:       slogLogger,
	}, router)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if limiter != nil {
		go limiter.Run(ctx, time.Minute, httpserver.DefaultLimiterIdle)
	}

	// Hooks run in reverse order: the listeners first, then the watchers,
	// then the cache.
	sh := shutdown.NewHandler(cfg.Server.ShutdownTimeout, shutdown.WithLogger(slogLogger))
	sh.OnShutdown("cache", func(context.Context) error {
		return cache.Close()
	})

	if loader.FilePath() != "" {
		watcher, err := watchConfig(loader, cache, slogLogger)
		if err != nil {
			log.Warn("config hot reload disabled", "error", err)
		} else {
			sh.OnShutdown("config watcher", func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	if certWatcher != nil {
		certWatcher.StartAsync()
		sh.OnShutdown("certificate watcher", func(context.Context) error {
			certWatcher.Stop()
			return nil
		})
	}

	if local != nil {
		sh.OnShutdown("admin socket", local.Shutdown)
		go func() {
			if err := local.ListenAndServe(); err != nil {
				log.Error("admin socket error", "error", err)
				sh.Shutdown()
			}
		}()
	}

	sh.OnShutdown("http server", srv.Shutdown)

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Error("HTTP server error", "error", err)
			sh.Shutdown()
		}
	}()

	log.Info("server started",
		"addr", httpCfg.Addr,
		"tls", tlsConfig != nil,
		"namespace", cfg.Storage.Namespace,
		"storage_path", cache.StoragePath(),
		"codec", cfg.Storage.Codec,
		"backend", cfg.Storage.Backend)

	if err := sh.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig layers defaults, the config file, the environment and the
// command line flags, then validates the result.
func loadConfig(c *cli.Context) (*confloader.Loader, *config.ServerConfig, error) {
	var opts []confloader.Option
	if path := c.String("config"); path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	loader := confloader.NewLoader(opts...)

	overrides := map[string]any{}
	if c.IsSet("addr") {
		overrides["server.http.addr"] = c.String("addr")
	}
	if c.IsSet("base-path") {
		overrides["storage.base_path"] = c.String("base-path")
	}
	if c.IsSet("namespace") {
		overrides["storage.namespace"] = c.String("namespace")
	}
	if len(overrides) > 0 {
		if err := loader.LoadMap(overrides); err != nil {
			return nil, nil, err
		}
	}

	cfg := config.Default()
	if err := loader.Load(cfg); err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return loader, cfg, nil
}

// initLogger initializes the structured logger and installs it as the
// process default.
func initLogger(cfg *config.ServerConfig) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     os.Stdout,
		RedactKeys: cfg.Log.RedactKeys,
	})
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)
	slog.SetDefault(log.Slog())
	return log, nil
}
