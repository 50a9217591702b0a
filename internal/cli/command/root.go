package command

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/blobtier-go/internal/cli/config"
	"github.com/yndnr/blobtier-go/internal/cli/output"
	"github.com/yndnr/blobtier-go/internal/infra/buildinfo"
	"github.com/yndnr/blobtier-go/internal/storage/disk"
	"github.com/yndnr/blobtier-go/internal/telemetry/logger"
)

const configKey = "cliConfig"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:     "blobtier-cli",
		Usage:    "Inspect and edit a blobtier cache namespace",
		Version:  buildinfo.String(),
		Flags:    globalFlags(),
		Metadata: map[string]any{},
		Commands: []*cli.Command{
			PutCommand(),
			GetCommand(),
			CopyCommand(),
			RemoveCommand(),
			FitCommand(),
			ListCommand(),
			ClearCommand(),
			InfoCommand(),
		},
		Before: loadConfig,
	}
}

// globalFlags returns the global CLI flags. Unset flags fall back to the
// config file and BLOBTIER_CLI_* variables.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "CLI config file",
			Value: config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "base-path",
			Aliases: []string{"b"},
			Usage:   "Directory holding cache namespaces (default: user cache dir)",
		},
		&cli.StringFlag{
			Name:    "namespace",
			Aliases: []string{"n"},
			Usage:   "Cache namespace",
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Disk backend: file or badger",
		},
		&cli.StringFlag{
			Name:  "codec",
			Usage: "Value codec: bytes or image",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "Image format for the image codec: jpeg or png",
		},
		&cli.IntFlag{
			Name:    "quality",
			Aliases: []string{"q"},
			Usage:   "Encode quality, 1-100",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Log cache activity to stderr",
		},
	}
}

// loadConfig merges the config file, the environment and the flags.
func loadConfig(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if c.IsSet("base-path") {
		cfg.BasePath = c.String("base-path")
	}
	if c.IsSet("namespace") {
		cfg.Namespace = c.String("namespace")
	}
	if c.IsSet("backend") {
		cfg.Backend = c.String("backend")
	}
	if c.IsSet("codec") {
		cfg.Codec = c.String("codec")
	}
	if c.IsSet("format") {
		cfg.Format = c.String("format")
	}
	if c.IsSet("quality") {
		cfg.Quality = c.Int("quality")
	}
	if c.IsSet("output") {
		cfg.Output = c.String("output")
	}

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

// GetConfig returns the merged configuration.
func GetConfig(c *cli.Context) *config.CLIConfig {
	if cfg, ok := c.App.Metadata[configKey].(*config.CLIConfig); ok {
		return cfg
	}
	return config.Default()
}

// withStore opens the configured namespace, runs fn and closes it.
func withStore(c *cli.Context, fn func(blobStore) error) error {
	return withBackend(c, func(s blobStore, _ disk.Backend) error {
		return fn(s)
	})
}

func withBackend(c *cli.Context, fn func(blobStore, disk.Backend) error) error {
	cfg := GetConfig(c)
	store, backend, err := openStore(storeOptions{
		BasePath:  cfg.BasePath,
		Namespace: cfg.Namespace,
		Backend:   cfg.Backend,
		Codec:     cfg.Codec,
		Format:    cfg.Format,
		Quality:   cfg.Quality,
		Logger:    cliLogger(c),
	})
	if err != nil {
		return err
	}

	err = fn(store, backend)
	if cerr := store.Close(); err == nil {
		err = cerr
	}
	return err
}

// cliLogger logs to stderr; only warnings unless --verbose.
func cliLogger(c *cli.Context) *slog.Logger {
	w := c.App.ErrWriter
	if w == nil {
		w = os.Stderr
	}
	level := "warn"
	if c.Bool("verbose") {
		level = "debug"
	}
	log, err := logger.New(logger.Config{Level: level, Format: "text", Output: w})
	if err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return log.Slog()
}

// printResult renders data in the configured output format.
func printResult(c *cli.Context, data any) error {
	format, err := output.ParseFormat(GetConfig(c).Output)
	if err != nil {
		return err
	}
	return output.NewFormatter(format, c.Bool("wide")).Format(c.App.Writer, data)
}
