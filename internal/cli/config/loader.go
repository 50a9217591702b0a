package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/yndnr/blobtier-go/internal/infra/confloader"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "BLOBTIER_CLI_"

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		homeDir, _ := os.UserHomeDir()
		dir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(dir, "blobtier", "cli.yaml")
}

// Load loads CLI configuration. An empty path means DefaultConfigPath.
// A missing file is not an error; the environment still applies.
func Load(path string) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	opts := []confloader.Option{confloader.WithEnvPrefix(EnvPrefix)}
	if _, err := os.Stat(path); err == nil {
		opts = append(opts, confloader.WithConfigFile(path))
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg := Default()
	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
