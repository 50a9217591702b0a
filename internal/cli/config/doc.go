// Package config provides CLI configuration for blobtier-cli.
//
// Settings are layered, later sources winning:
//
//   - Default()
//   - the config file (~/.config/blobtier/cli.yaml unless --config is given)
//   - BLOBTIER_CLI_* environment variables
//   - command line flags, applied by package command
package config
