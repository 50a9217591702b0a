// Package config defines the blobtier-server configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: default values
//   - verify.go: validation (addresses, enums, storage limits, TLS files)
//   - sanitize.go: masking secrets before the config is logged
//
// Configuration is loaded via internal/infra/confloader from a YAML file,
// BLOBTIER_ environment variables and command-line flags.
package config
