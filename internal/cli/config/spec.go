package config

// CLIConfig is the configuration for blobtier-cli.
type CLIConfig struct {
	// Cache location
	BasePath  string `koanf:"base_path"`
	Namespace string `koanf:"namespace"`
	Backend   string `koanf:"backend"` // file, badger

	// Value handling
	Codec   string `koanf:"codec"`  // bytes, image
	Format  string `koanf:"format"` // jpeg, png (image codec)
	Quality int    `koanf:"quality"`

	// Output format: table, json, yaml
	Output string `koanf:"output"`
}

// Default returns the default CLI configuration. An empty BasePath means
// the user cache directory, as for the server.
func Default() *CLIConfig {
	return &CLIConfig{
		Namespace: "default",
		Backend:   "file",
		Codec:     "bytes",
		Format:    "jpeg",
		Quality:   90,
		Output:    "table",
	}
}
