// Package confloader loads configuration from a YAML file, the environment
// and in-memory maps using koanf, and watches the file for changes.
//
// Priority (highest to lowest):
//
//  1. Maps loaded with LoadMap (command-line flags)
//  2. Environment variables (BLOBTIER_ prefix)
//  3. The configuration file
//  4. Defaults already present in the target struct
//
// Environment variables separate sections with a double underscore so that
// keys containing underscores survive:
//
//	BLOBTIER_STORAGE__MEMORY_MAX_COST=67108864  ->  storage.memory_max_cost
//	BLOBTIER_SERVER__HTTP__ADDRESS=:8080        ->  server.http.address
package confloader
