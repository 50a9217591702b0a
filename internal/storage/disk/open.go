package disk

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"
)

// BadgerDirName is the directory under the base path that holds the
// shared badger database.
const BadgerDirName = ".badger"

// OpenConfig selects a backend by name.
type OpenConfig struct {
	// Kind is BackendFile or BackendBadger.
	// Default: BackendFile
	Kind string

	BasePath  string
	Namespace string

	// Fs is used by the file backend. Default: the OS filesystem.
	Fs afero.Fs

	// Badger tunes the badger backend. Dir and Namespace are derived
	// from BasePath and Namespace.
	Badger BadgerConfig

	Logger *slog.Logger
}

// Open creates the backend of one namespace. The file backend lives at
// <BasePath>/<Namespace>. Badger namespaces under one base path share the
// database in <BasePath>/.badger: it is opened once per process and closed
// when the last store using it is closed.
func Open(cfg OpenConfig) (Backend, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	switch cfg.Kind {
	case "", BackendFile:
		return NewFileStore(FileConfig{
			Root:   filepath.Join(cfg.BasePath, cfg.Namespace),
			Fs:     cfg.Fs,
			Logger: cfg.Logger,
		})
	case BackendBadger:
		bc := cfg.Badger
		bc.Dir = filepath.Join(cfg.BasePath, BadgerDirName)
		bc.Namespace = cfg.Namespace
		bc.Logger = cfg.Logger
		if bc.DB != nil || bc.InMemory {
			return NewBadgerStore(bc)
		}
		bc = withBadgerDefaults(bc)

		shared, release, err := attachBadger(bc)
		if err != nil {
			return nil, err
		}
		s, err := newBadgerStore(bc, shared, release)
		if err != nil {
			release()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("disk: unknown backend %q", cfg.Kind)
	}
}
