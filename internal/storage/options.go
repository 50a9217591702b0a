package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/yndnr/blobtier-go/internal/core/domain"
	"github.com/yndnr/blobtier-go/internal/storage/disk"
	"github.com/yndnr/blobtier-go/internal/storage/dispatch"
	"github.com/yndnr/blobtier-go/internal/storage/memory"
	"github.com/yndnr/blobtier-go/internal/telemetry/metric"
)

// Default configuration values.
const (
	DefaultNamespace = "default"
	DefaultQuality   = 90
	MinQuality       = 1
	MaxQuality       = 100

	// cacheDirName is created under the user cache directory when no base
	// path is configured.
	cacheDirName = "blobtier"
)

// Config configures a Coordinator.
type Config[V any] struct {
	// Namespace names the cache. Coordinators with the same namespace and
	// base path share disk records but not memory.
	// Default: "default"
	Namespace string

	// BasePath is the directory holding namespace directories.
	// Default: <user cache dir>/blobtier
	BasePath string

	// Codec serializes values. Required.
	Codec Codec[V]

	// Transformer computes variants. Optional; without it ScaledVariant
	// fails with domain.ErrInvalidArgument.
	Transformer Transformer[V]

	// Quality is passed to the codec on every encode.
	// Default: 90
	Quality int

	// Memory configures the memory tier.
	Memory memory.Config

	// Backend overrides the disk tier. Default: a FileStore at
	// <BasePath>/<Namespace> on Fs.
	Backend disk.Backend

	// Fs is the filesystem for the default FileStore.
	// Default: the OS filesystem
	Fs afero.Fs

	// Workers bounds concurrent disk and codec work.
	// Default: dispatch.DefaultWorkers()
	Workers int

	// Completion is where asynchronous callbacks run unless a call
	// overrides it with DeliverOn.
	// Default: dispatch.Background
	Completion dispatch.Executor

	// Eviction lists sources whose signals clear the memory tier.
	Eviction []memory.EvictionSource

	// Metrics is optional.
	Metrics *metric.Registry

	// Logger is the structured logger.
	Logger *slog.Logger
}

// DefaultBasePath returns the base path used when none is configured.
func DefaultBasePath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("storage: resolve user cache dir: %w", err)
	}
	return filepath.Join(dir, cacheDirName), nil
}

// ValidateNamespace checks that name is usable as a single path element.
func ValidateNamespace(name string) error {
	switch {
	case name == "":
		return domain.ErrInvalidArgument.WithDetails("namespace is empty")
	case name == "." || name == "..":
		return domain.ErrInvalidArgument.WithDetails("namespace must not be . or ..")
	case strings.ContainsAny(name, `/\`+"\x00"):
		return domain.ErrInvalidArgument.WithDetails(fmt.Sprintf("namespace %q contains a path separator", name))
	}
	return nil
}

// ValidateQuality checks that q is within [MinQuality, MaxQuality].
func ValidateQuality(q int) error {
	if q < MinQuality || q > MaxQuality {
		return domain.ErrInvalidArgument.WithDetails(fmt.Sprintf("quality %d out of range %d-%d", q, MinQuality, MaxQuality))
	}
	return nil
}

func (cfg *Config[V]) applyDefaults() error {
	if cfg.Codec == nil {
		return domain.ErrInvalidArgument.WithDetails("codec is required")
	}
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	if err := ValidateNamespace(cfg.Namespace); err != nil {
		return err
	}
	if cfg.Quality == 0 {
		cfg.Quality = DefaultQuality
	}
	if err := ValidateQuality(cfg.Quality); err != nil {
		return err
	}
	if cfg.BasePath == "" {
		base, err := DefaultBasePath()
		if err != nil {
			return err
		}
		cfg.BasePath = base
	}
	if cfg.Completion == nil {
		cfg.Completion = dispatch.Background
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Memory.Logger == nil {
		cfg.Memory.Logger = cfg.Logger
	}
	if cfg.Memory.Metrics == nil {
		cfg.Memory.Metrics = cfg.Metrics
	}
	return nil
}

// CallOption adjusts a single asynchronous call.
type CallOption func(*callOptions)

type callOptions struct {
	exec dispatch.Executor
}

// DeliverOn runs the call's completion callback on exec instead of the
// coordinator's default executor.
func DeliverOn(exec dispatch.Executor) CallOption {
	return func(o *callOptions) {
		o.exec = exec
	}
}

func (c *Coordinator[V]) resolve(opts []CallOption) dispatch.Executor {
	o := callOptions{exec: c.completion}
	for _, opt := range opts {
		opt(&o)
	}
	if o.exec == nil {
		return c.completion
	}
	return o.exec
}

var errNoTransformer = errors.New("no transformer configured")
