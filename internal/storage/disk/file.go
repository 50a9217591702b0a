package disk

import (
	"context"
	"crypto/rand"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/afero"
)

// tempPrefix marks in-progress writes. Identifiers are hex and never start
// with a dot, so temp files are never listed or read as records.
const tempPrefix = ".tmp-"

// FileConfig configures a FileStore.
type FileConfig struct {
	// Root is the namespace directory. It is created on first write.
	Root string

	// Fs is the filesystem. Default: the OS filesystem.
	Fs afero.Fs

	// Logger is the structured logger.
	Logger *slog.Logger
}

// FileStore keeps one file per identifier in a directory.
type FileStore struct {
	root   string
	fs     afero.Fs
	logger *slog.Logger
}

// NewFileStore creates a file backend. It does not touch the filesystem.
func NewFileStore(cfg FileConfig) (*FileStore, error) {
	if cfg.Root == "" {
		return nil, errors.New("disk: root is required")
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &FileStore{
		root:   filepath.Clean(cfg.Root),
		fs:     cfg.Fs,
		logger: cfg.Logger,
	}, nil
}

// Root implements Backend.
func (s *FileStore) Root() string {
	return s.root
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.root, id)
}

// Read implements Backend.
func (s *FileStore) Read(_ context.Context, id string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.path(id))
	if err != nil {
		return nil, ioError("read", id, err)
	}
	return data, nil
}

// Write implements Backend.
func (s *FileStore) Write(_ context.Context, id string, data []byte) error {
	if err := s.fs.MkdirAll(s.root, 0o755); err != nil {
		return ioError("mkdir", s.root, err)
	}
	if err := s.writeAtomic(id, data); err != nil {
		return ioError("write", id, err)
	}
	return nil
}

// Copy implements Backend.
func (s *FileStore) Copy(ctx context.Context, from, to string) error {
	data, err := s.Read(ctx, from)
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}
	if err := s.writeAtomic(to, data); err != nil {
		return ioError("copy", to, err)
	}
	return nil
}

// writeAtomic writes data to a temp file and renames it over id.
func (s *FileStore) writeAtomic(id string, data []byte) error {
	tmp := filepath.Join(s.root, tempPrefix+ulid.MustNew(ulid.Now(), rand.Reader).String())

	f, err := s.fs.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		s.fs.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		s.fs.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		s.fs.Remove(tmp)
		return err
	}
	if err := s.fs.Rename(tmp, s.path(id)); err != nil {
		s.fs.Remove(tmp)
		return err
	}
	return nil
}

// Delete implements Backend.
func (s *FileStore) Delete(_ context.Context, id string) error {
	if err := s.fs.Remove(s.path(id)); err != nil {
		return ioError("delete", id, err)
	}
	return nil
}

// Clear implements Backend. A namespace directory that was never created
// is already clear.
func (s *FileStore) Clear(_ context.Context) error {
	if err := s.fs.RemoveAll(s.root); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ioError("clear", s.root, err)
	}
	s.logger.Info("disk tier cleared", "root", s.root)
	return nil
}

// List implements Backend.
func (s *FileStore) List(_ context.Context, prefix string) ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, ioError("list", s.root, err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, tempPrefix) {
			continue
		}
		if strings.HasPrefix(name, prefix) {
			ids = append(ids, name)
		}
	}
	return ids, nil
}

// Close implements Backend.
func (s *FileStore) Close() error {
	return nil
}
