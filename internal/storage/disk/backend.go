package disk

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/yndnr/blobtier-go/internal/core/domain"
)

// Backend names for configuration.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
)

// Backend is the durable tier of one namespace.
//
// Implementations must be safe for concurrent use; callers serialize
// operations on the same identifier.
type Backend interface {
	// Read returns the payload stored under id.
	// Returns domain.ErrNotFound if there is none.
	Read(ctx context.Context, id string) ([]byte, error)

	// Write stores data under id, replacing any previous payload.
	Write(ctx context.Context, id string, data []byte) error

	// Copy duplicates the payload of from under to. Readers of to see
	// either the old or the new payload, never a partial one.
	// Returns domain.ErrNotFound if from is absent.
	Copy(ctx context.Context, from, to string) error

	// Delete removes id.
	// Returns domain.ErrNotFound if there was nothing to delete.
	Delete(ctx context.Context, id string) error

	// Clear removes every record of the namespace.
	Clear(ctx context.Context) error

	// List returns the identifiers starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Root describes where the namespace lives (a directory path, or
	// a badger directory plus namespace).
	Root() string

	// Close releases resources.
	Close() error
}

// ioError wraps err as a disk failure, mapping absence to ErrNotFound.
func ioError(op, id string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return domain.ErrNotFound.WithDetails(fmt.Sprintf("%s %s", op, id))
	}
	return domain.ErrIO.WithDetails(fmt.Sprintf("%s %s", op, id)).WithCause(err)
}
