package benchmark

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/yndnr/blobtier-go/internal/storage"
	"github.com/yndnr/blobtier-go/internal/storage/disk"
	"github.com/yndnr/blobtier-go/internal/storage/keycodec"
	"github.com/yndnr/blobtier-go/internal/storage/memory"
)

// PayloadSizes are the blob sizes benchmarked.
var PayloadSizes = []int{1 << 10, 64 << 10, 1 << 20}

// KeyCounts for prefilled namespaces.
var KeyCounts = []int{100, 1000}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func payload(size int) []byte {
	b := make([]byte, size)
	rand.Read(b)
	return b
}

func key(i int) string {
	return fmt.Sprintf("https://cdn.example.com/img/%08d.jpg", i)
}

// truncate is a cheap variant transform: it keeps the first Width bytes.
var truncate = storage.TransformFunc[[]byte](func(_ context.Context, v []byte, variant keycodec.Variant) ([]byte, error) {
	fit := variant.(keycodec.Fit)
	if fit.Width < len(v) {
		v = v[:fit.Width]
	}
	return append([]byte(nil), v...), nil
})

// openCoordinator opens a bytes coordinator on the named backend.
func openCoordinator(b *testing.B, backend string) *storage.Coordinator[[]byte] {
	b.Helper()
	base := b.TempDir()
	be, err := disk.Open(disk.OpenConfig{
		Kind:      backend,
		BasePath:  base,
		Namespace: "bench",
		Logger:    quiet,
	})
	if err != nil {
		b.Fatalf("open backend: %v", err)
	}
	c, err := storage.New(storage.Config[[]byte]{
		Namespace:   "bench",
		BasePath:    base,
		Codec:       storage.BytesCodec{},
		Transformer: truncate,
		Backend:     be,
		Memory:      memory.Config{MaxCost: 512 << 20, NumCounters: 100_000},
		Logger:      quiet,
	})
	if err != nil {
		b.Fatalf("storage.New: %v", err)
	}
	b.Cleanup(func() { c.Close() })
	return c
}

// openBackend opens a bare disk backend.
func openBackend(b *testing.B, kind string) disk.Backend {
	b.Helper()
	be, err := disk.Open(disk.OpenConfig{
		Kind:      kind,
		BasePath:  filepath.Join(b.TempDir(), "cache"),
		Namespace: "bench",
		Logger:    quiet,
	})
	if err != nil {
		b.Fatalf("open backend: %v", err)
	}
	b.Cleanup(func() { be.Close() })
	return be
}

// prefill stores count keys of the given size on disk only.
func prefill(b *testing.B, c *storage.Coordinator[[]byte], count, size int) {
	b.Helper()
	ctx := context.Background()
	data := payload(size)
	for i := 0; i < count; i++ {
		if err := c.Set(ctx, key(i), data, false); err != nil {
			b.Fatalf("prefill: %v", err)
		}
	}
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// forEachBackend runs fn once per disk backend.
func forEachBackend(b *testing.B, fn func(b *testing.B, backend string)) {
	for _, backend := range []string{disk.BackendFile, disk.BackendBadger} {
		b.Run(backend, func(b *testing.B) {
			fn(b, backend)
		})
	}
}
