package benchmark

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/yndnr/blobtier-go/internal/storage/keycodec"
)

// BenchmarkSet measures writes to both tiers.
func BenchmarkSet(b *testing.B) {
	forEachBackend(b, func(b *testing.B, backend string) {
		for _, size := range PayloadSizes {
			b.Run(fmt.Sprintf("size_%d", size), func(b *testing.B) {
				c := openCoordinator(b, backend)
				ctx := context.Background()
				data := payload(size)

				b.SetBytes(int64(size))
				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if err := c.Set(ctx, key(i), data, true); err != nil {
						b.Fatalf("Set: %v", err)
					}
				}
			})
		}
	})
}

// BenchmarkGet_MemoryHit measures reads answered by the memory tier.
func BenchmarkGet_MemoryHit(b *testing.B) {
	c := openCoordinator(b, "file")
	ctx := context.Background()
	data := payload(64 << 10)
	for i := 0; i < 100; i++ {
		if err := c.Set(ctx, key(i), data, true); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, ok, err := c.Get(ctx, key(i%100)); err != nil || !ok {
			b.Fatalf("Get: ok=%v err=%v", ok, err)
		}
	}
}

// BenchmarkGet_DiskHit measures reads that load from disk. The memory tier
// is cleared on every iteration so each read misses it.
func BenchmarkGet_DiskHit(b *testing.B) {
	forEachBackend(b, func(b *testing.B, backend string) {
		for _, count := range KeyCounts {
			b.Run(fmt.Sprintf("keys_%d", count), func(b *testing.B) {
				c := openCoordinator(b, backend)
				prefill(b, c, count, 16<<10)
				ctx := context.Background()

				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					b.StopTimer()
					c.ClearMemory()
					b.StartTimer()
					if _, ok, err := c.Get(ctx, key(i%count)); err != nil || !ok {
						b.Fatalf("Get: ok=%v err=%v", ok, err)
					}
				}
				b.StopTimer()
				reportMemory(b, "mem")
			})
		}
	})
}

// BenchmarkGet_Parallel measures contended reads over a small key set.
func BenchmarkGet_Parallel(b *testing.B) {
	c := openCoordinator(b, "file")
	ctx := context.Background()
	data := payload(4 << 10)
	for i := 0; i < 16; i++ {
		if err := c.Set(ctx, key(i), data, true); err != nil {
			b.Fatal(err)
		}
	}

	var n atomic.Int64
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := int(n.Add(1))
			if _, _, err := c.Get(ctx, key(i%16)); err != nil {
				b.Errorf("Get: %v", err)
				return
			}
		}
	})
}

// BenchmarkScaledVariant_Hit measures variant requests served from cache.
func BenchmarkScaledVariant_Hit(b *testing.B) {
	c := openCoordinator(b, "file")
	ctx := context.Background()
	if err := c.Set(ctx, key(0), payload(64<<10), false); err != nil {
		b.Fatal(err)
	}
	fit := keycodec.Fit{Width: 1024, Height: 1024}
	if _, _, err := c.ScaledVariant(ctx, key(0), fit); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, hit, err := c.ScaledVariant(ctx, key(0), fit); err != nil || !hit {
			b.Fatalf("ScaledVariant: hit=%v err=%v", hit, err)
		}
	}
}

// BenchmarkScaledVariant_Compute measures the miss path: load, transform
// and store. Every iteration asks for a new size.
func BenchmarkScaledVariant_Compute(b *testing.B) {
	c := openCoordinator(b, "file")
	ctx := context.Background()
	if err := c.Set(ctx, key(0), payload(64<<10), false); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		fit := keycodec.Fit{Width: i + 1, Height: 1}
		if _, _, err := c.ScaledVariant(ctx, key(0), fit); err != nil {
			b.Fatalf("ScaledVariant: %v", err)
		}
	}
}
