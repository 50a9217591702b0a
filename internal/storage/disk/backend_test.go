package disk

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"

	"github.com/yndnr/blobtier-go/internal/core/domain"
)

// backends returns a fresh instance of every backend implementation.
func backends(t *testing.T) map[string]Backend {
	t.Helper()

	fileStore, err := NewFileStore(FileConfig{Root: "/cache/default", Fs: afero.NewMemMapFs()})
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	badgerStore, err := NewBadgerStore(BadgerConfig{Namespace: "default", InMemory: true})
	if err != nil {
		t.Fatalf("NewBadgerStore() error = %v", err)
	}
	t.Cleanup(func() { badgerStore.Close() })

	return map[string]Backend{
		BackendFile:   fileStore,
		BackendBadger: badgerStore,
	}
}

func TestBackend_ReadWrite(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := b.Read(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
				t.Errorf("Read(missing) error = %v, want ErrNotFound", err)
			}

			if err := b.Write(ctx, "a", []byte("one")); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if err := b.Write(ctx, "a", []byte("two")); err != nil {
				t.Fatalf("Write() overwrite error = %v", err)
			}

			got, err := b.Read(ctx, "a")
			if err != nil || string(got) != "two" {
				t.Errorf("Read(a) = (%q, %v), want (two, nil)", got, err)
			}
		})
	}
}

func TestBackend_Copy(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := b.Copy(ctx, "nope", "b"); !errors.Is(err, domain.ErrNotFound) {
				t.Errorf("Copy(missing) error = %v, want ErrNotFound", err)
			}

			if err := b.Write(ctx, "a", []byte("payload")); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if err := b.Write(ctx, "b", []byte("old")); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if err := b.Copy(ctx, "a", "b"); err != nil {
				t.Fatalf("Copy() error = %v", err)
			}

			got, err := b.Read(ctx, "b")
			if err != nil || string(got) != "payload" {
				t.Errorf("Read(b) = (%q, %v), want (payload, nil)", got, err)
			}

			// The copy is independent of its source.
			if err := b.Delete(ctx, "a"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, err := b.Read(ctx, "b"); err != nil {
				t.Errorf("Read(b) after deleting source error = %v", err)
			}
		})
	}
}

func TestBackend_Delete(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := b.Delete(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
				t.Errorf("Delete(missing) error = %v, want ErrNotFound", err)
			}

			b.Write(ctx, "a", []byte("x"))
			if err := b.Delete(ctx, "a"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, err := b.Read(ctx, "a"); !errors.Is(err, domain.ErrNotFound) {
				t.Errorf("Read after Delete error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestBackend_ListAndClear(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ids, err := b.List(ctx, "")
			if err != nil || len(ids) != 0 {
				t.Fatalf("List() on empty = (%v, %v), want empty", ids, err)
			}

			for _, id := range []string{"ab~1", "ab~2", "ab", "cd"} {
				if err := b.Write(ctx, id, []byte(id)); err != nil {
					t.Fatalf("Write(%s) error = %v", id, err)
				}
			}

			ids, err = b.List(ctx, "ab~")
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			sort.Strings(ids)
			if len(ids) != 2 || ids[0] != "ab~1" || ids[1] != "ab~2" {
				t.Errorf("List(ab~) = %v, want [ab~1 ab~2]", ids)
			}

			if err := b.Clear(ctx); err != nil {
				t.Fatalf("Clear() error = %v", err)
			}
			ids, _ = b.List(ctx, "")
			if len(ids) != 0 {
				t.Errorf("List() after Clear = %v, want empty", ids)
			}

			// The namespace is usable again after Clear.
			if err := b.Write(ctx, "ab", []byte("again")); err != nil {
				t.Errorf("Write after Clear error = %v", err)
			}
		})
	}
}

func TestFileStore_LazyRootAndTempFiles(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	s, err := NewFileStore(FileConfig{Root: "/base/ns", Fs: fs})
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	if ok, _ := afero.DirExists(fs, "/base/ns"); ok {
		t.Fatal("root should not exist before the first write")
	}
	if err := s.Clear(ctx); err != nil {
		t.Errorf("Clear() on absent root error = %v", err)
	}

	if err := s.Write(ctx, "id", []byte("x")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if ok, _ := afero.DirExists(fs, "/base/ns"); !ok {
		t.Fatal("root should exist after a write")
	}

	entries, _ := afero.ReadDir(fs, "/base/ns")
	if len(entries) != 1 || entries[0].Name() != "id" {
		t.Errorf("directory entries = %v, want only id", entries)
	}

	// Leftover temp files from a crash are never listed.
	afero.WriteFile(fs, "/base/ns/"+tempPrefix+"01ABC", []byte("partial"), 0o644)
	ids, _ := s.List(ctx, "")
	if len(ids) != 1 || ids[0] != "id" {
		t.Errorf("List() = %v, want [id]", ids)
	}

	if s.Root() != "/base/ns" {
		t.Errorf("Root() = %q, want /base/ns", s.Root())
	}
}

func TestFileStore_IOErrorKeepsCause(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(FileConfig{Root: "/ro", Fs: afero.NewReadOnlyFs(afero.NewMemMapFs())})
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	err = s.Write(ctx, "id", []byte("x"))
	if !errors.Is(err, domain.ErrIO) {
		t.Fatalf("Write() on read-only fs error = %v, want ErrIO", err)
	}
	var de *domain.DomainError
	if !errors.As(err, &de) || de.Cause == nil {
		t.Error("ErrIO should carry the filesystem error as its cause")
	}
}

func TestNewFileStore_RequiresRoot(t *testing.T) {
	if _, err := NewFileStore(FileConfig{}); err == nil {
		t.Error("expected error for empty root")
	}
}

func TestBadgerStore_SharedDBNamespaces(t *testing.T) {
	ctx := context.Background()

	owner, err := NewBadgerStore(BadgerConfig{Namespace: "one", InMemory: true})
	if err != nil {
		t.Fatalf("NewBadgerStore() error = %v", err)
	}
	defer owner.Close()

	other, err := NewBadgerStore(BadgerConfig{Namespace: "two", DB: owner.db})
	if err != nil {
		t.Fatalf("NewBadgerStore(shared) error = %v", err)
	}

	owner.Write(ctx, "id", []byte("one"))
	other.Write(ctx, "id", []byte("two"))

	if err := other.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if got, err := owner.Read(ctx, "id"); err != nil || string(got) != "one" {
		t.Errorf("Clear of one namespace affected another: (%q, %v)", got, err)
	}

	// Closing a store that shares the database leaves it open.
	if err := other.Close(); err != nil {
		t.Fatalf("Close(shared) error = %v", err)
	}
	if _, err := owner.Read(ctx, "id"); err != nil {
		t.Errorf("Read after closing shared store error = %v", err)
	}
}

func TestBadgerStore_OnDiskGCAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewBadgerStore(BadgerConfig{
		Dir:        t.TempDir(),
		Namespace:  "default",
		Registerer: reg,
	})
	if err != nil {
		t.Fatalf("NewBadgerStore() error = %v", err)
	}
	defer s.Close()

	if _, err := s.GC(); err != nil {
		t.Errorf("GC() error = %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "blobtier_badger_gc_runs_total" {
			found = true
			if v := f.GetMetric()[0].GetCounter().GetValue(); v != 1 {
				t.Errorf("gc_runs_total = %v, want 1", v)
			}
		}
	}
	if !found {
		t.Error("blobtier_badger_gc_runs_total not registered")
	}
}

func TestNewBadgerStore_Validation(t *testing.T) {
	if _, err := NewBadgerStore(BadgerConfig{Dir: t.TempDir()}); err == nil {
		t.Error("expected error for empty namespace")
	}
	if _, err := NewBadgerStore(BadgerConfig{Namespace: "ns"}); err == nil {
		t.Error("expected error for empty dir")
	}
}

func TestOpen(t *testing.T) {
	b, err := Open(OpenConfig{BasePath: "/cache", Namespace: "thumbs", Fs: afero.NewMemMapFs()})
	if err != nil {
		t.Fatalf("Open(file) error = %v", err)
	}
	if _, ok := b.(*FileStore); !ok || b.Root() != "/cache/thumbs" {
		t.Errorf("Open(file) = %T at %q, want *FileStore at /cache/thumbs", b, b.Root())
	}

	dir := t.TempDir()
	b, err = Open(OpenConfig{Kind: BackendBadger, BasePath: dir, Namespace: "thumbs"})
	if err != nil {
		t.Fatalf("Open(badger) error = %v", err)
	}
	defer b.Close()
	if _, ok := b.(*BadgerStore); !ok {
		t.Errorf("Open(badger) = %T, want *BadgerStore", b)
	}
	if want := filepath.Join(dir, BadgerDirName, "thumbs"); b.Root() != want {
		t.Errorf("Root() = %q, want %q", b.Root(), want)
	}

	if _, err := Open(OpenConfig{Kind: "s3", BasePath: dir, Namespace: "x"}); err == nil {
		t.Error("Open(unknown kind) should fail")
	}
}

func TestOpen_BadgerNamespacesShareDatabase(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	open := func(namespace string) Backend {
		t.Helper()
		b, err := Open(OpenConfig{Kind: BackendBadger, BasePath: base, Namespace: namespace})
		if err != nil {
			t.Fatalf("Open(%s) error = %v", namespace, err)
		}
		return b
	}

	thumbs := open("thumbs")
	avatars := open("avatars")
	again := open("thumbs")

	if thumbs.(*BadgerStore).db != avatars.(*BadgerStore).db {
		t.Fatal("namespaces under one base path should share a database")
	}

	thumbs.Write(ctx, "id", []byte("thumb"))
	avatars.Write(ctx, "id", []byte("avatar"))
	if got, err := again.Read(ctx, "id"); err != nil || string(got) != "thumb" {
		t.Errorf("second store of a namespace Read = (%q, %v), want thumb", got, err)
	}

	// The database stays open while any store references it.
	if err := thumbs.Close(); err != nil {
		t.Fatalf("Close(thumbs) error = %v", err)
	}
	if err := thumbs.Close(); err != nil {
		t.Fatalf("second Close(thumbs) error = %v", err)
	}
	if got, err := avatars.Read(ctx, "id"); err != nil || string(got) != "avatar" {
		t.Errorf("Read after closing another store = (%q, %v)", got, err)
	}
	if err := again.Close(); err != nil {
		t.Fatalf("Close(again) error = %v", err)
	}
	if err := avatars.Close(); err != nil {
		t.Fatalf("Close(avatars) error = %v", err)
	}

	// The last Close released the directory lock.
	reopened := open("avatars")
	defer reopened.Close()
	if got, err := reopened.Read(ctx, "id"); err != nil || string(got) != "avatar" {
		t.Errorf("Read after reopen = (%q, %v), want avatar", got, err)
	}
}
