package disk

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/yndnr/blobtier-go/internal/core/domain"
)

// sharedBadger is a database opened by Open and referenced by every
// namespace store attached to it. It runs the value log GC for all of
// them.
type sharedBadger struct {
	dir   string
	db    *badger.DB
	refs  int
	stats gcStats

	stopCh chan struct{}
	doneCh chan struct{}
}

// badgerDBs maps an absolute directory to its open database. badger holds
// an exclusive directory lock, so one process opens each directory once.
var badgerDBs = struct {
	sync.Mutex
	open map[string]*sharedBadger
}{open: make(map[string]*sharedBadger)}

// attachBadger returns the database in cfg.Dir, opening it on first use,
// and a release func that drops the reference. The database is closed
// when the last reference is released.
func attachBadger(cfg BadgerConfig) (*sharedBadger, func() error, error) {
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, nil, domain.ErrIO.WithDetails("resolve badger dir").WithCause(err)
	}
	cfg.Dir = dir

	badgerDBs.Lock()
	defer badgerDBs.Unlock()

	sb, ok := badgerDBs.open[dir]
	if !ok {
		db, err := openBadgerDB(cfg)
		if err != nil {
			return nil, nil, err
		}
		sb = &sharedBadger{
			dir:    dir,
			db:     db,
			stopCh: make(chan struct{}),
			doneCh: make(chan struct{}),
		}
		go sb.gcLoop(cfg.GCInterval, cfg.GCThreshold, cfg.Logger)
		badgerDBs.open[dir] = sb
	}
	sb.refs++

	var once sync.Once
	release := func() error {
		var err error
		once.Do(func() { err = sb.release() })
		return err
	}
	return sb, release, nil
}

func (sb *sharedBadger) release() error {
	badgerDBs.Lock()
	defer badgerDBs.Unlock()

	sb.refs--
	if sb.refs > 0 {
		return nil
	}
	delete(badgerDBs.open, sb.dir)

	close(sb.stopCh)
	<-sb.doneCh
	if err := sb.db.Close(); err != nil {
		return domain.ErrIO.WithDetails("close badger").WithCause(err)
	}
	return nil
}

func (sb *sharedBadger) gcLoop(interval time.Duration, threshold float64, logger *slog.Logger) {
	defer close(sb.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := runValueLogGC(sb.db, threshold, &sb.stats, logger); err != nil {
				logger.Error("auto gc failed", "dir", sb.dir, "error", err)
			}
		case <-sb.stopCh:
			return
		}
	}
}
