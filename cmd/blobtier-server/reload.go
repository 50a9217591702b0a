package main

import (
	"log/slog"

	"github.com/yndnr/blobtier-go/internal/infra/confloader"
	"github.com/yndnr/blobtier-go/internal/server/config"
	"github.com/yndnr/blobtier-go/internal/telemetry/logger"
)

// watchConfig reloads the config file when it changes and applies the
// settings that can change at runtime: storage.quality and log.level.
// Everything else needs a restart.
func watchConfig(loader *confloader.Loader, cache coordinator, log *slog.Logger) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(loader.FilePath()); err != nil {
		w.Stop()
		return nil, err
	}

	w.OnChange(func(path string) {
		applyReload(loader, cache, log)
	})
	w.StartAsync()
	return w, nil
}

// applyReload re-reads the configuration. An invalid file leaves the
// running settings untouched.
func applyReload(loader *confloader.Loader, cache coordinator, log *slog.Logger) {
	cfg := config.Default()
	if err := loader.Reload(cfg); err != nil {
		log.Warn("config reload failed", "error", err)
		return
	}
	if err := config.Verify(cfg); err != nil {
		log.Warn("reloaded config is invalid, keeping current settings", "error", err)
		return
	}

	if q := cfg.Storage.Quality; q != cache.Quality() {
		previous := cache.Quality()
		if err := cache.SetQuality(q); err != nil {
			log.Warn("apply quality failed", "error", err)
		} else {
			log.Info("quality reloaded", "previous", previous, "quality", q)
		}
	}

	if lvl := cfg.Log.Level; lvl != logger.GetLevel() {
		logger.SetLevel(lvl)
		log.Info("log level reloaded", "level", lvl)
	}
}
