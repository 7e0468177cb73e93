package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// OnReload is called after a successful hot-reload with the previous and
// the freshly loaded config.
type OnReload func(old, new *Config)

// Watcher reloads the config file when it changes on disk. Only a subset
// of fields applies live (currently server.log_level); the pool is built
// once at startup, so provider and dispatch changes are reported as
// needing a restart rather than silently absorbed.
type Watcher struct {
	fsw       *fsnotify.Watcher
	filePath  string
	callbacks []OnReload
	mu        sync.Mutex
	done      chan struct{}
}

// Watch starts watching the given config file. On every change the file is
// re-loaded, validated, and stored in the global atomic pointer, and the
// registered callbacks run with the old and new values.
func Watch(filePath string) (*Watcher, error) {
	if filePath == "" {
		return nil, fmt.Errorf("config watcher: file path must not be empty")
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("config watcher: resolving path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}

	// Editors that save atomically (write temp file, rename over the
	// target) swap the inode out from under a file watch, so the parent
	// directory is watched instead.
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("config watcher: watching %s: %w", filepath.Dir(absPath), err)
	}

	w := &Watcher{
		fsw:      fsw,
		filePath: absPath,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// OnChange registers a callback invoked after each successful reload.
func (w *Watcher) OnChange(fn OnReload) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) run() {
	// One editor save can fire several events; collapse them into a
	// single reload a beat after the last one.
	const debounce = 100 * time.Millisecond
	var pending *time.Timer

	for {
		select {
		case <-w.done:
			if pending != nil {
				pending.Stop()
			}
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.filePath {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(debounce, w.reload)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("config watcher error")
		}
	}
}

func (w *Watcher) reload() {
	old := Get()

	newCfg, err := Load(w.filePath)
	if err != nil {
		log.Warn().Err(err).Msg("config reload failed, keeping previous config")
		return
	}

	log.Info().Str("file", w.filePath).Msg("config reloaded")
	if old != nil {
		if sections := restartOnly(old, newCfg); len(sections) > 0 {
			log.Warn().Strs("sections", sections).Msg("changed sections take effect on next start")
		}
	}

	w.mu.Lock()
	cbs := make([]OnReload, len(w.callbacks))
	copy(cbs, w.callbacks)
	w.mu.Unlock()

	for _, cb := range cbs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Msg("config reload callback panicked")
				}
			}()
			cb(old, newCfg)
		}()
	}
}

// restartOnly lists the changed config sections that only apply at
// startup. The provider pool, the cooldown policy, the diagnostics
// listener, the cache, and the sink fan-out are all built once.
func restartOnly(old, new *Config) []string {
	var sections []string
	if !reflect.DeepEqual(old.Providers, new.Providers) {
		sections = append(sections, "providers")
	}
	if old.Dispatch != new.Dispatch {
		sections = append(sections, "dispatch")
	}
	if old.Server.DiagBind != new.Server.DiagBind || old.Server.DiagPort != new.Server.DiagPort {
		sections = append(sections, "server.diag")
	}
	if old.Cache != new.Cache {
		sections = append(sections, "cache")
	}
	if old.Telemetry != new.Telemetry {
		sections = append(sections, "telemetry")
	}
	return sections
}
