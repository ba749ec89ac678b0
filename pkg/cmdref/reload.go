package cmdref

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Reloader keeps a current Reference for a set of paths and rebuilds it when
// the documents change. A failed rebuild leaves the previous Reference in
// place.
type Reloader struct {
	api     string
	product string
	paths   []string
	opts    []Option
	o       options
	logger  zerolog.Logger

	current atomic.Pointer[Reference]

	rebuildMu sync.Mutex

	mu       sync.Mutex // guards watcher and callbacks
	watcher  *fsnotify.Watcher
	onReload func(*Reference)
	onError  func(error)
}

// NewReloader builds the initial Reference. It fails when the documents are
// invalid at startup.
func NewReloader(api, product string, paths []string, opts ...Option) (*Reloader, error) {
	o := buildOptions(opts)
	rl := &Reloader{
		api:     api,
		product: product,
		paths:   append([]string(nil), paths...),
		opts:    opts,
		o:       o,
		logger:  o.logger.With().Str("component", "cmdref-reloader").Logger(),
	}

	ref, err := New(api, product, paths, opts...)
	if err != nil {
		return nil, err
	}
	rl.current.Store(ref)
	return rl, nil
}

// Current returns the most recently loaded valid Reference.
func (rl *Reloader) Current() *Reference {
	return rl.current.Load()
}

// OnReload registers fn to be called with each newly swapped-in Reference.
func (rl *Reloader) OnReload(fn func(*Reference)) {
	rl.mu.Lock()
	rl.onReload = fn
	rl.mu.Unlock()
}

// OnError registers fn to be called when a rebuild is rejected.
func (rl *Reloader) OnError(fn func(error)) {
	rl.mu.Lock()
	rl.onError = fn
	rl.mu.Unlock()
}

// Reload rebuilds the Reference from disk and swaps it in on success.
// Callbacks run after the rebuild lock is released, so they may call back
// into the Reloader.
func (rl *Reloader) Reload() error {
	ref, err := rl.rebuild()

	rl.mu.Lock()
	onReload, onError := rl.onReload, rl.onError
	rl.mu.Unlock()

	if err != nil {
		if onError != nil {
			onError(err)
		}
		return fmt.Errorf("failed to reload command reference: %w", err)
	}
	if onReload != nil {
		onReload(ref)
	}
	return nil
}

func (rl *Reloader) rebuild() (*Reference, error) {
	rl.rebuildMu.Lock()
	defer rl.rebuildMu.Unlock()

	ref, err := New(rl.api, rl.product, rl.paths, rl.opts...)
	rr, counted := rl.o.recorder.(ReloadRecorder)
	if err != nil {
		if counted {
			rr.RecordReload(false)
		}
		rl.logger.Warn().Err(err).Msg("Reload rejected, keeping previous command reference")
		return nil, err
	}

	rl.current.Store(ref)
	if counted {
		rr.RecordReload(true)
	}
	rl.logger.Info().Int("features", ref.Len()).Msg("Command reference reloaded")
	return ref, nil
}

// Watch starts watching the reference paths and reloads on change until ctx
// is cancelled or Close is called. It returns once the watcher is running.
func (rl *Reloader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	for _, dir := range watchDirs(rl.paths) {
		if err := watcher.Add(dir); err != nil {
			rl.logger.Warn().Err(err).Str("path", dir).Msg("Failed to watch directory")
		}
	}

	rl.mu.Lock()
	rl.watcher = watcher
	rl.mu.Unlock()

	go rl.processEvents(ctx, watcher)

	rl.logger.Info().
		Strs("paths", rl.paths).
		Dur("debounce", rl.o.debounce).
		Msg("Started watching command reference paths")
	return nil
}

// Close stops watching.
func (rl *Reloader) Close() error {
	rl.mu.Lock()
	w := rl.watcher
	rl.watcher = nil
	rl.mu.Unlock()

	if w == nil {
		return nil
	}
	return w.Close()
}

func (rl *Reloader) processEvents(ctx context.Context, watcher *fsnotify.Watcher) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = rl.Close()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 || !IsDocument(event.Name) {
				continue
			}
			rl.logger.Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("Command reference document changed")

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(rl.o.debounce, func() {
				if ctx.Err() != nil {
					return
				}
				_ = rl.Reload()
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			rl.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

// watchDirs returns the directories to watch for paths. Files and glob
// patterns are watched through their parent directory so editors that
// replace files are still seen.
func watchDirs(paths []string) []string {
	seen := make(map[string]bool)
	var dirs []string
	add := func(dir string) {
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	for _, p := range paths {
		if strings.ContainsAny(p, "*?[") {
			add(filepath.Dir(p))
			continue
		}
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			add(filepath.Dir(p))
			continue
		}
		_ = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err == nil && d.IsDir() {
				add(path)
			}
			return nil
		})
	}
	return dirs
}
