package appscout

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"codeberg.org/d-buckner/appscout/internal/backend"
	"codeberg.org/d-buckner/appscout/internal/config"
)

// Watcher observes the platform's application directories and emits
// incremental change events. Create one with Watch, consume Events, and call
// Stop when done.
type Watcher struct {
	backend  backend.Backend
	fsw      *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration

	events chan WatchEvent
	done   chan struct{}
	wg     sync.WaitGroup
	stop   sync.Once

	// poller is non-nil when the backend has sources outside the watched
	// directories (the Windows registry); lastPoll is its last snapshot.
	poller   backend.Poller
	lastPoll []backend.Source

	// State below is owned by the worker goroutine after seeding.
	apps     map[string]App                 // identifier -> last published record
	origins  map[string]map[string]struct{} // identifier -> backing artifact paths
	originID map[string]string              // artifact path -> identifier
}

// Watch seeds the current application state with a full scan, subscribes to
// filesystem notifications under the platform's search paths and starts the
// event worker. Errors during subscription setup wrap ErrWatchSetup.
func Watch(opts *Options) (*Watcher, error) {
	logger := opts.logger()

	b, err := backend.New(opts.backendConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatchSetup, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatchSetup, err)
	}

	debounce := config.DefaultDebounce
	if opts != nil && opts.Debounce > 0 {
		debounce = opts.Debounce
	}

	w := &Watcher{
		backend:  b,
		fsw:      fsw,
		logger:   logger,
		debounce: debounce,
		events:   make(chan WatchEvent, 64),
		done:     make(chan struct{}),
		apps:     make(map[string]App),
		origins:  make(map[string]map[string]struct{}),
		originID: make(map[string]string),
	}
	if p, ok := b.(backend.Poller); ok {
		w.poller = p
	}

	if err := w.seed(); err != nil {
		fsw.Close()
		return nil, err
	}

	watched := 0
	for _, dir := range b.SearchPaths() {
		if !dirIsWatchable(dir) {
			continue
		}
		if err := w.addRecursive(dir); err != nil {
			logger.Warn("skipping unwatchable directory", "dir", dir, "error", err)
			continue
		}
		watched++
	}
	if watched == 0 {
		fsw.Close()
		return nil, fmt.Errorf("%w: no watchable search path", ErrWatchSetup)
	}

	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Events delivers change notifications. The channel closes after Stop.
func (w *Watcher) Events() <-chan WatchEvent {
	return w.events
}

// Stop tears down the filesystem subscriptions, waits for the worker to
// drain and closes the event channel. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stop.Do(func() {
		close(w.done)
		w.fsw.Close()
		w.wg.Wait()
		close(w.events)
	})
}

// seed records the pre-watch state so the first batch of events reflects
// actual changes rather than the existing installation set.
func (w *Watcher) seed() error {
	sources, err := w.backend.Enumerate(context.Background())
	if err != nil {
		return fmt.Errorf("%w: initial scan: %v", ErrWatchSetup, err)
	}
	for _, app := range mergeSources(sources) {
		w.apps[app.Identifier] = app
	}
	for _, src := range sources {
		w.trackOrigin(src.Origin, src.Identifier)
	}
	if w.poller != nil {
		if snap, err := w.poller.Poll(context.Background()); err == nil {
			w.lastPoll = snap
		}
	}
	return nil
}

func (w *Watcher) trackOrigin(origin, id string) {
	w.originID[origin] = id
	if w.origins[id] == nil {
		w.origins[id] = make(map[string]struct{})
	}
	w.origins[id][origin] = struct{}{}
}

// addRecursive subscribes to a directory and its subdirectories. Bundle
// roots are watched but not descended into; changes one level down still
// surface through the root's own watch.
func (w *Watcher) addRecursive(dir string) error {
	if err := w.fsw.Add(dir); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sub := filepath.Join(dir, entry.Name())
		if w.backend.Matches(sub) {
			if err := w.fsw.Add(sub); err != nil {
				w.logger.Debug("cannot watch bundle", "path", sub, "error", err)
			}
			continue
		}
		if err := w.addRecursive(sub); err != nil {
			w.logger.Debug("cannot watch subdirectory", "path", sub, "error", err)
		}
	}
	return nil
}

// run is the worker loop: wait for a first notification, gather everything
// else arriving within the debounce window into one batch, then resolve and
// publish the batch's events.
func (w *Watcher) run() {
	defer w.wg.Done()

	var pollC <-chan time.Time
	if w.poller != nil {
		ticker := time.NewTicker(w.poller.PollInterval())
		defer ticker.Stop()
		pollC = ticker.C
	}

	for {
		select {
		case <-w.done:
			return
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("filesystem notification error", "error", err)
		case <-pollC:
			w.publish(w.pollOnce())
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			batch := w.collectBatch(ev)
			w.publish(w.resolveBatch(batch))
		}
	}
}

// pollOnce samples the non-filesystem sources and, when the snapshot moved,
// reconciles the published state against a fresh full scan.
func (w *Watcher) pollOnce() []WatchEvent {
	snap, err := w.poller.Poll(context.Background())
	if err != nil {
		w.logger.Warn("source poll failed", "error", err)
		return nil
	}
	if reflect.DeepEqual(snap, w.lastPoll) {
		return nil
	}
	w.lastPoll = snap
	return w.rescan()
}

// rescan re-enumerates, diffs against the published state and rebuilds the
// origin tables from the fresh source set.
func (w *Watcher) rescan() []WatchEvent {
	sources, err := w.backend.Enumerate(context.Background())
	if err != nil {
		w.logger.Warn("rescan failed", "error", err)
		return nil
	}

	fresh := make(map[string]App)
	var out []WatchEvent
	for _, app := range mergeSources(sources) {
		fresh[app.Identifier] = app
		old, existed := w.apps[app.Identifier]
		switch {
		case !existed:
			out = append(out, WatchEvent{Kind: Added, App: app})
		case !reflect.DeepEqual(old, app):
			out = append(out, WatchEvent{Kind: Updated, App: app})
		}
	}
	for id, old := range w.apps {
		if _, still := fresh[id]; !still {
			out = append(out, WatchEvent{Kind: Removed, App: old})
		}
	}

	w.apps = fresh
	w.origins = make(map[string]map[string]struct{})
	w.originID = make(map[string]string)
	for _, src := range sources {
		w.trackOrigin(src.Origin, src.Identifier)
	}
	return out
}

// collectBatch drains further notifications for one debounce window,
// deduplicating by path. Rapid rewrites of the same artifact collapse to a
// single resolution.
func (w *Watcher) collectBatch(first fsnotify.Event) []string {
	seen := map[string]struct{}{}
	var batch []string
	add := func(ev fsnotify.Event) {
		for _, path := range append(w.handleDirChange(ev), ev.Name) {
			if _, dup := seen[path]; dup {
				continue
			}
			seen[path] = struct{}{}
			batch = append(batch, path)
		}
	}
	add(first)

	timer := time.NewTimer(w.debounce)
	defer timer.Stop()
	for {
		select {
		case <-w.done:
			return batch
		case <-timer.C:
			return batch
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return batch
			}
			add(ev)
		}
	}
}

// handleDirChange keeps the subscription set in sync when directories appear
// under a watched root. It returns the artifacts already present in the new
// directory: a directory moved in as a whole carries files that produced no
// events of their own, and those feed the batch as synthetic changes.
func (w *Watcher) handleDirChange(ev fsnotify.Event) []string {
	if !ev.Op.Has(fsnotify.Create) || !dirIsWatchable(ev.Name) {
		return nil
	}
	if w.backend.Matches(ev.Name) {
		// A new bundle root: watch it for in-place updates, resolution of
		// the bundle itself happens through the batch entry.
		if err := w.fsw.Add(ev.Name); err != nil {
			w.logger.Debug("cannot watch bundle", "path", ev.Name, "error", err)
		}
		return nil
	}
	if err := w.addRecursive(ev.Name); err != nil {
		w.logger.Debug("cannot watch new directory", "path", ev.Name, "error", err)
	}
	return w.existingArtifacts(ev.Name)
}

// existingArtifacts lists the discovery artifacts already under a directory.
// Bundle roots count as one artifact and are not descended into.
func (w *Watcher) existingArtifacts(dir string) []string {
	var paths []string
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path != dir && w.backend.Matches(path) {
			paths = append(paths, path)
			if d.IsDir() {
				return filepath.SkipDir
			}
		}
		return nil
	})
	return paths
}

// resolveBatch turns a batch of changed paths into ordered watch events.
func (w *Watcher) resolveBatch(paths []string) []WatchEvent {
	var out []WatchEvent
	for _, path := range paths {
		out = append(out, w.resolvePath(path)...)
	}
	return out
}

// resolvePath re-derives the application state behind one changed path and
// diffs it against the published state.
func (w *Watcher) resolvePath(path string) []WatchEvent {
	resolved, err := w.backend.ResolveSingle(path)
	if err != nil {
		w.logger.Warn("skipping unresolvable change", "path", path, "error", err)
		return nil
	}
	if len(resolved) == 0 {
		return w.dropOrigin(path)
	}

	var out []WatchEvent
	// A retargeted artifact stops backing its old identifier.
	if prev, ok := w.originID[path]; ok && !backsIdentifier(resolved, prev) {
		out = append(out, w.dropOrigin(path)...)
	}
	for _, src := range resolved {
		w.trackOrigin(src.Origin, src.Identifier)
	}

	for _, app := range mergeSources(w.withSiblings(path, resolved)) {
		old, existed := w.apps[app.Identifier]
		switch {
		case !existed:
			w.apps[app.Identifier] = app
			out = append(out, WatchEvent{Kind: Added, App: app})
		case !reflect.DeepEqual(old, app):
			w.apps[app.Identifier] = app
			out = append(out, WatchEvent{Kind: Updated, App: app})
		}
	}
	return out
}

func backsIdentifier(sources []backend.Source, id string) bool {
	for _, src := range sources {
		if src.Identifier == id {
			return true
		}
	}
	return false
}

// withSiblings re-derives the other artifacts backing the identifiers of a
// freshly resolved path. Without them, one rewritten shortcut would publish a
// record stripped of the fields its siblings contribute (a registry entry
// next to several shortcuts, a system desktop entry shadowed by a user one).
func (w *Watcher) withSiblings(path string, resolved []backend.Source) []backend.Source {
	all := resolved
	seen := map[string]struct{}{path: {}}
	for _, src := range resolved {
		for origin := range w.origins[src.Identifier] {
			if _, done := seen[origin]; done {
				continue
			}
			seen[origin] = struct{}{}
			more, err := w.backend.ResolveSingle(origin)
			if err != nil {
				w.logger.Debug("skipping sibling artifact", "path", origin, "error", err)
				continue
			}
			if len(more) == 0 {
				// Not a filesystem artifact; the polled snapshot holds the
				// current state of registry-derived origins.
				more = w.polledSources(origin)
			}
			all = append(all, more...)
		}
	}
	return all
}

func (w *Watcher) polledSources(origin string) []backend.Source {
	var out []backend.Source
	for _, src := range w.lastPoll {
		if src.Origin == origin {
			out = append(out, src)
		}
	}
	return out
}

// dropOrigin forgets one backing artifact. The identifier is reported
// removed only when its last artifact is gone; an application still backed
// by another shortcut or entry stays present.
func (w *Watcher) dropOrigin(path string) []WatchEvent {
	id, ok := w.originID[path]
	if !ok {
		return nil
	}
	delete(w.originID, path)
	if set := w.origins[id]; set != nil {
		delete(set, path)
		if len(set) > 0 {
			return nil
		}
		delete(w.origins, id)
	}

	last, ok := w.apps[id]
	if !ok {
		return nil
	}
	delete(w.apps, id)
	return []WatchEvent{{Kind: Removed, App: last}}
}

func (w *Watcher) publish(events []WatchEvent) {
	for _, ev := range events {
		select {
		case w.events <- ev:
		case <-w.done:
			return
		}
	}
}

func dirIsWatchable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
