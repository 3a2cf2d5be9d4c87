package loader

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a Watcher waits for writes to a file to settle before reporting it.
const DefaultDebounce = 50 * time.Millisecond

// Watcher reports resources in a directory that were created, written, removed or renamed, so cached
// animations decoded from them can be invalidated.
type Watcher struct {
	dir        string
	debounce   time.Duration
	extensions []string
	watcher    *fsnotify.Watcher

	changes chan string
	cancel  context.CancelFunc
	done    chan struct{}

	log *slog.Logger
}

// NewWatcher starts watching dir. Changed resources are reported on Changes by their slash-separated
// name relative to dir, the same name a Loader reading dir resolves. Bursts of events for one file
// within debounce are reported once; debounce <= 0 uses DefaultDebounce. Only files with one of
// extensions are reported, matched case-insensitively; no extensions uses DefaultExtensions.
//
// Parameters:
//   - ctx: the context bounding the watcher's lifetime
//   - dir: the directory to watch
//   - debounce: the settle time before a change is reported
//   - log: the logger, nil uses slog.Default()
//   - extensions: the file extensions to report, with the leading dot
//
// Returns:
//   - *Watcher: the running watcher
//   - error: error if the directory cannot be watched
func NewWatcher(ctx context.Context, dir string, debounce time.Duration, log *slog.Logger, extensions ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = slog.Default()
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make([]string, len(extensions))
	for i, ext := range extensions {
		exts[i] = strings.ToLower(ext)
	}

	ctx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		dir:        dir,
		debounce:   debounce,
		extensions: exts,
		watcher:    fw,
		changes:    make(chan string, 64),
		cancel:     cancel,
		done:       make(chan struct{}),
		log:        log.With(slog.String("component", "watcher")),
	}
	go w.run(ctx)
	return w, nil
}

// Changes returns the channel of changed resource names. It is closed when the watcher stops.
//
// Returns:
//   - <-chan string: the changed resource names
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

// Close stops the watcher and waits for its goroutine to exit.
//
// Returns:
//   - error: error from closing the underlying fsnotify watcher
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	defer close(w.changes)

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if !slices.Contains(w.extensions, strings.ToLower(filepath.Ext(ev.Name))) {
				continue
			}
			name, err := filepath.Rel(w.dir, ev.Name)
			if err != nil {
				w.log.LogAttrs(ctx, slog.LevelWarn, "event outside watched directory", slog.String("path", ev.Name))
				continue
			}
			pending[filepath.ToSlash(name)] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.LogAttrs(ctx, slog.LevelError, "watch", slog.Any("error", err))

		case <-timer.C:
			for name := range pending {
				w.log.LogAttrs(ctx, slog.LevelDebug, "resource changed", slog.String("name", name))
				select {
				case w.changes <- name:
				case <-ctx.Done():
					return
				}
			}
			clear(pending)
		}
	}
}
