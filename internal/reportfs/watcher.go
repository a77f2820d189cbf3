package reportfs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/logger"
)

// Watcher converts Markdown reports to JSON whenever they are written.
type Watcher struct {
	store    *Store
	log      *slog.Logger
	debounce time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
	wg     sync.WaitGroup
	// OnConvert, when set, is called after every conversion attempt.
	OnConvert func(path string, err error)
}

// NewWatcher returns a watcher over the store's root. Bursts of events for
// the same file within debounce collapse into one conversion.
func NewWatcher(store *Store, debounce time.Duration, log *slog.Logger) *Watcher {
	return &Watcher{
		store:    store,
		log:      logger.OrDiscard(log).With("component", "report-watcher"),
		debounce: debounce,
		timers:   make(map[string]*time.Timer),
	}
}

// Run watches until ctx is done. The root and its month directories are
// watched; month directories created later are added as they appear.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.store.root, 0o755); err != nil {
		return fmt.Errorf("create reports dir: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.store.root); err != nil {
		return fmt.Errorf("watch %s: %w", w.store.root, err)
	}
	months, err := os.ReadDir(w.store.root)
	if err != nil {
		return fmt.Errorf("read reports dir: %w", err)
	}
	for _, m := range months {
		if m.IsDir() {
			w.addDir(fsw, filepath.Join(w.store.root, m.Name()))
		}
	}

	w.log.Info("watching reports", slog.String("dir", w.store.root))

	defer w.stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", slog.Any("err", err))
		}
	}
}

func (w *Watcher) addDir(fsw *fsnotify.Watcher, dir string) {
	if err := fsw.Add(dir); err != nil {
		w.log.Warn("watch dir", slog.String("dir", dir), slog.Any("err", err))
	}
}

func (w *Watcher) handle(fsw *fsnotify.Watcher, ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.addDir(fsw, ev.Name)
			return
		}
	}
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return
	}
	name := filepath.Base(ev.Name)
	if filepath.Ext(name) != ".md" || strings.HasPrefix(name, ".") {
		return
	}
	w.schedule(ev.Name)
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok && t.Stop() {
		t.Reset(w.debounce)
		return
	}

	var t *time.Timer
	w.wg.Add(1)
	t = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.timers[path] == t {
			delete(w.timers, path)
		}
		w.mu.Unlock()
		w.convert(path)
	})
	w.timers[path] = t
}

func (w *Watcher) convert(path string) {
	_, warnings, err := w.store.Convert(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		w.log.Debug("report removed before conversion", slog.String("path", path))
	case err != nil:
		w.log.Error("convert report", slog.String("path", path), slog.Any("err", err))
	default:
		for _, warn := range warnings {
			w.log.Warn("report warning", slog.String("path", path), slog.String("warning", warn.String()))
		}
		w.log.Info("report converted", slog.String("path", path), slog.Int("warnings", len(warnings)))
	}
	if w.OnConvert != nil {
		w.OnConvert(path, err)
	}
}

func (w *Watcher) stop() {
	w.mu.Lock()
	for path, t := range w.timers {
		if t.Stop() {
			delete(w.timers, path)
			w.wg.Done()
		}
	}
	w.mu.Unlock()
	w.wg.Wait()
}
