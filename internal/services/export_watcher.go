package services

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/codyseavey/bag-of-holding/backend/internal/metrics"
)

const (
	helvaultExtension = ".helvault"

	// defaultSettleDelay waits for a copy into the watch directory to finish
	defaultSettleDelay = 750 * time.Millisecond
)

// ExportLoader imports an export file found by the watcher
type ExportLoader func(ctx context.Context, path string) error

// ExportWatcher imports Helvault exports dropped into a directory
type ExportWatcher struct {
	dir         string
	load        ExportLoader
	settleDelay time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewExportWatcher(dir string, load ExportLoader) *ExportWatcher {
	return &ExportWatcher{
		dir:         dir,
		load:        load,
		settleDelay: defaultSettleDelay,
		timers:      make(map[string]*time.Timer),
	}
}

func isHelvaultFile(path string) bool {
	base := filepath.Base(path)
	return !strings.HasPrefix(base, ".") && strings.EqualFold(filepath.Ext(base), helvaultExtension)
}

// Start watches the directory until ctx is cancelled
func (w *ExportWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create export watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	log.Printf("Export watcher started: importing *%s files from %s", helvaultExtension, w.dir)

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			log.Println("Export watcher stopping...")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if isHelvaultFile(event.Name) {
				w.schedule(ctx, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("Export watcher: watch error: %v", err)
		}
	}
}

// schedule debounces bursts of write events for one file into a single import
func (w *ExportWatcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, exists := w.timers[path]; exists {
		timer.Reset(w.settleDelay)
		return
	}

	w.timers[path] = time.AfterFunc(w.settleDelay, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		if err := w.load(ctx, path); err != nil {
			metrics.WatcherImportsTotal.WithLabelValues("failed").Inc()
			log.Printf("Export watcher: failed to import %s: %v", filepath.Base(path), err)
			return
		}
		metrics.WatcherImportsTotal.WithLabelValues("success").Inc()
	})
}

func (w *ExportWatcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
}
