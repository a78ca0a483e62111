package markdown

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits for further writes before re-rendering.
const DefaultDebounce = 100 * time.Millisecond

// WatchEvent reports the outcome of one re-render
type WatchEvent struct {
	Source string
	Output string
	Error  error
}

// Watch renders mdPath once and then again after every change, until ctx is
// cancelled. The parent directory is watched rather than the file itself so
// editors that replace the file on save are still picked up. Each render is
// reported on the returned channel, which is closed when watching stops.
func (e *Executor) Watch(ctx context.Context, mdPath, outPath string, debounce time.Duration) (<-chan WatchEvent, error) {
	if err := e.guard.Check(mdPath, outPath); err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	abs, err := filepath.Abs(mdPath)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", mdPath, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	events := make(chan WatchEvent, 16)
	go e.watchLoop(ctx, fsw, abs, mdPath, outPath, debounce, events)

	e.logger.Info("Markdown watcher started", "source", mdPath, "output", outPath, "debounce", debounce)
	return events, nil
}

func (e *Executor) watchLoop(ctx context.Context, fsw *fsnotify.Watcher, abs, mdPath, outPath string, debounce time.Duration, events chan<- WatchEvent) {
	defer close(events)
	defer fsw.Close()

	emit := func() {
		ev := WatchEvent{Source: mdPath, Output: outPath, Error: e.Render(ctx, mdPath, outPath)}
		if ev.Error != nil {
			e.logger.Warn("Markdown re-render failed", "source", mdPath, "error", ev.Error)
		}
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	emit()

	// Stopped timer; armed by the first relevant event
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			e.logger.Debug("Markdown change detected", "path", mdPath, "op", event.Op.String())
			timer.Reset(debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			e.logger.Error("Watcher error", "error", err)

		case <-timer.C:
			emit()
		}
	}
}
