package document

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
	"pkt.systems/pslog"
)

// DefaultWatchInterval is the quiet period before a change is reported.
const DefaultWatchInterval = 500 * time.Millisecond

// Watcher reports when an opened file is rewritten on disk. Bursts of
// filesystem events collapse into one signal, and signals are spaced at
// least one interval apart.
type Watcher struct {
	path     string
	interval time.Duration
	fs       *fsnotify.Watcher
	limiter  *rate.Limiter
	changes  chan struct{}
	done     chan struct{}
	stop     sync.Once
	wg       sync.WaitGroup
}

// Watch starts watching path. The parent directory is watched because
// editors usually replace files instead of writing them in place.
func Watch(ctx context.Context, path string, interval time.Duration) (*Watcher, error) {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	w := &Watcher{
		path:     abs,
		interval: interval,
		fs:       fsw,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		changes:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop(pslog.Ctx(ctx).With("document", abs))
	return w, nil
}

// Path is the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Changes delivers one value per settled change. It is closed by Close.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.stop.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.wg.Wait()
		close(w.changes)
	})
	return err
}

func (w *Watcher) loop(log pslog.Logger) {
	defer w.wg.Done()
	timer := time.NewTimer(w.interval)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(w.interval)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Warn("document watch error", "err", err)
		case <-timer.C:
			if !w.limiter.Allow() {
				timer.Reset(w.interval)
				continue
			}
			log.Debug("document changed on disk")
			select {
			case w.changes <- struct{}{}:
			default:
			}
		}
	}
}
