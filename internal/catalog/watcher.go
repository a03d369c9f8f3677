package catalog

import (
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 250 * time.Millisecond

// Watcher reloads the provider when catalog documents change on disk.
type Watcher struct {
	provider *Provider
	logger   *zap.Logger
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

func NewWatcher(provider *Provider, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		provider: provider,
		logger:   logger,
		watcher:  fw,
		done:     make(chan struct{}),
	}, nil
}

// Start watches every existing search path.
func (w *Watcher) Start(paths []string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			w.logger.Warn("Not watching missing catalog path", zap.String("path", path))
			continue
		}
		if err := w.watcher.Add(path); err != nil {
			return err
		}
		w.logger.Info("Watching catalog path", zap.String("path", path))
	}

	go w.loop()
	return nil
}

// Stop closes the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done
}

func (w *Watcher) loop() {
	defer close(w.done)

	var pending bool
	var last time.Time
	ticker := time.NewTicker(reloadDebounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isDocument(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending = true
				last = time.Now()
			}

		case <-ticker.C:
			if pending && time.Since(last) >= reloadDebounce {
				pending = false
				if _, err := w.provider.Reload(); err != nil {
					w.logger.Error("Catalog reload failed", zap.Error(err))
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Catalog watcher error", zap.Error(err))
		}
	}
}
