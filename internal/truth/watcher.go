package truth

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads family indexes when their truth files change on disk.
// Rapid successive writes are debounced so an editor save triggers one
// reload, not several.
type Watcher struct {
	cache    *Cache
	debounce time.Duration

	fw   *fsnotify.Watcher
	done chan struct{}

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewWatcher creates a Watcher over the cache's truth directory.
func NewWatcher(cache *Cache, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	if err := fw.Add(cache.Dir()); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch truth dir %q: %w", cache.Dir(), err)
	}

	return &Watcher{
		cache:    cache,
		debounce: debounce,
		fw:       fw,
		done:     make(chan struct{}),
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Start begins processing filesystem events until Stop is called.
func (w *Watcher) Start() {
	go w.loop()
}

// Stop stops the watcher and cancels pending debounced reloads.
func (w *Watcher) Stop() {
	close(w.done)
	w.fw.Close()

	w.mu.Lock()
	defer w.mu.Unlock()
	for family, timer := range w.timers {
		timer.Stop()
		delete(w.timers, family)
	}
}

// loop consumes fsnotify events and schedules debounced reloads.
func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			family, ok := familyFromPath(event.Name)
			if !ok {
				continue
			}
			w.scheduleReload(family)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Printf("[truth] watcher error: %v", err)
		}
	}
}

// scheduleReload (re)arms the debounce timer for a family.
func (w *Watcher) scheduleReload(family string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, exists := w.timers[family]; exists {
		timer.Stop()
	}

	w.timers[family] = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.done:
			return
		default:
		}
		log.Printf("[truth] family %q: truth data changed, reloading", family)
		w.cache.Reload(family)

		w.mu.Lock()
		delete(w.timers, family)
		w.mu.Unlock()
	})
}

// familyFromPath extracts the family name from a truth file path.
// Only .yaml files map to families.
func familyFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, ".yaml") {
		return "", false
	}
	family := strings.TrimSuffix(base, ".yaml")
	if family == "" || strings.HasPrefix(family, ".") {
		return "", false
	}
	return family, true
}
